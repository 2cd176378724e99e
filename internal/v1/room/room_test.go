package room

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quickmate/server/internal/v1/game"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestRoom(t *testing.T) *Room {
	t.Helper()
	return New("abc123", "host-1", "Alice", DefaultSettings(), t0)
}

func TestNewRoomStartsWaiting(t *testing.T) {
	r := newTestRoom(t)

	assert.Equal(t, StateWaiting, r.State)
	assert.Equal(t, 1, r.PlayerCount())
	assert.Nil(t, r.Game)
	assert.True(t, r.Listable())
}

func TestAdmitOpponentStartsGame(t *testing.T) {
	r := newTestRoom(t)
	r.Settings.TimeControl = &game.TimeControl{Initial: 300, Increment: 2}

	r.AdmitOpponent("opp-1", "Bob", t0.Add(time.Minute))

	assert.Equal(t, StateInProgress, r.State)
	assert.Equal(t, 2, r.PlayerCount())
	require.NotNil(t, r.Game)
	assert.Equal(t, int64(300_000), *r.Game.WhiteTime)

	color, ok := r.PlayerColor("host-1")
	require.True(t, ok)
	assert.Equal(t, game.White, color)
	color, ok = r.PlayerColor("opp-1")
	require.True(t, ok)
	assert.Equal(t, game.Black, color)

	assert.Equal(t, "opp-1", r.OtherPlayer("host-1"))
	assert.Equal(t, "host-1", r.OtherPlayer("opp-1"))
}

func TestPlayerColorUnknownIdentity(t *testing.T) {
	r := newTestRoom(t)
	_, ok := r.PlayerColor("stranger")
	assert.False(t, ok)
	assert.False(t, r.IsPlayer("stranger"))
}

func TestFinishClearsDrawOffer(t *testing.T) {
	r := newTestRoom(t)
	r.AdmitOpponent("opp-1", "Bob", t0)
	r.DrawOfferer = "host-1"

	r.Finish(t0.Add(time.Hour))

	assert.Equal(t, StateFinished, r.State)
	assert.Empty(t, r.DrawOfferer)
	assert.Equal(t, t0.Add(time.Hour).UnixMilli(), r.LastActivity)
}

func TestPasswordRoundTrip(t *testing.T) {
	s := DefaultSettings()
	require.NoError(t, s.SetPassword("swordfish"))

	assert.True(t, s.HasPassword())
	assert.True(t, s.CheckPassword("swordfish"))
	assert.False(t, s.CheckPassword("SWORDFISH"))
	assert.False(t, s.CheckPassword(""))

	require.NoError(t, s.SetPassword(""))
	assert.False(t, s.HasPassword())
}

func TestPasswordNeverSerialized(t *testing.T) {
	r := newTestRoom(t)
	r.Settings.IsLocked = true
	require.NoError(t, r.Settings.SetPassword("swordfish"))

	for _, v := range []any{r, r.Settings, r.Snapshot(), r.Listing()} {
		raw, err := json.Marshal(v)
		require.NoError(t, err)
		assert.NotContains(t, string(raw), "swordfish")
		assert.NotContains(t, string(raw), "passwordHash")
	}

	snap := r.Snapshot()
	assert.True(t, snap.Settings.HasPassword)
	assert.True(t, r.Listing().IsLocked)
}

func TestListingExcludesPrivateRooms(t *testing.T) {
	r := newTestRoom(t)
	r.Settings.IsPrivate = true
	assert.False(t, r.Listable())

	r.Settings.IsPrivate = false
	r.Settings.AllowJoin = false
	assert.False(t, r.Listable())
}

func TestChatHistoryBounded(t *testing.T) {
	r := newTestRoom(t)
	for i := 0; i < 150; i++ {
		r.AddChat(ChatMessage{SenderID: "host-1", Message: "hi", ChatType: "public", Timestamp: int64(i)})
	}
	assert.Len(t, r.Chat, 100)
	assert.Equal(t, int64(50), r.Chat[0].Timestamp)
}

func TestRecentPublicChatFiltersPrivate(t *testing.T) {
	r := newTestRoom(t)
	r.AddChat(ChatMessage{Message: "public", ChatType: "public"})
	r.AddChat(ChatMessage{Message: "secret", ChatType: "private"})

	public := r.RecentPublicChat()
	require.Len(t, public, 1)
	assert.Equal(t, "public", public[0].Message)
}

func TestCloneIsDeep(t *testing.T) {
	r := newTestRoom(t)
	r.AdmitOpponent("opp-1", "Bob", t0)
	r.Spectators["spec-1"] = "Carol"

	dup := r.Clone()
	dup.Spectators["spec-2"] = "Dave"
	dup.Game.Turn = game.Black

	assert.NotContains(t, r.Spectators, "spec-2")
	assert.Equal(t, game.White, r.Game.Turn)
}
