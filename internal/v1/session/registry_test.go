package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quickmate/server/internal/v1/room"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// manualTimers captures grace timers so tests fire them deterministically.
type manualTimers struct {
	fns []func()
}

func (m *manualTimers) afterFunc(_ time.Duration, f func()) *time.Timer {
	m.fns = append(m.fns, f)
	return time.NewTimer(time.Hour)
}

func (m *manualTimers) fireAll() {
	for _, f := range m.fns {
		f()
	}
	m.fns = nil
}

func newTestRegistry() (*Registry, *manualTimers) {
	r := NewRegistry(DefaultGrace)
	timers := &manualTimers{}
	r.afterFunc = timers.afterFunc
	return r, timers
}

func TestRegisterAndBind(t *testing.T) {
	r, _ := newTestRegistry()

	r.Register("user-1", "conn-1")
	r.Bind("user-1", "abc123", room.RoleHost, "Alice")

	s, ok := r.Lookup("user-1")
	require.True(t, ok)
	assert.Equal(t, "conn-1", s.ConnID)
	assert.Equal(t, "abc123", s.RoomID)
	assert.True(t, s.Connected)
	assert.True(t, s.InRoom())
}

func TestSpectatorDiscardedOnDisconnect(t *testing.T) {
	r, timers := newTestRegistry()
	r.Register("user-1", "conn-1")
	r.Bind("user-1", "abc123", room.RoleSpectator, "Carol")

	s, ok := r.MarkDisconnected("user-1", "conn-1", t0)
	require.True(t, ok)
	assert.Equal(t, room.RoleSpectator, s.Role)

	// No grace timer, no lingering session.
	assert.Empty(t, timers.fns)
	_, ok = r.Lookup("user-1")
	assert.False(t, ok)
}

func TestPlayerGraceExpiry(t *testing.T) {
	r, timers := newTestRegistry()
	var expiredIdentity, expiredRoom string
	r.OnExpire(func(identity, roomID string) {
		expiredIdentity, expiredRoom = identity, roomID
	})

	r.Register("user-1", "conn-1")
	r.Bind("user-1", "abc123", room.RoleHost, "Alice")

	_, ok := r.MarkDisconnected("user-1", "conn-1", t0)
	require.True(t, ok)
	require.Len(t, timers.fns, 1)

	// Session survives until the timer fires.
	s, ok := r.Lookup("user-1")
	require.True(t, ok)
	assert.False(t, s.Connected)

	timers.fireAll()
	assert.Equal(t, "user-1", expiredIdentity)
	assert.Equal(t, "abc123", expiredRoom)
	_, ok = r.Lookup("user-1")
	assert.False(t, ok)
}

func TestReconnectBeatsGraceTimer(t *testing.T) {
	r, timers := newTestRegistry()
	expired := false
	r.OnExpire(func(string, string) { expired = true })

	r.Register("user-1", "conn-1")
	r.Bind("user-1", "abc123", room.RoleOpponent, "Bob")
	_, ok := r.MarkDisconnected("user-1", "conn-1", t0)
	require.True(t, ok)

	// Reconnect on a new socket before the timer fires.
	r.Register("user-1", "conn-2")

	timers.fireAll()
	assert.False(t, expired, "stale grace timer must not fire after reconnect")

	s, ok := r.Lookup("user-1")
	require.True(t, ok)
	assert.Equal(t, "conn-2", s.ConnID)
	assert.True(t, s.Connected)
}

func TestStaleDisconnectIgnored(t *testing.T) {
	r, timers := newTestRegistry()
	r.Register("user-1", "conn-1")
	r.Bind("user-1", "abc123", room.RoleHost, "Alice")

	// A newer socket claims the identity before the old one reports its
	// disconnect.
	r.Register("user-1", "conn-2")

	_, ok := r.MarkDisconnected("user-1", "conn-1", t0)
	assert.False(t, ok)
	assert.Empty(t, timers.fns)

	s, _ := r.Lookup("user-1")
	assert.True(t, s.Connected)
}

func TestConnectedCounts(t *testing.T) {
	r, _ := newTestRegistry()
	r.Register("p1", "c1")
	r.Bind("p1", "room1", room.RoleHost, "Alice")
	r.Register("p2", "c2")
	r.Bind("p2", "room1", room.RoleOpponent, "Bob")
	r.Register("s1", "c3")
	r.Bind("s1", "room1", room.RoleSpectator, "Carol")
	r.Register("idle", "c4")

	players, spectators := r.ConnectedCounts()
	assert.Equal(t, 2, players)
	assert.Equal(t, 1, spectators)
}
