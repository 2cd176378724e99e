package transport

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/quickmate/server/internal/v1/engine"
	"github.com/quickmate/server/internal/v1/events"
	"github.com/quickmate/server/internal/v1/game"
	"github.com/quickmate/server/internal/v1/session"
	"github.com/quickmate/server/internal/v1/store"
	"github.com/quickmate/server/internal/v1/wire"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestClient(t *testing.T, identity string) (*Client, *engine.Engine, *events.Bus) {
	t.Helper()
	bus := events.NewBus()
	eng := engine.New(store.New(nil), session.NewRegistry(session.DefaultGrace), bus)
	caller := engine.Caller{Identity: identity, ConnID: "conn-" + identity}
	eng.Connected(caller)
	return newClient(nil, eng, caller, true), eng, bus
}

func mustRaw(t *testing.T, v any) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return raw
}

func TestDispatchPing(t *testing.T) {
	c, _, _ := newTestClient(t, "alice")

	ack := c.dispatch(context.Background(), wire.Envelope{Event: wire.ReqPing, RequestID: "r1"})
	assert.True(t, ack.Success)
	assert.Equal(t, "r1", ack.RequestID)
	data, ok := ack.Data.(map[string]int64)
	require.True(t, ok)
	assert.Positive(t, data["timestamp"])
}

func TestDispatchRoomCreate(t *testing.T) {
	c, _, _ := newTestClient(t, "alice")

	ack := c.dispatch(context.Background(), wire.Envelope{
		Event:     wire.ReqRoomCreate,
		RequestID: "r2",
		Payload:   mustRaw(t, wire.CreateRoomPayload{PlayerName: "Alice"}),
	})
	require.True(t, ack.Success, "ack error: %s %s", ack.Error, ack.Message)

	res, ok := ack.Data.(engine.RoomResult)
	require.True(t, ok)
	assert.NotEmpty(t, res.RoomID)
	assert.Equal(t, "Alice", res.Room.HostName)
}

func TestDispatchValidationFailure(t *testing.T) {
	c, _, _ := newTestClient(t, "alice")

	ack := c.dispatch(context.Background(), wire.Envelope{
		Event:   wire.ReqRoomCreate,
		Payload: mustRaw(t, wire.CreateRoomPayload{PlayerName: ""}),
	})
	assert.False(t, ack.Success)
	assert.Equal(t, wire.CodeValidationFailed, ack.Error)

	ack = c.dispatch(context.Background(), wire.Envelope{
		Event:   wire.ReqGameMove,
		Payload: json.RawMessage(`{"roomId":"x","from":"e9","to":"e4"}`),
	})
	assert.False(t, ack.Success)
	assert.Equal(t, wire.CodeValidationFailed, ack.Error)

	ack = c.dispatch(context.Background(), wire.Envelope{
		Event:   wire.ReqRoomJoin,
		Payload: json.RawMessage(`{not json`),
	})
	assert.False(t, ack.Success)
	assert.Equal(t, wire.CodeValidationFailed, ack.Error)
}

func TestDispatchEngineErrorsTravelAsCodes(t *testing.T) {
	c, _, _ := newTestClient(t, "alice")

	ack := c.dispatch(context.Background(), wire.Envelope{
		Event:   wire.ReqRoomJoin,
		Payload: mustRaw(t, wire.JoinRoomPayload{RoomID: "nosuch", PlayerName: "Alice"}),
	})
	assert.False(t, ack.Success)
	assert.Equal(t, wire.CodeNotFound, ack.Error)

	ack = c.dispatch(context.Background(), wire.Envelope{
		Event:   wire.ReqGameResign,
		Payload: mustRaw(t, wire.RoomRefPayload{RoomID: "nosuch"}),
	})
	assert.False(t, ack.Success)
	assert.Equal(t, wire.CodeNotFound, ack.Error)
}

func TestDispatchUnknownEvent(t *testing.T) {
	c, _, _ := newTestClient(t, "alice")

	ack := c.dispatch(context.Background(), wire.Envelope{Event: "room:explode", RequestID: "r3"})
	assert.False(t, ack.Success)
	assert.Equal(t, wire.CodeValidationFailed, ack.Error)
	assert.Equal(t, "r3", ack.RequestID)
}

func TestDispatchLeaveWithoutPayload(t *testing.T) {
	c, eng, _ := newTestClient(t, "alice")

	ack := c.dispatch(context.Background(), wire.Envelope{
		Event:   wire.ReqRoomCreate,
		Payload: mustRaw(t, wire.CreateRoomPayload{PlayerName: "Alice"}),
	})
	require.True(t, ack.Success)
	roomID := ack.Data.(engine.RoomResult).RoomID

	// room:leave carries no payload; the room comes from the session.
	ack = c.dispatch(context.Background(), wire.Envelope{Event: wire.ReqRoomLeave, RequestID: "r4"})
	require.True(t, ack.Success, "ack error: %s %s", ack.Error, ack.Message)
	_, ok := eng.RoomSnapshot(roomID)
	assert.False(t, ok)
}

func TestDispatchFullGameOverSockets(t *testing.T) {
	ctx := context.Background()
	bus := events.NewBus()
	eng := engine.New(store.New(nil), session.NewRegistry(session.DefaultGrace), bus)

	alice := engine.Caller{Identity: "alice", ConnID: "conn-alice"}
	bob := engine.Caller{Identity: "bob", ConnID: "conn-bob"}
	eng.Connected(alice)
	eng.Connected(bob)
	ca := newClient(nil, eng, alice, true)
	cb := newClient(nil, eng, bob, true)

	ack := ca.dispatch(ctx, wire.Envelope{
		Event:   wire.ReqRoomCreate,
		Payload: mustRaw(t, wire.CreateRoomPayload{PlayerName: "Alice"}),
	})
	require.True(t, ack.Success)
	roomID := ack.Data.(engine.RoomResult).RoomID

	ack = cb.dispatch(ctx, wire.Envelope{
		Event:   wire.ReqRoomJoin,
		Payload: mustRaw(t, wire.JoinRoomPayload{RoomID: roomID, PlayerName: "Bob"}),
	})
	require.True(t, ack.Success)

	for _, m := range [][2]string{{"f2", "f3"}, {"e7", "e5"}, {"g2", "g4"}, {"d8", "h4"}} {
		snap, ok := eng.RoomSnapshot(roomID)
		require.True(t, ok)
		mover := ca
		if snap.Game.Turn == game.Black {
			mover = cb
		}
		ack = mover.dispatch(ctx, wire.Envelope{
			Event:   wire.ReqGameMove,
			Payload: mustRaw(t, wire.MovePayload{RoomID: roomID, From: m[0], To: m[1]}),
		})
		require.True(t, ack.Success, "move %v: %s", m, ack.Message)
	}

	snap, ok := eng.RoomSnapshot(roomID)
	require.True(t, ok)
	assert.Equal(t, game.StatusCheckmate, snap.Game.Status)
	assert.Equal(t, game.Black, snap.Game.Winner)
}
