package events

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quickmate/server/internal/v1/room"
	"github.com/quickmate/server/internal/v1/wire"
)

// recorder is a test sink collecting delivered events.
type recorder struct {
	mu     sync.Mutex
	events []wire.ServerEvent
}

func (r *recorder) Deliver(ev wire.ServerEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Event
	}
	return out
}

func TestBroadcastRoomReachesSubscribers(t *testing.T) {
	b := NewBus()
	host, opp, outsider := &recorder{}, &recorder{}, &recorder{}

	b.Attach("c-host", host)
	b.Attach("c-opp", opp)
	b.Attach("c-out", outsider)
	b.Subscribe("room1", "c-host", room.RoleHost)
	b.Subscribe("room1", "c-opp", room.RoleOpponent)

	b.BroadcastRoom("room1", wire.ServerEvent{Event: wire.EventGameMove, RoomID: "room1"})

	assert.Equal(t, []string{wire.EventGameMove}, host.names())
	assert.Equal(t, []string{wire.EventGameMove}, opp.names())
	assert.Empty(t, outsider.names())
}

func TestBroadcastRoomRoleFilter(t *testing.T) {
	b := NewBus()
	player, spectator := &recorder{}, &recorder{}
	b.Attach("c-p", player)
	b.Attach("c-s", spectator)
	b.Subscribe("room1", "c-p", room.RoleHost)
	b.Subscribe("room1", "c-s", room.RoleSpectator)

	b.BroadcastRoom("room1", wire.ServerEvent{Event: wire.EventChatMessage},
		room.RoleHost, room.RoleOpponent)

	assert.Len(t, player.names(), 1)
	assert.Empty(t, spectator.names())
}

func TestDirectDelivery(t *testing.T) {
	b := NewBus()
	sink := &recorder{}
	b.Attach("c1", sink)

	b.Direct("c1", wire.ServerEvent{Event: wire.EventGameSync})
	b.Direct("unknown", wire.ServerEvent{Event: wire.EventGameSync})

	assert.Equal(t, []string{wire.EventGameSync}, sink.names())
}

func TestDetachRemovesSubscriptions(t *testing.T) {
	b := NewBus()
	sink := &recorder{}
	b.Attach("c1", sink)
	b.Subscribe("room1", "c1", room.RoleSpectator)

	b.Detach("c1")
	b.BroadcastRoom("room1", wire.ServerEvent{Event: wire.EventRoomUpdated})
	b.BroadcastAll(wire.ServerEvent{Event: wire.EventRoomListUpdated})

	assert.Empty(t, sink.names())
	_, ok := b.RoomConn("room1", "c1")
	assert.False(t, ok)
}

func TestUnsubscribeAndDropRoom(t *testing.T) {
	b := NewBus()
	a, c := &recorder{}, &recorder{}
	b.Attach("ca", a)
	b.Attach("cc", c)
	b.Subscribe("room1", "ca", room.RoleHost)
	b.Subscribe("room1", "cc", room.RoleSpectator)

	b.Unsubscribe("room1", "cc")
	b.BroadcastRoom("room1", wire.ServerEvent{Event: wire.EventRoomUpdated})
	require.Len(t, a.names(), 1)
	assert.Empty(t, c.names())

	b.DropRoom("room1")
	b.BroadcastRoom("room1", wire.ServerEvent{Event: wire.EventRoomUpdated})
	assert.Len(t, a.names(), 1)

	// Detached from the room, but still reachable server-wide.
	b.BroadcastAll(wire.ServerEvent{Event: wire.EventRoomListUpdated})
	assert.Len(t, a.names(), 2)
	assert.Len(t, c.names(), 1)
}
