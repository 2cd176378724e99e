// Package events fans server events out to connections. Delivery is a
// non-blocking enqueue onto each connection's send buffer, so emitting
// inside a room's critical section never blocks on socket I/O while
// still preserving per-room event order.
package events

import (
	"sync"

	"k8s.io/utils/set"

	"github.com/quickmate/server/internal/v1/room"
	"github.com/quickmate/server/internal/v1/wire"
)

// Sink receives events for one connection. Implementations must not
// block; a full buffer is the sink's problem to handle (typically by
// closing the connection as a slow client).
type Sink interface {
	Deliver(ev wire.ServerEvent)
}

type subscriber struct {
	connID string
	role   room.Role
}

// Bus routes events to attached connections, by room with optional role
// filtering, directly by connection, or server-wide.
type Bus struct {
	mu    sync.RWMutex
	conns map[string]Sink
	rooms map[string]map[string]room.Role // roomID → connID → role
}

// NewBus builds an empty bus.
func NewBus() *Bus {
	return &Bus{
		conns: make(map[string]Sink),
		rooms: make(map[string]map[string]room.Role),
	}
}

// Attach registers a connection's sink.
func (b *Bus) Attach(connID string, sink Sink) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.conns[connID] = sink
}

// Detach removes a connection and all of its room subscriptions.
func (b *Bus) Detach(connID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.conns, connID)
	for roomID, subs := range b.rooms {
		delete(subs, connID)
		if len(subs) == 0 {
			delete(b.rooms, roomID)
		}
	}
}

// Subscribe adds a connection to a room's fan-out set with its role.
func (b *Bus) Subscribe(roomID, connID string, role room.Role) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs, ok := b.rooms[roomID]
	if !ok {
		subs = make(map[string]room.Role)
		b.rooms[roomID] = subs
	}
	subs[connID] = role
}

// Unsubscribe removes a connection from a room's fan-out set.
func (b *Bus) Unsubscribe(roomID, connID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if subs, ok := b.rooms[roomID]; ok {
		delete(subs, connID)
		if len(subs) == 0 {
			delete(b.rooms, roomID)
		}
	}
}

// DropRoom removes a room's entire fan-out set (room deleted).
func (b *Bus) DropRoom(roomID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.rooms, roomID)
}

// BroadcastRoom delivers ev to the room's subscribers. With no roles
// given every subscriber receives it; otherwise delivery is filtered to
// the named roles.
func (b *Bus) BroadcastRoom(roomID string, ev wire.ServerEvent, roles ...room.Role) {
	filter := set.New(roles...)
	b.mu.RLock()
	defer b.mu.RUnlock()
	for connID, role := range b.rooms[roomID] {
		if filter.Len() > 0 && !filter.Has(role) {
			continue
		}
		if sink, ok := b.conns[connID]; ok {
			sink.Deliver(ev)
		}
	}
}

// Direct delivers ev to a single connection, if attached.
func (b *Bus) Direct(connID string, ev wire.ServerEvent) {
	b.mu.RLock()
	sink, ok := b.conns[connID]
	b.mu.RUnlock()
	if ok {
		sink.Deliver(ev)
	}
}

// BroadcastAll delivers ev to every attached connection. Used for
// room:list-updated catalog pings.
func (b *Bus) BroadcastAll(ev wire.ServerEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sink := range b.conns {
		sink.Deliver(ev)
	}
}

// RoomConn reports the role a connection holds in a room.
func (b *Bus) RoomConn(roomID, connID string) (room.Role, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	role, ok := b.rooms[roomID][connID]
	return role, ok
}
