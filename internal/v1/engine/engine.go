// Package engine is the room state machine. Every operation takes the
// caller's resolved identity, runs inside the target room's critical
// section, and emits its events before the section is released, so
// observers always see room events in mutation order.
package engine

import (
	"context"
	"time"

	"github.com/quickmate/server/internal/v1/events"
	"github.com/quickmate/server/internal/v1/game"
	"github.com/quickmate/server/internal/v1/room"
	"github.com/quickmate/server/internal/v1/session"
	"github.com/quickmate/server/internal/v1/store"
	"github.com/quickmate/server/internal/v1/wire"
)

// DefaultSpectatorCap bounds spectators per room.
const DefaultSpectatorCap = 50

// Caller is the resolved origin of a request.
type Caller struct {
	Identity string // stable identity key
	ConnID   string
	Name     string // display-name hint from the identity resolver
}

// ListPublisher replicates catalog pings to other instances. The Redis
// event bridge satisfies it; nil disables replication.
type ListPublisher interface {
	Publish(ctx context.Context, ev wire.ServerEvent)
}

// Engine owns the room store, the session registry, and the event bus.
type Engine struct {
	store    *store.Store
	sessions *session.Registry
	bus      *events.Bus
	bridge   ListPublisher

	now          func() time.Time
	spectatorCap int
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock injects the time source. Tests use it to drive clocks.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithBridge installs cross-instance catalog replication.
func WithBridge(b ListPublisher) Option {
	return func(e *Engine) { e.bridge = b }
}

// WithSpectatorCap overrides the per-room spectator bound.
func WithSpectatorCap(n int) Option {
	return func(e *Engine) { e.spectatorCap = n }
}

// New wires the engine and installs itself as the registry's
// grace-expiry handler.
func New(st *store.Store, sessions *session.Registry, bus *events.Bus, opts ...Option) *Engine {
	e := &Engine{
		store:        st,
		sessions:     sessions,
		bus:          bus,
		now:          time.Now,
		spectatorCap: DefaultSpectatorCap,
	}
	for _, opt := range opts {
		opt(e)
	}
	sessions.OnExpire(e.graceExpired)
	return e
}

// caller must have a registered session for any room operation.
func (e *Engine) session(c Caller) (session.Session, error) {
	s, ok := e.sessions.Lookup(c.Identity)
	if !ok {
		return session.Session{}, wire.ErrNotConnected
	}
	return s, nil
}

func (e *Engine) roomEvent(roomID, name string, payload any) wire.ServerEvent {
	return wire.ServerEvent{Event: name, RoomID: roomID, Payload: payload}
}

// listingChanged pings every connected client (and, via the bridge,
// every other instance) that the public catalog moved.
func (e *Engine) listingChanged(ctx context.Context) {
	ev := wire.ServerEvent{Event: wire.EventRoomListUpdated}
	e.bus.BroadcastAll(ev)
	if e.bridge != nil {
		e.bridge.Publish(ctx, ev)
	}
}

// Event payloads.

// PlayerPayload announces a player joining, leaving, or changing
// connection state.
type PlayerPayload struct {
	RoomID     string     `json:"roomId"`
	PlayerID   string     `json:"playerId"`
	PlayerName string     `json:"playerName,omitempty"`
	Color      game.Color `json:"color,omitempty"`
	// GracePeriod is the reconnect window in seconds, only on
	// player:disconnected.
	GracePeriod int `json:"gracePeriod,omitempty"`
}

// SpectatorPayload announces spectator membership changes.
type SpectatorPayload struct {
	RoomID        string `json:"roomId"`
	SpectatorID   string `json:"spectatorId"`
	SpectatorName string `json:"spectatorName,omitempty"`
	// Kicked marks removals done by the host.
	Kicked bool `json:"kicked,omitempty"`
}

// MoveBroadcast carries an accepted move and the updated clock view.
type MoveBroadcast struct {
	RoomID    string      `json:"roomId"`
	Move      game.Move   `json:"move"`
	Turn      game.Color  `json:"turn"`
	WhiteTime *int64      `json:"whiteTime"`
	BlackTime *int64      `json:"blackTime"`
	Status    game.Status `json:"status"`
}

// GameEndedPayload announces a terminal game.
type GameEndedPayload struct {
	RoomID        string      `json:"roomId"`
	Status        game.Status `json:"status"`
	Winner        game.Color  `json:"winner,omitempty"`
	FinalPosition string      `json:"finalPosition"`
}

// DrawPayload announces draw negotiation steps.
type DrawPayload struct {
	RoomID     string `json:"roomId"`
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName,omitempty"`
}

// RoomClosedPayload announces room deletion.
type RoomClosedPayload struct {
	RoomID string `json:"roomId"`
	Reason string `json:"reason"`
}

// RoomResult is the ack data of room:create, room:join, and
// room:spectate.
type RoomResult struct {
	RoomID string        `json:"roomId"`
	Color  game.Color    `json:"color,omitempty"`
	Role   room.Role     `json:"role"`
	Room   room.Snapshot `json:"room"`
}
