// Package session tracks the live binding between identities and
// connections, and runs the disconnect grace period for players.
package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/quickmate/server/internal/v1/logging"
	"github.com/quickmate/server/internal/v1/room"
)

// DefaultGrace is how long a disconnected player's seat is held.
const DefaultGrace = 60 * time.Second

// Session is the registry record for one identity.
type Session struct {
	Identity string
	ConnID   string
	RoomID   string
	Role     room.Role
	Name     string

	Connected      bool
	DisconnectedAt time.Time

	// epoch increments on every disconnect so a stale grace timer can
	// recognize it lost the race against a reconnect.
	epoch uint64
}

// InRoom reports whether the session is bound to a room.
func (s *Session) InRoom() bool { return s.RoomID != "" }

// ExpireFunc is invoked when a player's grace period elapses without a
// reconnect. It runs outside the registry lock.
type ExpireFunc func(identity, roomID string)

// Registry is the authoritative identity → session map.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	grace    time.Duration
	onExpire ExpireFunc

	// afterFunc is swappable for tests.
	afterFunc func(d time.Duration, f func()) *time.Timer
}

// NewRegistry builds a registry with the given grace period. onExpire
// may be nil while wiring; set it with OnExpire before traffic flows.
func NewRegistry(grace time.Duration) *Registry {
	if grace <= 0 {
		grace = DefaultGrace
	}
	return &Registry{
		sessions:  make(map[string]*Session),
		grace:     grace,
		afterFunc: time.AfterFunc,
	}
}

// OnExpire installs the grace-expiry callback.
func (r *Registry) OnExpire(f ExpireFunc) { r.onExpire = f }

// Grace returns the configured grace period.
func (r *Registry) Grace() time.Duration { return r.grace }

// Register binds identity to a connection, creating the session if
// needed. An existing session is rebound: reconnects land here too, and
// any running grace timer is invalidated by the epoch bump.
func (r *Registry) Register(identity, connID string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[identity]
	if !ok {
		s = &Session{Identity: identity}
		r.sessions[identity] = s
	}
	s.ConnID = connID
	s.Connected = true
	s.epoch++
	return s
}

// Lookup returns a copy of the session for identity.
func (r *Registry) Lookup(identity string) (Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[identity]
	if !ok {
		return Session{}, false
	}
	return *s, true
}

// Bind records the room membership of an identity.
func (r *Registry) Bind(identity, roomID string, role room.Role, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[identity]; ok {
		s.RoomID = roomID
		s.Role = role
		s.Name = name
	}
}

// Unbind clears the room membership of an identity.
func (r *Registry) Unbind(identity string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[identity]; ok {
		s.RoomID = ""
		s.Role = ""
	}
}

// MarkDisconnected records that the identity's connection dropped. The
// returned copy reflects the session at disconnect time. Players keep
// their session for the grace period; everyone else is discarded
// immediately and ok=false is returned for identities with no session.
func (r *Registry) MarkDisconnected(identity, connID string, now time.Time) (Session, bool) {
	r.mu.Lock()
	s, ok := r.sessions[identity]
	if !ok || s.ConnID != connID {
		// A reconnect already claimed this identity on a newer socket.
		r.mu.Unlock()
		return Session{}, false
	}
	s.Connected = false
	s.DisconnectedAt = now
	s.epoch++
	snapshot := *s

	isPlayer := s.RoomID != "" && (s.Role == room.RoleHost || s.Role == room.RoleOpponent)
	if !isPlayer {
		delete(r.sessions, identity)
		r.mu.Unlock()
		return snapshot, true
	}

	epoch := s.epoch
	roomID := s.RoomID
	r.mu.Unlock()

	r.afterFunc(r.grace, func() {
		r.graceElapsed(identity, roomID, epoch)
	})
	return snapshot, true
}

func (r *Registry) graceElapsed(identity, roomID string, epoch uint64) {
	r.mu.Lock()
	s, ok := r.sessions[identity]
	if !ok || s.Connected || s.epoch != epoch {
		r.mu.Unlock()
		return
	}
	delete(r.sessions, identity)
	r.mu.Unlock()

	logging.Info(context.Background(), "player grace period elapsed",
		zap.String("identity", identity), zap.String("room_id", roomID))
	if r.onExpire != nil {
		r.onExpire(identity, roomID)
	}
}

// Discard removes a session unconditionally.
func (r *Registry) Discard(identity string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, identity)
}

// ConnectedCounts returns the number of connected players and
// spectators, for the stats endpoint.
func (r *Registry) ConnectedCounts() (players, spectators int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sessions {
		if !s.Connected || s.RoomID == "" {
			continue
		}
		if s.Role == room.RoleSpectator {
			spectators++
		} else {
			players++
		}
	}
	return players, spectators
}
