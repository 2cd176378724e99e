package engine

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/quickmate/server/internal/v1/game"
	"github.com/quickmate/server/internal/v1/logging"
	"github.com/quickmate/server/internal/v1/room"
	"github.com/quickmate/server/internal/v1/wire"
)

// Connected registers the identity's session for a fresh connection.
func (e *Engine) Connected(c Caller) {
	e.sessions.Register(c.Identity, c.ConnID)
}

// Disconnected handles a dropped connection. Spectators are removed
// immediately; players keep their seat for the grace period, unless the
// identity cannot reconnect at all, in which case they forfeit now.
func (e *Engine) Disconnected(ctx context.Context, c Caller, reconnectable bool) {
	s, ok := e.sessions.MarkDisconnected(c.Identity, c.ConnID, e.now())
	if !ok || s.RoomID == "" {
		return
	}

	if s.Role == room.RoleSpectator {
		_ = e.store.With(ctx, s.RoomID, func(r *room.Room) error {
			name, ok := r.Spectators[c.Identity]
			if !ok {
				return nil
			}
			delete(r.Spectators, c.Identity)
			r.Touch(e.now())
			e.bus.BroadcastRoom(r.ID, e.roomEvent(r.ID, wire.EventSpectatorLeft, SpectatorPayload{
				RoomID: r.ID, SpectatorID: c.Identity, SpectatorName: name,
			}))
			return nil
		})
		e.listingChanged(ctx)
		return
	}

	if !reconnectable {
		// Connection-tier identity: nothing can ever rebind it.
		e.sessions.Discard(c.Identity)
		e.forfeit(ctx, c.Identity, s.RoomID)
		return
	}

	grace := int(e.sessions.Grace() / time.Second)
	_ = e.store.With(ctx, s.RoomID, func(r *room.Room) error {
		if !r.IsPlayer(c.Identity) {
			return nil
		}
		color, _ := r.PlayerColor(c.Identity)
		e.bus.BroadcastRoom(r.ID, e.roomEvent(r.ID, wire.EventPlayerDisconnected, PlayerPayload{
			RoomID: r.ID, PlayerID: c.Identity, PlayerName: r.PlayerName(c.Identity),
			Color: color, GracePeriod: grace,
		}))
		return nil
	})
}

// graceExpired is the registry callback: the player never came back.
func (e *Engine) graceExpired(identity, roomID string) {
	ctx := context.Background()
	e.forfeit(ctx, identity, roomID)
}

// forfeit resolves a player's permanent departure: a live game is
// abandoned to the opponent, a waiting room is closed.
func (e *Engine) forfeit(ctx context.Context, identity, roomID string) {
	closeRoom := false
	err := e.store.With(ctx, roomID, func(r *room.Room) error {
		if !r.IsPlayer(identity) {
			return nil
		}
		now := e.now()
		color, _ := r.PlayerColor(identity)
		e.bus.BroadcastRoom(r.ID, e.roomEvent(r.ID, wire.EventPlayerLeft, PlayerPayload{
			RoomID: r.ID, PlayerID: identity, PlayerName: r.PlayerName(identity), Color: color,
		}))
		switch r.State {
		case room.StateInProgress:
			r.Game.End(game.StatusAbandoned, color.Other())
			r.Finish(now)
			e.emitGameEnded(r)
		case room.StateWaiting:
			closeRoom = true
			e.bus.BroadcastRoom(r.ID, e.roomEvent(r.ID, wire.EventRoomClosed, RoomClosedPayload{
				RoomID: r.ID, Reason: "host_left",
			}))
		}
		r.DrawOfferer = ""
		return nil
	})
	if err != nil {
		return
	}
	if closeRoom {
		e.store.Delete(ctx, roomID)
		e.bus.DropRoom(roomID)
	}
	e.listingChanged(ctx)
}

// RestoreResult is the ack data of session:restore.
type RestoreResult struct {
	Restored bool           `json:"restored"`
	Role     room.Role      `json:"role,omitempty"`
	Color    game.Color     `json:"color,omitempty"`
	Room     *room.Snapshot `json:"room,omitempty"`
}

// RestoreSession reconciles a reconnecting client with its room. The
// room comes from the registry's preserved session unless the payload
// names one. If the claimed membership no longer holds, the response
// says so instead of failing, so clients can reset cleanly.
func (e *Engine) RestoreSession(ctx context.Context, c Caller, p wire.SessionScopedPayload) (RestoreResult, error) {
	s, err := e.session(c)
	if err != nil {
		return RestoreResult{}, err
	}
	roomID := p.RoomID
	if roomID == "" {
		roomID = s.RoomID
	}
	if roomID == "" {
		return RestoreResult{Restored: false}, nil
	}

	var result RestoreResult
	err = e.store.With(ctx, roomID, func(r *room.Room) error {
		switch {
		case r.IsPlayer(c.Identity):
			color, _ := r.PlayerColor(c.Identity)
			role := room.RoleOpponent
			if c.Identity == r.HostID {
				role = room.RoleHost
			}
			e.bus.Subscribe(r.ID, c.ConnID, role)
			e.sessions.Bind(c.Identity, r.ID, role, r.PlayerName(c.Identity))
			e.bus.BroadcastRoom(r.ID, e.roomEvent(r.ID, wire.EventPlayerReconnected, PlayerPayload{
				RoomID: r.ID, PlayerID: c.Identity, PlayerName: r.PlayerName(c.Identity), Color: color,
			}))
			if r.Game != nil {
				e.bus.Direct(c.ConnID, e.roomEvent(r.ID, wire.EventGameSync, r.Game.Clone()))
			}
			snap := r.Snapshot()
			result = RestoreResult{Restored: true, Role: role, Color: color, Room: &snap}
		case r.Spectators[c.Identity] != "":
			e.bus.Subscribe(r.ID, c.ConnID, room.RoleSpectator)
			e.sessions.Bind(c.Identity, r.ID, room.RoleSpectator, r.Spectators[c.Identity])
			if r.Game != nil {
				e.bus.Direct(c.ConnID, e.roomEvent(r.ID, wire.EventGameSync, r.Game.Clone()))
			}
			snap := r.Snapshot()
			result = RestoreResult{Restored: true, Role: room.RoleSpectator, Room: &snap}
		default:
			result = RestoreResult{Restored: false}
		}
		return nil
	})
	if err != nil {
		// A vanished room is a clean "nothing to restore", not a failure.
		e.sessions.Unbind(c.Identity)
		return RestoreResult{Restored: false}, nil
	}
	if !result.Restored {
		e.sessions.Unbind(c.Identity)
	}
	return result, nil
}

// RunClockSweep drives flag-fall detection for games whose player on
// move has gone silent. It ticks until ctx is cancelled.
func (e *Engine) RunClockSweep(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.sweepClocks(ctx)
		}
	}
}

func (e *Engine) sweepClocks(ctx context.Context) {
	var ended bool
	for _, id := range e.store.IDs() {
		_ = e.store.With(ctx, id, func(r *room.Room) error {
			if r.State != room.StateInProgress || r.Game == nil {
				return nil
			}
			now := e.now()
			if !r.Game.FlagFallen(now) {
				return nil
			}
			r.Game.EndTimeout(now)
			r.Finish(now)
			e.emitGameEnded(r)
			ended = true
			logging.Info(ctx, "flag fell", zap.String("room_id", r.ID),
				zap.String("winner", string(r.Game.Winner)))
			return nil
		})
	}
	if ended {
		e.listingChanged(ctx)
	}
}

// RunJanitor reaps idle rooms on the store's thresholds until ctx is
// cancelled.
func (e *Engine) RunJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.reapIdle(ctx)
		}
	}
}

func (e *Engine) reapIdle(ctx context.Context) {
	reaped := e.store.Sweep(ctx, e.now())
	for _, r := range reaped {
		e.bus.BroadcastRoom(r.ID, e.roomEvent(r.ID, wire.EventRoomClosed, RoomClosedPayload{
			RoomID: r.ID, Reason: "expired",
		}))
		e.bus.DropRoom(r.ID)

		members := []string{r.HostID, r.OpponentID}
		for id := range r.Spectators {
			members = append(members, id)
		}
		for _, id := range members {
			if id == "" {
				continue
			}
			if s, ok := e.sessions.Lookup(id); ok && s.RoomID == r.ID {
				e.sessions.Unbind(id)
			}
		}
	}
	if len(reaped) > 0 {
		e.listingChanged(ctx)
	}
}
