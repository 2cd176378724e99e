package engine

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/quickmate/server/internal/v1/game"
	"github.com/quickmate/server/internal/v1/logging"
	"github.com/quickmate/server/internal/v1/room"
	"github.com/quickmate/server/internal/v1/session"
	"github.com/quickmate/server/internal/v1/store"
	"github.com/quickmate/server/internal/v1/wire"
)

// mapStoreErr converts store misses to the protocol's not_found.
func mapStoreErr(err error) error {
	if errors.Is(err, store.ErrNoRoom) {
		return wire.ErrNotFound
	}
	return err
}

// applySettings merges the wire settings onto the room settings. Only
// fields present in the payload change.
func applySettings(dst *room.Settings, src *wire.RoomSettings) {
	if src == nil {
		return
	}
	if src.TimeControl != nil {
		dst.TimeControl = &game.TimeControl{
			Initial:   src.TimeControl.Initial,
			Increment: src.TimeControl.Increment,
		}
	}
	if src.AllowSpectators != nil {
		dst.AllowSpectators = *src.AllowSpectators
	}
	if src.AllowJoin != nil {
		dst.AllowJoin = *src.AllowJoin
	}
	if src.IsPrivate != nil {
		dst.IsPrivate = *src.IsPrivate
	}
	if src.RoomName != nil {
		dst.RoomName = *src.RoomName
	}
}

// releaseStaleBinding frees a session still pointing at a finished or
// vanished room so the identity can enter a new one. Only a live room
// blocks with already_in_room.
func (e *Engine) releaseStaleBinding(c Caller, s session.Session) error {
	if !s.InRoom() {
		return nil
	}
	if r, ok := e.store.Get(s.RoomID); ok && r.State != room.StateFinished {
		return wire.ErrAlreadyInRoom
	}
	e.bus.Unsubscribe(s.RoomID, c.ConnID)
	e.sessions.Unbind(c.Identity)
	return nil
}

// checkAdmission enforces the lock and password gate shared by join and
// spectate.
func checkAdmission(r *room.Room, password string) error {
	if !r.Settings.IsLocked {
		return nil
	}
	if !r.Settings.HasPassword() {
		return wire.ErrRoomLocked
	}
	if password == "" {
		return wire.ErrPasswordRequired
	}
	if !r.Settings.CheckPassword(password) {
		return wire.ErrPasswordIncorrect
	}
	return nil
}

// CreateRoom creates a room with the caller as host (white).
func (e *Engine) CreateRoom(ctx context.Context, c Caller, p wire.CreateRoomPayload) (RoomResult, error) {
	s, err := e.session(c)
	if err != nil {
		return RoomResult{}, err
	}
	if err := e.releaseStaleBinding(c, s); err != nil {
		return RoomResult{}, err
	}

	settings := room.DefaultSettings()
	applySettings(&settings, p.Settings)

	r := room.New(e.store.NewRoomID(), c.Identity, p.PlayerName, settings, e.now())
	e.store.Create(ctx, r)
	e.bus.Subscribe(r.ID, c.ConnID, room.RoleHost)
	e.sessions.Bind(c.Identity, r.ID, room.RoleHost, p.PlayerName)

	logging.Info(ctx, "room created",
		zap.String("room_id", r.ID), zap.String("identity", c.Identity))
	if r.Listable() {
		e.listingChanged(ctx)
	}
	return RoomResult{RoomID: r.ID, Color: game.White, Role: room.RoleHost, Room: r.Snapshot()}, nil
}

// JoinRoom seats the caller as the opponent (black) and starts the game.
func (e *Engine) JoinRoom(ctx context.Context, c Caller, p wire.JoinRoomPayload) (RoomResult, error) {
	s, err := e.session(c)
	if err != nil {
		return RoomResult{}, err
	}
	if err := e.releaseStaleBinding(c, s); err != nil {
		return RoomResult{}, err
	}

	var result RoomResult
	err = e.store.With(ctx, p.RoomID, func(r *room.Room) error {
		switch r.State {
		case room.StateInProgress:
			return wire.ErrRoomFull
		case room.StateFinished:
			return wire.ErrJoinNotAllowed
		}
		if !r.Settings.AllowJoin {
			return wire.ErrJoinNotAllowed
		}
		if c.Identity == r.HostID {
			return wire.ErrAlreadyInRoom
		}
		if err := checkAdmission(r, p.Password); err != nil {
			return err
		}

		r.AdmitOpponent(c.Identity, p.PlayerName, e.now())
		e.bus.Subscribe(r.ID, c.ConnID, room.RoleOpponent)
		e.sessions.Bind(c.Identity, r.ID, room.RoleOpponent, p.PlayerName)

		snap := r.Snapshot()
		e.bus.BroadcastRoom(r.ID, e.roomEvent(r.ID, wire.EventPlayerJoined, PlayerPayload{
			RoomID: r.ID, PlayerID: c.Identity, PlayerName: p.PlayerName, Color: game.Black,
		}))
		e.bus.BroadcastRoom(r.ID, e.roomEvent(r.ID, wire.EventGameStarted, snap))
		e.bus.BroadcastRoom(r.ID, e.roomEvent(r.ID, wire.EventRoomUpdated, snap))
		e.bus.Direct(c.ConnID, e.roomEvent(r.ID, wire.EventGameSync, r.Game.Clone()))

		result = RoomResult{RoomID: r.ID, Color: game.Black, Role: room.RoleOpponent, Room: snap}
		return nil
	})
	if err != nil {
		return RoomResult{}, mapStoreErr(err)
	}

	logging.Info(ctx, "opponent joined",
		zap.String("room_id", result.RoomID), zap.String("identity", c.Identity))
	e.listingChanged(ctx)
	return result, nil
}

// Spectate adds the caller as a spectator.
func (e *Engine) Spectate(ctx context.Context, c Caller, p wire.SpectatePayload) (RoomResult, error) {
	s, err := e.session(c)
	if err != nil {
		return RoomResult{}, err
	}
	rewatch := s.Role == room.RoleSpectator && strings.EqualFold(s.RoomID, p.RoomID)
	if !rewatch {
		if err := e.releaseStaleBinding(c, s); err != nil {
			return RoomResult{}, err
		}
	}

	name := p.SpectatorName
	if name == "" {
		name = c.Name
	}
	if name == "" {
		name = "Spectator"
	}

	var result RoomResult
	var rejoined bool
	err = e.store.With(ctx, p.RoomID, func(r *room.Room) error {
		if current, ok := r.Spectators[c.Identity]; ok {
			// Same identity watching again: rebind the connection and
			// hand back the current view, membership unchanged.
			rejoined = true
			name = current
			e.bus.Subscribe(r.ID, c.ConnID, room.RoleSpectator)
			e.sessions.Bind(c.Identity, r.ID, room.RoleSpectator, name)
			if r.Game != nil {
				e.bus.Direct(c.ConnID, e.roomEvent(r.ID, wire.EventGameSync, r.Game.Clone()))
			}
			result = RoomResult{RoomID: r.ID, Role: room.RoleSpectator, Room: r.Snapshot()}
			return nil
		}

		if !r.Settings.AllowSpectators {
			return wire.ErrSpectateNotAllowed
		}
		if len(r.Spectators) >= e.spectatorCap {
			return wire.NewError(wire.CodeSpectateNotAllowed, "spectator limit reached")
		}
		if err := checkAdmission(r, p.Password); err != nil {
			return err
		}

		r.Spectators[c.Identity] = name
		r.Touch(e.now())
		e.bus.Subscribe(r.ID, c.ConnID, room.RoleSpectator)
		e.sessions.Bind(c.Identity, r.ID, room.RoleSpectator, name)

		e.bus.BroadcastRoom(r.ID, e.roomEvent(r.ID, wire.EventSpectatorJoined, SpectatorPayload{
			RoomID: r.ID, SpectatorID: c.Identity, SpectatorName: name,
		}))
		if r.Game != nil {
			e.bus.Direct(c.ConnID, e.roomEvent(r.ID, wire.EventGameSync, r.Game.Clone()))
		}

		result = RoomResult{RoomID: r.ID, Role: room.RoleSpectator, Room: r.Snapshot()}
		return nil
	})
	if err != nil {
		return RoomResult{}, mapStoreErr(err)
	}

	if !rejoined {
		e.listingChanged(ctx)
	}
	return result, nil
}

// Leave removes the caller from the room. A player leaving a live game
// forfeits it; the host leaving a waiting room closes it. The room is
// taken from the caller's session unless the payload names one.
func (e *Engine) Leave(ctx context.Context, c Caller, p wire.SessionScopedPayload) error {
	s, err := e.session(c)
	if err != nil {
		return err
	}
	roomID := p.RoomID
	if roomID == "" {
		roomID = s.RoomID
	}
	if roomID == "" {
		return wire.NewError(wire.CodeNotAPlayer, "identity is not in any room")
	}

	closeRoom := false
	err = e.store.With(ctx, roomID, func(r *room.Room) error {
		now := e.now()
		switch {
		case r.IsPlayer(c.Identity):
			color, _ := r.PlayerColor(c.Identity)
			e.bus.BroadcastRoom(r.ID, e.roomEvent(r.ID, wire.EventPlayerLeft, PlayerPayload{
				RoomID: r.ID, PlayerID: c.Identity, PlayerName: r.PlayerName(c.Identity), Color: color,
			}))
			if r.State == room.StateInProgress {
				r.Game.End(game.StatusAbandoned, color.Other())
				r.Finish(now)
				e.emitGameEnded(r)
			} else if r.State == room.StateWaiting {
				closeRoom = true
				e.bus.BroadcastRoom(r.ID, e.roomEvent(r.ID, wire.EventRoomClosed, RoomClosedPayload{
					RoomID: r.ID, Reason: "host_left",
				}))
			}
			r.DrawOfferer = ""
			r.Touch(now)
		case r.Spectators[c.Identity] != "":
			name := r.Spectators[c.Identity]
			delete(r.Spectators, c.Identity)
			r.Touch(now)
			e.bus.BroadcastRoom(r.ID, e.roomEvent(r.ID, wire.EventSpectatorLeft, SpectatorPayload{
				RoomID: r.ID, SpectatorID: c.Identity, SpectatorName: name,
			}))
		default:
			return wire.NewError(wire.CodeNotAPlayer, "identity is not in this room")
		}
		return nil
	})
	if err != nil {
		return mapStoreErr(err)
	}

	e.bus.Unsubscribe(roomID, c.ConnID)
	e.sessions.Unbind(c.Identity)
	if closeRoom {
		e.store.Delete(ctx, roomID)
		e.bus.DropRoom(roomID)
	}
	e.listingChanged(ctx)
	return nil
}

// KickSpectator removes a spectator at the host's request. Players
// cannot be kicked.
func (e *Engine) KickSpectator(ctx context.Context, c Caller, p wire.KickPayload) error {
	if _, err := e.session(c); err != nil {
		return err
	}

	var targetConn string
	err := e.store.With(ctx, p.RoomID, func(r *room.Room) error {
		if r.HostID != c.Identity {
			return wire.ErrHostOnly
		}
		if r.IsPlayer(p.TargetID) {
			return wire.ErrCannotKickPlayer
		}
		name, ok := r.Spectators[p.TargetID]
		if !ok {
			return wire.NewError(wire.CodeNotFound, "spectator not found")
		}
		delete(r.Spectators, p.TargetID)
		r.Touch(e.now())

		if ts, ok := e.sessions.Lookup(p.TargetID); ok {
			targetConn = ts.ConnID
			e.bus.Direct(targetConn, e.roomEvent(r.ID, wire.EventRoomKicked, SpectatorPayload{
				RoomID: r.ID, SpectatorID: p.TargetID, Kicked: true,
			}))
		}
		e.bus.BroadcastRoom(r.ID, e.roomEvent(r.ID, wire.EventSpectatorLeft, SpectatorPayload{
			RoomID: r.ID, SpectatorID: p.TargetID, SpectatorName: name, Kicked: true,
		}))
		e.bus.BroadcastRoom(r.ID, e.roomEvent(r.ID, wire.EventRoomUpdated, r.Snapshot()))
		return nil
	})
	if err != nil {
		return mapStoreErr(err)
	}

	if targetConn != "" {
		e.bus.Unsubscribe(p.RoomID, targetConn)
	}
	e.sessions.Unbind(p.TargetID)
	e.listingChanged(ctx)
	return nil
}

// LockRoom locks or unlocks the room, optionally (re)setting the
// password. Unlocking always clears it.
func (e *Engine) LockRoom(ctx context.Context, c Caller, p wire.LockPayload) error {
	if _, err := e.session(c); err != nil {
		return err
	}

	err := e.store.With(ctx, p.RoomID, func(r *room.Room) error {
		if r.HostID != c.Identity {
			return wire.ErrHostOnly
		}
		r.Settings.IsLocked = p.Locked
		if p.Locked {
			if err := r.Settings.SetPassword(p.Password); err != nil {
				return err
			}
		} else {
			_ = r.Settings.SetPassword("")
		}
		r.Touch(e.now())
		e.bus.BroadcastRoom(r.ID, e.roomEvent(r.ID, wire.EventRoomUpdated, r.Snapshot()))
		return nil
	})
	if err != nil {
		return mapStoreErr(err)
	}
	e.listingChanged(ctx)
	return nil
}

// UpdateSettings merges new settings into the room. The time control is
// immutable once the game has started.
func (e *Engine) UpdateSettings(ctx context.Context, c Caller, p wire.UpdateSettingsPayload) error {
	if _, err := e.session(c); err != nil {
		return err
	}

	err := e.store.With(ctx, p.RoomID, func(r *room.Room) error {
		if r.HostID != c.Identity {
			return wire.ErrHostOnly
		}
		if p.Settings.TimeControl != nil && r.State != room.StateWaiting {
			return wire.NewError(wire.CodeValidationFailed, "timeControl cannot change after the game starts")
		}
		applySettings(&r.Settings, p.Settings)
		r.Touch(e.now())
		e.bus.BroadcastRoom(r.ID, e.roomEvent(r.ID, wire.EventRoomUpdated, r.Snapshot()))
		return nil
	})
	if err != nil {
		return mapStoreErr(err)
	}
	e.listingChanged(ctx)
	return nil
}
