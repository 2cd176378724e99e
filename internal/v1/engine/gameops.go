package engine

import (
	"context"

	"go.uber.org/zap"

	"github.com/quickmate/server/internal/v1/game"
	"github.com/quickmate/server/internal/v1/logging"
	"github.com/quickmate/server/internal/v1/metrics"
	"github.com/quickmate/server/internal/v1/room"
	"github.com/quickmate/server/internal/v1/wire"
)

// emitGameEnded broadcasts the terminal result followed by the finished
// room's snapshot. Callers hold the room's critical section and have
// already finished the room.
func (e *Engine) emitGameEnded(r *room.Room) {
	e.bus.BroadcastRoom(r.ID, e.roomEvent(r.ID, wire.EventGameEnded, GameEndedPayload{
		RoomID:        r.ID,
		Status:        r.Game.Status,
		Winner:        r.Game.Winner,
		FinalPosition: r.Game.Position,
	}))
	e.bus.BroadcastRoom(r.ID, e.roomEvent(r.ID, wire.EventRoomUpdated, r.Snapshot()))
	metrics.GamesFinished.WithLabelValues(string(r.Game.Status)).Inc()
}

// Move validates and applies the caller's move, charging their clock.
func (e *Engine) Move(ctx context.Context, c Caller, p wire.MovePayload) (MoveBroadcast, error) {
	if _, err := e.session(c); err != nil {
		return MoveBroadcast{}, err
	}

	var out MoveBroadcast
	err := e.store.With(ctx, p.RoomID, func(r *room.Room) error {
		if !r.IsPlayer(c.Identity) {
			return wire.ErrNotAPlayer
		}
		if r.State != room.StateInProgress || r.Game == nil {
			return wire.ErrGameNotInProgress
		}
		color, _ := r.PlayerColor(c.Identity)

		now := e.now()
		move, err := r.Game.ApplyMove(color, p.From, p.To, p.Promotion, now)
		if err != nil {
			return err
		}
		r.DrawOfferer = ""
		r.Touch(now)

		out = MoveBroadcast{
			RoomID:    r.ID,
			Move:      *move,
			Turn:      r.Game.Turn,
			WhiteTime: r.Game.WhiteTime,
			BlackTime: r.Game.BlackTime,
			Status:    r.Game.Status,
		}
		e.bus.BroadcastRoom(r.ID, e.roomEvent(r.ID, wire.EventGameMove, out))

		if r.Game.Status.Terminal() {
			r.Finish(now)
			e.emitGameEnded(r)
		}
		return nil
	})
	if err != nil {
		return MoveBroadcast{}, mapStoreErr(err)
	}

	if out.Status.Terminal() {
		logging.Info(ctx, "game finished",
			zap.String("room_id", out.RoomID), zap.String("status", string(out.Status)))
		e.listingChanged(ctx)
	}
	return out, nil
}

// Resign ends the game with a win for the opponent.
func (e *Engine) Resign(ctx context.Context, c Caller, p wire.RoomRefPayload) error {
	if _, err := e.session(c); err != nil {
		return err
	}

	err := e.store.With(ctx, p.RoomID, func(r *room.Room) error {
		if !r.IsPlayer(c.Identity) {
			return wire.ErrNotAPlayer
		}
		if r.State != room.StateInProgress || r.Game == nil {
			return wire.ErrGameNotInProgress
		}
		color, _ := r.PlayerColor(c.Identity)
		r.Game.End(game.StatusResigned, color.Other())
		r.Finish(e.now())
		e.emitGameEnded(r)
		return nil
	})
	if err != nil {
		return mapStoreErr(err)
	}
	e.listingChanged(ctx)
	return nil
}

// OfferDraw records a pending draw offer and announces it to the whole
// room, spectators included.
func (e *Engine) OfferDraw(ctx context.Context, c Caller, p wire.RoomRefPayload) error {
	if _, err := e.session(c); err != nil {
		return err
	}

	return mapStoreErr(e.store.With(ctx, p.RoomID, func(r *room.Room) error {
		if !r.IsPlayer(c.Identity) {
			return wire.ErrNotAPlayer
		}
		if r.State != room.StateInProgress || r.Game == nil {
			return wire.ErrGameNotInProgress
		}
		if r.DrawOfferer != "" {
			return wire.NewError(wire.CodeValidationFailed, "a draw offer is already pending")
		}
		r.DrawOfferer = c.Identity
		r.Touch(e.now())
		e.bus.BroadcastRoom(r.ID, e.roomEvent(r.ID, wire.EventDrawOffered, DrawPayload{
			RoomID: r.ID, PlayerID: c.Identity, PlayerName: r.PlayerName(c.Identity),
		}))
		return nil
	}))
}

// AcceptDraw ends the game as a draw. Only the non-offering player can
// accept.
func (e *Engine) AcceptDraw(ctx context.Context, c Caller, p wire.RoomRefPayload) error {
	if _, err := e.session(c); err != nil {
		return err
	}

	err := e.store.With(ctx, p.RoomID, func(r *room.Room) error {
		if !r.IsPlayer(c.Identity) {
			return wire.ErrNotAPlayer
		}
		if r.State != room.StateInProgress || r.Game == nil {
			return wire.ErrGameNotInProgress
		}
		if r.DrawOfferer == "" {
			return wire.ErrNoDrawOffer
		}
		if r.DrawOfferer == c.Identity {
			return wire.ErrCannotAcceptOwnDraw
		}
		r.Game.End(game.StatusDraw, "")
		r.Finish(e.now())
		e.emitGameEnded(r)
		return nil
	})
	if err != nil {
		return mapStoreErr(err)
	}
	e.listingChanged(ctx)
	return nil
}

// DeclineDraw clears the pending offer. The offerer may also decline to
// retract their own offer.
func (e *Engine) DeclineDraw(ctx context.Context, c Caller, p wire.RoomRefPayload) error {
	if _, err := e.session(c); err != nil {
		return err
	}

	return mapStoreErr(e.store.With(ctx, p.RoomID, func(r *room.Room) error {
		if !r.IsPlayer(c.Identity) {
			return wire.ErrNotAPlayer
		}
		if r.DrawOfferer == "" {
			return wire.ErrNoDrawOffer
		}
		r.DrawOfferer = ""
		r.Touch(e.now())
		e.bus.BroadcastRoom(r.ID, e.roomEvent(r.ID, wire.EventDrawDeclined, DrawPayload{
			RoomID: r.ID, PlayerID: c.Identity, PlayerName: r.PlayerName(c.Identity),
		}))
		return nil
	}))
}
