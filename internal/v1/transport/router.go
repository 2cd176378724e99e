package transport

import (
	"context"
	"encoding/json"
	"time"

	"github.com/quickmate/server/internal/v1/metrics"
	"github.com/quickmate/server/internal/v1/wire"
)

// payload is the contract every request body satisfies.
type payload interface {
	Validate() error
}

// decode unmarshals and validates a request body.
func decode[P payload](raw json.RawMessage, p P) error {
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, p); err != nil {
			return wire.NewError(wire.CodeValidationFailed, "malformed payload")
		}
	}
	return p.Validate()
}

// dispatch routes one request envelope into the engine and shapes the
// acknowledgement.
func (c *Client) dispatch(ctx context.Context, env wire.Envelope) wire.Ack {
	start := time.Now()
	ack := c.handle(ctx, env)

	result := "ok"
	if !ack.Success {
		result = ack.Error
	}
	metrics.RequestsTotal.WithLabelValues(env.Event, result).Inc()
	metrics.RequestDuration.WithLabelValues(env.Event).Observe(time.Since(start).Seconds())
	return ack
}

func (c *Client) handle(ctx context.Context, env wire.Envelope) wire.Ack {
	switch env.Event {
	case wire.ReqPing:
		return wire.AckOK(env.RequestID, map[string]int64{"timestamp": time.Now().UnixMilli()})

	case wire.ReqRoomCreate:
		var p wire.CreateRoomPayload
		if err := decode(env.Payload, &p); err != nil {
			return wire.AckErr(env.RequestID, err)
		}
		res, err := c.engine.CreateRoom(ctx, c.caller, p)
		if err != nil {
			return wire.AckErr(env.RequestID, err)
		}
		return wire.AckOK(env.RequestID, res)

	case wire.ReqRoomJoin:
		var p wire.JoinRoomPayload
		if err := decode(env.Payload, &p); err != nil {
			return wire.AckErr(env.RequestID, err)
		}
		res, err := c.engine.JoinRoom(ctx, c.caller, p)
		if err != nil {
			return wire.AckErr(env.RequestID, err)
		}
		return wire.AckOK(env.RequestID, res)

	case wire.ReqRoomSpectate:
		var p wire.SpectatePayload
		if err := decode(env.Payload, &p); err != nil {
			return wire.AckErr(env.RequestID, err)
		}
		res, err := c.engine.Spectate(ctx, c.caller, p)
		if err != nil {
			return wire.AckErr(env.RequestID, err)
		}
		return wire.AckOK(env.RequestID, res)

	case wire.ReqRoomLeave:
		var p wire.SessionScopedPayload
		if err := decode(env.Payload, &p); err != nil {
			return wire.AckErr(env.RequestID, err)
		}
		if err := c.engine.Leave(ctx, c.caller, p); err != nil {
			return wire.AckErr(env.RequestID, err)
		}
		return wire.AckOK(env.RequestID, nil)

	case wire.ReqRoomKick:
		var p wire.KickPayload
		if err := decode(env.Payload, &p); err != nil {
			return wire.AckErr(env.RequestID, err)
		}
		if err := c.engine.KickSpectator(ctx, c.caller, p); err != nil {
			return wire.AckErr(env.RequestID, err)
		}
		return wire.AckOK(env.RequestID, nil)

	case wire.ReqRoomLock:
		var p wire.LockPayload
		if err := decode(env.Payload, &p); err != nil {
			return wire.AckErr(env.RequestID, err)
		}
		if err := c.engine.LockRoom(ctx, c.caller, p); err != nil {
			return wire.AckErr(env.RequestID, err)
		}
		return wire.AckOK(env.RequestID, nil)

	case wire.ReqRoomUpdateSettings:
		var p wire.UpdateSettingsPayload
		if err := decode(env.Payload, &p); err != nil {
			return wire.AckErr(env.RequestID, err)
		}
		if err := c.engine.UpdateSettings(ctx, c.caller, p); err != nil {
			return wire.AckErr(env.RequestID, err)
		}
		return wire.AckOK(env.RequestID, nil)

	case wire.ReqGameMove:
		var p wire.MovePayload
		if err := decode(env.Payload, &p); err != nil {
			return wire.AckErr(env.RequestID, err)
		}
		res, err := c.engine.Move(ctx, c.caller, p)
		if err != nil {
			return wire.AckErr(env.RequestID, err)
		}
		return wire.AckOK(env.RequestID, res)

	case wire.ReqGameResign:
		var p wire.RoomRefPayload
		if err := decode(env.Payload, &p); err != nil {
			return wire.AckErr(env.RequestID, err)
		}
		if err := c.engine.Resign(ctx, c.caller, p); err != nil {
			return wire.AckErr(env.RequestID, err)
		}
		return wire.AckOK(env.RequestID, nil)

	case wire.ReqGameOfferDraw:
		var p wire.RoomRefPayload
		if err := decode(env.Payload, &p); err != nil {
			return wire.AckErr(env.RequestID, err)
		}
		if err := c.engine.OfferDraw(ctx, c.caller, p); err != nil {
			return wire.AckErr(env.RequestID, err)
		}
		return wire.AckOK(env.RequestID, nil)

	case wire.ReqGameAcceptDraw:
		var p wire.RoomRefPayload
		if err := decode(env.Payload, &p); err != nil {
			return wire.AckErr(env.RequestID, err)
		}
		if err := c.engine.AcceptDraw(ctx, c.caller, p); err != nil {
			return wire.AckErr(env.RequestID, err)
		}
		return wire.AckOK(env.RequestID, nil)

	case wire.ReqGameDeclineDraw:
		var p wire.RoomRefPayload
		if err := decode(env.Payload, &p); err != nil {
			return wire.AckErr(env.RequestID, err)
		}
		if err := c.engine.DeclineDraw(ctx, c.caller, p); err != nil {
			return wire.AckErr(env.RequestID, err)
		}
		return wire.AckOK(env.RequestID, nil)

	case wire.ReqChatSend:
		var p wire.ChatSendPayload
		if err := decode(env.Payload, &p); err != nil {
			return wire.AckErr(env.RequestID, err)
		}
		msg, err := c.engine.Chat(ctx, c.caller, p)
		if err != nil {
			return wire.AckErr(env.RequestID, err)
		}
		return wire.AckOK(env.RequestID, msg)

	case wire.ReqSessionRestore:
		var p wire.SessionScopedPayload
		if err := decode(env.Payload, &p); err != nil {
			return wire.AckErr(env.RequestID, err)
		}
		res, err := c.engine.RestoreSession(ctx, c.caller, p)
		if err != nil {
			return wire.AckErr(env.RequestID, err)
		}
		return wire.AckOK(env.RequestID, res)

	default:
		return wire.AckErr(env.RequestID, wire.NewError(wire.CodeValidationFailed, "unknown event %q", env.Event))
	}
}
