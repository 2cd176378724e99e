package engine

import (
	"context"

	"github.com/quickmate/server/internal/v1/room"
	"github.com/quickmate/server/internal/v1/wire"
)

// ChatBroadcast is the chat:message event payload.
type ChatBroadcast struct {
	RoomID  string           `json:"roomId"`
	Message room.ChatMessage `json:"message"`
}

// Chat delivers a room message. Public messages go to everyone and into
// the room history; private messages go live to the two players only
// and spectators cannot send them.
func (e *Engine) Chat(ctx context.Context, c Caller, p wire.ChatSendPayload) (room.ChatMessage, error) {
	if _, err := e.session(c); err != nil {
		return room.ChatMessage{}, err
	}

	chatType := p.ChatType
	if chatType == "" {
		chatType = wire.ChatPublic
	}

	var msg room.ChatMessage
	err := e.store.With(ctx, p.RoomID, func(r *room.Room) error {
		senderName := r.PlayerName(c.Identity)
		if senderName == "" {
			senderName = r.Spectators[c.Identity]
		}
		if senderName == "" {
			return wire.NewError(wire.CodeNotAPlayer, "identity is not in this room")
		}
		if chatType == wire.ChatPrivate && !r.IsPlayer(c.Identity) {
			return wire.NewError(wire.CodeNotAPlayer, "private chat is player-only")
		}

		msg = room.ChatMessage{
			SenderID:   c.Identity,
			SenderName: senderName,
			Message:    p.Message,
			ChatType:   chatType,
			Timestamp:  e.now().UnixMilli(),
		}
		r.AddChat(msg)
		r.Touch(e.now())

		ev := e.roomEvent(r.ID, wire.EventChatMessage, ChatBroadcast{RoomID: r.ID, Message: msg})
		if chatType == wire.ChatPrivate {
			for _, playerID := range []string{r.HostID, r.OpponentID} {
				if playerID == "" {
					continue
				}
				if s, ok := e.sessions.Lookup(playerID); ok && s.Connected {
					e.bus.Direct(s.ConnID, ev)
				}
			}
		} else {
			e.bus.BroadcastRoom(r.ID, ev)
		}
		return nil
	})
	if err != nil {
		return room.ChatMessage{}, mapStoreErr(err)
	}
	return msg, nil
}
