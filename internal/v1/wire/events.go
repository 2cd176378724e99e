package wire

import "encoding/json"

// Request names carried in the envelope's Event field (client → server).
const (
	ReqRoomCreate         = "room:create"
	ReqRoomJoin           = "room:join"
	ReqRoomSpectate       = "room:spectate"
	ReqRoomLeave          = "room:leave"
	ReqRoomKick           = "room:kick"
	ReqRoomLock           = "room:lock"
	ReqRoomUpdateSettings = "room:update-settings"
	ReqGameMove           = "game:move"
	ReqGameResign         = "game:resign"
	ReqGameOfferDraw      = "game:offer-draw"
	ReqGameAcceptDraw     = "game:accept-draw"
	ReqGameDeclineDraw    = "game:decline-draw"
	ReqChatSend           = "chat:send"
	ReqSessionRestore     = "session:restore"
	ReqPing               = "ping"
)

// Server-initiated event names (server → client).
const (
	EventRoomUpdated         = "room:updated"
	EventRoomClosed          = "room:closed"
	EventRoomKicked          = "room:kicked"
	EventRoomListUpdated     = "room:list-updated"
	EventGameStarted         = "game:started"
	EventGameMove            = "game:move"
	EventGameEnded           = "game:ended"
	EventGameSync            = "game:sync"
	EventPlayerJoined        = "player:joined"
	EventPlayerLeft          = "player:left"
	EventPlayerDisconnected  = "player:disconnected"
	EventPlayerReconnected   = "player:reconnected"
	EventSpectatorJoined     = "spectator:joined"
	EventSpectatorLeft       = "spectator:left"
	EventChatMessage         = "chat:message"
	EventDrawOffered         = "draw:offered"
	EventDrawDeclined        = "draw:declined"
	EventError               = "error"
	EventAck                 = "ack"
)

// Envelope is the request frame. Every request carries a client-chosen
// requestId echoed on the acknowledgement, playing the role of the
// transport callback handle.
type Envelope struct {
	Event     string          `json:"event"`
	RequestID string          `json:"requestId,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// Ack is the response frame for a request.
type Ack struct {
	Event     string `json:"event"` // always "ack"
	RequestID string `json:"requestId,omitempty"`
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
	Message   string `json:"message,omitempty"`
	Data      any    `json:"data,omitempty"`
}

// ServerEvent is the push frame for server-initiated events.
type ServerEvent struct {
	Event   string `json:"event"`
	RoomID  string `json:"roomId,omitempty"`
	Payload any    `json:"payload,omitempty"`
}

// AckOK builds a successful acknowledgement for a request.
func AckOK(requestID string, data any) Ack {
	return Ack{Event: EventAck, RequestID: requestID, Success: true, Data: data}
}

// AckErr builds a failed acknowledgement carrying the error code verbatim.
func AckErr(requestID string, err error) Ack {
	we := AsError(err)
	return Ack{Event: EventAck, RequestID: requestID, Success: false, Error: we.Code, Message: we.Message}
}

// ErrorEvent wraps an error as a server-initiated push, for failures
// that cannot be tied back to a request.
func ErrorEvent(err error) ServerEvent {
	return ServerEvent{Event: EventError, Payload: AsError(err)}
}
