package wire

import "fmt"

// Error is a protocol-level rejection returned on a request's ack channel.
// The Code travels to the client verbatim; Message is human-readable detail.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Code
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewError builds an *Error with a formatted message.
func NewError(code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Error codes, returned verbatim to clients.
const (
	CodeValidationFailed    = "validation_failed"
	CodeNotConnected        = "not_connected"
	CodeNotFound            = "not_found"
	CodeAlreadyInRoom       = "already_in_room"
	CodeRoomLocked          = "room_locked"
	CodePasswordRequired    = "password_required"
	CodePasswordIncorrect   = "password_incorrect"
	CodeRoomFull            = "room_full"
	CodeJoinNotAllowed      = "join_not_allowed"
	CodeSpectateNotAllowed  = "spectate_not_allowed"
	CodeNotAPlayer          = "not_a_player"
	CodeNotYourTurn         = "not_your_turn"
	CodeGameNotInProgress   = "game_not_in_progress"
	CodeInvalidMove         = "invalid_move"
	CodePromotionRequired   = "promotion_required"
	CodeNoDrawOffer         = "no_draw_offer"
	CodeCannotAcceptOwnDraw = "cannot_accept_own_draw"
	CodeHostOnly            = "host_only"
	CodeCannotKickPlayer    = "cannot_kick_player"
	CodeInternal            = "internal"
)

// Sentinel rejections shared by the state machine. Operations that need
// a dynamic message build their own *Error with NewError.
var (
	ErrNotConnected        = &Error{Code: CodeNotConnected, Message: "no active session"}
	ErrNotFound            = &Error{Code: CodeNotFound, Message: "room not found"}
	ErrAlreadyInRoom       = &Error{Code: CodeAlreadyInRoom, Message: "identity already participates in a room"}
	ErrRoomLocked          = &Error{Code: CodeRoomLocked, Message: "room is locked"}
	ErrPasswordRequired    = &Error{Code: CodePasswordRequired, Message: "room requires a password"}
	ErrPasswordIncorrect   = &Error{Code: CodePasswordIncorrect, Message: "password does not match"}
	ErrRoomFull            = &Error{Code: CodeRoomFull, Message: "room already has two players"}
	ErrJoinNotAllowed      = &Error{Code: CodeJoinNotAllowed, Message: "room does not accept joins"}
	ErrSpectateNotAllowed  = &Error{Code: CodeSpectateNotAllowed, Message: "room does not accept spectators"}
	ErrNotAPlayer          = &Error{Code: CodeNotAPlayer, Message: "identity is not a player of this room"}
	ErrNotYourTurn         = &Error{Code: CodeNotYourTurn, Message: "it is not your turn"}
	ErrGameNotInProgress   = &Error{Code: CodeGameNotInProgress, Message: "game is not in progress"}
	ErrInvalidMove         = &Error{Code: CodeInvalidMove, Message: "move is not legal in this position"}
	ErrPromotionRequired   = &Error{Code: CodePromotionRequired, Message: "move requires a promotion piece"}
	ErrNoDrawOffer         = &Error{Code: CodeNoDrawOffer, Message: "no draw offer is pending"}
	ErrCannotAcceptOwnDraw = &Error{Code: CodeCannotAcceptOwnDraw, Message: "offerer cannot accept their own draw"}
	ErrHostOnly            = &Error{Code: CodeHostOnly, Message: "operation requires host privileges"}
	ErrCannotKickPlayer    = &Error{Code: CodeCannotKickPlayer, Message: "players cannot be kicked"}
)

// AsError maps any error to a protocol *Error. Unknown errors are
// surfaced as internal: they indicate an invariant violation, never a
// client mistake, and must not be silently discarded.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	if we, ok := err.(*Error); ok {
		return we
	}
	return &Error{Code: CodeInternal, Message: err.Error()}
}
