package wire

import "regexp"

// Validation bounds for request payloads.
const (
	MinNameLen        = 1
	MaxNameLen        = 20
	MaxChatLen        = 500
	MaxGuestIDLen     = 64
	MinClockInitial   = 60   // seconds
	MaxClockInitial   = 3600 // seconds
	MinClockIncrement = 0    // seconds
	MaxClockIncrement = 60   // seconds
)

var squareRe = regexp.MustCompile(`^[a-h][1-8]$`)

// ValidSquare reports whether s names a board coordinate.
func ValidSquare(s string) bool { return squareRe.MatchString(s) }

// ValidPromotion reports whether p names a promotion piece. Empty is
// allowed; presence is checked by the rules adapter.
func ValidPromotion(p string) bool {
	switch p {
	case "", "q", "r", "b", "n":
		return true
	}
	return false
}

// TimeControl is the wire form of a clock configuration, in seconds.
type TimeControl struct {
	Initial   int `json:"initial"`
	Increment int `json:"increment"`
}

func (tc *TimeControl) validate() *Error {
	if tc == nil {
		return nil
	}
	if tc.Initial < MinClockInitial || tc.Initial > MaxClockInitial {
		return NewError(CodeValidationFailed, "timeControl.initial must be between %d and %d seconds", MinClockInitial, MaxClockInitial)
	}
	if tc.Increment < MinClockIncrement || tc.Increment > MaxClockIncrement {
		return NewError(CodeValidationFailed, "timeControl.increment must be between %d and %d seconds", MinClockIncrement, MaxClockIncrement)
	}
	return nil
}

// RoomSettings is the wire form of room settings. Pointer fields
// distinguish "absent" from "false" so the same shape serves both
// room:create and room:update-settings.
type RoomSettings struct {
	TimeControl     *TimeControl `json:"timeControl,omitempty"`
	AllowSpectators *bool        `json:"allowSpectators,omitempty"`
	AllowJoin       *bool        `json:"allowJoin,omitempty"`
	IsPrivate       *bool        `json:"isPrivate,omitempty"`
	RoomName        *string      `json:"roomName,omitempty"`
}

func (s *RoomSettings) validate() *Error {
	if s == nil {
		return nil
	}
	if err := s.TimeControl.validate(); err != nil {
		return err
	}
	if s.RoomName != nil && len(*s.RoomName) > 50 {
		return NewError(CodeValidationFailed, "roomName must be at most 50 characters")
	}
	return nil
}

func validName(name string) bool {
	return len(name) >= MinNameLen && len(name) <= MaxNameLen
}

// CreateRoomPayload is the payload of room:create.
type CreateRoomPayload struct {
	PlayerName string        `json:"playerName"`
	Settings   *RoomSettings `json:"settings,omitempty"`
}

func (p *CreateRoomPayload) Validate() error {
	if !validName(p.PlayerName) {
		return NewError(CodeValidationFailed, "playerName must be %d-%d characters", MinNameLen, MaxNameLen)
	}
	if err := p.Settings.validate(); err != nil {
		return err
	}
	return nil
}

// JoinRoomPayload is the payload of room:join.
type JoinRoomPayload struct {
	RoomID     string `json:"roomId"`
	PlayerName string `json:"playerName"`
	Password   string `json:"password,omitempty"`
}

func (p *JoinRoomPayload) Validate() error {
	if p.RoomID == "" {
		return NewError(CodeValidationFailed, "roomId is required")
	}
	if !validName(p.PlayerName) {
		return NewError(CodeValidationFailed, "playerName must be %d-%d characters", MinNameLen, MaxNameLen)
	}
	return nil
}

// SpectatePayload is the payload of room:spectate.
type SpectatePayload struct {
	RoomID        string `json:"roomId"`
	SpectatorName string `json:"spectatorName,omitempty"`
	Password      string `json:"password,omitempty"`
}

func (p *SpectatePayload) Validate() error {
	if p.RoomID == "" {
		return NewError(CodeValidationFailed, "roomId is required")
	}
	if p.SpectatorName != "" && !validName(p.SpectatorName) {
		return NewError(CodeValidationFailed, "spectatorName must be %d-%d characters", MinNameLen, MaxNameLen)
	}
	return nil
}

// KickPayload is the payload of room:kick.
type KickPayload struct {
	RoomID   string `json:"roomId"`
	TargetID string `json:"targetId"`
}

func (p *KickPayload) Validate() error {
	if p.RoomID == "" || p.TargetID == "" {
		return NewError(CodeValidationFailed, "roomId and targetId are required")
	}
	return nil
}

// LockPayload is the payload of room:lock.
type LockPayload struct {
	RoomID   string `json:"roomId"`
	Locked   bool   `json:"locked"`
	Password string `json:"password,omitempty"`
}

func (p *LockPayload) Validate() error {
	if p.RoomID == "" {
		return NewError(CodeValidationFailed, "roomId is required")
	}
	if len(p.Password) > 72 {
		// bcrypt input limit
		return NewError(CodeValidationFailed, "password must be at most 72 characters")
	}
	return nil
}

// UpdateSettingsPayload is the payload of room:update-settings.
type UpdateSettingsPayload struct {
	RoomID   string        `json:"roomId"`
	Settings *RoomSettings `json:"settings"`
}

func (p *UpdateSettingsPayload) Validate() error {
	if p.RoomID == "" {
		return NewError(CodeValidationFailed, "roomId is required")
	}
	if p.Settings == nil {
		return NewError(CodeValidationFailed, "settings is required")
	}
	return p.Settings.validate()
}

// MovePayload is the payload of game:move.
type MovePayload struct {
	RoomID    string `json:"roomId"`
	From      string `json:"from"`
	To        string `json:"to"`
	Promotion string `json:"promotion,omitempty"`
}

func (p *MovePayload) Validate() error {
	if p.RoomID == "" {
		return NewError(CodeValidationFailed, "roomId is required")
	}
	if !ValidSquare(p.From) || !ValidSquare(p.To) {
		return NewError(CodeValidationFailed, "from and to must match [a-h][1-8]")
	}
	if !ValidPromotion(p.Promotion) {
		return NewError(CodeValidationFailed, "promotion must be one of q, r, b, n")
	}
	return nil
}

// RoomRefPayload covers requests that carry only a room id
// (game:resign and the draw negotiation trio).
type RoomRefPayload struct {
	RoomID string `json:"roomId"`
}

func (p *RoomRefPayload) Validate() error {
	if p.RoomID == "" {
		return NewError(CodeValidationFailed, "roomId is required")
	}
	return nil
}

// SessionScopedPayload covers room:leave and session:restore. The room
// is implied by the caller's session; roomId is an optional override.
type SessionScopedPayload struct {
	RoomID string `json:"roomId,omitempty"`
}

func (p *SessionScopedPayload) Validate() error { return nil }

// Chat types.
const (
	ChatPublic  = "public"
	ChatPrivate = "private"
)

// ChatSendPayload is the payload of chat:send.
type ChatSendPayload struct {
	RoomID   string `json:"roomId"`
	Message  string `json:"message"`
	ChatType string `json:"chatType,omitempty"`
}

func (p *ChatSendPayload) Validate() error {
	if p.RoomID == "" {
		return NewError(CodeValidationFailed, "roomId is required")
	}
	if len(p.Message) == 0 || len(p.Message) > MaxChatLen {
		return NewError(CodeValidationFailed, "message must be 1-%d characters", MaxChatLen)
	}
	switch p.ChatType {
	case "", ChatPublic, ChatPrivate:
	default:
		return NewError(CodeValidationFailed, "chatType must be public or private")
	}
	return nil
}
