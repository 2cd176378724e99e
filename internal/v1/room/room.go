// Package room defines the Room model: membership, settings, lifecycle
// state, the embedded game record, and the projections the server hands
// to clients. All mutation happens inside the store's per-room critical
// section; the types here carry no locks of their own.
package room

import (
	"time"

	"github.com/quickmate/server/internal/v1/game"
)

// State is the room lifecycle. It is monotonic except via deletion;
// StateFinished is terminal.
type State string

const (
	StateWaiting    State = "waiting_for_player"
	StateInProgress State = "in_progress"
	StateFinished   State = "finished"
)

// Role is a participant's role within a room.
type Role string

const (
	RoleHost      Role = "host"
	RoleOpponent  Role = "opponent"
	RoleSpectator Role = "spectator"
)

// Room is the authoritative record of one game room. Identity keys are
// stable identity strings (user id, guest:<id>, or connection id).
type Room struct {
	ID           string            `json:"roomId"`
	HostID       string            `json:"hostId"`
	HostName     string            `json:"hostName"`
	OpponentID   string            `json:"opponentId,omitempty"`
	OpponentName string            `json:"opponentName,omitempty"`
	Spectators   map[string]string `json:"spectators"` // identity → display name
	State        State             `json:"state"`
	CreatedAt    int64             `json:"createdAt"`    // epoch ms
	LastActivity int64             `json:"lastActivity"` // epoch ms
	Game         *game.Game        `json:"game,omitempty"`
	Settings     Settings          `json:"settings"`

	// DrawOfferer holds the identity of the player with a pending draw
	// offer; empty when none. Cleared on any move, resignation, leave,
	// or game-ending transition.
	DrawOfferer string `json:"-"`

	// Chat keeps the most recent room messages so reconnecting
	// participants see context.
	Chat []ChatMessage `json:"-"`
}

// New creates a room in StateWaiting owned by the given host.
func New(id, hostID, hostName string, settings Settings, now time.Time) *Room {
	ms := now.UnixMilli()
	return &Room{
		ID:           id,
		HostID:       hostID,
		HostName:     hostName,
		Spectators:   map[string]string{},
		State:        StateWaiting,
		CreatedAt:    ms,
		LastActivity: ms,
		Settings:     settings,
	}
}

// Touch stamps LastActivity.
func (r *Room) Touch(now time.Time) { r.LastActivity = now.UnixMilli() }

// IsPlayer reports whether identity is the host or the opponent.
func (r *Room) IsPlayer(identity string) bool {
	return identity == r.HostID || (r.OpponentID != "" && identity == r.OpponentID)
}

// PlayerColor returns the color of a player identity. Host is always
// white, opponent always black.
func (r *Room) PlayerColor(identity string) (game.Color, bool) {
	switch identity {
	case r.HostID:
		return game.White, true
	case r.OpponentID:
		if r.OpponentID != "" {
			return game.Black, true
		}
	}
	return "", false
}

// OtherPlayer returns the identity of the opposing player.
func (r *Room) OtherPlayer(identity string) string {
	if identity == r.HostID {
		return r.OpponentID
	}
	return r.HostID
}

// PlayerName returns the display name of a player identity.
func (r *Room) PlayerName(identity string) string {
	switch identity {
	case r.HostID:
		return r.HostName
	case r.OpponentID:
		return r.OpponentName
	}
	return ""
}

// PlayerCount is 1 while waiting, 2 once the opponent is seated.
func (r *Room) PlayerCount() int {
	if r.OpponentID == "" {
		return 1
	}
	return 2
}

// AdmitOpponent seats the second player and creates the game with the
// configured initial clocks, transitioning the room to StateInProgress.
func (r *Room) AdmitOpponent(identity, name string, now time.Time) {
	r.OpponentID = identity
	r.OpponentName = name
	r.State = StateInProgress
	r.Game = game.New(r.Settings.TimeControl, now)
	r.Touch(now)
}

// Finish marks the room finished. The caller has already ended the game.
func (r *Room) Finish(now time.Time) {
	r.State = StateFinished
	r.DrawOfferer = ""
	r.Touch(now)
}

// Clone returns a deep copy for coherent read snapshots.
func (r *Room) Clone() *Room {
	dup := *r
	dup.Spectators = make(map[string]string, len(r.Spectators))
	for k, v := range r.Spectators {
		dup.Spectators[k] = v
	}
	dup.Game = r.Game.Clone()
	dup.Chat = append([]ChatMessage(nil), r.Chat...)
	dup.Settings = r.Settings.clone()
	return &dup
}
