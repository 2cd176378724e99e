package room

import "github.com/quickmate/server/internal/v1/game"

// Listing is the public catalog projection of a room. Passwords and
// spectator identities are never part of it.
type Listing struct {
	RoomID         string            `json:"roomId"`
	RoomName       string            `json:"roomName,omitempty"`
	HostName       string            `json:"hostName"`
	State          State             `json:"state"`
	PlayerCount    int               `json:"playerCount"`
	SpectatorCount int               `json:"spectatorCount"`
	TimeControl    *game.TimeControl `json:"timeControl,omitempty"`
	IsLocked       bool              `json:"isLocked"`
	CreatedAt      int64             `json:"createdAt"`
	LastActivity   int64             `json:"lastActivity"`
}

// Listable reports whether the room belongs in the public catalog.
func (r *Room) Listable() bool {
	return !r.Settings.IsPrivate && r.Settings.AllowJoin
}

// Listing builds the catalog projection.
func (r *Room) Listing() Listing {
	return Listing{
		RoomID:         r.ID,
		RoomName:       r.Settings.RoomName,
		HostName:       r.HostName,
		State:          r.State,
		PlayerCount:    r.PlayerCount(),
		SpectatorCount: len(r.Spectators),
		TimeControl:    r.Settings.TimeControl,
		IsLocked:       r.Settings.IsLocked,
		CreatedAt:      r.CreatedAt,
		LastActivity:   r.LastActivity,
	}
}

// Snapshot is the full room view delivered to participants. Unlike
// Listing it includes spectator names (but never identities' secrets)
// and the embedded game.
type Snapshot struct {
	RoomID       string        `json:"roomId"`
	HostID       string        `json:"hostId"`
	HostName     string        `json:"hostName"`
	OpponentID   string        `json:"opponentId,omitempty"`
	OpponentName string        `json:"opponentName,omitempty"`
	Spectators   []Participant `json:"spectators"`
	State        State         `json:"state"`
	Settings     SettingsView  `json:"settings"`
	Game         *game.Game    `json:"game,omitempty"`
	Chat         []ChatMessage `json:"chat,omitempty"`
	CreatedAt    int64         `json:"createdAt"`
	LastActivity int64         `json:"lastActivity"`
}

// Participant pairs a stable identity with its display name.
type Participant struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SettingsView is the client-visible settings shape: the password is
// reduced to a presence flag.
type SettingsView struct {
	TimeControl     *game.TimeControl `json:"timeControl,omitempty"`
	AllowSpectators bool              `json:"allowSpectators"`
	AllowJoin       bool              `json:"allowJoin"`
	IsPrivate       bool              `json:"isPrivate"`
	RoomName        string            `json:"roomName,omitempty"`
	IsLocked        bool              `json:"isLocked"`
	HasPassword     bool              `json:"hasPassword"`
}

// Snapshot builds the participant view of the room.
func (r *Room) Snapshot() Snapshot {
	spectators := make([]Participant, 0, len(r.Spectators))
	for id, name := range r.Spectators {
		spectators = append(spectators, Participant{ID: id, Name: name})
	}
	return Snapshot{
		RoomID:       r.ID,
		HostID:       r.HostID,
		HostName:     r.HostName,
		OpponentID:   r.OpponentID,
		OpponentName: r.OpponentName,
		Spectators:   spectators,
		State:        r.State,
		Settings: SettingsView{
			TimeControl:     r.Settings.TimeControl,
			AllowSpectators: r.Settings.AllowSpectators,
			AllowJoin:       r.Settings.AllowJoin,
			IsPrivate:       r.Settings.IsPrivate,
			RoomName:        r.Settings.RoomName,
			IsLocked:        r.Settings.IsLocked,
			HasPassword:     r.Settings.HasPassword(),
		},
		Game:         r.Game.Clone(),
		Chat:         r.RecentPublicChat(),
		CreatedAt:    r.CreatedAt,
		LastActivity: r.LastActivity,
	}
}
