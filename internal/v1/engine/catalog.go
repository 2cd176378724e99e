package engine

import (
	"github.com/quickmate/server/internal/v1/room"
)

// ListingFilter narrows the public catalog.
type ListingFilter struct {
	// State keeps only rooms in the given lifecycle state when set.
	State room.State
	// HasTimeControl keeps only timed (true) or untimed (false) rooms.
	HasTimeControl *bool
}

// Listings returns the filtered public catalog, newest activity first.
func (e *Engine) Listings(f ListingFilter) []room.Listing {
	all := e.store.Listings()
	out := make([]room.Listing, 0, len(all))
	for _, l := range all {
		if f.State != "" && l.State != f.State {
			continue
		}
		if f.HasTimeControl != nil && (l.TimeControl != nil) != *f.HasTimeControl {
			continue
		}
		out = append(out, l)
	}
	return out
}

// RoomSnapshot returns the participant view of one room.
func (e *Engine) RoomSnapshot(id string) (room.Snapshot, bool) {
	r, ok := e.store.Get(id)
	if !ok {
		return room.Snapshot{}, false
	}
	return r.Snapshot(), true
}

// Stats summarizes the server for the stats endpoint.
type Stats struct {
	Rooms               map[string]int `json:"rooms"`
	ConnectedPlayers    int            `json:"connectedPlayers"`
	ConnectedSpectators int            `json:"connectedSpectators"`
}

// ServerStats gathers room counts by state and live participant counts.
func (e *Engine) ServerStats() Stats {
	counts := e.store.CountByState()
	rooms := make(map[string]int, len(counts))
	for state, n := range counts {
		rooms[string(state)] = n
	}
	players, spectators := e.sessions.ConnectedCounts()
	return Stats{Rooms: rooms, ConnectedPlayers: players, ConnectedSpectators: spectators}
}
