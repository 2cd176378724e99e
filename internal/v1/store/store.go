// Package store is the authoritative in-memory room store. Every
// mutation of a room happens inside its per-room critical section via
// With; readers get deep-copied snapshots.
package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/quickmate/server/internal/v1/logging"
	"github.com/quickmate/server/internal/v1/metrics"
	"github.com/quickmate/server/internal/v1/room"
)

// GC thresholds: finished rooms are reaped after 30 minutes of
// inactivity, rooms still waiting for an opponent after 60.
const (
	ReapFinishedAfter = 30 * time.Minute
	ReapWaitingAfter  = 60 * time.Minute
)

type entry struct {
	mu   sync.Mutex
	room *room.Room
}

// Store holds the live rooms. The outer lock only guards the map; room
// state is guarded by each entry's own mutex so rooms never contend
// with each other.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*entry
	cache   Cache
}

// New builds a store backed by the given cache. A nil cache degrades to
// in-memory only.
func New(cache Cache) *Store {
	if cache == nil {
		cache = NopCache{}
	}
	return &Store{entries: make(map[string]*entry), cache: cache}
}

func normalize(id string) string { return strings.ToLower(strings.TrimSpace(id)) }

// Create inserts a new room, retrying id generation on the (unlikely)
// collision. The room passed in must not be shared with the caller
// afterwards; Store owns it.
func (s *Store) Create(ctx context.Context, r *room.Room) {
	id := normalize(r.ID)
	r.ID = id
	s.mu.Lock()
	s.entries[id] = &entry{room: r}
	s.mu.Unlock()
	s.cache.Put(ctx, r)
	metrics.ActiveRooms.WithLabelValues(string(r.State)).Inc()
}

// Exists reports whether a room id is taken.
func (s *Store) Exists(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.entries[normalize(id)]
	return ok
}

// Get returns a deep-copied snapshot of a room.
func (s *Store) Get(id string) (*room.Room, bool) {
	s.mu.RLock()
	e, ok := s.entries[normalize(id)]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.room.Clone(), true
}

// With runs fn inside the room's critical section. State examined and
// mutated by fn is coherent for the duration; event emission done inside
// fn observes room order. Returning an error from fn aborts nothing; the
// room keeps whatever fn did, so fn must not half-apply on error paths.
func (s *Store) With(ctx context.Context, id string, fn func(*room.Room) error) error {
	s.mu.RLock()
	e, ok := s.entries[normalize(id)]
	s.mu.RUnlock()
	if !ok {
		return ErrNoRoom
	}
	e.mu.Lock()
	before := e.room.State
	err := fn(e.room)
	after := e.room.State
	snapshot := e.room.Clone()
	e.mu.Unlock()

	if before != after {
		metrics.ActiveRooms.WithLabelValues(string(before)).Dec()
		metrics.ActiveRooms.WithLabelValues(string(after)).Inc()
	}
	s.cache.Put(ctx, snapshot)
	return err
}

// Delete removes a room. It reports whether the room existed.
func (s *Store) Delete(ctx context.Context, id string) bool {
	id = normalize(id)
	s.mu.Lock()
	e, ok := s.entries[id]
	if ok {
		delete(s.entries, id)
	}
	s.mu.Unlock()
	if !ok {
		return false
	}
	e.mu.Lock()
	state := e.room.State
	e.mu.Unlock()
	metrics.ActiveRooms.WithLabelValues(string(state)).Dec()
	s.cache.Delete(ctx, id)
	return true
}

// Listings returns the public catalog, newest activity first.
func (s *Store) Listings() []room.Listing {
	s.mu.RLock()
	entries := make([]*entry, 0, len(s.entries))
	for _, e := range s.entries {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	out := make([]room.Listing, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		if e.room.Listable() {
			out = append(out, e.room.Listing())
		}
		e.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastActivity > out[j].LastActivity })
	return out
}

// CountByState tallies rooms per lifecycle state.
func (s *Store) CountByState() map[room.State]int {
	s.mu.RLock()
	entries := make([]*entry, 0, len(s.entries))
	for _, e := range s.entries {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	counts := make(map[room.State]int, 3)
	for _, e := range entries {
		e.mu.Lock()
		counts[e.room.State]++
		e.mu.Unlock()
	}
	return counts
}

// IDs returns the ids of all live rooms.
func (s *Store) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.entries))
	for id := range s.entries {
		ids = append(ids, id)
	}
	return ids
}

// Sweep removes rooms past their garbage-collection threshold and
// returns snapshots of the rooms it deleted, so the caller can notify
// remaining subscribers and release their sessions.
func (s *Store) Sweep(ctx context.Context, now time.Time) []*room.Room {
	nowMs := now.UnixMilli()
	var reaped []*room.Room
	for _, id := range s.IDs() {
		s.mu.RLock()
		e, ok := s.entries[id]
		s.mu.RUnlock()
		if !ok {
			continue
		}
		e.mu.Lock()
		idle := time.Duration(nowMs-e.room.LastActivity) * time.Millisecond
		stale := (e.room.State == room.StateFinished && idle >= ReapFinishedAfter) ||
			(e.room.State == room.StateWaiting && idle >= ReapWaitingAfter)
		var snapshot *room.Room
		if stale {
			snapshot = e.room.Clone()
		}
		e.mu.Unlock()
		if stale && s.Delete(ctx, id) {
			reaped = append(reaped, snapshot)
		}
	}
	if len(reaped) > 0 {
		logging.Info(ctx, "reaped idle rooms", zap.Int("count", len(reaped)))
	}
	return reaped
}
