// Package cache provides the per-station TTL store for fused responses.
// One entry per station key; entries are whole payloads, overwritten in one
// step and never mutated in place.
package cache

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/soeholm/vandstand/internal/waterlevel"
)

// States reported by State, matching what /health exposes.
const (
	StateValid   = "valid"
	StateExpired = "expired"
	StateEmpty   = "empty"
)

type entry struct {
	payload  waterlevel.FusedResponse
	storedAt time.Time
}

// TTLStore is a concurrency-safe TTL cache keyed by station name. The clock
// is injected so tests can expire entries without sleeping.
type TTLStore struct {
	ttl   time.Duration
	clock clockwork.Clock

	mu      sync.RWMutex
	entries map[string]entry
}

var _ waterlevel.Store = (*TTLStore)(nil)

func NewTTLStore(ttl time.Duration, clock clockwork.Clock) *TTLStore {
	return &TTLStore{
		ttl:     ttl,
		clock:   clock,
		entries: make(map[string]entry),
	}
}

// Get returns the entry for a station while it is younger than the TTL.
// Expired entries are left in place so State can distinguish expired from
// empty; Put overwrites them on the next successful cycle.
func (s *TTLStore) Get(station string) (waterlevel.FusedResponse, time.Duration, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[station]
	if !ok {
		return waterlevel.FusedResponse{}, 0, false
	}

	age := s.clock.Now().Sub(e.storedAt)
	if age >= s.ttl {
		return waterlevel.FusedResponse{}, 0, false
	}
	return e.payload, age, true
}

// Put stores a response for a station, stamping it with the current time.
func (s *TTLStore) Put(station string, resp waterlevel.FusedResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[station] = entry{payload: resp, storedAt: s.clock.Now()}
}

// Invalidate drops the entry for one station.
func (s *TTLStore) Invalidate(station string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, station)
}

// InvalidateAll drops every entry.
func (s *TTLStore) InvalidateAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]entry)
}

// State reports the cache condition for a station.
func (s *TTLStore) State(station string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[station]
	if !ok {
		return StateEmpty
	}
	if s.clock.Now().Sub(e.storedAt) >= s.ttl {
		return StateExpired
	}
	return StateValid
}
