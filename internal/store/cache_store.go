package store

import (
	"slices"
	"sync"
	"time"

	"github.com/preston-bernstein/matchday-service/internal/domain/matches"
	"github.com/preston-bernstein/matchday-service/internal/timeutil"
)

// Entry is one cached fixture set for a date.
type Entry struct {
	Date       timeutil.DateKey
	Matches    []matches.MatchRecord
	ExpiresAt  time.Time
	StoredAt   time.Time
	Generation uint64
}

// ValidAt reports whether the entry is still fresh at now.
func (e Entry) ValidAt(now time.Time) bool {
	return now.Before(e.ExpiresAt)
}

// CacheStore keeps fixture sets per date in memory. It is safe for concurrent
// use; writers to the same date are ordered by fetch generation so that only
// the newest fetch wins.
type CacheStore struct {
	mu      sync.RWMutex
	entries map[timeutil.DateKey]Entry
	issued  map[timeutil.DateKey]uint64
	floor   map[timeutil.DateKey]uint64
	now     func() time.Time
}

// NewCacheStore constructs an empty CacheStore.
func NewCacheStore() *CacheStore {
	return &CacheStore{
		entries: make(map[timeutil.DateKey]Entry),
		issued:  make(map[timeutil.DateKey]uint64),
		floor:   make(map[timeutil.DateKey]uint64),
		now:     time.Now,
	}
}

// Get returns the entry for date, fresh or not. Matches is a copy.
func (s *CacheStore) Get(date timeutil.DateKey) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[date]
	if !ok {
		return Entry{}, false
	}
	e.Matches = slices.Clone(e.Matches)
	return e, true
}

// IsValid reports whether date has an entry and now < expiresAt.
func (s *CacheStore) IsValid(date timeutil.DateKey, now time.Time) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[date]
	return ok && e.ValidAt(now)
}

// Put stores a fixture set unconditionally as the newest write for date.
func (s *CacheStore) Put(date timeutil.DateKey, records []matches.MatchRecord, expiresAt time.Time) {
	s.Commit(date, s.Begin(date), records, expiresAt)
}

// Begin issues the next fetch generation for date. Pass it to Commit once the
// fetch resolves.
func (s *CacheStore) Begin(date timeutil.DateKey) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.issued[date]++
	return s.issued[date]
}

// Commit writes records for date if gen is newer than both the stored entry
// and the last invalidation. It reports whether the write was applied.
func (s *CacheStore) Commit(date timeutil.DateKey, gen uint64, records []matches.MatchRecord, expiresAt time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen <= s.floor[date] {
		return false
	}
	if cur, ok := s.entries[date]; ok && gen <= cur.Generation {
		return false
	}
	s.entries[date] = Entry{
		Date:       date,
		Matches:    slices.Clone(records),
		ExpiresAt:  expiresAt,
		StoredAt:   s.now(),
		Generation: gen,
	}
	return true
}

// Invalidate drops the entry for date. Fetches begun before the call can no
// longer commit.
func (s *CacheStore) Invalidate(date timeutil.DateKey) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, date)
	s.floor[date] = s.issued[date]
}

// Restore puts back an entry removed by Invalidate, keeping its original
// expiry. It does nothing if date has been written since.
func (s *CacheStore) Restore(e Entry) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[e.Date]; ok {
		return false
	}
	s.issued[e.Date]++
	e.Generation = s.issued[e.Date]
	e.Matches = slices.Clone(e.Matches)
	s.entries[e.Date] = e
	return true
}

// Retain drops every entry whose date is not in keep and returns how many were removed.
func (s *CacheStore) Retain(keep []timeutil.DateKey) int {
	allowed := make(map[timeutil.DateKey]struct{}, len(keep))
	for _, d := range keep {
		allowed[d] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for date := range s.entries {
		if _, ok := allowed[date]; ok {
			continue
		}
		delete(s.entries, date)
		s.floor[date] = s.issued[date]
		removed++
	}
	return removed
}

// Dates lists the cached dates in ascending order.
func (s *CacheStore) Dates() []timeutil.DateKey {
	s.mu.RLock()
	defer s.mu.RUnlock()

	dates := make([]timeutil.DateKey, 0, len(s.entries))
	for d := range s.entries {
		dates = append(dates, d)
	}
	slices.SortFunc(dates, timeutil.DateKey.Compare)
	return dates
}

// Len returns the number of cached dates.
func (s *CacheStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
