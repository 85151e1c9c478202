package teststubs

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/preston-bernstein/matchday-service/internal/domain/matches"
	"github.com/preston-bernstein/matchday-service/internal/events"
	"github.com/preston-bernstein/matchday-service/internal/timeutil"
)

// Query is one recorded call to StubProvider.
type Query struct {
	Date   timeutil.DateKey
	League matches.LeagueID
}

// StubProvider is a test double for providers.FixtureProvider.
//
// Lookup order per call: Respond, then Errs[league], then Results[league], then Records/Err.
// When Gate is set every call blocks until the gate is closed or the context ends.
type StubProvider struct {
	Records []matches.MatchRecord
	Err     error
	Results map[matches.LeagueID][]matches.MatchRecord
	Errs    map[matches.LeagueID]error
	Respond func(date timeutil.DateKey, league matches.LeagueID) ([]matches.MatchRecord, error)
	Gate    chan struct{}
	Notify  chan struct{}
	Calls   atomic.Int32

	mu      sync.Mutex
	queries []Query
}

// QueryFixtures returns the configured records and error while tracking calls.
func (s *StubProvider) QueryFixtures(ctx context.Context, date timeutil.DateKey, league matches.LeagueID) ([]matches.MatchRecord, error) {
	s.Calls.Add(1)
	s.mu.Lock()
	s.queries = append(s.queries, Query{Date: date, League: league})
	s.mu.Unlock()

	if s.Notify != nil {
		select {
		case s.Notify <- struct{}{}:
		default:
		}
	}
	if s.Gate != nil {
		select {
		case <-s.Gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if s.Respond != nil {
		return s.Respond(date, league)
	}
	if err, ok := s.Errs[league]; ok {
		return nil, err
	}
	if recs, ok := s.Results[league]; ok {
		return recs, nil
	}
	return s.Records, s.Err
}

// Queries returns a copy of every call seen so far.
func (s *StubProvider) Queries() []Query {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Query(nil), s.queries...)
}

// QueriesFor counts calls made for date.
func (s *StubProvider) QueriesFor(date timeutil.DateKey) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, q := range s.queries {
		if q.Date == date {
			n++
		}
	}
	return n
}

// StubPublisher is a test double for events.Publisher.
type StubPublisher struct {
	Err error

	mu        sync.Mutex
	published []events.CacheUpdated
}

// PublishCacheUpdated records the event.
func (p *StubPublisher) PublishCacheUpdated(ctx context.Context, evt events.CacheUpdated) error {
	_ = ctx
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, evt)
	return p.Err
}

// Close is a no-op.
func (p *StubPublisher) Close() error { return nil }

// Published returns a copy of the recorded events.
func (p *StubPublisher) Published() []events.CacheUpdated {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]events.CacheUpdated(nil), p.published...)
}
