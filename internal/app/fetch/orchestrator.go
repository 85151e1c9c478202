// Package fetch turns one date and league scope into a sorted, cached fixture set.
package fetch

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/preston-bernstein/matchday-service/internal/domain/matches"
	"github.com/preston-bernstein/matchday-service/internal/events"
	"github.com/preston-bernstein/matchday-service/internal/logging"
	"github.com/preston-bernstein/matchday-service/internal/metrics"
	"github.com/preston-bernstein/matchday-service/internal/policy"
	"github.com/preston-bernstein/matchday-service/internal/providers"
	"github.com/preston-bernstein/matchday-service/internal/store"
	"github.com/preston-bernstein/matchday-service/internal/timeutil"
)

const (
	defaultQueryTimeout = 10 * time.Second
	defaultMaxParallel  = 4
)

// Options tunes an Orchestrator. Zero values fall back to defaults; nil Logger,
// Metrics and Publisher disable those concerns.
type Options struct {
	QueryTimeout time.Duration
	MaxParallel  int
	Logger       *slog.Logger
	Metrics      *metrics.Recorder
	Publisher    events.Publisher
	Now          func() time.Time
}

// Result is a successful fetch. Failures is non-empty when some, but not all, leagues failed.
type Result struct {
	Date       timeutil.DateKey
	Matches    []matches.MatchRecord
	ExpiresAt  time.Time
	Failures   []QueryFailure
	Generation uint64
	// Committed is false when a newer fetch or an invalidation superseded this one.
	Committed bool
}

// Partial reports whether at least one league query failed.
func (r Result) Partial() bool {
	return len(r.Failures) > 0
}

// Orchestrator issues the upstream queries for a date, merges and orders the
// answers, and writes them through the cache.
type Orchestrator struct {
	provider     providers.FixtureProvider
	cache        *store.CacheStore
	logger       *slog.Logger
	metrics      *metrics.Recorder
	publisher    events.Publisher
	now          func() time.Time
	queryTimeout time.Duration
	maxParallel  int

	flights   singleflight.Group
	publishes sync.WaitGroup
}

// New constructs an Orchestrator over provider and cache.
func New(provider providers.FixtureProvider, cache *store.CacheStore, opts Options) *Orchestrator {
	if opts.QueryTimeout <= 0 {
		opts.QueryTimeout = defaultQueryTimeout
	}
	if opts.MaxParallel <= 0 {
		opts.MaxParallel = defaultMaxParallel
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Publisher == nil {
		opts.Publisher = events.NopPublisher{}
	}
	return &Orchestrator{
		provider:     provider,
		cache:        cache,
		logger:       opts.Logger,
		metrics:      opts.Metrics,
		publisher:    opts.Publisher,
		now:          opts.Now,
		queryTimeout: opts.QueryTimeout,
		maxParallel:  opts.MaxParallel,
	}
}

// Fetch queries date for scope and stores the merged result. Concurrent calls
// for the same date and scope share one upstream flight. It returns a
// *FetchError only when every query failed, in which case the cache is unchanged.
func (o *Orchestrator) Fetch(ctx context.Context, date timeutil.DateKey, scope matches.LeagueScope) (Result, error) {
	return o.await(ctx, flightKey(date, scope), func(fctx context.Context) (Result, error) {
		return o.run(fctx, date, scope)
	})
}

// Refresh drops the cached entry for date and fetches it again, bypassing
// freshness checks and any flight already in progress. If every query fails
// the dropped entry is put back unchanged, even when the caller has gone.
func (o *Orchestrator) Refresh(ctx context.Context, date timeutil.DateKey, scope matches.LeagueScope) (Result, error) {
	prior, had := o.cache.Get(date)
	o.cache.Invalidate(date)
	key := flightKey(date, scope)
	o.flights.Forget(key)

	return o.await(ctx, key, func(fctx context.Context) (Result, error) {
		res, err := o.run(fctx, date, scope)
		if err != nil && had && errors.Is(err, ErrTotalFailure) && o.cache.Restore(prior) {
			logging.Info(o.logger, "refresh failed, restored previous entry",
				slog.String(logging.FieldDate, date.String()),
			)
		}
		return res, err
	})
}

// Drain waits for cache events still being published, or for ctx to end.
func (o *Orchestrator) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		o.publishes.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// await joins or starts the flight for key. The flight outlives any single
// waiter; each query carries its own timeout.
func (o *Orchestrator) await(ctx context.Context, key string, fn func(context.Context) (Result, error)) (Result, error) {
	flightCtx := context.WithoutCancel(ctx)
	ch := o.flights.DoChan(key, func() (any, error) {
		return fn(flightCtx)
	})

	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Result{}, res.Err
		}
		return res.Val.(Result), nil
	}
}

func (o *Orchestrator) run(ctx context.Context, date timeutil.DateKey, scope matches.LeagueScope) (Result, error) {
	start := time.Now()
	gen := o.cache.Begin(date)
	leagues := queriesFor(scope)

	answers := make([][]matches.MatchRecord, len(leagues))
	errs := make([]error, len(leagues))

	g := new(errgroup.Group)
	g.SetLimit(o.maxParallel)
	for i, league := range leagues {
		i, league := i, league
		g.Go(func() error {
			qctx, cancel := context.WithTimeout(ctx, o.queryTimeout)
			defer cancel()
			answers[i], errs[i] = o.provider.QueryFixtures(qctx, date, league)
			return nil
		})
	}
	_ = g.Wait()

	var failures []QueryFailure
	merged := make([]matches.MatchRecord, 0)
	seen := make(map[string]struct{})
	for i, league := range leagues {
		if errs[i] != nil {
			failures = append(failures, QueryFailure{League: league, Err: errs[i]})
			logging.Warn(o.logger, "league query failed",
				slog.String(logging.FieldDate, date.String()),
				slog.Int(logging.FieldLeague, int(league)),
				slog.Any("err", errs[i]),
			)
			continue
		}
		for _, rec := range answers[i] {
			if _, dup := seen[rec.ID]; dup {
				continue
			}
			seen[rec.ID] = struct{}{}
			merged = append(merged, rec)
		}
	}

	if len(failures) == len(leagues) {
		err := &FetchError{Date: date, Failures: failures}
		o.metrics.RecordFetch(metrics.OutcomeFailed, time.Since(start))
		logging.Error(o.logger, "fetch failed for every query", err,
			slog.String(logging.FieldDate, date.String()),
			slog.String(logging.FieldScope, scope.Key()),
		)
		return Result{}, err
	}

	now := o.now()
	classified := matches.Classified(merged)
	ordered := policy.Order(date, timeutil.DateOf(now), classified)
	expiresAt := policy.ComputeExpiry(date, classified, now)
	committed := o.cache.Commit(date, gen, ordered, expiresAt)

	outcome := metrics.OutcomeOK
	if len(failures) > 0 {
		outcome = metrics.OutcomePartial
	}
	o.metrics.RecordFetch(outcome, time.Since(start))

	res := Result{
		Date:       date,
		Matches:    ordered,
		ExpiresAt:  expiresAt,
		Failures:   failures,
		Generation: gen,
		Committed:  committed,
	}

	if !committed {
		logging.Info(o.logger, "fetch result superseded",
			slog.String(logging.FieldDate, date.String()),
			slog.Uint64(logging.FieldGeneration, gen),
		)
		return res, nil
	}

	logging.Info(o.logger, "fixtures fetched",
		slog.String(logging.FieldDate, date.String()),
		slog.String(logging.FieldScope, scope.Key()),
		slog.Int(logging.FieldCount, len(ordered)),
		slog.Bool("partial", res.Partial()),
		slog.Time(logging.FieldExpiresAt, expiresAt),
		slog.Uint64(logging.FieldGeneration, gen),
		slog.Int64(logging.FieldDurationMS, time.Since(start).Milliseconds()),
	)
	o.publish(ctx, scope, res, now)
	return res, nil
}

// publish sends the event in the background so waiters never block on the broker.
func (o *Orchestrator) publish(ctx context.Context, scope matches.LeagueScope, res Result, now time.Time) {
	evt := events.CacheUpdated{
		Date:       res.Date.String(),
		Scope:      scope.Key(),
		Count:      len(res.Matches),
		Partial:    res.Partial(),
		Generation: res.Generation,
		ExpiresAt:  res.ExpiresAt,
		StoredAt:   now,
	}
	o.publishes.Add(1)
	go func() {
		defer o.publishes.Done()
		if err := o.publisher.PublishCacheUpdated(ctx, evt); err != nil {
			logging.Warn(o.logger, "cache event not published",
				slog.String(logging.FieldDate, evt.Date),
				slog.Any("err", err),
			)
		}
	}()
}

// queriesFor expands scope into one query per league, or a single unscoped query.
func queriesFor(scope matches.LeagueScope) []matches.LeagueID {
	if scope.IsEmpty() {
		return []matches.LeagueID{matches.AllLeagues}
	}
	return append([]matches.LeagueID(nil), scope...)
}

func flightKey(date timeutil.DateKey, scope matches.LeagueScope) string {
	return date.String() + "|" + scope.Key()
}
