// Package prefetch warms the date window in the background.
package prefetch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/preston-bernstein/matchday-service/internal/app/fetch"
	"github.com/preston-bernstein/matchday-service/internal/domain/matches"
	"github.com/preston-bernstein/matchday-service/internal/logging"
	"github.com/preston-bernstein/matchday-service/internal/metrics"
	"github.com/preston-bernstein/matchday-service/internal/store"
	"github.com/preston-bernstein/matchday-service/internal/timeutil"
)

const defaultConcurrency = 2

// Fetcher is the subset of the orchestrator the scheduler drives.
type Fetcher interface {
	Fetch(ctx context.Context, date timeutil.DateKey, scope matches.LeagueScope) (fetch.Result, error)
}

// Options tunes a Scheduler.
type Options struct {
	Concurrency int
	Logger      *slog.Logger
	Metrics     *metrics.Recorder
	Now         func() time.Time
}

// Scheduler fetches stale window dates in the background. Failures are logged
// and counted, never returned.
type Scheduler struct {
	fetcher     Fetcher
	cache       *store.CacheStore
	logger      *slog.Logger
	metrics     *metrics.Recorder
	now         func() time.Time
	concurrency int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	pending map[timeutil.DateKey]struct{}
	closed  bool
}

// New constructs a Scheduler. Close releases its background work.
func New(fetcher Fetcher, cache *store.CacheStore, opts Options) *Scheduler {
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultConcurrency
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		fetcher:     fetcher,
		cache:       cache,
		logger:      opts.Logger,
		metrics:     opts.Metrics,
		now:         opts.Now,
		concurrency: opts.Concurrency,
		ctx:         ctx,
		cancel:      cancel,
		pending:     make(map[timeutil.DateKey]struct{}),
	}
}

// Prefetch queues every date in window except excluding that is not fresh in
// the cache, nearest to excluding first, and returns how many were queued.
// It never blocks on the network. Dates already queued by an earlier call are skipped.
func (s *Scheduler) Prefetch(window []timeutil.DateKey, scope matches.LeagueScope, excluding timeutil.DateKey) int {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return 0
	}
	now := s.now()
	var batch []timeutil.DateKey
	for _, date := range timeutil.NearToFar(window, excluding) {
		if date == excluding {
			continue
		}
		if _, queued := s.pending[date]; queued {
			continue
		}
		if s.cache.IsValid(date, now) {
			continue
		}
		s.pending[date] = struct{}{}
		batch = append(batch, date)
	}
	if len(batch) == 0 {
		s.mu.Unlock()
		return 0
	}
	s.wg.Add(1)
	s.mu.Unlock()

	scope = append(matches.LeagueScope(nil), scope...)
	go s.run(batch, scope)

	s.logInfo("prefetch queued",
		slog.Int(logging.FieldCount, len(batch)),
		slog.String(logging.FieldScope, scope.Key()),
		slog.String("excluding", excluding.String()),
	)
	return len(batch)
}

func (s *Scheduler) run(batch []timeutil.DateKey, scope matches.LeagueScope) {
	defer s.wg.Done()

	g := new(errgroup.Group)
	g.SetLimit(s.concurrency)
	for _, date := range batch {
		date := date
		g.Go(func() error {
			defer s.release(date)
			s.fetchOne(date, scope)
			return nil
		})
	}
	_ = g.Wait()
}

func (s *Scheduler) fetchOne(date timeutil.DateKey, scope matches.LeagueScope) {
	if s.ctx.Err() != nil {
		s.metrics.RecordPrefetch(metrics.OutcomeSkipped)
		return
	}
	// A foreground load may have filled the date while this job waited.
	if s.cache.IsValid(date, s.now()) {
		s.metrics.RecordPrefetch(metrics.OutcomeSkipped)
		return
	}

	res, err := s.fetcher.Fetch(s.ctx, date, scope)
	if err != nil {
		s.metrics.RecordPrefetch(metrics.OutcomeFailed)
		s.logWarn("prefetch failed",
			slog.String(logging.FieldDate, date.String()),
			slog.Any("err", err),
		)
		return
	}
	outcome := metrics.OutcomeOK
	if res.Partial() {
		outcome = metrics.OutcomePartial
	}
	s.metrics.RecordPrefetch(outcome)
	s.logDebug("prefetch stored",
		slog.String(logging.FieldDate, date.String()),
		slog.Int(logging.FieldCount, len(res.Matches)),
	)
}

func (s *Scheduler) release(date timeutil.DateKey) {
	s.mu.Lock()
	delete(s.pending, date)
	s.mu.Unlock()
}

// Pending reports how many dates are queued or in flight.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Wait blocks until every queued job has finished.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// Close stops accepting work, cancels in-flight fetches and waits for them to
// drain or for ctx to end.
func (s *Scheduler) Close(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) logInfo(msg string, args ...any) {
	logging.Info(s.logger, msg, args...)
}

func (s *Scheduler) logDebug(msg string, args ...any) {
	logging.Debug(s.logger, msg, args...)
}

func (s *Scheduler) logWarn(msg string, args ...any) {
	logging.Warn(s.logger, msg, args...)
}
