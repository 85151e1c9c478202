package providers

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/preston-bernstein/matchday-service/internal/domain/matches"
	"github.com/preston-bernstein/matchday-service/internal/logging"
	"github.com/preston-bernstein/matchday-service/internal/timeutil"
)

const defaultMinInterval = time.Minute

// rateLimitedProvider wraps a FixtureProvider and enforces a minimum interval between upstream calls.
// Concurrent callers queue on the same ticker, so a burst of per-league queries is spread out.
type rateLimitedProvider struct {
	next      FixtureProvider
	name      string
	interval  time.Duration
	ticker    *time.Ticker
	logger    *slog.Logger
	closeOnce sync.Once
}

// NewRateLimitedProvider returns a provider that limits calls to one per interval.
// Calls block until the interval elapses to avoid exceeding upstream quotas.
func NewRateLimitedProvider(next FixtureProvider, interval time.Duration, logger *slog.Logger) *rateLimitedProvider {
	if interval <= 0 {
		interval = defaultMinInterval
	}
	return &rateLimitedProvider{
		next:     next,
		name:     "rate-limited",
		interval: interval,
		ticker:   time.NewTicker(interval),
		logger:   logger,
	}
}

func (p *rateLimitedProvider) QueryFixtures(ctx context.Context, date timeutil.DateKey, league matches.LeagueID) ([]matches.MatchRecord, error) {
	if p.next == nil {
		logWithProvider(ctx, p.logger, slog.LevelWarn, p.name, "provider unavailable")
		return nil, ErrProviderUnavailable
	}
	select {
	case <-ctx.Done():
		logWithProvider(ctx, p.logger, slog.LevelDebug, p.name, "rate-limited fetch canceled",
			slog.String(logging.FieldDate, date.String()))
		return nil, ctx.Err()
	case <-p.ticker.C:
	}
	logWithProvider(ctx, p.logger, slog.LevelDebug, p.name, "rate-limited provider fetch",
		slog.String(logging.FieldDate, date.String()),
		slog.Int(logging.FieldLeague, int(league)),
	)
	return p.next.QueryFixtures(ctx, date, league)
}

// Close stops the ticker. Safe to call more than once.
func (p *rateLimitedProvider) Close() {
	p.closeOnce.Do(p.ticker.Stop)
}
