package server

import (
	"log/slog"
	"time"

	"github.com/preston-bernstein/matchday-service/internal/config"
	"github.com/preston-bernstein/matchday-service/internal/metrics"
	"github.com/preston-bernstein/matchday-service/internal/providers"
	"github.com/preston-bernstein/matchday-service/internal/providers/apifootball"
	"github.com/preston-bernstein/matchday-service/internal/providers/fixture"
)

// providerFactory assembles the provider with shared wrappers (rate limit + retry).
type providerFactory struct {
	logger  *slog.Logger
	metrics *metrics.Recorder
	now     func() time.Time
}

func newProviderFactory(logger *slog.Logger, metrics *metrics.Recorder, now func() time.Time) providerFactory {
	return providerFactory{logger: logger, metrics: metrics, now: now}
}

// build returns the wrapped provider and a closer for any ticker it owns.
func (f providerFactory) build(cfg config.Config) (providers.FixtureProvider, func()) {
	base := selectProvider(cfg, f.logger, f.now)
	return f.wrap(cfg, base, normalizeProviderName(cfg.Provider, base))
}

func (f providerFactory) wrap(cfg config.Config, base providers.FixtureProvider, name string) (providers.FixtureProvider, func()) {
	closer := func() {}
	next := base
	if cfg.Upstream.MinInterval > 0 {
		limited := providers.NewRateLimitedProvider(base, cfg.Upstream.MinInterval, f.logger)
		next = limited
		closer = limited.Close
	}
	return providers.NewRetryingProvider(next, f.logger, f.metrics, name, cfg.Upstream.RetryAttempts, cfg.Upstream.RetryBackoff), closer
}

func selectProvider(cfg config.Config, logger *slog.Logger, now func() time.Time) providers.FixtureProvider {
	switch cfg.Provider {
	case config.ProviderFixture, "":
		return fixture.New(now)
	case config.ProviderAPIFootball:
		return apifootball.NewClient(apifootball.Config{
			BaseURL:  cfg.APIFootball.BaseURL,
			APIKey:   cfg.APIFootball.APIKey,
			Timezone: cfg.Timezone,
			Season:   cfg.APIFootball.Season,
		})
	default:
		if logger != nil {
			logger.Warn("unknown provider, falling back to fixture", slog.String("provider", cfg.Provider))
		}
		return fixture.New(now)
	}
}
