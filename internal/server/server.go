// Package server wires the fixture cache, its schedulers and the HTTP surface
// into one runnable service.
package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/preston-bernstein/matchday-service/internal/app/fetch"
	"github.com/preston-bernstein/matchday-service/internal/app/prefetch"
	"github.com/preston-bernstein/matchday-service/internal/app/selection"
	"github.com/preston-bernstein/matchday-service/internal/config"
	"github.com/preston-bernstein/matchday-service/internal/events"
	httpserver "github.com/preston-bernstein/matchday-service/internal/http"
	"github.com/preston-bernstein/matchday-service/internal/http/handlers"
	"github.com/preston-bernstein/matchday-service/internal/logging"
	"github.com/preston-bernstein/matchday-service/internal/metrics"
	"github.com/preston-bernstein/matchday-service/internal/poller"
	"github.com/preston-bernstein/matchday-service/internal/providers"
	"github.com/preston-bernstein/matchday-service/internal/store"
	"github.com/preston-bernstein/matchday-service/internal/timeutil"
)

var metricsSetup = metrics.Setup

type Server struct {
	cfg           config.Config
	logger        *slog.Logger
	metrics       *metrics.Recorder
	cache         *store.CacheStore
	orch          *fetch.Orchestrator
	controller    *selection.Controller
	scheduler     *prefetch.Scheduler
	publisher     events.Publisher
	handler       *handlers.Handler
	httpServer    httpServer
	metricsServer httpServer
	poller        Poller
	metricsStop   func(context.Context) error
	closeProvider func()
}

// New constructs a server with the configured provider chain.
func New(cfg config.Config, logger *slog.Logger) (*Server, error) {
	return newServerWithMetrics(cfg, logger, nil, nil)
}

func newServerWithProvider(cfg config.Config, logger *slog.Logger, provider providers.FixtureProvider) (*Server, error) {
	return newServerWithMetrics(cfg, logger, provider, nil)
}

func newServerWithMetrics(cfg config.Config, logger *slog.Logger, provider providers.FixtureProvider, recorder *metrics.Recorder) (*Server, error) {
	recorder, metricsSrv, metricsShutdown := buildMetrics(cfg, logger, recorder)
	now := timeutil.ClockIn(timeutil.ResolveLocation(cfg.Timezone))

	src, err := buildLeagues(cfg, logger)
	if err != nil {
		return nil, err
	}

	factory := newProviderFactory(logger, recorder, now)
	closeProvider := func() {}
	if provider == nil {
		provider, closeProvider = factory.build(cfg)
	} else {
		provider, closeProvider = factory.wrap(cfg, provider, normalizeProviderName(cfg.Provider, provider))
	}

	cache := store.NewCacheStore()
	publisher := buildPublisher(cfg, logger)
	orch := fetch.New(provider, cache, fetch.Options{
		QueryTimeout: cfg.Fetch.QueryTimeout,
		MaxParallel:  cfg.Fetch.MaxParallel,
		Logger:       logger,
		Metrics:      recorder,
		Publisher:    publisher,
		Now:          now,
	})

	var scheduler *prefetch.Scheduler
	var prefetcher selection.Prefetcher
	if cfg.Prefetch.Enabled {
		scheduler = prefetch.New(orch, cache, prefetch.Options{
			Concurrency: cfg.Prefetch.Concurrency,
			Logger:      logger,
			Metrics:     recorder,
			Now:         now,
		})
		prefetcher = scheduler
	}

	ctrl := selection.New(orch, cache, selection.Options{
		Radius:     cfg.WindowRadius,
		Leagues:    src,
		Prefetcher: prefetcher,
		Logger:     logger,
		Metrics:    recorder,
		Now:        now,
	})
	plr := poller.New(ctrl, logger, recorder, cfg.PollInterval)
	handler := handlers.NewHandler(ctrl, logger, plr.Status)
	httpSrv := buildHTTPServer(cfg, handler, logger, recorder)

	return &Server{
		cfg:           cfg,
		logger:        logger,
		metrics:       recorder,
		cache:         cache,
		orch:          orch,
		controller:    ctrl,
		scheduler:     scheduler,
		publisher:     publisher,
		handler:       handler,
		httpServer:    httpSrv,
		metricsServer: metricsSrv,
		poller:        plr,
		metricsStop:   metricsShutdown,
		closeProvider: closeProvider,
	}, nil
}

// newServerWithDeps is used for testing to inject custom components.
func newServerWithDeps(cfg config.Config, logger *slog.Logger, httpSrv httpServer, plr Poller) *Server {
	return &Server{
		cfg:        cfg,
		logger:     logger,
		httpServer: httpSrv,
		poller:     plr,
	}
}

func buildHTTPServer(cfg config.Config, handler *handlers.Handler, logger *slog.Logger, recorder *metrics.Recorder) httpServer {
	if logger == nil {
		logger = logging.NewLogger(logging.Config{})
	}
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           httpserver.NewRouter(handler, logger, recorder),
		ReadTimeout:       readTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}
	// Event streams never go idle on their own.
	srv.RegisterOnShutdown(handler.CloseStreams)

	return netHTTPServer{srv: srv}
}

// Run starts the poller and HTTP server, then waits for context cancellation to shut down gracefully.
func (s *Server) Run(ctx context.Context, stop context.CancelFunc) {
	s.startMetrics()
	s.startServer(stop)
	s.poller.Start(ctx)

	<-ctx.Done()
	logging.Info(s.logger, "shutdown signal received")

	s.gracefulShutdown()
}

func (s *Server) startServer(stop context.CancelFunc) {
	logging.Info(s.logger, "http server starting", slog.String("addr", s.httpServer.Addr()))
	launchServer("http", s.httpServer, s.logger, func(err error) {
		if stop != nil {
			stop()
		}
	})
}

func (s *Server) startMetrics() {
	if s.metricsServer == nil {
		return
	}
	logging.Info(s.logger, "metrics server starting", slog.String("addr", s.metricsServer.Addr()))
	launchServer("metrics", s.metricsServer, s.logger, nil)
}

func (s *Server) gracefulShutdown() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if s.metricsStop != nil {
		if err := s.metricsStop(shutdownCtx); err != nil {
			logging.Warn(s.logger, "metrics shutdown failed", "error", err)
		}
	}

	if s.metricsServer != nil {
		if err := s.metricsServer.Shutdown(shutdownCtx); err != nil {
			logging.Warn(s.logger, "metrics server shutdown failed", "error", err)
		}
	}

	if err := s.poller.Stop(shutdownCtx); err != nil {
		logging.Error(s.logger, "failed to stop poller", err)
	}

	if s.handler != nil {
		s.handler.CloseStreams()
	}
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		logging.Error(s.logger, "graceful shutdown failed", err)
	}

	if s.scheduler != nil {
		if err := s.scheduler.Close(shutdownCtx); err != nil {
			logging.Warn(s.logger, "prefetch drain timed out", "error", err)
		}
	}

	if s.orch != nil {
		if err := s.orch.Drain(shutdownCtx); err != nil {
			logging.Warn(s.logger, "cache events still pending at shutdown", "error", err)
		}
	}

	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			logging.Warn(s.logger, "event publisher close failed", "error", err)
		}
	}

	// Stop the rate limiter ticker when one was built.
	if s.closeProvider != nil {
		s.closeProvider()
	}

	logging.Info(s.logger, "shutdown complete")
}

func buildMetrics(cfg config.Config, logger *slog.Logger, recorder *metrics.Recorder) (*metrics.Recorder, httpServer, func(context.Context) error) {
	if recorder != nil {
		return recorder, nil, nil
	}

	recCfg := metrics.TelemetryConfig{
		Enabled:      cfg.Metrics.Enabled,
		Port:         cfg.Metrics.Port,
		ServiceName:  cfg.Metrics.ServiceName,
		OtlpEndpoint: cfg.Metrics.OtlpEndpoint,
		OtlpInsecure: cfg.Metrics.OtlpInsecure,
	}

	rec, handler, shutdown, err := metricsSetup(context.Background(), recCfg)
	if err != nil {
		logging.Warn(logger, "metrics setup failed, continuing without telemetry", "err", err)
		return metrics.NewRecorder(), nil, nil
	}

	var metricsSrv httpServer
	if handler != nil && recCfg.Enabled {
		metricsSrv = netHTTPServer{
			srv: &http.Server{
				Addr:              ":" + recCfg.Port,
				Handler:           handler,
				ReadHeaderTimeout: readHeaderTimeout,
			},
		}
	}

	return rec, metricsSrv, shutdown
}

func launchServer(name string, srv httpServer, logger *slog.Logger, onError func(error)) {
	go func() {
		logging.Info(logger, "starting "+name+" server", slog.String("addr", srv.Addr()))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Warn(logger, name+" server failed", "error", err)
			if onError != nil {
				onError(err)
			}
		}
	}()
}

// Handler exposes the HTTP handler (useful for tests).
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler()
}

// Controller exposes the selection controller (useful for tests).
func (s *Server) Controller() *selection.Controller {
	return s.controller
}

// Cache exposes the date cache (useful for tests).
func (s *Server) Cache() *store.CacheStore {
	return s.cache
}
