package server

import (
	"fmt"
	"log/slog"

	"github.com/preston-bernstein/matchday-service/internal/config"
	"github.com/preston-bernstein/matchday-service/internal/events"
	"github.com/preston-bernstein/matchday-service/internal/leagues"
	"github.com/preston-bernstein/matchday-service/internal/logging"
)

// buildLeagues prefers the preferences file when one is configured.
func buildLeagues(cfg config.Config, logger *slog.Logger) (leagues.Source, error) {
	if cfg.Leagues.File != "" {
		src, err := leagues.NewFileSource(cfg.Leagues.File, logger)
		if err != nil {
			return nil, fmt.Errorf("load leagues file: %w", err)
		}
		return src, nil
	}
	return leagues.NewStatic(cfg.Leagues.Display...), nil
}

// buildPublisher returns a Kafka publisher when brokers are configured. A
// publisher that cannot be built is logged and replaced by a no-op.
func buildPublisher(cfg config.Config, logger *slog.Logger) events.Publisher {
	if !cfg.Events.Enabled() {
		return events.NopPublisher{}
	}
	pub, err := newKafkaPublisher(cfg.Events.Brokers, cfg.Events.Topic, logger)
	if err != nil {
		logging.Warn(logger, "cache events disabled", slog.Any("err", err))
		return events.NopPublisher{}
	}
	logging.Info(logger, "publishing cache events",
		slog.Any("brokers", cfg.Events.Brokers),
		slog.String("topic", cfg.Events.Topic),
	)
	return pub
}

var newKafkaPublisher = func(brokers []string, topic string, logger *slog.Logger) (events.Publisher, error) {
	return events.NewKafkaPublisher(brokers, topic, logger)
}
