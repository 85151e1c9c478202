package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/preston-bernstein/matchday-service/internal/logging"
)

const (
	defaultTopic        = "matchday.cache-updates"
	defaultWriteTimeout = 5 * time.Second
)

// ErrNoBrokers is returned when a Kafka publisher is requested without brokers.
var ErrNoBrokers = errors.New("events: no kafka brokers configured")

// messageWriter is the subset of *kafka.Writer the publisher needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes CacheUpdated events as JSON, keyed by date so a
// consumer sees updates for one date in order.
type KafkaPublisher struct {
	writer  messageWriter
	logger  *slog.Logger
	timeout time.Duration
}

// NewKafkaPublisher builds a synchronous writer for topic on brokers.
func NewKafkaPublisher(brokers []string, topic string, logger *slog.Logger) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, ErrNoBrokers
	}
	if topic == "" {
		topic = defaultTopic
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		Async:                  false,
		AllowAutoTopicCreation: true,
	}
	return newKafkaPublisher(w, logger), nil
}

func newKafkaPublisher(w messageWriter, logger *slog.Logger) *KafkaPublisher {
	if logger != nil {
		logger = logger.With(slog.String("component", "kafka-publisher"))
	}
	return &KafkaPublisher{writer: w, logger: logger, timeout: defaultWriteTimeout}
}

// PublishCacheUpdated encodes and writes evt. Failures are returned for the caller to log.
func (p *KafkaPublisher) PublishCacheUpdated(ctx context.Context, evt CacheUpdated) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("encode cache event: %w", err)
	}

	writeCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	msg := kafka.Message{
		Key:   []byte(evt.Date),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte("cache.updated")},
		},
	}
	if err := p.writer.WriteMessages(writeCtx, msg); err != nil {
		return fmt.Errorf("publish cache event %s: %w", evt.Date, err)
	}
	logging.Debug(p.logger, "cache event published",
		slog.String(logging.FieldDate, evt.Date),
		slog.Uint64(logging.FieldGeneration, evt.Generation),
	)
	return nil
}

// Close flushes and closes the underlying writer.
func (p *KafkaPublisher) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
