// Package events publishes cache lifecycle notifications for downstream consumers.
package events

import (
	"context"
	"time"
)

// CacheUpdated is emitted after a fetch result is committed to the cache.
type CacheUpdated struct {
	Date       string    `json:"date"`
	Scope      string    `json:"scope"`
	Count      int       `json:"count"`
	Partial    bool      `json:"partial"`
	Generation uint64    `json:"generation"`
	ExpiresAt  time.Time `json:"expiresAt"`
	StoredAt   time.Time `json:"storedAt"`
}

// Publisher delivers cache events. Implementations must be safe for concurrent use.
type Publisher interface {
	PublishCacheUpdated(ctx context.Context, evt CacheUpdated) error
	Close() error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) PublishCacheUpdated(context.Context, CacheUpdated) error { return nil }

func (NopPublisher) Close() error { return nil }
