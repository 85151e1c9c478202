package providers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/preston-bernstein/matchday-service/internal/domain/matches"
	"github.com/preston-bernstein/matchday-service/internal/teststubs"
)

func TestRateLimitedProviderBlocksUntilTick(t *testing.T) {
	inner := &teststubs.StubProvider{}
	rl := NewRateLimitedProvider(inner, 5*time.Millisecond, nil)
	defer rl.Close()

	start := time.Now()
	if _, err := rl.QueryFixtures(context.Background(), testDate, matches.AllLeagues); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if elapsed := time.Since(start); elapsed < 5*time.Millisecond {
		t.Fatalf("expected call to wait for ticker, elapsed %s", elapsed)
	}
	if inner.Calls.Load() != 1 {
		t.Fatalf("expected inner provider called once, got %d", inner.Calls.Load())
	}
}

func TestRateLimitedProviderRespectsCanceledContext(t *testing.T) {
	inner := &teststubs.StubProvider{}
	rl := NewRateLimitedProvider(inner, time.Minute, nil)
	defer rl.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := rl.QueryFixtures(ctx, testDate, 39); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled error, got %v", err)
	}
	if inner.Calls.Load() != 0 {
		t.Fatalf("expected inner provider not called on canceled context")
	}
}

func TestRateLimitedProviderHandlesNilInner(t *testing.T) {
	rl := NewRateLimitedProvider(nil, time.Millisecond, nil)
	defer rl.Close()

	if _, err := rl.QueryFixtures(context.Background(), testDate, 39); !errors.Is(err, ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}
}

func TestRateLimitedProviderCloseIsIdempotent(t *testing.T) {
	rl := NewRateLimitedProvider(&teststubs.StubProvider{}, time.Millisecond, nil)
	rl.Close()
	rl.Close()
}

func TestRateLimitedProviderDefaultsInterval(t *testing.T) {
	rl := NewRateLimitedProvider(&teststubs.StubProvider{}, 0, nil)
	defer rl.Close()
	if rl.interval != defaultMinInterval {
		t.Fatalf("expected default interval 1m, got %s", rl.interval)
	}
}
