package providers

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"sync/atomic"
	"testing"
	"time"

	"github.com/preston-bernstein/matchday-service/internal/domain/matches"
	"github.com/preston-bernstein/matchday-service/internal/metrics"
	"github.com/preston-bernstein/matchday-service/internal/timeutil"
)

var testDate = timeutil.MustDateKey("2024-01-16")

type flakeyProvider struct {
	failures int32
	err      error
	calls    atomic.Int32
}

func (f *flakeyProvider) QueryFixtures(ctx context.Context, date timeutil.DateKey, league matches.LeagueID) ([]matches.MatchRecord, error) {
	_ = ctx
	_ = date
	_ = league
	n := f.calls.Add(1)
	if n <= f.failures {
		if f.err != nil {
			return nil, f.err
		}
		return nil, errors.New("boom")
	}
	return []matches.MatchRecord{{ID: "ok"}}, nil
}

func TestRetryingProviderRetriesAndSucceeds(t *testing.T) {
	fp := &flakeyProvider{failures: 2}
	rp := NewRetryingProvider(fp, slog.Default(), metrics.NewRecorder(), "flakey", 3, time.Millisecond)

	recs, err := rp.QueryFixtures(context.Background(), testDate, matches.AllLeagues)
	if err != nil {
		t.Fatalf("expected success, got error %v", err)
	}
	if len(recs) != 1 || recs[0].ID != "ok" {
		t.Fatalf("unexpected records %+v", recs)
	}
	if fp.calls.Load() != 3 {
		t.Fatalf("expected 3 attempts, got %d", fp.calls.Load())
	}
}

func TestRetryingProviderStopsAfterMaxAttempts(t *testing.T) {
	fp := &flakeyProvider{failures: 5}
	rp := NewRetryingProvider(fp, nil, metrics.NewRecorder(), "flakey", 2, time.Millisecond)

	if _, err := rp.QueryFixtures(context.Background(), testDate, 39); err == nil {
		t.Fatal("expected error after retries")
	}
	if fp.calls.Load() != 2 {
		t.Fatalf("expected 2 attempts, got %d", fp.calls.Load())
	}
}

func TestRetryingProviderDoesNotRetryClientErrors(t *testing.T) {
	fp := &flakeyProvider{failures: 5, err: &StatusError{Provider: "p", StatusCode: 403}}
	rp := NewRetryingProvider(fp, nil, nil, "flakey", 3, time.Millisecond)

	_, err := rp.QueryFixtures(context.Background(), testDate, 39)
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected status error, got %v", err)
	}
	if fp.calls.Load() != 1 {
		t.Fatalf("expected a single attempt, got %d", fp.calls.Load())
	}
}

func TestRetryingProviderRespectsContextCancel(t *testing.T) {
	fp := &flakeyProvider{failures: 5}
	rp := NewRetryingProvider(fp, nil, metrics.NewRecorder(), "flakey", 3, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := rp.QueryFixtures(ctx, testDate, matches.AllLeagues); err == nil {
		t.Fatal("expected context error")
	}
	if fp.calls.Load() != 1 {
		t.Fatalf("expected no retry after cancellation, got %d calls", fp.calls.Load())
	}
}

func TestRetryingProviderUsesCustomBackoff(t *testing.T) {
	fp := &flakeyProvider{failures: 1}
	rp := NewRetryingProvider(fp, nil, metrics.NewRecorder(), "flakey", 2, time.Hour).(*retryingProvider)

	calls := 0
	rp.backoffFn = func(attempt int) time.Duration {
		calls++
		return 0
	}

	_, _ = rp.QueryFixtures(context.Background(), testDate, matches.AllLeagues)
	if calls == 0 {
		t.Fatalf("expected custom backoff to be invoked")
	}
}

func TestRetryingProviderRecordsRateLimitMetrics(t *testing.T) {
	rec := metrics.NewRecorder()
	rp := NewRetryingProvider(&rateLimitThenSuccessProvider{}, nil, rec, "rl", 2, time.Millisecond).(*retryingProvider)
	rp.backoffFn = func(int) time.Duration { return 0 }

	recs, err := rp.QueryFixtures(context.Background(), testDate, matches.AllLeagues)
	if err != nil {
		t.Fatalf("expected success after retry, got %v", err)
	}
	if len(recs) != 1 || recs[0].ID != "ok" {
		t.Fatalf("unexpected records %+v", recs)
	}

	if got := rec.RateLimitHits(rp.providerName); got != 1 {
		t.Fatalf("expected 1 rate limit hit, got %d", got)
	}
	if got := rec.ProviderCalls(rp.providerName); got != 2 {
		t.Fatalf("expected 2 provider calls, got %d", got)
	}
	if got := rec.ProviderErrors(rp.providerName); got != 1 {
		t.Fatalf("expected 1 error, got %d", got)
	}
}

func TestRetryingProviderDelaySelection(t *testing.T) {
	rp := NewRetryingProvider(&rateLimitThenSuccessProvider{}, nil, nil, "rl", 2, time.Millisecond).(*retryingProvider)
	rp.rng = rand.New(rand.NewSource(1))
	rp.backoffFn = func(int) time.Duration { return 50 * time.Millisecond }

	if got := rp.computeDelay(&RateLimitError{RetryAfter: 3 * time.Second}, 1); got != 3*time.Second {
		t.Fatalf("expected retry-after delay 3s, got %s", got)
	}
	for i := 0; i < 20; i++ {
		delay := rp.computeDelay(errors.New("boom"), 1)
		if delay < 25*time.Millisecond || delay > 50*time.Millisecond {
			t.Fatalf("expected jittered delay between 25ms and 50ms, got %s", delay)
		}
	}

	rp.backoffFn = func(int) time.Duration { return 0 }
	if got := rp.computeDelay(errors.New("boom"), 1); got != 0 {
		t.Fatalf("expected zero delay for zero backoff, got %s", got)
	}
}

func TestNewRetryingProviderWithRNG(t *testing.T) {
	fp := &flakeyProvider{failures: 1}
	rp := NewRetryingProviderWithRNG(fp, nil, metrics.NewRecorder(), "flakey", rand.New(rand.NewSource(2)), 2, time.Millisecond)

	recs, err := rp.QueryFixtures(context.Background(), testDate, matches.AllLeagues)
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected records from provider")
	}
}

func TestNewRetryingProviderDefaults(t *testing.T) {
	rp := NewRetryingProviderWithRNG(nil, nil, metrics.NewRecorder(), "", nil, 0, 0).(*retryingProvider)
	if rp.providerName != fallbackProviderName {
		t.Fatalf("expected fallback provider name, got %s", rp.providerName)
	}
	if rp.maxAttempts != defaultRetryAttempts {
		t.Fatalf("expected default attempts, got %d", rp.maxAttempts)
	}
	if rp.backoffFn(1) != defaultBackoff {
		t.Fatalf("expected default backoff")
	}
	if _, err := rp.QueryFixtures(context.Background(), testDate, matches.AllLeagues); !errors.Is(err, ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable for nil inner, got %v", err)
	}
}

type rateLimitThenSuccessProvider struct {
	calls int
}

func (f *rateLimitThenSuccessProvider) QueryFixtures(ctx context.Context, date timeutil.DateKey, league matches.LeagueID) ([]matches.MatchRecord, error) {
	_ = ctx
	_ = date
	_ = league
	f.calls++
	if f.calls == 1 {
		return nil, &RateLimitError{Provider: "test", StatusCode: 429}
	}
	return []matches.MatchRecord{{ID: "ok"}}, nil
}
