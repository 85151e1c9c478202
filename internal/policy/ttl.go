package policy

import (
	"time"

	"github.com/preston-bernstein/matchday-service/internal/domain/matches"
	"github.com/preston-bernstein/matchday-service/internal/timeutil"
)

// Freshness per volatility tier.
const (
	LiveTTL     = time.Minute
	TodayTTL    = 15 * time.Minute
	FinishedTTL = 2 * time.Hour
	PastTTL     = 6 * time.Hour
	DefaultTTL  = 30 * time.Minute
)

// ComputeExpiry returns when the fixture set for date stops being fresh. The
// calendar day of now (in now's location) is "today". Rules are a priority
// chain; the first match wins.
func ComputeExpiry(date timeutil.DateKey, records []matches.MatchRecord, now time.Time) time.Time {
	return now.Add(TTLFor(date, records, timeutil.DateOf(now)))
}

// TTLFor returns the lifetime ComputeExpiry would apply.
func TTLFor(date timeutil.DateKey, records []matches.MatchRecord, today timeutil.DateKey) time.Duration {
	switch {
	case matches.AnyIn(records, matches.BucketLive):
		return LiveTTL
	case date == today:
		return TodayTTL
	case matches.AnyIn(records, matches.BucketFinished):
		return FinishedTTL
	case date.Before(today):
		return PastTTL
	default:
		return DefaultTTL
	}
}
