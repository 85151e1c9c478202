package providers

import (
	"context"

	"github.com/preston-bernstein/matchday-service/internal/domain/matches"
	"github.com/preston-bernstein/matchday-service/internal/timeutil"
)

// FixtureProvider fetches the fixtures scheduled on one calendar date.
// league == matches.AllLeagues means the query is not filtered by league.
// An empty, nil-error result is a valid answer (no matches that day).
type FixtureProvider interface {
	QueryFixtures(ctx context.Context, date timeutil.DateKey, league matches.LeagueID) ([]matches.MatchRecord, error)
}

// FixtureProviderFunc adapts a function to FixtureProvider.
type FixtureProviderFunc func(ctx context.Context, date timeutil.DateKey, league matches.LeagueID) ([]matches.MatchRecord, error)

func (f FixtureProviderFunc) QueryFixtures(ctx context.Context, date timeutil.DateKey, league matches.LeagueID) ([]matches.MatchRecord, error) {
	return f(ctx, date, league)
}
