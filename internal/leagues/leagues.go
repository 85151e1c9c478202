// Package leagues supplies the user's display-league preference as a LeagueScope.
package leagues

import (
	"github.com/preston-bernstein/matchday-service/internal/domain/matches"
)

// Source returns the current display-league scope. An empty scope means every league.
type Source interface {
	DisplayLeagues() matches.LeagueScope
}

// Static is a fixed scope.
type Static matches.LeagueScope

// NewStatic builds a Static source from raw ids.
func NewStatic(ids ...int) Static {
	scope := make([]matches.LeagueID, len(ids))
	for i, id := range ids {
		scope[i] = matches.LeagueID(id)
	}
	return Static(matches.NewLeagueScope(scope...))
}

func (s Static) DisplayLeagues() matches.LeagueScope {
	return append(matches.LeagueScope(nil), s...)
}
