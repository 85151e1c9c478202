package apifootball

import (
	"fmt"
	"strings"
	"time"

	"github.com/preston-bernstein/matchday-service/internal/domain/matches"
)

// mapFixture normalizes one upstream fixture. Only the raw status code is
// carried; bucketing happens when results are merged.
func mapFixture(f fixtureResponse) matches.MatchRecord {
	return matches.MatchRecord{
		ID:         fmt.Sprintf("%s-%d", providerName, f.Fixture.ID),
		Provider:   providerName,
		Kickoff:    kickoff(f.Fixture),
		League:     matches.LeagueID(f.League.ID),
		LeagueName: f.League.Name,
		StatusCode: strings.TrimSpace(f.Fixture.Status.Short),
		HomeTeam:   mapTeam(f.Teams.Home),
		AwayTeam:   mapTeam(f.Teams.Away),
		Score: matches.Score{
			Home: f.Goals.Home,
			Away: f.Goals.Away,
		},
	}
}

func mapTeam(t teamInfo) matches.Team {
	return matches.Team{ID: t.ID, Name: t.Name, Logo: t.Logo}
}

func kickoff(f fixtureInfo) time.Time {
	if t, err := time.Parse(time.RFC3339, f.Date); err == nil {
		return t.UTC()
	}
	if f.Timestamp > 0 {
		return time.Unix(f.Timestamp, 0).UTC()
	}
	return time.Time{}
}
