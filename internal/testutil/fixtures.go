package testutil

import (
	"time"

	"github.com/preston-bernstein/matchday-service/internal/domain/matches"
)

// SampleMatch returns a minimal record with the provided id, upstream status code and kickoff.
// Bucket is left unset so callers exercise classification.
func SampleMatch(id, statusCode string, kickoff time.Time) matches.MatchRecord {
	return matches.MatchRecord{
		ID:         id,
		Provider:   "test",
		Kickoff:    kickoff,
		League:     39,
		LeagueName: "Premier League",
		StatusCode: statusCode,
		HomeTeam:   matches.Team{ID: 1, Name: "Home"},
		AwayTeam:   matches.Team{ID: 2, Name: "Away"},
	}
}

// SampleLeagueMatch is SampleMatch with a league override.
func SampleLeagueMatch(id string, league matches.LeagueID, statusCode string, kickoff time.Time) matches.MatchRecord {
	m := SampleMatch(id, statusCode, kickoff)
	m.League = league
	m.LeagueName = ""
	return m
}

// IDs lists record ids in order.
func IDs(records []matches.MatchRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}
