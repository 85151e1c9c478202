package matches

import "time"

// LeagueID identifies an upstream league. AllLeagues means "no league filter".
type LeagueID int

// AllLeagues selects the unscoped upstream query.
const AllLeagues LeagueID = 0

// Team is the normalized team shape carried on a match.
type Team struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Logo string `json:"logo,omitempty"`
}

// Score captures home and away goals; nil until the match has started.
type Score struct {
	Home *int `json:"home"`
	Away *int `json:"away"`
}

// MatchRecord is one upstream fixture. Records are treated as immutable once
// they have been written to the cache.
type MatchRecord struct {
	ID         string       `json:"id"`
	Provider   string       `json:"provider"`
	Kickoff    time.Time    `json:"kickoff"`
	League     LeagueID     `json:"league"`
	LeagueName string       `json:"leagueName,omitempty"`
	StatusCode string       `json:"statusCode"`
	Bucket     StatusBucket `json:"status"`
	HomeTeam   Team         `json:"homeTeam"`
	AwayTeam   Team         `json:"awayTeam"`
	Score      Score        `json:"score"`
}

// Classified returns a copy of records with Bucket derived from StatusCode.
func Classified(records []MatchRecord) []MatchRecord {
	out := make([]MatchRecord, len(records))
	for i, r := range records {
		r.Bucket = Classify(r.StatusCode)
		out[i] = r
	}
	return out
}

// AnyIn reports whether at least one record sits in bucket.
func AnyIn(records []MatchRecord, bucket StatusBucket) bool {
	for _, r := range records {
		if r.Bucket == bucket {
			return true
		}
	}
	return false
}
