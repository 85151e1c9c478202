package policy

import (
	"slices"

	"github.com/preston-bernstein/matchday-service/internal/domain/matches"
	"github.com/preston-bernstein/matchday-service/internal/timeutil"
)

// Order returns a display-ordered copy of records. On today the set is
// grouped by bucket rank then kickoff; any other day is purely chronological.
// The sort is stable, so ties keep upstream order.
func Order(date, today timeutil.DateKey, records []matches.MatchRecord) []matches.MatchRecord {
	out := slices.Clone(records)
	if out == nil {
		out = []matches.MatchRecord{}
	}
	if date == today {
		slices.SortStableFunc(out, byRankThenKickoff)
	} else {
		slices.SortStableFunc(out, byKickoff)
	}
	return out
}

func byKickoff(a, b matches.MatchRecord) int {
	return a.Kickoff.Compare(b.Kickoff)
}

func byRankThenKickoff(a, b matches.MatchRecord) int {
	if ra, rb := a.Bucket.Rank(), b.Bucket.Rank(); ra != rb {
		return ra - rb
	}
	return byKickoff(a, b)
}
