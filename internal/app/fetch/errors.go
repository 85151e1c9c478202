package fetch

import (
	"errors"
	"fmt"
	"strings"

	"github.com/preston-bernstein/matchday-service/internal/domain/matches"
	"github.com/preston-bernstein/matchday-service/internal/timeutil"
)

// ErrTotalFailure matches any FetchError via errors.Is.
var ErrTotalFailure = errors.New("fetch: every upstream query failed")

// QueryFailure records one failed upstream query. League is matches.AllLeagues for the unscoped query.
type QueryFailure struct {
	League matches.LeagueID
	Err    error
}

// FetchError is returned when no query for a date succeeded. The cache is left untouched.
type FetchError struct {
	Date     timeutil.DateKey
	Failures []QueryFailure
}

func (e *FetchError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		if f.League == matches.AllLeagues {
			parts = append(parts, fmt.Sprintf("all: %v", f.Err))
			continue
		}
		parts = append(parts, fmt.Sprintf("league %d: %v", f.League, f.Err))
	}
	return fmt.Sprintf("fetch %s failed: %s", e.Date, strings.Join(parts, "; "))
}

func (e *FetchError) Is(target error) bool {
	return target == ErrTotalFailure
}

func (e *FetchError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		errs = append(errs, f.Err)
	}
	return errs
}
