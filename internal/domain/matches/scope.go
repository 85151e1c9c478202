package matches

import (
	"sort"
	"strconv"
	"strings"
)

// LeagueScope is a sorted, de-duplicated set of leagues to fetch. An empty
// scope means "no league filter".
type LeagueScope []LeagueID

// NewLeagueScope builds a scope from ids, dropping duplicates and AllLeagues.
func NewLeagueScope(ids ...LeagueID) LeagueScope {
	seen := make(map[LeagueID]struct{}, len(ids))
	scope := make(LeagueScope, 0, len(ids))
	for _, id := range ids {
		if id == AllLeagues {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		scope = append(scope, id)
	}
	sort.Slice(scope, func(i, j int) bool { return scope[i] < scope[j] })
	return scope
}

// IsEmpty reports whether the scope is unfiltered.
func (s LeagueScope) IsEmpty() bool {
	return len(s) == 0
}

// Contains reports whether id is in the scope.
func (s LeagueScope) Contains(id LeagueID) bool {
	for _, l := range s {
		if l == id {
			return true
		}
	}
	return false
}

// Key returns a stable string form, "all" for the empty scope.
func (s LeagueScope) Key() string {
	if s.IsEmpty() {
		return "all"
	}
	parts := make([]string, len(s))
	for i, id := range s {
		parts[i] = strconv.Itoa(int(id))
	}
	return strings.Join(parts, ",")
}
