// Package fixture provides a deterministic offline FixtureProvider for local runs and tests.
package fixture

import (
	"context"
	"fmt"
	"time"

	"github.com/preston-bernstein/matchday-service/internal/domain/matches"
	"github.com/preston-bernstein/matchday-service/internal/timeutil"
)

const (
	providerName  = "fixture"
	firstKickoff  = 12 * time.Hour
	kickoffSpread = 150 * time.Minute
	matchLength   = 105 * time.Minute
)

type league struct {
	id    matches.LeagueID
	name  string
	teams []matches.Team
}

var catalogue = []league{
	{39, "Premier League", []matches.Team{{ID: 40, Name: "Liverpool"}, {ID: 50, Name: "Manchester City"}, {ID: 42, Name: "Arsenal"}, {ID: 49, Name: "Chelsea"}}},
	{140, "La Liga", []matches.Team{{ID: 541, Name: "Real Madrid"}, {ID: 529, Name: "Barcelona"}, {ID: 530, Name: "Atletico Madrid"}, {ID: 536, Name: "Sevilla"}}},
	{135, "Serie A", []matches.Team{{ID: 505, Name: "Inter"}, {ID: 489, Name: "AC Milan"}, {ID: 496, Name: "Juventus"}, {ID: 492, Name: "Napoli"}}},
	{78, "Bundesliga", []matches.Team{{ID: 157, Name: "Bayern Munich"}, {ID: 165, Name: "Borussia Dortmund"}, {ID: 168, Name: "Bayer Leverkusen"}, {ID: 173, Name: "RB Leipzig"}}},
}

// Provider returns plausible fixtures whose status follows the clock: past dates
// are finished, future dates are scheduled, and today's matches move through
// scheduled, live and finished as kickoff passes.
type Provider struct {
	now func() time.Time
}

// New creates a fixture provider with a time source; nil uses time.Now.
func New(now func() time.Time) *Provider {
	if now == nil {
		now = time.Now
	}
	return &Provider{now: now}
}

// Name identifies the provider in logs and metrics.
func (p *Provider) Name() string { return providerName }

// QueryFixtures returns the deterministic fixtures for date. Unknown leagues yield no matches.
func (p *Provider) QueryFixtures(ctx context.Context, date timeutil.DateKey, id matches.LeagueID) ([]matches.MatchRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	now := p.now()
	out := make([]matches.MatchRecord, 0)
	for _, l := range catalogue {
		if id != matches.AllLeagues && l.id != id {
			continue
		}
		out = append(out, p.leagueDay(l, date, now)...)
	}
	return out, nil
}

func (p *Provider) leagueDay(l league, date timeutil.DateKey, now time.Time) []matches.MatchRecord {
	seed := date.Year*372 + int(date.Month)*31 + date.Day + int(l.id)
	count := seed % 3
	midnight := date.Midnight(now.Location())

	out := make([]matches.MatchRecord, 0, count)
	for i := 0; i < count; i++ {
		kickoff := midnight.Add(firstKickoff + time.Duration(i)*kickoffSpread)
		home := l.teams[(seed+2*i)%len(l.teams)]
		away := l.teams[(seed+2*i+1)%len(l.teams)]
		code := statusAt(kickoff, now)

		rec := matches.MatchRecord{
			ID:         fmt.Sprintf("%s-%d-%s-%d", providerName, l.id, date, i),
			Provider:   providerName,
			Kickoff:    kickoff,
			League:     l.id,
			LeagueName: l.name,
			StatusCode: code,
			HomeTeam:   home,
			AwayTeam:   away,
		}
		if code != "NS" {
			h, a := (seed+i)%4, (seed/3+i)%3
			rec.Score = matches.Score{Home: &h, Away: &a}
		}
		out = append(out, rec)
	}
	return out
}

func statusAt(kickoff, now time.Time) string {
	elapsed := now.Sub(kickoff)
	switch {
	case elapsed < 0:
		return "NS"
	case elapsed < 45*time.Minute:
		return "1H"
	case elapsed < 60*time.Minute:
		return "HT"
	case elapsed < matchLength:
		return "2H"
	default:
		return "FT"
	}
}
