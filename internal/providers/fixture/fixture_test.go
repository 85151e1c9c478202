package fixture

import (
	"context"
	"testing"
	"time"

	"github.com/preston-bernstein/matchday-service/internal/domain/matches"
	"github.com/preston-bernstein/matchday-service/internal/timeutil"
)

func TestQueryFixturesIsDeterministic(t *testing.T) {
	fixed := time.Date(2024, 1, 16, 9, 0, 0, 0, time.UTC)
	p := New(func() time.Time { return fixed })
	date := timeutil.MustDateKey("2024-01-20")

	a, err := p.QueryFixtures(context.Background(), date, matches.AllLeagues)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	b, _ := p.QueryFixtures(context.Background(), date, matches.AllLeagues)
	if len(a) != len(b) {
		t.Fatalf("expected stable result size")
	}
	for i := range a {
		if a[i].ID != b[i].ID || !a[i].Kickoff.Equal(b[i].Kickoff) {
			t.Fatalf("expected identical records at %d", i)
		}
	}
}

func TestQueryFixturesStatusFollowsDate(t *testing.T) {
	fixed := time.Date(2024, 1, 16, 9, 0, 0, 0, time.UTC)
	p := New(func() time.Time { return fixed })

	for offset := -3; offset <= 3; offset++ {
		if offset == 0 {
			continue
		}
		date := timeutil.DateOf(fixed).AddDays(offset)
		recs, err := p.QueryFixtures(context.Background(), date, matches.AllLeagues)
		if err != nil {
			t.Fatalf("unexpected error %v", err)
		}
		for _, r := range recs {
			want := "NS"
			if offset < 0 {
				want = "FT"
			}
			if r.StatusCode != want {
				t.Fatalf("date %s: expected %s, got %s", date, want, r.StatusCode)
			}
			if offset < 0 && r.Score.Home == nil {
				t.Fatalf("expected finished matches to carry a score")
			}
			if offset > 0 && r.Score.Home != nil {
				t.Fatalf("expected scheduled matches without a score")
			}
		}
	}
}

func TestQueryFixturesScopedToLeague(t *testing.T) {
	p := New(func() time.Time { return time.Date(2024, 1, 16, 9, 0, 0, 0, time.UTC) })
	for d := 0; d < 7; d++ {
		date := timeutil.MustDateKey("2024-01-14").AddDays(d)
		recs, _ := p.QueryFixtures(context.Background(), date, 140)
		for _, r := range recs {
			if r.League != 140 || r.LeagueName != "La Liga" {
				t.Fatalf("expected only league 140, got %+v", r)
			}
		}
	}

	unknown, err := p.QueryFixtures(context.Background(), timeutil.MustDateKey("2024-01-16"), 9999)
	if err != nil || unknown == nil || len(unknown) != 0 {
		t.Fatalf("expected empty non-nil result for unknown league, got %v %v", unknown, err)
	}
}

func TestStatusAt(t *testing.T) {
	kickoff := time.Date(2024, 1, 16, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		offset time.Duration
		want   string
	}{
		{-time.Minute, "NS"},
		{10 * time.Minute, "1H"},
		{50 * time.Minute, "HT"},
		{80 * time.Minute, "2H"},
		{2 * time.Hour, "FT"},
	}
	for _, c := range cases {
		if got := statusAt(kickoff, kickoff.Add(c.offset)); got != c.want {
			t.Fatalf("offset %s: expected %s, got %s", c.offset, c.want, got)
		}
	}
}

func TestQueryFixturesHonoursCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New(nil).QueryFixtures(ctx, timeutil.MustDateKey("2024-01-16"), matches.AllLeagues); err == nil {
		t.Fatalf("expected context error")
	}
}
