package apifootball

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/preston-bernstein/matchday-service/internal/domain/matches"
	"github.com/preston-bernstein/matchday-service/internal/providers"
	"github.com/preston-bernstein/matchday-service/internal/timeutil"
)

// Config controls how the client reaches an API-Football compatible upstream.
type Config struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	Timezone   string
	// Season pins the season parameter for league-scoped queries; 0 derives it from the date.
	Season int
}

// Client queries the /fixtures endpoint and maps the response to match records.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient httpDoer
	timezone   string
	season     int
	now        func() time.Time
}

// NewClient constructs a client with the provided configuration.
func NewClient(cfg Config) *Client {
	return &Client{
		baseURL:    normalizeBaseURL(cfg.BaseURL),
		apiKey:     cfg.APIKey,
		httpClient: resolveHTTPClient(cfg.HTTPClient),
		timezone:   resolveTimezone(cfg.Timezone),
		season:     cfg.Season,
		now:        time.Now,
	}
}

// Name identifies the upstream for metrics and logs.
func (c *Client) Name() string { return providerName }

// QueryFixtures fetches fixtures on date, optionally filtered to one league.
func (c *Client) QueryFixtures(ctx context.Context, date timeutil.DateKey, league matches.LeagueID) ([]matches.MatchRecord, error) {
	req, err := c.buildRequest(ctx, date, league)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &providers.RateLimitError{
			Provider:   providerName,
			StatusCode: resp.StatusCode,
			RetryAfter: parseRetryAfter(resp.Header, c.now()),
			Remaining:  resp.Header.Get("X-RateLimit-Remaining"),
			Message:    "apifootball rate limited",
		}
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &providers.StatusError{
			Provider:   providerName,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	var payload fixturesResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("apifootball: decode fixtures: %w", err)
	}
	if err := upstreamError(payload.Errors, resp.Header); err != nil {
		return nil, err
	}

	out := make([]matches.MatchRecord, 0, len(payload.Response))
	for _, f := range payload.Response {
		out = append(out, mapFixture(f))
	}
	return out, nil
}

func (c *Client) buildRequest(ctx context.Context, date timeutil.DateKey, league matches.LeagueID) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/fixtures", nil)
	if err != nil {
		return nil, err
	}

	q := req.URL.Query()
	q.Set("date", date.String())
	q.Set("timezone", c.timezone)
	if league != matches.AllLeagues {
		q.Set("league", strconv.Itoa(int(league)))
		q.Set("season", strconv.Itoa(c.seasonFor(date)))
	}
	req.URL.RawQuery = q.Encode()

	if c.apiKey != "" {
		req.Header.Set(apiKeyHeader, c.apiKey)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (c *Client) seasonFor(date timeutil.DateKey) int {
	if c.season > 0 {
		return c.season
	}
	if date.Month >= seasonStartMonth {
		return date.Year
	}
	return date.Year - 1
}

// upstreamError interprets the "errors" member, which the API returns as
// either an empty array or an object of messages keyed by field.
func upstreamError(raw json.RawMessage, h http.Header) error {
	trimmed := strings.TrimSpace(string(raw))
	switch trimmed {
	case "", "null", "[]", "{}":
		return nil
	}

	var byField map[string]string
	if err := json.Unmarshal(raw, &byField); err != nil {
		var list []string
		if err := json.Unmarshal(raw, &list); err == nil && len(list) > 0 {
			return fmt.Errorf("apifootball: %s", strings.Join(list, "; "))
		}
		return fmt.Errorf("apifootball: upstream error %s", trimmed)
	}
	if len(byField) == 0 {
		return nil
	}

	keys := make([]string, 0, len(byField))
	for k := range byField {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+byField[k])
	}
	msg := "apifootball: " + strings.Join(parts, "; ")

	if _, ok := byField["requests"]; ok {
		return &providers.RateLimitError{Provider: providerName, Remaining: h.Get("X-RateLimit-Remaining"), Message: msg}
	}
	if _, ok := byField["rateLimit"]; ok {
		return &providers.RateLimitError{Provider: providerName, Remaining: h.Get("X-RateLimit-Remaining"), Message: msg}
	}
	return errors.New(msg)
}
