package apifootball

import "time"

const (
	providerName       = "apifootball"
	defaultBaseURL     = "https://v3.football.api-sports.io"
	defaultHTTPTimeout = 10 * time.Second
	defaultTimezone    = "UTC"
	apiKeyHeader       = "x-apisports-key"
	maxErrorBody       = 512

	// Most European seasons start in July; earlier months belong to the previous season.
	seasonStartMonth = time.July
)
