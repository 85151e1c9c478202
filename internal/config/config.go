package config

import (
	"fmt"
	"strings"
	"time"
)

// Config holds runtime configuration for the server.
type Config struct {
	Port         string        `env:"PORT" envDefault:"4000"`
	PollInterval time.Duration `env:"POLL_INTERVAL" envDefault:"1m"`
	Provider     string        `env:"PROVIDER" envDefault:"fixture"`
	// Timezone decides which calendar date counts as "today".
	Timezone     string `env:"TIMEZONE" envDefault:"UTC"`
	WindowRadius int    `env:"WINDOW_RADIUS" envDefault:"7"`

	Fetch       FetchConfig
	Upstream    UpstreamConfig
	Prefetch    PrefetchConfig
	Leagues     LeaguesConfig
	APIFootball APIFootballConfig
	Metrics     MetricsConfig
	Events      EventsConfig
	Log         LogConfig
}

// FetchConfig bounds one orchestrated fetch.
type FetchConfig struct {
	QueryTimeout time.Duration `env:"FETCH_QUERY_TIMEOUT" envDefault:"10s"`
	MaxParallel  int           `env:"FETCH_MAX_PARALLEL" envDefault:"4"`
}

// UpstreamConfig controls the retry and rate-limit wrappers around the provider.
type UpstreamConfig struct {
	RetryAttempts int           `env:"PROVIDER_RETRY_ATTEMPTS" envDefault:"3"`
	RetryBackoff  time.Duration `env:"PROVIDER_RETRY_BACKOFF" envDefault:"200ms"`
	// MinInterval spaces upstream calls; zero disables the limiter.
	MinInterval time.Duration `env:"PROVIDER_MIN_INTERVAL"`
}

// PrefetchConfig controls background warming of the date window.
type PrefetchConfig struct {
	Enabled     bool `env:"PREFETCH_ENABLED" envDefault:"true"`
	Concurrency int  `env:"PREFETCH_CONCURRENCY" envDefault:"2"`
}

// LeaguesConfig selects the display leagues. File wins over the static list when set.
type LeaguesConfig struct {
	Display []int  `env:"DISPLAY_LEAGUES" envSeparator:","`
	File    string `env:"LEAGUES_FILE"`
}

// APIFootballConfig controls how we talk to the API-Football upstream.
type APIFootballConfig struct {
	BaseURL string `env:"APIFOOTBALL_BASE_URL" envDefault:"https://v3.football.api-sports.io"`
	APIKey  string `env:"APIFOOTBALL_API_KEY"`
	Season  int    `env:"APIFOOTBALL_SEASON"`
}

// EventsConfig enables cache-update publishing when brokers are set.
type EventsConfig struct {
	Brokers []string `env:"KAFKA_BROKERS" envSeparator:","`
	Topic   string   `env:"KAFKA_TOPIC" envDefault:"matchday.cache-updates"`
}

// Enabled reports whether a broker list was configured.
func (e EventsConfig) Enabled() bool {
	return len(e.Brokers) > 0
}

// LogConfig controls the slog handler.
type LogConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"text"`
}

// Load reads configuration from environment variables with sensible defaults.
// Values that fail to parse are an error; non-positive sizes and intervals fall back to defaults.
func Load() (Config, error) {
	var cfg Config
	if err := parseEnv(&cfg); err != nil {
		return Config{}, err
	}
	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.Port = stringOr(c.Port, defaultPort)
	c.PollInterval = positiveDurationOr(c.PollInterval, defaultPollInterval)
	c.Provider = strings.ToLower(stringOr(strings.TrimSpace(c.Provider), defaultProvider))
	c.Timezone = stringOr(c.Timezone, defaultTimezone)
	if c.WindowRadius < 0 {
		c.WindowRadius = defaultWindowRadius
	}

	c.Fetch.QueryTimeout = positiveDurationOr(c.Fetch.QueryTimeout, defaultQueryTimeout)
	c.Fetch.MaxParallel = positiveOr(c.Fetch.MaxParallel, defaultMaxParallel)
	c.Upstream.RetryAttempts = positiveOr(c.Upstream.RetryAttempts, defaultRetryAttempts)
	c.Upstream.RetryBackoff = positiveDurationOr(c.Upstream.RetryBackoff, defaultRetryBackoff)
	if c.Upstream.MinInterval < 0 {
		c.Upstream.MinInterval = 0
	}
	c.Prefetch.Concurrency = positiveOr(c.Prefetch.Concurrency, defaultPrefetchConcurrency)
	c.Events.Topic = stringOr(c.Events.Topic, defaultKafkaTopic)
	c.Metrics.normalize()
}

func (c Config) validate() error {
	switch c.Provider {
	case ProviderFixture, ProviderAPIFootball:
	default:
		return fmt.Errorf("config: unknown provider %q", c.Provider)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("config: invalid timezone %q: %w", c.Timezone, err)
	}
	return nil
}
