package config

import "time"

const (
	defaultPort         = "4000"
	defaultPollInterval = time.Minute
	defaultProvider     = "fixture"
	defaultTimezone     = "UTC"
	defaultWindowRadius = 7

	defaultQueryTimeout  = 10 * time.Second
	defaultMaxParallel   = 4
	defaultRetryAttempts = 3
	defaultRetryBackoff  = 200 * time.Millisecond

	defaultPrefetchConcurrency = 2

	defaultMetricsPort = "9090"
	defaultServiceName = "matchday-service"
	defaultKafkaTopic  = "matchday.cache-updates"
)

// Provider names accepted by PROVIDER.
const (
	ProviderFixture     = "fixture"
	ProviderAPIFootball = "apifootball"
)
