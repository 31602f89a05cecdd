package config

import "github.com/kelseyhightower/envconfig"

// Config holds application configuration loaded from environment variables.
type Config struct {
	Port        int    `envconfig:"PORT" default:"8080"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	Version     string `envconfig:"VERSION" default:"dev"`

	// RedisAddr enables the catalog read cache when set.
	RedisAddr              string `envconfig:"REDIS_ADDR" default:""`
	CatalogCacheTTLSeconds int    `envconfig:"CATALOG_CACHE_TTL" default:"300"`

	// CapacityHoursPerMember is the standard monthly capacity assumed for
	// every assigned team member when computing utilization.
	CapacityHoursPerMember float64 `envconfig:"CAPACITY_HOURS_PER_MEMBER" default:"160"`

	// SnapshotInterval is how often, in seconds, the fleet capacity
	// snapshot is recomputed.
	SnapshotInterval int  `envconfig:"SNAPSHOT_INTERVAL" default:"60"`
	MetricsEnabled   bool `envconfig:"METRICS_ENABLED" default:"true"`
}

// Load reads configuration from environment variables into a Config struct.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
