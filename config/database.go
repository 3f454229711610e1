package config

import (
	"fmt"
	"time"
)

// StoreBackend selects where the Jobs, Results and Aggregated tables live.
type StoreBackend string

const (
	// StoreBackendPostgres keeps the tables in PostgreSQL.
	StoreBackendPostgres StoreBackend = "postgres"
	// StoreBackendMemory keeps the tables in process memory. Development only.
	StoreBackendMemory StoreBackend = "memory"
)

// Validate reports whether b names a known backend.
func (b StoreBackend) Validate() error {
	switch b {
	case StoreBackendPostgres, StoreBackendMemory:
		return nil
	default:
		return fmt.Errorf("invalid store backend: %q (valid options: postgres, memory)", string(b))
	}
}

// DBConfig contains PostgreSQL database configuration.
type DBConfig struct {
	Host     string `env:"HOST"                    envDefault:"localhost"`
	Port     int    `env:"PORT"                    envDefault:"5432"`
	User     string `env:"USER"                    envDefault:"inboxjobs"`
	Password string `env:"PASSWORD"                envDefault:"inboxjobs"`
	Name     string `env:"NAME"                    envDefault:"inboxjobs"`
	SSLMode  string `env:"SSL_MODE"                envDefault:"disable"` // Use 'disable' for local dev, 'require' for production
	// RunMigrationsOnStart controls whether the application automatically applies migrations during startup.
	RunMigrationsOnStart bool `env:"RUN_MIGRATIONS_ON_START" envDefault:"true"`
}

// RedisConfig contains Redis configuration.
type RedisConfig struct {
	// Disabled swaps every Redis-backed component for its in-memory fallback.
	Disabled           bool     `env:"DISABLED"             envDefault:"false"`
	URI                string   `env:"URI"                  envDefault:"localhost:6379"`
	Password           string   `env:"PASSWORD"             envDefault:""`
	SentinelNodes      []string `env:"SENTINEL_NODES"       envDefault:"localhost:26379"`
	SentinelMasterName string   `env:"SENTINEL_MASTER_NAME" envDefault:"mymaster"`
	SentinelPassword   string   `env:"SENTINEL_PASSWORD"    envDefault:""`
	UseSentinel        bool     `env:"USE_SENTINEL"         envDefault:"false"`
	ClusterNodes       []string `env:"CLUSTER_NODES"        envDefault:""`
	UseCluster         bool     `env:"USE_CLUSTER"          envDefault:"false"`

	// KeyPrefix namespaces trigger, lease and accumulator keys.
	KeyPrefix string `env:"KEY_PREFIX" envDefault:"inboxjobs:"`

	// AccumulatorTTL bounds how long an abandoned fetchSenders accumulator survives.
	AccumulatorTTL time.Duration `env:"ACCUMULATOR_TTL" envDefault:"168h"`
}
