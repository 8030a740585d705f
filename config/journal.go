package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xraph/formrelay/journal"
	"github.com/xraph/formrelay/journal/memory"
	"github.com/xraph/formrelay/journal/mongo"
	"github.com/xraph/formrelay/journal/postgres"
	"github.com/xraph/formrelay/journal/redis"
	"github.com/xraph/formrelay/journal/sqlite"
)

// Journal drivers.
const (
	DriverNone     = "none"
	DriverMemory   = "memory"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMongo    = "mongo"
)

// JournalConfig selects and configures the journal backend.
type JournalConfig struct {
	// Driver is one of none, memory, redis, postgres, sqlite, mongo.
	Driver string `json:"driver" yaml:"driver" mapstructure:"driver"`

	// DSN is the connection string: a redis:// URL, a PostgreSQL DSN, a
	// SQLite file path or a mongodb:// URI.
	DSN string `json:"-" yaml:"dsn" mapstructure:"dsn"`

	// Database overrides the MongoDB database named in the URI.
	Database string `json:"database" yaml:"database" mapstructure:"database"`

	// TTL expires Redis entries. Zero keeps them forever.
	TTL time.Duration `json:"ttl" yaml:"ttl" mapstructure:"ttl"`
}

func (c JournalConfig) validate() error {
	switch c.Driver {
	case "", DriverNone, DriverMemory:
		return nil
	case DriverRedis, DriverPostgres, DriverSQLite, DriverMongo:
		if c.DSN == "" {
			return fmt.Errorf("config: journal.dsn is required for driver %s", c.Driver)
		}
		return nil
	default:
		return fmt.Errorf("config: unknown journal.driver %q", c.Driver)
	}
}

// Open connects the configured journal and runs its migrations. It returns
// nil, nil for the none driver.
func (c JournalConfig) Open(ctx context.Context) (journal.Store, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}

	var (
		s   journal.Store
		err error
	)
	switch c.Driver {
	case "", DriverNone:
		return nil, nil //nolint:nilnil // journal disabled
	case DriverMemory:
		s = memory.New()
	case DriverRedis:
		s, err = redis.Open(ctx, c.DSN, redis.WithTTL(c.TTL))
	case DriverPostgres:
		s, err = postgres.Open(ctx, c.DSN)
	case DriverSQLite:
		s, err = sqlite.Open(ctx, sqliteDSN(c.DSN))
	case DriverMongo:
		s, err = mongo.Open(ctx, c.DSN, c.Database)
	}
	if err != nil {
		return nil, err
	}

	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("config: journal migrate: %w", err)
	}
	return s, nil
}

// sqliteDSN makes timestamps round-trip as time.Time.
func sqliteDSN(dsn string) string {
	switch {
	case strings.Contains(dsn, "_time_format="):
		return dsn
	case strings.Contains(dsn, "?"):
		return dsn + "&_time_format=sqlite"
	default:
		return dsn + "?_time_format=sqlite"
	}
}
