package catalog

import (
	"context"
	"fmt"
	"strings"
)

// Supported values for Config.Driver
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverRedis    = "redis"
)

// Config selects a storage driver
type Config struct {
	Driver string
	DSN    string
}

// Open returns a catalog for cfg. An empty driver means sqlite, and an empty
// sqlite DSN means DefaultSQLitePath.
func Open(ctx context.Context, cfg Config) (*Catalog, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" {
		driver = DriverSQLite
	}

	switch driver {
	case DriverMemory:
		return NewMemory(), nil
	case DriverSQLite, "sqlite3":
		path := cfg.DSN
		if path == "" {
			path = DefaultSQLitePath()
		}
		return OpenSQLite(path)
	}

	if cfg.DSN == "" {
		return nil, fmt.Errorf("catalog driver %q requires a dsn", driver)
	}

	switch driver {
	case DriverPostgres, "postgresql", "pgx":
		return OpenPostgres(ctx, cfg.DSN)
	case DriverMySQL:
		return OpenMySQL(cfg.DSN)
	case DriverRedis:
		return OpenRedis(ctx, cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown catalog driver %q", driver)
	}
}
