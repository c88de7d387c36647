package store

import (
	"context"
	"fmt"
)

// Options selects and configures a driver. Only the fields of the chosen
// driver are read.
type Options struct {
	Driver      Driver
	SQLitePath  string
	PostgresDSN string
	S3          S3Config
	RedisAddr   string
}

// Open returns the store for opts.Driver, defaulting to sqlite.
func Open(ctx context.Context, opts Options) (Store, error) {
	driver := opts.Driver
	if driver == "" {
		driver = DriverSQLite
	}
	switch driver {
	case DriverSQLite:
		return OpenSQLite(opts.SQLitePath)
	case DriverPostgres:
		return OpenPostgres(ctx, opts.PostgresDSN)
	case DriverS3:
		return OpenS3(ctx, opts.S3)
	case DriverRedis:
		return OpenRedis(ctx, opts.RedisAddr)
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %s", driver)
	}
}
