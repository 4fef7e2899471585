package blobstore

import (
	"context"
	"fmt"
	"path/filepath"
)

// Driver names accepted by Open.
const (
	DriverMemory = "memory"
	DriverFile   = "file"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

// Options selects and configures a backend.
type Options struct {
	Driver     string
	DataDir    string
	SQLitePath string
	Redis      RedisOptions
}

// Open returns the provider for opts.Driver.
func Open(ctx context.Context, opts Options) (Provider, error) {
	switch opts.Driver {
	case DriverMemory:
		return NewMemoryProvider(), nil
	case DriverFile, "":
		return NewFileProvider(filepath.Join(opts.DataDir, "blobs"))
	case DriverSQLite:
		path := opts.SQLitePath
		if path == "" {
			path = filepath.Join(opts.DataDir, "spinly.db")
		}
		return NewSQLiteProvider(path)
	case DriverRedis:
		return NewRedisProvider(ctx, opts.Redis)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", opts.Driver)
	}
}
