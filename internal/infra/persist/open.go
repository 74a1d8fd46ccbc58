package persist

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fialo-ai/fialo-bfa-go/internal/port"
)

// Options selects and configures a backend.
type Options struct {
	Backend       string // memory, file, redis, sqlite, postgres
	DataDir       string
	RedisAddr     string
	RedisPassword string
	RedisPrefix   string
	DatabaseDSN   string
}

// Open builds the backend named by opts.Backend.
func Open(opts Options) (port.SnapshotStore, error) {
	switch opts.Backend {
	case "memory":
		return NewMemory(), nil
	case "", "file":
		return NewFile(opts.DataDir)
	case "redis":
		return NewRedis(opts.RedisAddr, opts.RedisPassword, opts.RedisPrefix), nil
	case "sqlite":
		dsn := opts.DatabaseDSN
		if dsn == "" {
			if err := os.MkdirAll(opts.DataDir, 0o755); err != nil {
				return nil, fmt.Errorf("create data dir: %w", err)
			}
			dsn = filepath.Join(opts.DataDir, "fialo.db")
		}
		return OpenSQLite(dsn)
	case "postgres":
		if opts.DatabaseDSN == "" {
			return nil, fmt.Errorf("postgres backend requires DATABASE_DSN")
		}
		return OpenPostgres(opts.DatabaseDSN)
	default:
		return nil, fmt.Errorf("unknown persistence backend %q", opts.Backend)
	}
}
