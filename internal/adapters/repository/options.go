package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/matchmaker/pkg/logger"
)

// Store drivers accepted by Open.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
)

const defaultBusyTimeout = 5 * time.Second

type sqliteConfig struct {
	busyTimeout  time.Duration
	maxOpenConns int
	logger       logger.Logger
}

// SQLiteOption configures NewSQLiteStore.
type SQLiteOption func(*sqliteConfig)

// WithBusyTimeout sets how long a writer waits on a locked database.
func WithBusyTimeout(d time.Duration) SQLiteOption {
	return func(c *sqliteConfig) {
		if d > 0 {
			c.busyTimeout = d
		}
	}
}

// WithMaxOpenConns caps the connection pool.
func WithMaxOpenConns(n int) SQLiteOption {
	return func(c *sqliteConfig) {
		if n > 0 {
			c.maxOpenConns = n
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) SQLiteOption {
	return func(c *sqliteConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// Open returns the Store selected by driver.
func Open(ctx context.Context, driver, sqlitePath string, opts ...SQLiteOption) (Store, error) {
	switch driver {
	case DriverMemory, "":
		return NewMemoryStore(), nil
	case DriverSQLite:
		return NewSQLiteStore(ctx, sqlitePath, opts...)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStore, driver)
	}
}
