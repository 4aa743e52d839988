// Package kv defines the key-value store the todo lists are persisted in,
// together with its memory and SQL backed implementations.
package kv

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned by Get when the key does not exist.
var ErrNotFound = errors.New("kv: key not found")

// Store is a string keyed store of opaque values.
// There is no transactional guarantee across keys.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	// List returns the keys starting with prefix, sorted.
	List(ctx context.Context, prefix string) ([]string, error)
	Close() error
}

// Open returns the store backend selected by driver.
func Open(driver, dsn string) (Store, error) {
	switch driver {
	case "", "memory":
		return NewMemory(), nil
	case "sqlite":
		return OpenSQLite(dsn)
	case "mysql":
		return OpenMySQL(dsn)
	default:
		return nil, fmt.Errorf("kv: unknown driver %q", driver)
	}
}
