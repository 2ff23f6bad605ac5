// Package database provides the data access layer with support for multiple backends.
package database

import (
	"context"
	"errors"
	"fmt"
)

// Well-known storage keys.
const (
	KeyHistory       = "analysisHistory"
	KeyUploadedCount = "uploadedCount"
)

// ErrNotFound is returned when a key has never been written.
var ErrNotFound = errors.New("not found")

// Store defines the interface for durable key/value persistence.
type Store interface {
	// Get returns the value stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put replaces the value stored under key atomically.
	Put(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Lifecycle
	Close() error
	Migrate() error
}

// Open creates a Store for the configured driver.
func Open(driver, path string) (Store, error) {
	var (
		store Store
		err   error
	)
	switch driver {
	case "file":
		store, err = NewFileStore(path)
	case "sqlite":
		store, err = NewSQLiteStore(path)
	default:
		return nil, fmt.Errorf("unsupported history driver: %s", driver)
	}
	if err != nil {
		return nil, err
	}
	return store, nil
}
