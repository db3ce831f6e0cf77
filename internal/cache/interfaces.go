package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned by Store.Get when the key holds no value
var ErrMiss = errors.New("cache miss")

// Store defines a TTL key-value backend. Implementations report failures;
// the Links adapter is responsible for absorbing them.
type Store interface {
	// Get returns the value stored under key, or ErrMiss
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key for ttl
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes the given keys; missing keys are ignored
	Delete(ctx context.Context, keys ...string) error

	// Purge removes every key starting with prefix and returns how many were removed
	Purge(ctx context.Context, prefix string) (int, error)

	// Close releases the backend connection (if applicable)
	Close() error
}
