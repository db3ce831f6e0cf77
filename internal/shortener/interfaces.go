// Package shortener generates addresses for links created without a custom one.
package shortener

import (
	"context"
)

// Generator produces candidate link addresses
type Generator interface {
	// Generate returns a new address. Uniqueness is enforced by the store, not here.
	Generate(ctx context.Context) (string, error)

	// Type returns the type identifier of the generator
	Type() string

	// Close performs cleanup when the generator is no longer needed
	Close() error
}

// CounterProvider hands out monotonically increasing counter values
type CounterProvider interface {
	// NextCounter returns the next counter value
	NextCounter(ctx context.Context) (int64, error)

	// Close performs cleanup when the provider is no longer needed
	Close() error
}

// CounterStore durably reserves blocks of counter values
type CounterStore interface {
	// ReserveCounter advances the counter named key by n and returns its new value.
	// The caller owns the values (value-n, value].
	ReserveCounter(ctx context.Context, key string, n int64) (int64, error)
}

// Config holds configuration for shortener generators
type Config struct {
	CounterKey  string // Row in the counters table
	CounterStep int64  // Values reserved per store round trip
}

// GeneratorType constants
const (
	TypeCounter = "counter"
)

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		CounterKey:  "link_address",
		CounterStep: 100,
	}
}
