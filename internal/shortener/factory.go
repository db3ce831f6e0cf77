package shortener

import (
	"fmt"
)

// NewGenerator creates a counter-based generator backed by store
func NewGenerator(config Config, store CounterStore) (Generator, error) {
	if store == nil {
		return nil, fmt.Errorf("counter store required for counter-based generator")
	}
	if config.CounterKey == "" {
		config.CounterKey = DefaultConfig().CounterKey
	}

	counterProvider := NewBlockCounter(store, config.CounterKey, config.CounterStep)
	return NewCounterGenerator(counterProvider), nil
}
