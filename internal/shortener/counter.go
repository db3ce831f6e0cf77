package shortener

import (
	"context"
	"fmt"
	"sync"
)

// BlockCounter serves counter values from blocks reserved in a CounterStore.
// Values left in a block when the process exits are skipped, never reused.
type BlockCounter struct {
	mu        sync.Mutex
	store     CounterStore
	key       string
	step      int64
	current   int64
	allocated int64
	closed    bool
}

// NewBlockCounter creates a counter reserving step values per store call
func NewBlockCounter(store CounterStore, key string, step int64) *BlockCounter {
	if step < 1 {
		step = 1
	}
	return &BlockCounter{
		store: store,
		key:   key,
		step:  step,
	}
}

// NextCounter returns the next value, reserving a new block when the current one is spent
func (c *BlockCounter) NextCounter(ctx context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return 0, fmt.Errorf("counter %s is closed", c.key)
	}

	if c.current >= c.allocated {
		upper, err := c.store.ReserveCounter(ctx, c.key, c.step)
		if err != nil {
			return 0, fmt.Errorf("failed to reserve counter block: %w", err)
		}
		c.current = upper - c.step
		c.allocated = upper
	}

	c.current++
	return c.current, nil
}

// Close stops the counter from handing out further values
func (c *BlockCounter) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// Ensure BlockCounter implements CounterProvider
var _ CounterProvider = (*BlockCounter)(nil)
