package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/martinhantha/kutt/internal/cache"
)

type entry struct {
	value     []byte
	expiresAt time.Time
}

// Cache implements cache.Store using in-process storage with per-key expiry
type Cache struct {
	data     map[string]entry
	mutex    sync.RWMutex
	now      func() time.Time
	stopChan chan struct{}
	running  bool
}

// Option configures a Cache
type Option func(*Cache)

// WithClock replaces the time source used for expiry
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// New creates a new in-memory cache
func New(opts ...Option) *Cache {
	c := &Cache{
		data:     make(map[string]entry),
		now:      time.Now,
		stopChan: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get retrieves a copy of the value stored under key
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mutex.RLock()
	e, exists := c.data[key]
	c.mutex.RUnlock()

	if !exists || c.expired(e) {
		return nil, cache.ErrMiss
	}

	// Return a copy to prevent external modification
	return append([]byte(nil), e.value...), nil
}

// Set stores a copy of value under key for ttl
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	e := entry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expiresAt = c.now().Add(ttl)
	}
	c.data[key] = e
	return nil
}

// Delete removes the given keys
func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	for _, key := range keys {
		delete(c.data, key)
	}
	return nil
}

// Purge removes every key starting with prefix
func (c *Cache) Purge(ctx context.Context, prefix string) (int, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	removed := 0
	for key := range c.data {
		if strings.HasPrefix(key, prefix) {
			delete(c.data, key)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of stored entries, including expired ones not yet swept
func (c *Cache) Len() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.data)
}

// StartJanitor starts removing expired entries every interval
func (c *Cache) StartJanitor(ctx context.Context, interval time.Duration) error {
	c.mutex.Lock()
	if c.running {
		c.mutex.Unlock()
		return nil // Already running
	}
	c.running = true
	stopChan := c.stopChan
	c.mutex.Unlock()

	go c.sweepLoop(ctx, interval, stopChan)
	return nil
}

// StopJanitor stops the expiry sweep
func (c *Cache) StopJanitor() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if !c.running {
		return nil
	}

	c.running = false
	close(c.stopChan)

	// Create new channel for potential restart
	c.stopChan = make(chan struct{})
	return nil
}

func (c *Cache) sweepLoop(ctx context.Context, interval time.Duration, stopChan chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.sweep()
		case <-stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

// sweep drops expired entries
func (c *Cache) sweep() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	removed := 0
	for key, e := range c.data {
		if c.expired(e) {
			delete(c.data, key)
			removed++
		}
	}
	return removed
}

func (c *Cache) expired(e entry) bool {
	return !e.expiresAt.IsZero() && !c.now().Before(e.expiresAt)
}

// Close stops the janitor
func (c *Cache) Close() error {
	return c.StopJanitor()
}

// Ensure Cache implements the interface
var _ cache.Store = (*Cache)(nil)
