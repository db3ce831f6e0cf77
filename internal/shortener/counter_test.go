package shortener

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCounterStore reserves blocks from an in-memory map
type fakeCounterStore struct {
	mu       sync.Mutex
	values   map[string]int64
	reserves int
	err      error
}

func newFakeCounterStore() *fakeCounterStore {
	return &fakeCounterStore{values: make(map[string]int64)}
}

func (f *fakeCounterStore) ReserveCounter(ctx context.Context, key string, n int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	f.reserves++
	f.values[key] += n
	return f.values[key], nil
}

func TestBlockCounter_ReservesInBlocks(t *testing.T) {
	store := newFakeCounterStore()
	counter := NewBlockCounter(store, "k", 10)
	ctx := context.Background()

	for want := int64(1); want <= 25; want++ {
		got, err := counter.NextCounter(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	assert.Equal(t, 3, store.reserves)
}

func TestBlockCounter_ResumesAfterRestart(t *testing.T) {
	store := newFakeCounterStore()
	ctx := context.Background()

	first := NewBlockCounter(store, "k", 5)
	_, err := first.NextCounter(ctx)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	// The rest of the first block is abandoned
	second := NewBlockCounter(store, "k", 5)
	got, err := second.NextCounter(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(6), got)
}

func TestBlockCounter_StoreError(t *testing.T) {
	store := newFakeCounterStore()
	store.err = errors.New("database is locked")

	_, err := NewBlockCounter(store, "k", 5).NextCounter(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, store.err)
	assert.Contains(t, err.Error(), "failed to reserve counter block")
}

func TestBlockCounter_Closed(t *testing.T) {
	counter := NewBlockCounter(newFakeCounterStore(), "k", 5)
	require.NoError(t, counter.Close())

	_, err := counter.NextCounter(context.Background())
	assert.Error(t, err)
}

func TestBlockCounter_MinimumStep(t *testing.T) {
	store := newFakeCounterStore()
	counter := NewBlockCounter(store, "k", 0)

	got, err := counter.NextCounter(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), got)
	assert.Equal(t, int64(1), store.values["k"])
}

func TestBlockCounter_Concurrent(t *testing.T) {
	counter := NewBlockCounter(newFakeCounterStore(), "k", 7)
	ctx := context.Background()

	const goroutines = 10
	const perGoroutine = 50

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = make(map[int64]bool)
	)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				v, err := counter.NextCounter(ctx)
				assert.NoError(t, err)
				mu.Lock()
				seen[v] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, goroutines*perGoroutine)
}
