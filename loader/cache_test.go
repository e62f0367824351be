package loader

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type loadCounter struct {
	mu     sync.Mutex
	events []LoadEvent
}

func (c *loadCounter) observe(e LoadEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

func (c *loadCounter) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

func (c *loadCounter) last() LoadEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.events[len(c.events)-1]
}

// bumpMtime rewrites the file and moves its mtime forward so the stat key
// always changes, even on filesystems with coarse timestamps.
func bumpMtime(t *testing.T, path string, data []byte, step int) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, data, 0o644))
	mt := time.Now().Add(time.Duration(step) * time.Hour)
	require.NoError(t, os.Chtimes(path, mt, mt))
}

func newTestCache(t *testing.T, data []byte) (*Cache, *loadCounter, string) {
	t.Helper()
	path := writeFile(t, t.TempDir(), "fert.csv", data)
	counter := &loadCounter{}
	return NewCache(newTestLoader(t), path, WithLoadObserver(counter.observe)), counter, path
}

func TestCache_HitReturnsSameDataset(t *testing.T) {
	cache, counter, _ := newTestCache(t, []byte(sampleCSV))
	ctx := context.Background()

	first, err := cache.Get(ctx)
	require.NoError(t, err)
	second, err := cache.Get(ctx)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, counter.count())
	assert.Same(t, first, cache.Current())
}

func TestCache_ReloadsOnChange(t *testing.T) {
	cache, counter, path := newTestCache(t, []byte(sampleCSV))
	ctx := context.Background()

	first, err := cache.Get(ctx)
	require.NoError(t, err)

	bumpMtime(t, path, []byte(sampleHeader+"Solo,Nitrogenado,AgroC,Convencional,21,0,0,300,60\n"), 1)
	second, err := cache.Get(ctx)
	require.NoError(t, err)

	assert.NotSame(t, first, second)
	assert.Equal(t, 1, second.Len())
	assert.Equal(t, "Solo", second.View.Record(0).Name)
	assert.Equal(t, 2, counter.count())
}

func TestCache_TouchWithSameContentKeepsDataset(t *testing.T) {
	cache, counter, path := newTestCache(t, []byte(sampleCSV))
	ctx := context.Background()

	first, err := cache.Get(ctx)
	require.NoError(t, err)

	bumpMtime(t, path, []byte(sampleCSV), 1)
	second, err := cache.Get(ctx)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 2, counter.count())
	assert.True(t, counter.last().Reused)
}

func TestCache_FailedReloadKeepsPrevious(t *testing.T) {
	cache, counter, path := newTestCache(t, []byte(sampleCSV))
	ctx := context.Background()

	good, err := cache.Get(ctx)
	require.NoError(t, err)

	bumpMtime(t, path, []byte("Produto,Categoria\nUreaX,Nitrogenado\n"), 1)
	_, err = cache.Get(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingColumns)
	assert.Same(t, good, cache.Current())

	// Same broken version: the failure is remembered, not re-parsed.
	_, err = cache.Get(ctx)
	assert.ErrorIs(t, err, ErrMissingColumns)
	assert.Equal(t, 2, counter.count())

	bumpMtime(t, path, []byte(sampleCSV+"Extra,Nitrogenado,AgroC,Convencional,10,0,0,100,50\n"), 2)
	fixed, err := cache.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, fixed.Len())
	assert.Same(t, fixed, cache.Current())
}

func TestCache_Invalidate(t *testing.T) {
	cache, counter, _ := newTestCache(t, []byte(sampleCSV))
	ctx := context.Background()

	first, err := cache.Get(ctx)
	require.NoError(t, err)

	cache.Invalidate()
	assert.Same(t, first, cache.Current())

	second, err := cache.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, counter.count())
	// Unchanged bytes: the reload reuses the dataset.
	assert.Same(t, first, second)
}

func TestCache_FileRemoved(t *testing.T) {
	cache, _, path := newTestCache(t, []byte(sampleCSV))
	ctx := context.Background()

	_, err := cache.Get(ctx)
	require.NoError(t, err)
	require.NoError(t, os.Remove(path))

	_, err = cache.Get(ctx)
	assert.ErrorIs(t, err, ErrFileNotFound)
	assert.NotNil(t, cache.Current())
}

func TestCache_ConcurrentGet(t *testing.T) {
	path := writeFile(t, t.TempDir(), "fert.csv", []byte(sampleCSV))
	var loads atomic.Int32
	cache := NewCache(newTestLoader(t), path, WithLoadObserver(func(LoadEvent) { loads.Add(1) }))

	const workers = 16
	results := make([]*Dataset, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ds, err := cache.Get(context.Background())
			assert.NoError(t, err)
			results[i] = ds
		}(i)
	}
	wg.Wait()

	for _, ds := range results {
		assert.Same(t, results[0], ds)
	}
	// Coalesced loads may still run more than once if a goroutine arrives
	// after the first finished, but never once per worker.
	assert.Less(t, int(loads.Load()), workers)
}

// lateCancel reports cancellation only after its first check, so the caller
// passes the stat and gives up while the load would be running.
type lateCancel struct {
	context.Context
	checks atomic.Int32
}

func (c *lateCancel) Err() error {
	if c.checks.Add(1) > 1 {
		return context.Canceled
	}
	return nil
}

func TestCache_SharedLoadIgnoresCallerCancellation(t *testing.T) {
	cache, counter, _ := newTestCache(t, []byte(sampleCSV))

	ds, err := cache.Get(&lateCancel{Context: context.Background()})
	require.NoError(t, err)
	assert.Equal(t, 3, ds.Len())
	require.Equal(t, 1, counter.count())
	assert.NoError(t, counter.last().Err)

	again, err := cache.Get(context.Background())
	require.NoError(t, err)
	assert.Same(t, ds, again)
}

func TestCache_GetStopsWaitingWhenCallerCancels(t *testing.T) {
	cache, _, _ := newTestCache(t, []byte(sampleCSV))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := cache.Get(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	ds, err := cache.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, ds.Len())
}

func TestCache_InvalidateIsIdempotent(t *testing.T) {
	cache, _, _ := newTestCache(t, []byte(sampleCSV))
	_, err := cache.Get(context.Background())
	require.NoError(t, err)

	cache.Invalidate()
	marked := cache.current.Load()
	require.True(t, marked.stale)

	cache.Invalidate()
	assert.Same(t, marked, cache.current.Load())
}

func TestCache_InvalidateRacingGet(t *testing.T) {
	cache, _, _ := newTestCache(t, []byte(sampleCSV))
	ctx := context.Background()
	first, err := cache.Get(ctx)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			cache.Invalidate()
		}()
		go func() {
			defer wg.Done()
			ds, err := cache.Get(ctx)
			assert.NoError(t, err)
			assert.Same(t, first, ds)
		}()
	}
	wg.Wait()

	ds, err := cache.Get(ctx)
	require.NoError(t, err)
	assert.Same(t, first, ds)
	assert.False(t, cache.current.Load().stale)
}
