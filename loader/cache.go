package loader

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// ============================================================================
// CACHE — One dataset per file version
// ============================================================================
// Key: (mtime, size) from stat, then the SHA-256 of the content. A touched
// file with identical bytes keeps its dataset and ID.
//
// Concurrency:
//   - the dataset sits behind an atomic.Pointer; readers never see a partial one
//   - concurrent cold loads share one parse via singleflight
//   - a failed reload keeps the last good dataset and remembers the failure
//     for that file version, so the next request after a fix retries
// ============================================================================

// LoadEvent describes one cache load, for metrics and logs.
type LoadEvent struct {
	Path     string
	Duration time.Duration
	Reused   bool // content hash unchanged; previous dataset kept
	Rows     int
	Err      error
}

// fileKey identifies one version of the file as seen by stat.
type fileKey struct {
	modTime time.Time
	size    int64
}

func (k fileKey) equal(o fileKey) bool {
	return k.size == o.size && k.modTime.Equal(o.modTime)
}

type cacheEntry struct {
	key     fileKey
	hash    string
	dataset *Dataset
	stale   bool
}

type failure struct {
	key fileKey
	err error
}

// Cache memoizes the dataset of a single file.
type Cache struct {
	loader  *Loader
	path    string
	logger  *zap.Logger
	observe func(LoadEvent)

	group   singleflight.Group
	current atomic.Pointer[cacheEntry]
	failed  atomic.Pointer[failure]
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithLoadObserver registers a callback invoked after every load attempt.
func WithLoadObserver(fn func(LoadEvent)) CacheOption {
	return func(c *Cache) { c.observe = fn }
}

// NewCache creates a cache for the file at path.
func NewCache(l *Loader, path string, opts ...CacheOption) *Cache {
	c := &Cache{
		loader:  l,
		path:    path,
		logger:  l.logger.Named("cache"),
		observe: func(LoadEvent) {},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Path returns the cached file path.
func (c *Cache) Path() string { return c.path }

// Current returns the last successfully loaded dataset, or nil.
func (c *Cache) Current() *Dataset {
	if e := c.current.Load(); e != nil {
		return e.dataset
	}
	return nil
}

// Get returns the dataset for the file's current version, loading it when
// the file changed since the last load.
func (c *Cache) Get(ctx context.Context) (*Dataset, error) {
	key, err := c.stat(ctx)
	if err != nil {
		return nil, err
	}

	if e := c.current.Load(); e != nil && !e.stale && e.key.equal(key) {
		return e.dataset, nil
	}
	if f := c.failed.Load(); f != nil && f.key.equal(key) {
		return nil, f.err
	}

	// The shared load outlives any single caller; each caller only stops
	// waiting when its own context ends.
	loadCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(c.path, func() (interface{}, error) {
		return c.load(loadCtx, key)
	})
	select {
	case <-ctx.Done():
		return nil, newLoadError(c.path, "read", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Dataset), nil
	}
}

// Invalidate forces the next Get to reload. The last good dataset stays
// available through Current until a reload succeeds.
func (c *Cache) Invalidate() {
	c.failed.Store(nil)
	for {
		e := c.current.Load()
		if e == nil || e.stale {
			break
		}
		stale := *e
		stale.stale = true
		if c.current.CompareAndSwap(e, &stale) {
			break
		}
	}
	c.logger.Debug("cache invalidated", zap.String("path", c.path))
}

func (c *Cache) stat(ctx context.Context) (fileKey, error) {
	if err := ctx.Err(); err != nil {
		return fileKey{}, newLoadError(c.path, "read", err)
	}
	info, err := statFile(c.path)
	if err != nil {
		return fileKey{}, err
	}
	return fileKey{modTime: info.ModTime(), size: info.Size()}, nil
}

func (c *Cache) load(ctx context.Context, key fileKey) (*Dataset, error) {
	start := time.Now()
	event := LoadEvent{Path: c.path}
	defer func() {
		event.Duration = time.Since(start)
		c.observe(event)
	}()

	data, err := c.loader.read(ctx, c.path)
	if err != nil {
		event.Err = err
		c.remember(key, err)
		return nil, err
	}
	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])

	if prev := c.current.Load(); prev != nil && prev.hash == hash {
		c.current.Store(&cacheEntry{key: key, hash: hash, dataset: prev.dataset})
		c.failed.Store(nil)
		event.Reused = true
		event.Rows = prev.dataset.Len()
		c.logger.Debug("file touched, content unchanged", zap.String("path", c.path))
		return prev.dataset, nil
	}

	ds, err := c.loader.Parse(ctx, data, c.path)
	if err != nil {
		event.Err = err
		c.remember(key, err)
		c.logger.Warn("reload failed, keeping previous dataset",
			zap.String("path", c.path),
			zap.Bool("has_previous", c.Current() != nil),
			zap.Error(err),
		)
		return nil, err
	}

	c.current.Store(&cacheEntry{key: key, hash: hash, dataset: ds})
	c.failed.Store(nil)
	event.Rows = ds.Len()
	return ds, nil
}

// remember records a failure for this file version. Cancellations say
// nothing about the file and are not kept.
func (c *Cache) remember(key fileKey, err error) {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return
	}
	c.failed.Store(&failure{key: key, err: err})
}
