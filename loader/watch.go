package loader

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce is how long the watcher waits for more changes.
const DefaultDebounce = 300 * time.Millisecond

// WatchOptions configures a Watcher.
type WatchOptions struct {
	// Debounce collapses bursts of events (editors write, rename, chmod).
	Debounce time.Duration

	// Warm reloads the cache right after invalidating it.
	Warm bool

	// OnChange, if set, is called after each debounced invalidation.
	OnChange func()
}

// Watcher invalidates a Cache when its file changes on disk.
//
// The parent directory is watched rather than the file: editors and
// spreadsheet exports often replace the file, which would drop a
// file-level watch.
type Watcher struct {
	cache  *Cache
	dir    string
	name   string
	opts   WatchOptions
	fsw    *fsnotify.Watcher
	logger *zap.Logger

	closeOnce sync.Once
}

// NewWatcher starts watching the cache's file. Call Run to process events
// and Close to release the watch.
func NewWatcher(cache *Cache, opts WatchOptions) (*Watcher, error) {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	abs, err := filepath.Abs(cache.Path())
	if err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	dir := filepath.Dir(abs)
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	return &Watcher{
		cache:  cache,
		dir:    dir,
		name:   filepath.Base(abs),
		opts:   opts,
		fsw:    fsw,
		logger: cache.logger.Named("watch"),
	}, nil
}

// Run processes file events until ctx is done or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.Close()

	w.logger.Info("watching data file",
		zap.String("dir", w.dir),
		zap.String("file", w.name),
		zap.Duration("debounce", w.opts.Debounce),
	)

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			w.logger.Debug("data file event", zap.String("op", event.Op.String()))
			if timer == nil {
				timer = time.NewTimer(w.opts.Debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.opts.Debounce)
			}
			fire = timer.C

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher error", zap.Error(err))

		case <-fire:
			fire = nil
			w.flush(ctx)
		}
	}
}

// Close stops the watch. Safe to call more than once.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		err = w.fsw.Close()
	})
	return err
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if filepath.Base(event.Name) != w.name {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
		event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename)
}

func (w *Watcher) flush(ctx context.Context) {
	w.cache.Invalidate()
	w.logger.Info("data file changed, cache invalidated", zap.String("file", w.name))

	if w.opts.Warm {
		if _, err := w.cache.Get(ctx); err != nil {
			w.logger.Warn("background reload failed", zap.Error(err))
		}
	}
	if w.opts.OnChange != nil {
		w.opts.OnChange()
	}
}
