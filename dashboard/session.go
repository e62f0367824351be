package dashboard

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spektr-org/fertdash/engine"
	"github.com/spektr-org/fertdash/loader"
)

// SessionOptions configures how a session renders its dataset.
type SessionOptions struct {
	Title    string
	Currency string
	NColor   string
	PColor   string
	KColor   string
	Chart    ChartSize
}

// Session binds one data file to the render pipeline. Sessions share no
// mutable state; each owns its cache.
type Session struct {
	cache   *loader.Cache
	opts    SessionOptions
	metrics *Metrics
	logger  *zap.Logger
}

// NewSession creates a session over cache. metrics may be nil.
func NewSession(cache *loader.Cache, opts SessionOptions, metrics *Metrics, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Chart.Width <= 0 || opts.Chart.Height <= 0 {
		opts.Chart = DefaultChartSize
	}
	return &Session{
		cache:   cache,
		opts:    opts,
		metrics: metrics,
		logger:  logger.Named("session"),
	}
}

// View is one rendered interaction together with the dataset it came from.
type View struct {
	Result  *engine.Result
	Dataset *loader.Dataset
}

// Dataset returns the dataset for the file's current version.
func (s *Session) Dataset(ctx context.Context) (*loader.Dataset, error) {
	return s.cache.Get(ctx)
}

// Render loads (or reuses) the dataset and renders sel against it.
// Load failures are returned unchanged so callers can match them with
// errors.As(err, *loader.DataLoadError).
func (s *Session) Render(ctx context.Context, sel engine.Selection) (*View, error) {
	ds, err := s.cache.Get(ctx)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	res := engine.Render(ds.View, sel, s.opts.EngineOptions(ds.Warnings)...)
	if s.metrics != nil {
		s.metrics.ObserveRender(time.Since(start).Seconds())
		s.metrics.SetWarnings(len(ds.Warnings))
	}
	s.logger.Debug("rendered view",
		zap.String("dataset", ds.ID),
		zap.Int("matched", res.Matched),
		zap.Int("total", res.Total),
		zap.Duration("took", time.Since(start)),
	)
	return &View{Result: res, Dataset: ds}, nil
}

// Invalidate drops the cached dataset version.
func (s *Session) Invalidate() { s.cache.Invalidate() }

// Source returns the data file path.
func (s *Session) Source() string { return s.cache.Path() }

// ChartSize returns the configured chart size.
func (s *Session) ChartSize() ChartSize { return s.opts.Chart }

// EngineOptions turns the presentation settings into render options.
func (o SessionOptions) EngineOptions(warnings []engine.ComputationWarning) []engine.Option {
	opts := []engine.Option{
		engine.WithWarnings(warnings),
		engine.WithNutrientColors(o.NColor, o.PColor, o.KColor),
	}
	if o.Title != "" {
		opts = append(opts, engine.WithTitle(o.Title))
	}
	if o.Currency != "" {
		opts = append(opts, engine.WithCurrency(o.Currency))
	}
	return opts
}
