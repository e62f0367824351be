package engine

// ============================================================================
// ENGINE OPTIONS — Functional options for Render()
// ============================================================================

// Option configures render behavior via functional options pattern.
type Option func(*config)

type config struct {
	Title          string
	Currency       string // symbol prefixed to money values
	NutrientColors [3]string
	Warnings       []ComputationWarning // dataset-level, filtered to the subset
}

// WithTitle sets the dashboard title carried in the Result.
func WithTitle(title string) Option {
	return func(c *config) {
		c.Title = title
	}
}

// WithCurrency sets the currency symbol used for money formatting.
func WithCurrency(symbol string) Option {
	return func(c *config) {
		c.Currency = symbol
	}
}

// WithNutrientColors sets the N, P and K series colors (hex, e.g. "#2ca02c").
// Empty strings keep the defaults.
func WithNutrientColors(n, p, k string) Option {
	return func(c *config) {
		for i, col := range []string{n, p, k} {
			if col != "" {
				c.NutrientColors[i] = col
			}
		}
	}
}

// WithWarnings attaches the dataset's computation warnings. Render keeps
// only those whose row is part of the filtered subset.
func WithWarnings(warnings []ComputationWarning) Option {
	return func(c *config) {
		c.Warnings = warnings
	}
}

// applyOptions creates a config from functional options.
func applyOptions(opts []Option) *config {
	cfg := &config{
		Title:          DefaultTitle,
		Currency:       "€",
		NutrientColors: [3]string{"#2ca02c", "#1f77b4", "#ff7f0e"}, // green, blue, orange
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}
