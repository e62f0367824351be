package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/spektr-org/fertdash/loader"
	"github.com/spektr-org/fertdash/schema"
)

// Config holds all fertdash configuration.
type Config struct {
	// Input file and how to read it
	Data DataConfig `yaml:"data"`

	// HTTP dashboard
	Server ServerConfig `yaml:"server"`

	// Currency, colors, chart size
	Presentation PresentationConfig `yaml:"presentation"`

	// Extra header aliases per canonical column key
	Columns map[string][]string `yaml:"columns"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// DataConfig configures the data file.
type DataConfig struct {
	Path           string   `yaml:"path"`
	Delimiter      string   `yaml:"delimiter"` // single character, or "tab"
	Encodings      []string `yaml:"encodings"`
	DetectEncoding bool     `yaml:"detect_encoding"`
	Watch          bool     `yaml:"watch"`
	Debounce       string   `yaml:"debounce"`
	MaxBytes       int64    `yaml:"max_bytes"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Addr            string `yaml:"addr"`
	Title           string `yaml:"title"`
	ReadTimeout     string `yaml:"read_timeout"`
	WriteTimeout    string `yaml:"write_timeout"`
	ShutdownTimeout string `yaml:"shutdown_timeout"`
}

// PresentationConfig configures how results are drawn.
type PresentationConfig struct {
	Currency    string `yaml:"currency"`
	NColor      string `yaml:"n_color"`
	PColor      string `yaml:"p_color"`
	KColor      string `yaml:"k_color"`
	ChartWidth  int    `yaml:"chart_width"`
	ChartHeight int    `yaml:"chart_height"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Data: DataConfig{
			Path:           "fertilizantes.csv",
			Delimiter:      ",",
			Encodings:      append([]string(nil), loader.DefaultEncodings...),
			DetectEncoding: true,
			Watch:          true,
			Debounce:       "300ms",
			MaxBytes:       32 << 20,
		},
		Server: ServerConfig{
			Addr:            "127.0.0.1:8501",
			ReadTimeout:     "10s",
			WriteTimeout:    "30s",
			ShutdownTimeout: "5s",
		},
		Presentation: PresentationConfig{
			Currency:    "€",
			NColor:      "#2ca02c",
			PColor:      "#1f77b4",
			KColor:      "#ff7f0e",
			ChartWidth:  960,
			ChartHeight: 420,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults. Environment overrides are applied in both cases.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if path := os.Getenv("FERTDASH_DATA"); path != "" {
		c.Data.Path = path
	}
	if addr := os.Getenv("FERTDASH_ADDR"); addr != "" {
		c.Server.Addr = addr
	}
	if level := os.Getenv("FERTDASH_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
}

// GetDebounce returns the watcher debounce as a duration.
func (c *Config) GetDebounce() time.Duration {
	return parseDuration(c.Data.Debounce, loader.DefaultDebounce)
}

// GetReadTimeout returns the HTTP read timeout as a duration.
func (c *Config) GetReadTimeout() time.Duration {
	return parseDuration(c.Server.ReadTimeout, 10*time.Second)
}

// GetWriteTimeout returns the HTTP write timeout as a duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return parseDuration(c.Server.WriteTimeout, 30*time.Second)
}

// GetShutdownTimeout returns the graceful shutdown timeout as a duration.
func (c *Config) GetShutdownTimeout() time.Duration {
	return parseDuration(c.Server.ShutdownTimeout, 5*time.Second)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// DelimiterRune returns the configured delimiter.
func (c *Config) DelimiterRune() (rune, error) {
	d := c.Data.Delimiter
	switch strings.ToLower(d) {
	case "":
		return ',', nil
	case "tab", `\t`:
		return '\t', nil
	}
	if utf8.RuneCountInString(d) != 1 {
		return 0, fmt.Errorf("delimiter must be a single character, got %q", d)
	}
	r, _ := utf8.DecodeRuneInString(d)
	if r == '"' || r == '\r' || r == '\n' {
		return 0, fmt.Errorf("invalid delimiter %q", d)
	}
	return r, nil
}

// LoaderOptions translates the data section into loader options.
func (c *Config) LoaderOptions() (loader.Options, error) {
	delim, err := c.DelimiterRune()
	if err != nil {
		return loader.Options{}, err
	}
	sch, unknown := schema.Default().WithAliases(c.Columns)
	if len(unknown) > 0 {
		return loader.Options{}, fmt.Errorf("unknown column keys in columns: %s", strings.Join(unknown, ", "))
	}
	return loader.Options{
		Encodings:      c.Data.Encodings,
		DetectEncoding: c.Data.DetectEncoding,
		Delimiter:      delim,
		MaxBytes:       c.Data.MaxBytes,
		Schema:         sch,
	}, nil
}

// ValidLogLevels lists the accepted logging levels.
var ValidLogLevels = []string{"debug", "info", "warn", "error"}

var hexColor = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// Validate validates the configuration.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Data.Path) == "" {
		return fmt.Errorf("data path not configured (set data.path, --data or FERTDASH_DATA)")
	}
	if _, err := c.LoaderOptions(); err != nil {
		return err
	}
	for _, enc := range c.Data.Encodings {
		if _, err := loader.CanonicalEncoding(enc); err != nil {
			return err
		}
	}
	for name, value := range map[string]string{
		"data.debounce":           c.Data.Debounce,
		"server.read_timeout":     c.Server.ReadTimeout,
		"server.write_timeout":    c.Server.WriteTimeout,
		"server.shutdown_timeout": c.Server.ShutdownTimeout,
	} {
		if value == "" {
			continue
		}
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr not configured")
	}

	validLevel := false
	for _, l := range ValidLogLevels {
		if strings.EqualFold(c.Logging.Level, l) {
			validLevel = true
			break
		}
	}
	if !validLevel {
		return fmt.Errorf("invalid logging level: %s (valid: %v)", c.Logging.Level, ValidLogLevels)
	}
	if f := c.Logging.Format; f != "json" && f != "console" {
		return fmt.Errorf("invalid logging format: %s (valid: json, console)", f)
	}

	for name, color := range map[string]string{
		"n_color": c.Presentation.NColor,
		"p_color": c.Presentation.PColor,
		"k_color": c.Presentation.KColor,
	} {
		if color != "" && !hexColor.MatchString(color) {
			return fmt.Errorf("invalid presentation.%s: %q (want #rrggbb)", name, color)
		}
	}
	if c.Presentation.ChartWidth <= 0 || c.Presentation.ChartHeight <= 0 {
		return fmt.Errorf("chart size must be positive, got %dx%d", c.Presentation.ChartWidth, c.Presentation.ChartHeight)
	}
	return nil
}
