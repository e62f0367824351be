package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "127.0.0.1:8501", cfg.Server.Addr)
	assert.Equal(t, "€", cfg.Presentation.Currency)
	assert.Equal(t, []string{"utf-8-sig", "utf-8", "windows-1252", "iso-8859-1"}, cfg.Data.Encodings)
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Server.Addr, cfg.Server.Addr)
}

func TestLoad_MergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fertdash.yaml")
	yaml := `
data:
  path: /srv/data/fert.csv
  delimiter: ";"
  debounce: 1s
presentation:
  currency: R$
columns:
  cost_per_hectare: ["Investimento/ha"]
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "/srv/data/fert.csv", cfg.Data.Path)
	assert.Equal(t, time.Second, cfg.GetDebounce())
	assert.Equal(t, "R$", cfg.Presentation.Currency)
	assert.Equal(t, "debug", cfg.Logging.Level)
	// Unset keys keep their defaults.
	assert.Equal(t, "#2ca02c", cfg.Presentation.NColor)
	assert.Equal(t, 30*time.Second, cfg.GetWriteTimeout())

	opts, err := cfg.LoaderOptions()
	require.NoError(t, err)
	assert.Equal(t, ';', opts.Delimiter)
	spec, ok := opts.Schema.Column("cost_per_hectare")
	require.True(t, ok)
	assert.Contains(t, spec.Aliases, "Investimento/ha")
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("data: [unclosed"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config")
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("FERTDASH_DATA", "/tmp/env.csv")
	t.Setenv("FERTDASH_ADDR", ":9000")
	t.Setenv("FERTDASH_LOG_LEVEL", "warn")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "/tmp/env.csv", cfg.Data.Path)
	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "fertdash.yaml")
	cfg := DefaultConfig()
	cfg.Server.Title = "Safra 2026"
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Safra 2026", loaded.Server.Title)
}

func TestDurations_FallBackOnGarbage(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Data.Debounce = "soon"
	cfg.Server.ReadTimeout = "-1s"

	assert.Equal(t, 300*time.Millisecond, cfg.GetDebounce())
	assert.Equal(t, 10*time.Second, cfg.GetReadTimeout())
}

func TestDelimiterRune(t *testing.T) {
	tests := map[string]struct {
		want    rune
		wantErr bool
	}{
		"":    {want: ','},
		",":   {want: ','},
		";":   {want: ';'},
		"tab": {want: '\t'},
		`\t`:  {want: '\t'},
		"|":   {want: '|'},
		";;":  {wantErr: true},
		`"`:   {wantErr: true},
	}
	for in, tt := range tests {
		cfg := DefaultConfig()
		cfg.Data.Delimiter = in
		got, err := cfg.DelimiterRune()
		if tt.wantErr {
			assert.Error(t, err, in)
			continue
		}
		require.NoError(t, err, in)
		assert.Equal(t, tt.want, got, in)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"empty path", func(c *Config) { c.Data.Path = " " }, "data path"},
		{"bad encoding", func(c *Config) { c.Data.Encodings = []string{"ebcdic"} }, "unsupported encoding"},
		{"bad duration", func(c *Config) { c.Server.ReadTimeout = "ten" }, "server.read_timeout"},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }, "invalid logging level"},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }, "invalid logging format"},
		{"bad color", func(c *Config) { c.Presentation.PColor = "blue" }, "p_color"},
		{"bad chart size", func(c *Config) { c.Presentation.ChartWidth = 0 }, "chart size"},
		{"unknown column key", func(c *Config) { c.Columns = map[string][]string{"colour": {"Cor"}} }, "colour"},
		{"no addr", func(c *Config) { c.Server.Addr = "" }, "server.addr"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}
