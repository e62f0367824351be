package loader

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spektr-org/fertdash/engine"
	"github.com/spektr-org/fertdash/schema"
)

// ============================================================================
// LOADER — File → immutable Dataset
// ============================================================================
// Pipeline:
//   1. Read bytes (bounded by MaxBytes)
//   2. Decode with the first candidate encoding that also parses as CSV
//   3. Resolve headers against the schema
//   4. Type the cells, coercing bad numbers to 0 with warnings
//   5. Compute derived metrics
//
// A Dataset is never modified after Parse returns; filters build views.
// ============================================================================

// Options controls how files are decoded and parsed.
type Options struct {
	Encodings      []string // tried in order; empty = DefaultEncodings
	DetectEncoding bool     // let the detector reorder single-byte candidates
	Delimiter      rune     // 0 = ','
	MaxBytes       int64    // 0 = unlimited
	Schema         schema.Config
}

// DefaultOptions returns the loader defaults.
func DefaultOptions() Options {
	return Options{
		Encodings:      append([]string(nil), DefaultEncodings...),
		DetectEncoding: true,
		Delimiter:      ',',
		MaxBytes:       32 << 20,
		Schema:         schema.Default(),
	}
}

// Dataset is one loaded version of a data file.
type Dataset struct {
	ID       string                      `json:"id"`
	Source   string                      `json:"source"`
	Encoding string                      `json:"encoding"`
	Hash     string                      `json:"hash"`
	LoadedAt time.Time                   `json:"loadedAt"`
	Columns  *schema.Mapping             `json:"columns"`
	View     *engine.Table               `json:"-"`
	Warnings []engine.ComputationWarning `json:"warnings,omitempty"`
}

// Len returns the number of products.
func (d *Dataset) Len() int { return d.View.Len() }

// Inspection is what `fertdash inspect` prints.
type Inspection struct {
	Source   string          `json:"source"`
	Encoding string          `json:"encoding"`
	Attempts []string        `json:"attempts"`
	Report   *schema.Report  `json:"report"`
	Mapping  *schema.Mapping `json:"mapping"`
	Err      error           `json:"-"`
}

// Loader reads fertilizer datasets.
type Loader struct {
	opts   Options
	cands  []candidate
	logger *zap.Logger
	now    func() time.Time
}

// New creates a loader. A nil logger disables logging.
func New(opts Options, logger *zap.Logger) (*Loader, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Delimiter == 0 {
		opts.Delimiter = ','
	}
	if len(opts.Schema.Columns) == 0 {
		opts.Schema = schema.Default()
	}
	cands, err := newCandidates(opts.Encodings)
	if err != nil {
		return nil, err
	}
	return &Loader{
		opts:   opts,
		cands:  cands,
		logger: logger.Named("loader"),
		now:    time.Now,
	}, nil
}

// Load reads and parses the file at path.
func (l *Loader) Load(ctx context.Context, path string) (*Dataset, error) {
	data, err := l.read(ctx, path)
	if err != nil {
		return nil, err
	}
	return l.Parse(ctx, data, path)
}

func (l *Loader) read(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, newLoadError(path, "read", err)
	}
	info, err := statFile(path)
	if err != nil {
		return nil, err
	}
	if l.opts.MaxBytes > 0 && info.Size() > l.opts.MaxBytes {
		return nil, newLoadError(path, "read", fmt.Errorf("file is %d bytes, limit is %d", info.Size(), l.opts.MaxBytes))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, newLoadError(path, "read", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, newLoadError(path, "read", err)
	}
	return data, nil
}

func statFile(path string) (fs.FileInfo, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, newLoadError(path, "read", ErrFileNotFound)
		}
		return nil, newLoadError(path, "read", err)
	}
	if info.IsDir() {
		return nil, newLoadError(path, "read", fmt.Errorf("%s is a directory", path))
	}
	return info, nil
}

// Parse runs the load pipeline on in-memory bytes. source names the data in
// errors and logs.
func (l *Loader) Parse(ctx context.Context, data []byte, source string) (*Dataset, error) {
	start := l.now()

	text, err := l.decodeTable(data, source)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, newLoadError(source, "parse", err)
	}

	mapping, err := l.opts.Schema.Resolve(text.header)
	if err != nil {
		loadErr := newLoadError(source, "columns", err)
		var missing *schema.MissingColumnsError
		if errors.As(err, &missing) {
			loadErr.Missing = missing.Missing
		}
		return nil, loadErr
	}

	records, coerced := buildRecords(mapping, text.rows)
	records, undefined := engine.ComputeMetrics(records)
	warnings := append(coerced, undefined...)

	sum := sha256.Sum256(data)
	ds := &Dataset{
		ID:       uuid.NewString(),
		Source:   source,
		Encoding: text.encoding,
		Hash:     hex.EncodeToString(sum[:]),
		LoadedAt: l.now(),
		Columns:  mapping,
		View:     engine.BindRecords(records),
		Warnings: warnings,
	}

	l.logger.Info("dataset loaded",
		zap.String("source", source),
		zap.String("dataset_id", ds.ID),
		zap.String("encoding", ds.Encoding),
		zap.Int("rows", len(records)),
		zap.Int("warnings", len(warnings)),
		zap.Int("unmapped_columns", len(mapping.Skipped)),
		zap.Duration("elapsed", l.now().Sub(start)),
	)
	for _, s := range mapping.Skipped {
		l.logger.Debug("column ignored", zap.String("source", source), zap.String("column", s.Column))
	}
	return ds, nil
}

// Inspect decodes and profiles a file without requiring every column to be
// present. Only read and decode failures are returned as errors; a column
// failure is reported in Inspection.Err.
func (l *Loader) Inspect(ctx context.Context, path string) (*Inspection, error) {
	data, err := l.read(ctx, path)
	if err != nil {
		return nil, err
	}
	text, err := l.decodeTable(data, path)
	if err != nil {
		return nil, err
	}

	mapping, resolveErr := l.opts.Schema.Resolve(text.header)
	ins := &Inspection{
		Source:   path,
		Encoding: text.encoding,
		Attempts: text.tried,
		Mapping:  mapping,
	}
	if resolveErr != nil {
		ins.Err = newLoadError(path, "columns", resolveErr)
	}
	if mapping != nil {
		ins.Report = l.opts.Schema.Inspect(mapping, text.rows)
	}
	return ins, nil
}

type decodedTable struct {
	encoding string
	tried    []string
	header   []string
	rows     [][]string
}

// decodeTable tries each candidate encoding until one decodes and parses.
func (l *Loader) decodeTable(data []byte, source string) (*decodedTable, error) {
	if len(data) == 0 {
		return nil, newLoadError(source, "decode", ErrEmptyFile)
	}

	cands := l.cands
	if l.opts.DetectEncoding {
		cands = orderByDetection(cands, data)
	}

	var attempts []Attempt
	var parseErr error
	for _, c := range cands {
		text, err := c.decode(data)
		if err != nil {
			attempts = append(attempts, Attempt{Encoding: c.name, Err: err})
			l.logger.Debug("encoding rejected", zap.String("source", source), zap.String("encoding", c.name), zap.Error(err))
			continue
		}
		header, rows, err := readTable(text, l.opts.Delimiter)
		if err != nil {
			if errors.Is(err, ErrEmptyFile) {
				return nil, newLoadError(source, "parse", err)
			}
			attempts = append(attempts, Attempt{Encoding: c.name, Err: err})
			parseErr = err
			continue
		}

		tried := make([]string, 0, len(attempts)+1)
		for _, a := range attempts {
			tried = append(tried, a.Encoding)
		}
		tried = append(tried, c.name)
		return &decodedTable{encoding: c.name, tried: tried, header: header, rows: rows}, nil
	}

	if parseErr != nil {
		loadErr := newLoadError(source, "parse", parseErr)
		loadErr.Attempts = attempts
		return nil, loadErr
	}
	loadErr := newLoadError(source, "decode", ErrUndecodable)
	loadErr.Attempts = attempts
	return nil, loadErr
}
