package loader

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spektr-org/fertdash/schema"
)

// Sentinel errors for load failures
var (
	// ErrFileNotFound indicates the data file doesn't exist
	ErrFileNotFound = errors.New("file not found")

	// ErrEmptyFile indicates the file has no header row
	ErrEmptyFile = errors.New("empty file")

	// ErrUndecodable indicates no candidate encoding could decode the file
	ErrUndecodable = errors.New("no candidate encoding could decode the file")

	// ErrMalformedCSV indicates the text decoded but is not valid delimited data
	ErrMalformedCSV = errors.New("malformed CSV")

	// ErrMissingColumns indicates required columns are absent
	ErrMissingColumns = schema.ErrMissingColumns

	// ErrDuplicateColumn indicates two headers map to the same column
	ErrDuplicateColumn = schema.ErrDuplicateColumn
)

// Attempt records one encoding tried while decoding a file.
type Attempt struct {
	Encoding string
	Err      error
}

// DataLoadError wraps a blocking load failure with its context.
type DataLoadError struct {
	// Path is the file being loaded
	Path string

	// Op is the stage that failed: read, decode, parse, columns
	Op string

	// Attempts lists the encodings tried, in order
	Attempts []Attempt

	// Missing lists the canonical columns that could not be found
	Missing []string

	// Err is the underlying error
	Err error
}

// Error implements the error interface
func (e *DataLoadError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "load %s: %s: %v", e.Path, e.Op, e.Err)
	if len(e.Attempts) > 0 && errors.Is(e.Err, ErrUndecodable) {
		tried := make([]string, len(e.Attempts))
		for i, a := range e.Attempts {
			tried[i] = a.Encoding
		}
		fmt.Fprintf(&b, " (tried %s)", strings.Join(tried, ", "))
	}
	return b.String()
}

// Unwrap returns the underlying error
func (e *DataLoadError) Unwrap() error {
	return e.Err
}

func newLoadError(path, op string, err error) *DataLoadError {
	return &DataLoadError{Path: path, Op: op, Err: err}
}
