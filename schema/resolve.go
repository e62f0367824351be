package schema

import (
	"errors"
	"fmt"
	"strings"
)

// ============================================================================
// RESOLUTION — Raw CSV headers → canonical column keys
// ============================================================================
// Two passes over the headers:
//   1. alias pass:   normalized header equals a normalized alias
//   2. keyword pass: columns still missing take the first unclaimed header
//                   matching one of their keyword rules
// A canonical key claimed twice in the alias pass is an error; the file is
// ambiguous and guessing would corrupt the economics.
// ============================================================================

var (
	// ErrMissingColumns indicates required columns are absent after normalization.
	ErrMissingColumns = errors.New("required columns missing")

	// ErrDuplicateColumn indicates two headers normalize to the same canonical column.
	ErrDuplicateColumn = errors.New("duplicate column")
)

// MissingColumnsError lists the required columns that could not be resolved.
type MissingColumnsError struct {
	Missing []string // canonical keys
	Headers []string // cleaned raw headers, for the message
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("%v: %s (found: %s)", ErrMissingColumns,
		strings.Join(e.Missing, ", "), strings.Join(e.Headers, ", "))
}

// Unwrap lets errors.Is match ErrMissingColumns.
func (e *MissingColumnsError) Unwrap() error { return ErrMissingColumns }

// DuplicateColumnError names the canonical key and the clashing headers.
type DuplicateColumnError struct {
	Key     string
	Headers []string
}

func (e *DuplicateColumnError) Error() string {
	return fmt.Sprintf("%v: %q and %q both map to %s", ErrDuplicateColumn, e.Headers[0], e.Headers[1], e.Key)
}

// Unwrap lets errors.Is match ErrDuplicateColumn.
func (e *DuplicateColumnError) Unwrap() error { return ErrDuplicateColumn }

// SkippedColumn records a header that maps to no canonical column.
type SkippedColumn struct {
	Column string `json:"column"`
	Key    string `json:"key"`
	Reason string `json:"reason"`
}

// ColumnMatch records how one canonical column was found.
type ColumnMatch struct {
	Key    string `json:"key"`
	Index  int    `json:"index"`
	Header string `json:"header"`
	By     string `json:"by"` // "alias" or "keyword"
}

// Mapping is the result of resolving a header row.
type Mapping struct {
	Headers    []string               `json:"headers"`    // cleaned raw headers
	Normalized []string               `json:"normalized"` // NormalizeHeader per header
	Matches    map[string]ColumnMatch `json:"matches"`    // canonical key → match
	Skipped    []SkippedColumn        `json:"skipped,omitempty"`
}

// Index returns the column position of a canonical key, or -1.
func (m *Mapping) Index(key string) int {
	if match, ok := m.Matches[key]; ok {
		return match.Index
	}
	return -1
}

// Has reports whether a canonical key was resolved.
func (m *Mapping) Has(key string) bool {
	_, ok := m.Matches[key]
	return ok
}

// Resolve maps raw headers onto the schema's canonical columns. It fails
// with *DuplicateColumnError or *MissingColumnsError.
func (c Config) Resolve(headers []string) (*Mapping, error) {
	m := &Mapping{
		Headers:    make([]string, len(headers)),
		Normalized: make([]string, len(headers)),
		Matches:    make(map[string]ColumnMatch),
	}
	for i, h := range headers {
		m.Headers[i] = CleanHeader(h)
		m.Normalized[i] = NormalizeHeader(h)
	}

	claimed := make(map[int]string)

	// 1. Alias pass
	for _, spec := range c.Columns {
		aliases := make(map[string]bool, len(spec.Aliases)+1)
		aliases[NormalizeHeader(spec.Key)] = true
		for _, a := range spec.Aliases {
			aliases[NormalizeHeader(a)] = true
		}
		for i, key := range m.Normalized {
			if key == "" || !aliases[key] {
				continue
			}
			if prev, ok := m.Matches[spec.Key]; ok {
				return nil, &DuplicateColumnError{Key: spec.Key, Headers: []string{prev.Header, m.Headers[i]}}
			}
			if owner, ok := claimed[i]; ok {
				return nil, &DuplicateColumnError{Key: spec.Key, Headers: []string{m.Headers[i], owner}}
			}
			m.Matches[spec.Key] = ColumnMatch{Key: spec.Key, Index: i, Header: m.Headers[i], By: "alias"}
			claimed[i] = spec.Key
		}
	}

	// 2. Keyword pass
	for _, spec := range c.Columns {
		if m.Has(spec.Key) || len(spec.Keywords) == 0 {
			continue
		}
		for i, key := range m.Normalized {
			if _, taken := claimed[i]; taken {
				continue
			}
			if matchesAnyRule(key, spec.Keywords) {
				m.Matches[spec.Key] = ColumnMatch{Key: spec.Key, Index: i, Header: m.Headers[i], By: "keyword"}
				claimed[i] = spec.Key
				break
			}
		}
	}

	for i, h := range m.Headers {
		if _, ok := claimed[i]; !ok {
			m.Skipped = append(m.Skipped, SkippedColumn{
				Column: h,
				Key:    m.Normalized[i],
				Reason: "no matching column",
			})
		}
	}

	var missing []string
	for _, key := range c.RequiredKeys() {
		if !m.Has(key) {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return m, &MissingColumnsError{Missing: missing, Headers: m.Headers}
	}

	return m, nil
}

// matchesAnyRule reports whether every keyword of at least one rule is a
// prefix of some token of key.
func matchesAnyRule(key string, rules [][]string) bool {
	toks := tokens(key)
	for _, rule := range rules {
		if len(rule) == 0 {
			continue
		}
		all := true
		for _, kw := range rule {
			if !hasTokenPrefix(toks, NormalizeHeader(kw)) {
				all = false
				break
			}
		}
		if all {
			return true
		}
	}
	return false
}

func hasTokenPrefix(toks []string, prefix string) bool {
	if prefix == "" {
		return false
	}
	for _, t := range toks {
		if strings.HasPrefix(t, prefix) {
			return true
		}
	}
	return false
}
