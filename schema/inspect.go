package schema

import (
	"sort"
	"strings"
)

// ============================================================================
// INSPECTION — What the loader will see in a file
// ============================================================================
// Profiles each raw column against the resolved mapping:
//   1. Sample values → detect type (numeric or text)
//   2. Count blanks and distinct values
//   3. Flag measure cells the loader will coerce to 0
//
// Used by `fertdash inspect` to explain a file before it reaches the
// dashboard. Read-only: nothing here changes how the loader parses.
// ============================================================================

// ColumnType is the detected content type of a raw column.
type ColumnType string

const (
	TypeNumeric ColumnType = "numeric"
	TypeText    ColumnType = "text"
	TypeEmpty   ColumnType = "empty"
)

// ColumnProfile describes one raw column of the file.
type ColumnProfile struct {
	Index      int        `json:"index"`
	Header     string     `json:"header"`
	Normalized string     `json:"normalized"`
	Key        string     `json:"key,omitempty"` // canonical key, "" when unmapped
	MatchedBy  string     `json:"matchedBy,omitempty"`
	Type       ColumnType `json:"type"`
	Unique     int        `json:"unique"`
	Blank      int        `json:"blank"`
	Invalid    int        `json:"invalid,omitempty"` // non-numeric cells in a measure column
	Samples    []string   `json:"samples,omitempty"`
}

// Report is the result of inspecting a file's header and rows.
type Report struct {
	Rows     int             `json:"rows"`
	Columns  []ColumnProfile `json:"columns"`
	Missing  []string        `json:"missing,omitempty"`
	Unmapped []string        `json:"unmapped,omitempty"`
}

// Inspect profiles every column. The mapping may come from a failed Resolve;
// its missing keys are reported instead of aborting.
func (c Config) Inspect(m *Mapping, rows [][]string) *Report {
	report := &Report{Rows: len(rows)}

	keyAt := make(map[int]ColumnMatch, len(m.Matches))
	for _, match := range m.Matches {
		keyAt[match.Index] = match
	}

	for i, header := range m.Headers {
		profile := profileColumn(i, rows)
		profile.Header = header
		profile.Normalized = m.Normalized[i]

		if match, ok := keyAt[i]; ok {
			profile.Key = match.Key
			profile.MatchedBy = match.By
			if spec, ok := c.Column(match.Key); ok && spec.Kind == KindMeasure {
				profile.Invalid = countInvalid(i, rows)
			}
		} else {
			report.Unmapped = append(report.Unmapped, header)
		}
		report.Columns = append(report.Columns, profile)
	}

	for _, key := range c.RequiredKeys() {
		if !m.Has(key) {
			report.Missing = append(report.Missing, key)
		}
	}
	return report
}

// profileColumn collects type, cardinality and samples for one column.
func profileColumn(index int, rows [][]string) ColumnProfile {
	profile := ColumnProfile{Index: index}

	values := make([]string, 0, len(rows))
	uniqueSet := make(map[string]bool)
	for _, row := range rows {
		if index >= len(row) {
			profile.Blank++
			continue
		}
		val := strings.TrimSpace(row[index])
		if val == "" {
			profile.Blank++
			continue
		}
		values = append(values, val)
		uniqueSet[val] = true
	}

	profile.Unique = len(uniqueSet)
	profile.Samples = collectSamples(uniqueSet, 5)
	profile.Type = detectType(values)
	return profile
}

// detectType requires 80%+ of non-blank values to parse for numeric.
func detectType(values []string) ColumnType {
	if len(values) == 0 {
		return TypeEmpty
	}
	numCount := 0
	for _, v := range values {
		if _, ok := ParseNumber(v); ok {
			numCount++
		}
	}
	threshold := int(float64(len(values)) * 0.8)
	if numCount > 0 && numCount >= threshold {
		return TypeNumeric
	}
	return TypeText
}

func countInvalid(index int, rows [][]string) int {
	n := 0
	for _, row := range rows {
		if index >= len(row) {
			continue
		}
		val := strings.TrimSpace(row[index])
		if _, ok := ParseMeasure(val); val != "" && !ok {
			n++
		}
	}
	return n
}

// collectSamples picks up to maxSamples values, sorted for deterministic output.
func collectSamples(uniqueSet map[string]bool, maxSamples int) []string {
	if len(uniqueSet) == 0 {
		return nil
	}
	samples := make([]string, 0, len(uniqueSet))
	for v := range uniqueSet {
		samples = append(samples, v)
	}
	sort.Strings(samples)
	if len(samples) > maxSamples {
		samples = samples[:maxSamples]
	}
	return samples
}
