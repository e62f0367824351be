package schema

import (
	"math"
	"strconv"
	"strings"
)

// ParseNumber reads a spreadsheet-style number: currency symbols, percent
// signs and spaces are ignored, and both "1.234,5" and "1,234.5" are
// accepted. A lone comma is a decimal comma ("12,5" → 12.5). Non-finite
// results are rejected.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\u00a0', '\u202f', '%', '€', '$', '£':
			return -1
		}
		return r
	}, s)
	s = strings.TrimPrefix(s, "R")
	if s == "" {
		return 0, false
	}

	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")
	switch {
	case lastComma >= 0 && lastDot >= 0 && lastComma > lastDot:
		// 1.234,5
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case lastComma >= 0 && lastDot >= 0:
		// 1,234.5
		s = strings.ReplaceAll(s, ",", "")
	case strings.Count(s, ",") > 1:
		// 1,234,567
		s = strings.ReplaceAll(s, ",", "")
	case lastComma >= 0:
		s = strings.Replace(s, ",", ".", 1)
	case strings.Count(s, ".") > 1:
		// 1.234.567
		s = strings.ReplaceAll(s, ".", "")
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// ParseMeasure applies the loader's rule for measure cells: a parseable,
// non-negative number. Anything else is coerced to 0 with a warning.
func ParseMeasure(s string) (float64, bool) {
	v, ok := ParseNumber(s)
	if !ok || v < 0 {
		return 0, false
	}
	return v, true
}
