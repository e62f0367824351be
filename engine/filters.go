package engine

import (
	"net/url"
	"strings"
)

// ============================================================================
// FILTERS — Dimension-Based Filtering via RecordView
// ============================================================================
// Single-pass filter: checks ALL dimension constraints per record in one loop.
// Returns a SubView (index list into parent); zero data copy, source order
// preserved.
// ============================================================================

// ApplyFilters returns a view of records matching all dimension filters.
// Dimensions are AND-combined; values within a dimension are OR-combined.
// Empty filter = no restriction (returns original view).
func ApplyFilters(view RecordView, sel Selection) RecordView {
	if sel.IsEmpty() {
		return view
	}

	// Pre-build lowercase lookup sets for each dimension filter
	sets := make(map[string]map[string]bool)
	for dim, allowed := range sel.Dimensions {
		if len(allowed) > 0 {
			sets[dim] = toLowerSet(allowed)
		}
	}

	if len(sets) == 0 {
		return view
	}

	// Single pass; record passes if it matches ALL dimension filters
	n := view.Len()
	indices := make([]int, 0, n)
	for i := 0; i < n; i++ {
		pass := true
		for dim, set := range sets {
			val := normalizeValue(view.Dimension(i, dim))
			if !set[val] {
				pass = false
				break
			}
		}
		if pass {
			indices = append(indices, i)
		}
	}

	return newSubView(view, indices)
}

// DistinctValues returns the distinct non-empty values of a dimension in
// first-seen order. Values differing only by case or surrounding spaces
// collapse onto the first spelling, mirroring how ApplyFilters matches them.
func DistinctValues(view RecordView, dimension string) []string {
	seen := make(map[string]bool)
	result := []string{}
	for i := 0; i < view.Len(); i++ {
		raw := strings.TrimSpace(view.Dimension(i, dimension))
		key := normalizeValue(raw)
		if key != "" && !seen[key] {
			seen[key] = true
			result = append(result, raw)
		}
	}
	return result
}

// FilterOptions returns DistinctValues for every filterable dimension.
func FilterOptions(view RecordView) map[string][]string {
	opts := make(map[string][]string, len(FilterDimensions))
	for _, dim := range FilterDimensions {
		opts[dim] = DistinctValues(view, dim)
	}
	return opts
}

// SelectionFromQuery reads the filterable dimensions from URL query values.
// Multiple values repeat the key (?category=Premium&category=Economic).
// Unknown keys are ignored.
func SelectionFromQuery(q url.Values) Selection {
	dims := make(map[string][]string)
	for _, dim := range FilterDimensions {
		if vals, ok := q[dim]; ok {
			dims[dim] = vals
		}
	}
	return NewSelection(dims)
}

// Query encodes a selection back into URL query values.
func (s Selection) Query() url.Values {
	q := url.Values{}
	for _, dim := range FilterDimensions {
		for _, v := range s.Values(dim) {
			q.Add(dim, v)
		}
	}
	return q
}

// toLowerSet converts a string slice to a lowercase lookup set.
func toLowerSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		set[normalizeValue(item)] = true
	}
	return set
}

func normalizeValue(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
