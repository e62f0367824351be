package engine

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// ============================================================================
// AGGREGATORS — Ranking, Measure Statistics, and Formatting via RecordView
// ============================================================================
// All functions operate on RecordView; zero-copy access to the table.
// Ranking produces a SubView whose indices are in rank order.
// ============================================================================

// RankByEfficiency orders a view by ascending cost per N unit (cheapest
// nitrogen first). Ties keep source order. Rows with the undefined-efficiency
// sentinel are never ranked: they are returned separately in source order.
func RankByEfficiency(view RecordView) (ranked RecordView, unranked RecordView) {
	defined, undefined := rankIndices(view)
	return newSubView(view, defined), newSubView(view, undefined)
}

func rankIndices(view RecordView) (defined, undefined []int) {
	n := view.Len()
	defined = make([]int, 0, n)
	undefined = make([]int, 0)

	for i := 0; i < n; i++ {
		if view.Record(i).HasEfficiency() {
			defined = append(defined, i)
		} else {
			undefined = append(undefined, i)
		}
	}

	sort.SliceStable(defined, func(a, b int) bool {
		return view.Measure(defined[a], MeasureCostPerNUnit) < view.Measure(defined[b], MeasureCostPerNUnit)
	})
	return defined, undefined
}

// BuildRanking converts RankByEfficiency output into RankingData.
func BuildRanking(view RecordView) *RankingData {
	ranked, unranked := RankByEfficiency(view)

	data := &RankingData{
		Ranked: make([]RankEntry, 0, ranked.Len()),
	}
	for i := 0; i < ranked.Len(); i++ {
		r := ranked.Record(i)
		cost := RoundTo2(r.CostPerNUnit)
		data.Ranked = append(data.Ranked, rankEntry(i+1, r, &cost))
	}
	for i := 0; i < unranked.Len(); i++ {
		data.Unranked = append(data.Unranked, rankEntry(0, unranked.Record(i), nil))
	}
	return data
}

func rankEntry(pos int, r FertilizerRecord, cost *float64) RankEntry {
	return RankEntry{
		Position:         pos,
		Name:             r.Name,
		Category:         r.Category,
		Manufacturer:     r.Manufacturer,
		CostPerHectare:   RoundTo2(r.CostPerHectare),
		NUnitsPerHectare: RoundTo2(r.NUnitsPerHectare),
		CostPerNUnit:     cost,
	}
}

// ============================================================================
// MEASURE STATISTICS
// ============================================================================
// NaN values (the efficiency sentinel) are skipped by every statistic.

// AvgMeasure computes the average of a named measure over rows where it is
// defined.
func AvgMeasure(view RecordView, measure string) float64 {
	var total float64
	var n int
	for i := 0; i < view.Len(); i++ {
		if v := view.Measure(i, measure); !math.IsNaN(v) {
			total += v
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return total / float64(n)
}

// MaxMeasure returns the largest value of a named measure.
func MaxMeasure(view RecordView, measure string) float64 {
	m, _ := extremeMeasure(view, measure, func(a, b float64) bool { return a > b })
	return m
}

// MinMeasure returns the smallest value of a named measure.
func MinMeasure(view RecordView, measure string) float64 {
	m, _ := extremeMeasure(view, measure, func(a, b float64) bool { return a < b })
	return m
}

// extremeMeasure returns the winning value and its row index, or (0, -1)
// when no row has a defined value.
func extremeMeasure(view RecordView, measure string, better func(a, b float64) bool) (float64, int) {
	best := 0.0
	idx := -1
	for i := 0; i < view.Len(); i++ {
		v := view.Measure(i, measure)
		if math.IsNaN(v) {
			continue
		}
		if idx < 0 || better(v, best) {
			best = v
			idx = i
		}
	}
	return best, idx
}

// ============================================================================
// FORMATTING UTILITIES
// ============================================================================

// FormatCurrency formats an amount with a currency prefix and comma
// separators.
func FormatCurrency(amount float64, currency string) string {
	if math.IsNaN(amount) {
		return "n/a"
	}
	negative := amount < 0
	if negative {
		amount = -amount
	}

	cents := int64(math.Round(amount * 100))
	intPart := cents / 100
	decPart := cents % 100

	intStr := FormatInt(int(intPart))
	result := fmt.Sprintf("%s.%02d", intStr, decPart)
	if currency != "" {
		result = currency + " " + result
	}
	if negative {
		result = "-" + result
	}
	return result
}

// FormatInt formats an integer with comma separators.
func FormatInt(n int) string {
	if n < 0 {
		return "-" + FormatInt(-n)
	}
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	return fmt.Sprintf("%s,%03d", FormatInt(n/1000), n%1000)
}

// FormatNumber renders whole numbers without decimals and everything else
// with two.
func FormatNumber(v float64) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.2f", v)
}

// RoundTo2 rounds to 2 decimal places.
func RoundTo2(v float64) float64 {
	return math.Round(v*100) / 100
}

// LabelForDimension turns a canonical key into a display label
// ("cost_per_hectare" → "Cost per hectare").
func LabelForDimension(key string) string {
	if label, ok := columnLabels[key]; ok {
		return label
	}
	if len(key) == 0 {
		return ""
	}
	s := strings.ReplaceAll(key, "_", " ")
	return strings.ToUpper(s[:1]) + s[1:]
}

var columnLabels = map[string]string{
	DimName:                 "Product",
	DimCategory:             "Category",
	DimManufacturer:         "Manufacturer",
	DimTechnology:           "Technology",
	MeasureNPercent:         "N (%)",
	MeasurePPercent:         "P (%)",
	MeasureKPercent:         "K (%)",
	MeasureKgPerHectare:     "kg/ha",
	MeasureCostPerHectare:   "Cost per hectare",
	MeasureBagPrice:         "Price per bag",
	MeasureBagKg:            "Bag size (kg)",
	MeasureNUnitsPerHectare: "N units per hectare",
	MeasureCostPerNUnit:     "Cost per N unit",
}
