package engine

import (
	"math"
	"strings"
)

// ============================================================================
// FERTDASH ENGINE TYPES — Fertilizer Comparison Analytics
// ============================================================================
// The engine owns the in-memory shape of the dataset and every render-ready
// output built from it. It never reads files and never talks to the network;
// the loader hands it records, the dashboard hands it selections.
// ============================================================================

// Canonical dimension keys. These are the names the loader resolves raw
// CSV headers to and the keys RecordView.Dimension understands.
const (
	DimName         = "name"
	DimCategory     = "category"
	DimManufacturer = "manufacturer"
	DimTechnology   = "technology"
)

// Canonical measure keys.
const (
	MeasureNPercent         = "n_percent"
	MeasurePPercent         = "p_percent"
	MeasureKPercent         = "k_percent"
	MeasureKgPerHectare     = "kg_per_hectare"
	MeasureCostPerHectare   = "cost_per_hectare"
	MeasureBagPrice         = "bag_price"
	MeasureBagKg            = "bag_kg"
	MeasureNUnitsPerHectare = "n_units_per_hectare"
	MeasureCostPerNUnit     = "cost_per_n_unit"
)

// FilterDimensions lists the dimensions exposed as sidebar controls, in
// display order.
var FilterDimensions = []string{DimCategory, DimManufacturer, DimTechnology}

// ============================================================================
// RECORD — One fertilizer product
// ============================================================================

// FertilizerRecord is a single row of the dataset.
//
// The first block is read from the CSV; NUnitsPerHectare and CostPerNUnit
// are filled by ComputeMetrics. CostPerNUnit is NaN when the product
// delivers no nitrogen; check HasEfficiency before using it.
type FertilizerRecord struct {
	// Row is the 0-based position of the record in the loaded table.
	Row int

	Name           string
	Category       string
	Manufacturer   string
	Technology     string
	NPercent       float64
	PPercent       float64
	KPercent       float64
	KgPerHectare   float64
	CostPerHectare float64

	// Optional columns; zero when absent from the source file.
	BagPrice float64
	BagKg    float64

	NUnitsPerHectare float64
	CostPerNUnit     float64
}

// HasEfficiency reports whether CostPerNUnit holds a real value rather than
// the undefined-efficiency sentinel.
func (r FertilizerRecord) HasEfficiency() bool {
	return !math.IsNaN(r.CostPerNUnit) && !math.IsInf(r.CostPerNUnit, 0)
}

// ============================================================================
// SELECTION — Sidebar state passed to the Filter Engine
// ============================================================================

// Selection holds the chosen values per filterable dimension.
// OR within a dimension, AND across dimensions. Empty = all.
type Selection struct {
	Dimensions map[string][]string `json:"dimensions"`
}

// NewSelection builds a Selection from dimension → values pairs, dropping
// blank values.
func NewSelection(dims map[string][]string) Selection {
	sel := Selection{Dimensions: make(map[string][]string, len(dims))}
	for dim, vals := range dims {
		for _, v := range vals {
			if v = strings.TrimSpace(v); v != "" {
				sel.Dimensions[dim] = append(sel.Dimensions[dim], v)
			}
		}
	}
	return sel
}

// HasFilter returns true if a specific dimension filter is set.
func (s Selection) HasFilter(dimension string) bool {
	if s.Dimensions == nil {
		return false
	}
	vals, ok := s.Dimensions[dimension]
	return ok && len(vals) > 0
}

// IsEmpty returns true if no filters are set.
func (s Selection) IsEmpty() bool {
	for _, vals := range s.Dimensions {
		if len(vals) > 0 {
			return false
		}
	}
	return true
}

// Values returns the selected values for a dimension (nil when unset).
func (s Selection) Values(dimension string) []string {
	if s.Dimensions == nil {
		return nil
	}
	return s.Dimensions[dimension]
}

// ============================================================================
// WARNINGS — Non-fatal per-row anomalies
// ============================================================================

// WarningKind classifies a ComputationWarning.
type WarningKind string

const (
	// WarnUndefinedEfficiency marks a row whose cost per N unit is undefined
	// because it delivers zero nitrogen.
	WarnUndefinedEfficiency WarningKind = "undefined_efficiency"
	// WarnCoercedValue marks a numeric cell that was blank, unparseable,
	// negative or non-finite and was replaced with 0.
	WarnCoercedValue WarningKind = "coerced_value"
)

// ComputationWarning reports a contained per-row anomaly. Rows are 0-based
// positions in the loaded table.
type ComputationWarning struct {
	Row     int         `json:"row"`
	Product string      `json:"product"`
	Field   string      `json:"field"`
	Kind    WarningKind `json:"kind"`
	Message string      `json:"message"`
}

// ============================================================================
// RESULT — Render-ready output of one interaction
// ============================================================================

// Result is everything the presentation layer needs for one render.
type Result struct {
	Title     string              `json:"title"`
	Total     int                 `json:"total"`
	Matched   int                 `json:"matched"`
	Selection Selection           `json:"selection"`
	Options   map[string][]string `json:"options"`

	// Empty is set when the selection matches no rows; Notice carries the
	// message to show instead of charts.
	Empty  bool   `json:"empty"`
	Notice string `json:"notice,omitempty"`

	Summary         *SummaryData         `json:"summary,omitempty"`
	NPKChart        *ChartConfig         `json:"npkChart,omitempty"`
	CostChart       *ChartConfig         `json:"costChart,omitempty"`
	EfficiencyChart *ChartConfig         `json:"efficiencyChart,omitempty"`
	Ranking         *RankingData         `json:"ranking,omitempty"`
	Details         *TableData           `json:"details,omitempty"`
	Warnings        []ComputationWarning `json:"warnings,omitempty"`
	Note            string               `json:"note,omitempty"`
	Currency        string               `json:"currency"`
}

// ============================================================================
// CHART TYPES
// ============================================================================

// ChartConfig defines how to render a chart.
type ChartConfig struct {
	ChartType  string        `json:"chartType"`
	Title      string        `json:"title"`
	XAxis      string        `json:"xAxis,omitempty"`
	YAxis      string        `json:"yAxis,omitempty"`
	Series     []ChartSeries `json:"series"`
	Colors     []string      `json:"colors,omitempty"`
	ShowLegend bool          `json:"showLegend"`
	ShowGrid   bool          `json:"showGrid"`
}

// ChartSeries represents a data series in a chart.
type ChartSeries struct {
	Name  string       `json:"name"`
	Data  []ChartPoint `json:"data"`
	Color string       `json:"color,omitempty"`
}

// ChartPoint represents a single data point. Group is an optional secondary
// label (the category for efficiency bars) used for coloring.
type ChartPoint struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
	Group string  `json:"group,omitempty"`
	Color string  `json:"color,omitempty"`
}

// ============================================================================
// TABLE TYPES
// ============================================================================

// TableData defines how to render a table.
type TableData struct {
	Title   string     `json:"title"`
	Columns []Column   `json:"columns"`
	Rows    [][]string `json:"rows"`
	Summary *Summary   `json:"summary,omitempty"`
}

// Column defines a table column.
type Column struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Type  string `json:"type"`  // "text", "number", "currency", "percent"
	Align string `json:"align"` // "left", "center", "right"
}

// Summary provides totals or aggregations for a table.
type Summary struct {
	Label  string            `json:"label"`
	Values map[string]string `json:"values"`
}

// ============================================================================
// RANKING + SUMMARY TYPES
// ============================================================================

// RankingData is the efficiency ranking of the current subset.
type RankingData struct {
	Ranked   []RankEntry `json:"ranked"`
	Unranked []RankEntry `json:"unranked,omitempty"`
}

// RankEntry is one product in the efficiency ranking. Position is 1-based
// for ranked entries and 0 for unranked ones.
type RankEntry struct {
	Position         int     `json:"position"`
	Name             string  `json:"name"`
	Category         string  `json:"category"`
	Manufacturer     string  `json:"manufacturer"`
	CostPerHectare   float64 `json:"costPerHectare"`
	NUnitsPerHectare float64 `json:"nUnitsPerHectare"`
	// CostPerNUnit is nil for unranked entries.
	CostPerNUnit *float64 `json:"costPerNUnit"`
}

// SummaryData holds the KPI strip shown above the charts.
type SummaryData struct {
	Products          int     `json:"products"`
	AvgCostPerHectare float64 `json:"avgCostPerHectare"`
	MinCostPerHectare float64 `json:"minCostPerHectare"`
	MaxCostPerHectare float64 `json:"maxCostPerHectare"`
	CheapestNProduct  string  `json:"cheapestNProduct,omitempty"`
	CheapestNUnitCost float64 `json:"cheapestNUnitCost,omitempty"`

	// Display holds the formatted KPI values keyed like the fields above.
	Display map[string]string `json:"display"`
}
