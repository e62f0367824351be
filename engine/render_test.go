package engine

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// RANKING
// ============================================================================

func TestRankByEfficiency(t *testing.T) {
	table, _ := sampleTable(t)
	ranked, unranked := RankByEfficiency(table)

	if diff := cmp.Diff([]string{"Cheap", "UreaX", "ShieldN", "Balance"}, names(ranked)); diff != "" {
		t.Errorf("ranking mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{"PureP"}, names(unranked))
}

func TestRankByEfficiency_SentinelNeverFirst(t *testing.T) {
	records, _ := ComputeMetrics([]FertilizerRecord{
		{Name: "PureP", PPercent: 40, KgPerHectare: 150, CostPerHectare: 60},
		{Name: "UreaX", NPercent: 46, KgPerHectare: 200, CostPerHectare: 80},
	})
	ranked, unranked := RankByEfficiency(BindRecords(records))
	assert.Equal(t, []string{"UreaX"}, names(ranked))
	assert.Equal(t, []string{"PureP"}, names(unranked))
}

func TestRankByEfficiency_StableTies(t *testing.T) {
	records, _ := ComputeMetrics([]FertilizerRecord{
		{Name: "A", NPercent: 50, KgPerHectare: 100, CostPerHectare: 50},
		{Name: "B", NPercent: 25, KgPerHectare: 200, CostPerHectare: 50},
		{Name: "C", NPercent: 10, KgPerHectare: 100, CostPerHectare: 1},
	})
	ranked, _ := RankByEfficiency(BindRecords(records))
	assert.Equal(t, []string{"C", "A", "B"}, names(ranked))
}

func TestBuildRanking(t *testing.T) {
	table, _ := sampleTable(t)
	data := BuildRanking(table)

	require.Len(t, data.Ranked, 4)
	first := data.Ranked[0]
	assert.Equal(t, 1, first.Position)
	assert.Equal(t, "Cheap", first.Name)
	require.NotNil(t, first.CostPerNUnit)
	assert.Equal(t, 0.75, *first.CostPerNUnit)
	assert.Equal(t, 80.0, first.NUnitsPerHectare)

	require.Len(t, data.Unranked, 1)
	assert.Equal(t, 0, data.Unranked[0].Position)
	assert.Nil(t, data.Unranked[0].CostPerNUnit)
}

// ============================================================================
// RENDER
// ============================================================================

func TestRender_FullTable(t *testing.T) {
	table, warnings := sampleTable(t)
	res := Render(table, Selection{}, WithWarnings(warnings))

	assert.Equal(t, DefaultTitle, res.Title)
	assert.Equal(t, 5, res.Total)
	assert.Equal(t, 5, res.Matched)
	assert.False(t, res.Empty)
	assert.Equal(t, "€", res.Currency)
	assert.Equal(t, EfficiencyNote, res.Note)

	require.NotNil(t, res.Summary)
	assert.Equal(t, 5, res.Summary.Products)
	assert.Equal(t, 94.0, res.Summary.AvgCostPerHectare)
	assert.Equal(t, 60.0, res.Summary.MinCostPerHectare)
	assert.Equal(t, 150.0, res.Summary.MaxCostPerHectare)
	assert.Equal(t, "Cheap", res.Summary.CheapestNProduct)
	assert.Equal(t, "€ 94.00", res.Summary.Display["avgCostPerHectare"])

	require.Len(t, res.Warnings, 1)
	assert.Equal(t, "PureP", res.Warnings[0].Product)
}

func TestRender_FilteredSubset(t *testing.T) {
	table, warnings := sampleTable(t)
	sel := NewSelection(map[string][]string{DimCategory: {"Premium"}})
	res := Render(table, sel, WithWarnings(warnings))

	assert.Equal(t, 5, res.Total)
	assert.Equal(t, 2, res.Matched)
	// Options always come from the unfiltered table.
	assert.Equal(t, []string{"Economic", "Premium"}, res.Options[DimCategory])
	// PureP is filtered out, so is its warning.
	assert.Empty(t, res.Warnings)

	require.NotNil(t, res.Ranking)
	assert.Equal(t, "ShieldN", res.Ranking.Ranked[0].Name)
	assert.Empty(t, res.Ranking.Unranked)
}

func TestRender_EmptySelection(t *testing.T) {
	table, _ := sampleTable(t)
	res := Render(table, NewSelection(map[string][]string{DimCategory: {"Organic"}}))

	assert.True(t, res.Empty)
	assert.Equal(t, EmptyNotice, res.Notice)
	assert.Equal(t, 0, res.Matched)
	assert.Nil(t, res.NPKChart)
	assert.Nil(t, res.CostChart)
	assert.Nil(t, res.EfficiencyChart)
	assert.Nil(t, res.Details)
	assert.NotEmpty(t, res.Options[DimCategory])
}

func TestRender_EmptyDataset(t *testing.T) {
	res := Render(BindRecords(nil), Selection{})
	assert.True(t, res.Empty)
	assert.Equal(t, "The dataset has no products.", res.Notice)
	assert.Equal(t, []string{}, res.Options[DimCategory])
}

func TestRender_Options(t *testing.T) {
	table, _ := sampleTable(t)
	res := Render(table, Selection{},
		WithTitle("Safra 2026"),
		WithCurrency("R$"),
		WithNutrientColors("", "#000000", ""),
	)

	assert.Equal(t, "Safra 2026", res.Title)
	assert.Equal(t, "R$ 94.00", res.Summary.Display["avgCostPerHectare"])
	require.NotNil(t, res.NPKChart)
	assert.Equal(t, []string{"#2ca02c", "#000000", "#ff7f0e"}, res.NPKChart.Colors)
}

func TestRender_EncodesAsJSON(t *testing.T) {
	table, warnings := sampleTable(t)
	res := Render(table, Selection{}, WithWarnings(warnings))

	// The undefined-efficiency sentinel must never reach the wire as NaN.
	_, err := json.Marshal(res)
	require.NoError(t, err)
}

func TestRender_DoesNotMutateView(t *testing.T) {
	table, warnings := sampleTable(t)
	before := Records(table)
	_ = Render(table, NewSelection(map[string][]string{DimManufacturer: {"AgroB"}}), WithWarnings(warnings))

	after := Records(table)
	require.Len(t, after, len(before))
	for i := range before {
		assert.Equal(t, before[i].Name, after[i].Name)
		assert.Equal(t, before[i].CostPerHectare, after[i].CostPerHectare)
		assert.Equal(t, isNaN(before[i].CostPerNUnit), isNaN(after[i].CostPerNUnit))
	}
}

// ============================================================================
// CHARTS
// ============================================================================

func TestBuildNPKChart(t *testing.T) {
	table, _ := sampleTable(t)
	chart := BuildNPKChart(table, applyOptions(nil))

	require.NotNil(t, chart)
	assert.Equal(t, "grouped_bar", chart.ChartType)
	require.Len(t, chart.Series, 3)
	assert.Equal(t, "N", chart.Series[0].Name)
	assert.Equal(t, "#2ca02c", chart.Series[0].Color)
	assert.Equal(t, 46.0, chart.Series[0].Data[0].Value)
	assert.Equal(t, 40.0, chart.Series[1].Data[1].Value)
	assert.Len(t, chart.Series[2].Data, 5)
}

func TestBuildEfficiencyChart_ExcludesSentinel(t *testing.T) {
	table, _ := sampleTable(t)
	chart := BuildEfficiencyChart(table, applyOptions(nil))

	require.NotNil(t, chart)
	require.Len(t, chart.Series, 1)
	var labels []string
	for _, p := range chart.Series[0].Data {
		labels = append(labels, p.Label)
		assert.False(t, math.IsNaN(p.Value))
	}
	assert.Equal(t, []string{"Cheap", "UreaX", "ShieldN", "Balance"}, labels)

	// Categories share colors regardless of spelling.
	data := chart.Series[0].Data
	assert.Equal(t, data[0].Color, data[1].Color)
	assert.NotEqual(t, data[1].Color, data[2].Color)
	assert.True(t, chart.ShowLegend)
}

func TestBuildEfficiencyChart_NoRankedRows(t *testing.T) {
	records, _ := ComputeMetrics([]FertilizerRecord{{Name: "PureP", PPercent: 40, KgPerHectare: 150, CostPerHectare: 60}})
	assert.Nil(t, BuildEfficiencyChart(BindRecords(records), applyOptions(nil)))
}

func TestBuildCostChart(t *testing.T) {
	table, _ := sampleTable(t)
	chart := BuildCostChart(table, applyOptions([]Option{WithCurrency("$")}))

	require.NotNil(t, chart)
	assert.Equal(t, "Total cost per hectare ($)", chart.Title)
	assert.Equal(t, 150.0, chart.Series[0].Data[2].Value)
}

// ============================================================================
// DETAILS TABLE & FORMATTING
// ============================================================================

func TestBuildDetailsTable(t *testing.T) {
	table, _ := sampleTable(t)
	details := BuildDetailsTable(table, applyOptions(nil))

	require.Len(t, details.Rows, 5)
	require.Len(t, details.Columns, 13)
	assert.Equal(t, MeasureBagPrice, details.Columns[8].Key)

	last := len(details.Columns) - 1
	assert.Equal(t, "€ 0.87", details.Rows[0][last])
	assert.Equal(t, "n/a", details.Rows[1][last])
	assert.Equal(t, "€ 1.37", details.Summary.Values[MeasureCostPerNUnit])
}

func TestBuildDetailsTable_HidesEmptyBagColumns(t *testing.T) {
	table, _ := sampleTable(t)
	economic := ApplyFilters(table, NewSelection(map[string][]string{DimCategory: {"Economic"}}))
	details := BuildDetailsTable(economic, applyOptions(nil))

	assert.Len(t, details.Columns, 11)
	for _, c := range details.Columns {
		assert.NotEqual(t, MeasureBagPrice, c.Key)
	}
}

func TestFormatCurrency(t *testing.T) {
	assert.Equal(t, "€ 1,234.50", FormatCurrency(1234.5, "€"))
	assert.Equal(t, "0.75", FormatCurrency(0.75, ""))
	assert.Equal(t, "-€ 3.00", FormatCurrency(-3, "€"))
	assert.Equal(t, "n/a", FormatCurrency(math.NaN(), "€"))
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "46", FormatNumber(46))
	assert.Equal(t, "12.50", FormatNumber(12.5))
	assert.Equal(t, "n/a", FormatNumber(math.NaN()))
	assert.Equal(t, "1,234,567", FormatInt(1234567))
}
