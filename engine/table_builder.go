package engine

import (
	"fmt"
)

// ============================================================================
// TABLE BUILDER — Product details of the filtered view
// ============================================================================
// One row per record, source order. Optional bag columns only appear when at
// least one record in the view carries them.
// ============================================================================

// BuildDetailsTable lists every product in the view with its inputs and
// derived metrics.
func BuildDetailsTable(view RecordView, cfg *config) *TableData {
	columns := []Column{
		{Key: DimName, Label: LabelForDimension(DimName), Type: "text", Align: "left"},
		{Key: DimCategory, Label: LabelForDimension(DimCategory), Type: "text", Align: "left"},
		{Key: DimManufacturer, Label: LabelForDimension(DimManufacturer), Type: "text", Align: "left"},
		{Key: DimTechnology, Label: LabelForDimension(DimTechnology), Type: "text", Align: "left"},
		{Key: MeasureNPercent, Label: LabelForDimension(MeasureNPercent), Type: "percent", Align: "right"},
		{Key: MeasurePPercent, Label: LabelForDimension(MeasurePPercent), Type: "percent", Align: "right"},
		{Key: MeasureKPercent, Label: LabelForDimension(MeasureKPercent), Type: "percent", Align: "right"},
		{Key: MeasureKgPerHectare, Label: LabelForDimension(MeasureKgPerHectare), Type: "number", Align: "right"},
	}
	showBags := hasMeasure(view, MeasureBagPrice) || hasMeasure(view, MeasureBagKg)
	if showBags {
		columns = append(columns,
			Column{Key: MeasureBagPrice, Label: LabelForDimension(MeasureBagPrice), Type: "currency", Align: "right"},
			Column{Key: MeasureBagKg, Label: LabelForDimension(MeasureBagKg), Type: "number", Align: "right"},
		)
	}
	columns = append(columns,
		Column{Key: MeasureCostPerHectare, Label: LabelForDimension(MeasureCostPerHectare), Type: "currency", Align: "right"},
		Column{Key: MeasureNUnitsPerHectare, Label: LabelForDimension(MeasureNUnitsPerHectare), Type: "number", Align: "right"},
		Column{Key: MeasureCostPerNUnit, Label: LabelForDimension(MeasureCostPerNUnit), Type: "currency", Align: "right"},
	)

	rows := make([][]string, 0, view.Len())
	for i := 0; i < view.Len(); i++ {
		r := view.Record(i)
		row := []string{
			r.Name,
			r.Category,
			r.Manufacturer,
			r.Technology,
			FormatNumber(r.NPercent),
			FormatNumber(r.PPercent),
			FormatNumber(r.KPercent),
			FormatNumber(r.KgPerHectare),
		}
		if showBags {
			row = append(row, FormatCurrency(r.BagPrice, cfg.Currency), FormatNumber(r.BagKg))
		}
		efficiency := "n/a"
		if r.HasEfficiency() {
			efficiency = FormatCurrency(r.CostPerNUnit, cfg.Currency)
		}
		row = append(row,
			FormatCurrency(r.CostPerHectare, cfg.Currency),
			fmt.Sprintf("%.2f", r.NUnitsPerHectare),
			efficiency,
		)
		rows = append(rows, row)
	}

	return &TableData{
		Title:   "Product details",
		Columns: columns,
		Rows:    rows,
		Summary: &Summary{
			Label: fmt.Sprintf("Average (%d products)", view.Len()),
			Values: map[string]string{
				MeasureCostPerHectare: FormatCurrency(AvgMeasure(view, MeasureCostPerHectare), cfg.Currency),
				MeasureCostPerNUnit:   avgOrNA(view, MeasureCostPerNUnit, cfg.Currency),
			},
		},
	}
}

// avgOrNA formats the average of a measure, or "n/a" when no row defines it.
func avgOrNA(view RecordView, measure, currency string) string {
	if _, idx := extremeMeasure(view, measure, func(a, b float64) bool { return a < b }); idx < 0 {
		return "n/a"
	}
	return FormatCurrency(AvgMeasure(view, measure), currency)
}

func hasMeasure(view RecordView, measure string) bool {
	for i := 0; i < view.Len(); i++ {
		if view.Measure(i, measure) != 0 {
			return true
		}
	}
	return false
}
