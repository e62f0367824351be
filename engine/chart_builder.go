package engine

// ============================================================================
// CHART BUILDER — Produces ChartConfig from the filtered view
// ============================================================================
// Three charts per render:
//   NPK         grouped bars, one series per nutrient, one group per product
//   Cost        cost per hectare per product
//   Efficiency  cost per N unit, ranked cheapest first, colored by category
// ============================================================================

// Default color palette for category coloring.
var defaultColors = []string{
	"#4F46E5", "#10B981", "#F59E0B", "#EF4444", "#8B5CF6",
	"#06B6D4", "#EC4899", "#84CC16", "#F97316", "#6366F1",
}

// BuildNPKChart compares the N, P and K percentages of every product.
func BuildNPKChart(view RecordView, cfg *config) *ChartConfig {
	if view.Len() == 0 {
		return nil
	}

	nutrients := []struct{ name, measure string }{
		{"N", MeasureNPercent},
		{"P", MeasurePPercent},
		{"K", MeasureKPercent},
	}

	series := make([]ChartSeries, 0, len(nutrients))
	for i, nut := range nutrients {
		points := make([]ChartPoint, 0, view.Len())
		for r := 0; r < view.Len(); r++ {
			points = append(points, ChartPoint{
				Label: view.Dimension(r, DimName),
				Value: RoundTo2(view.Measure(r, nut.measure)),
			})
		}
		series = append(series, ChartSeries{
			Name:  nut.name,
			Data:  points,
			Color: cfg.NutrientColors[i],
		})
	}

	return &ChartConfig{
		ChartType:  "grouped_bar",
		Title:      "N-P-K comparison by product",
		XAxis:      LabelForDimension(DimName),
		YAxis:      "Percentage",
		Series:     series,
		Colors:     cfg.NutrientColors[:],
		ShowLegend: true,
		ShowGrid:   true,
	}
}

// BuildCostChart plots the total cost per hectare of every product.
func BuildCostChart(view RecordView, cfg *config) *ChartConfig {
	if view.Len() == 0 {
		return nil
	}

	points := make([]ChartPoint, 0, view.Len())
	for i := 0; i < view.Len(); i++ {
		points = append(points, ChartPoint{
			Label: view.Dimension(i, DimName),
			Value: RoundTo2(view.Measure(i, MeasureCostPerHectare)),
		})
	}

	return &ChartConfig{
		ChartType: "bar",
		Title:     "Total cost per hectare (" + cfg.Currency + ")",
		XAxis:     LabelForDimension(DimName),
		YAxis:     LabelForDimension(MeasureCostPerHectare),
		Series: []ChartSeries{{
			Name:  LabelForDimension(MeasureCostPerHectare),
			Data:  points,
			Color: "#d62728",
		}},
		Colors:   []string{"#d62728"},
		ShowGrid: true,
	}
}

// BuildEfficiencyChart plots cost per N unit for the ranked products only.
// Products without a defined efficiency never appear.
func BuildEfficiencyChart(view RecordView, cfg *config) *ChartConfig {
	ranked, _ := RankByEfficiency(view)
	if ranked.Len() == 0 {
		return nil
	}

	categories := DistinctValues(view, DimCategory)
	palette := make(map[string]string, len(categories))
	for i, c := range categories {
		palette[normalizeValue(c)] = defaultColors[i%len(defaultColors)]
	}

	points := make([]ChartPoint, 0, ranked.Len())
	for i := 0; i < ranked.Len(); i++ {
		category := ranked.Dimension(i, DimCategory)
		points = append(points, ChartPoint{
			Label: ranked.Dimension(i, DimName),
			Value: RoundTo2(ranked.Measure(i, MeasureCostPerNUnit)),
			Group: category,
			Color: palette[normalizeValue(category)],
		})
	}

	return &ChartConfig{
		ChartType: "bar",
		Title:     "Cost per unit of nitrogen per hectare (" + cfg.Currency + ")",
		XAxis:     LabelForDimension(DimName),
		YAxis:     LabelForDimension(MeasureCostPerNUnit) + " (" + cfg.Currency + ")",
		Series: []ChartSeries{{
			Name: LabelForDimension(MeasureCostPerNUnit),
			Data: points,
		}},
		Colors:     assignColors(len(categories)),
		ShowLegend: len(categories) > 1,
		ShowGrid:   true,
	}
}

func assignColors(count int) []string {
	colors := make([]string, count)
	for i := 0; i < count; i++ {
		colors[i] = defaultColors[i%len(defaultColors)]
	}
	return colors
}
