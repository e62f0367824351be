package engine

// ============================================================================
// SUMMARY BUILDER — KPI strip for the filtered view
// ============================================================================

// BuildSummary computes the headline numbers for the current subset.
func BuildSummary(view RecordView, cfg *config) *SummaryData {
	s := &SummaryData{
		Products: view.Len(),
		Display:  make(map[string]string),
	}
	s.Display["products"] = FormatInt(s.Products)
	if view.Len() == 0 {
		return s
	}

	s.AvgCostPerHectare = RoundTo2(AvgMeasure(view, MeasureCostPerHectare))
	s.MinCostPerHectare = RoundTo2(MinMeasure(view, MeasureCostPerHectare))
	s.MaxCostPerHectare = RoundTo2(MaxMeasure(view, MeasureCostPerHectare))
	s.Display["avgCostPerHectare"] = FormatCurrency(s.AvgCostPerHectare, cfg.Currency)
	s.Display["minCostPerHectare"] = FormatCurrency(s.MinCostPerHectare, cfg.Currency)
	s.Display["maxCostPerHectare"] = FormatCurrency(s.MaxCostPerHectare, cfg.Currency)

	ranked, _ := RankByEfficiency(view)
	if ranked.Len() > 0 {
		best := ranked.Record(0)
		s.CheapestNProduct = best.Name
		s.CheapestNUnitCost = RoundTo2(best.CostPerNUnit)
		s.Display["cheapestNProduct"] = best.Name
		s.Display["cheapestNUnitCost"] = FormatCurrency(s.CheapestNUnitCost, cfg.Currency)
	} else {
		s.Display["cheapestNProduct"] = "n/a"
		s.Display["cheapestNUnitCost"] = "n/a"
	}
	return s
}
