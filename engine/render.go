package engine

// ============================================================================
// RENDER — One interaction: filter → build chart-ready output
// ============================================================================
// Entry point: Render(view, selection, opts...)
//
// Pipeline:
//   1. Collect control options from the unfiltered view
//   2. Apply the selection → SubView
//   3. Empty subset → notice, no charts
//   4. Build summary, charts, ranking, details
//   5. Keep the warnings that belong to the subset
//
// Render is a pure function of its inputs: no I/O, no shared state, and the
// view is never modified. Callers may invoke it concurrently.
// ============================================================================

// DefaultTitle is the dashboard heading.
const DefaultTitle = "Fertilizer comparison: N-P-K and costs"

// EmptyNotice is shown when a selection matches no products.
const EmptyNotice = "No products match the selected filters. Clear a filter to see more products."

// EfficiencyNote explains the efficiency chart.
const EfficiencyNote = "This chart shows how much you pay for each unit (kg) of nitrogen actually " +
	"applied in the field. It divides the total cost per hectare by the nitrogen units per hectare. " +
	"Products that supply no nitrogen have no cost per N unit and are listed after the ranking."

// Render filters the view with the selection and builds everything the
// presentation layer draws.
func Render(view RecordView, sel Selection, opts ...Option) *Result {
	cfg := applyOptions(opts)

	result := &Result{
		Title:     cfg.Title,
		Total:     view.Len(),
		Selection: sel,
		Options:   FilterOptions(view),
		Currency:  cfg.Currency,
	}

	filtered := ApplyFilters(view, sel)
	result.Matched = filtered.Len()

	if filtered.Len() == 0 {
		result.Empty = true
		result.Notice = EmptyNotice
		if view.Len() == 0 {
			result.Notice = "The dataset has no products."
		}
		return result
	}

	result.Summary = BuildSummary(filtered, cfg)
	result.NPKChart = BuildNPKChart(filtered, cfg)
	result.CostChart = BuildCostChart(filtered, cfg)
	result.EfficiencyChart = BuildEfficiencyChart(filtered, cfg)
	result.Ranking = BuildRanking(filtered)
	result.Details = BuildDetailsTable(filtered, cfg)
	result.Warnings = warningsFor(filtered, cfg.Warnings)
	result.Note = EfficiencyNote

	return result
}

// warningsFor keeps the warnings whose row is part of the view, in the
// original warning order.
func warningsFor(view RecordView, warnings []ComputationWarning) []ComputationWarning {
	if len(warnings) == 0 {
		return nil
	}
	rows := make(map[int]bool, view.Len())
	for i := 0; i < view.Len(); i++ {
		rows[view.Record(i).Row] = true
	}
	var out []ComputationWarning
	for _, w := range warnings {
		if rows[w.Row] {
			out = append(out, w)
		}
	}
	return out
}
