package engine

import (
	"fmt"
	"math"
)

// ============================================================================
// METRIC CALCULATOR — Derived economic fields
// ============================================================================
// n_units_per_hectare = kg_per_hectare × n_percent / 100
// cost_per_n_unit     = cost_per_hectare / n_units_per_hectare
//
// Percentages arrive in the 0–100 range and are divided by 100 exactly once.
// A product that supplies no nitrogen has an undefined cost per N unit: it
// gets the NaN sentinel and a warning, never a division error or a zero.
// ============================================================================

// ComputeMetrics returns a copy of records with the derived fields filled in,
// plus one warning per row whose efficiency is undefined. Row positions are
// (re)assigned from slice order. The input slice is not modified.
func ComputeMetrics(records []FertilizerRecord) ([]FertilizerRecord, []ComputationWarning) {
	out := make([]FertilizerRecord, len(records))
	var warnings []ComputationWarning

	for i, r := range records {
		r.Row = i
		r.NUnitsPerHectare = NUnitsPerHectare(r.KgPerHectare, r.NPercent)
		cost, ok := CostPerNUnit(r.CostPerHectare, r.NUnitsPerHectare)
		if ok {
			r.CostPerNUnit = cost
		} else {
			r.CostPerNUnit = math.NaN()
			warnings = append(warnings, ComputationWarning{
				Row:     i,
				Product: r.Name,
				Field:   MeasureCostPerNUnit,
				Kind:    WarnUndefinedEfficiency,
				Message: fmt.Sprintf("%s supplies no nitrogen per hectare; cost per N unit is undefined", displayName(r.Name, i)),
			})
		}
		out[i] = r
	}

	return out, warnings
}

// NUnitsPerHectare returns the kilograms of nitrogen applied per hectare.
func NUnitsPerHectare(kgPerHectare, nPercent float64) float64 {
	return kgPerHectare * (nPercent / 100)
}

// CostPerNUnit divides the cost per hectare by the nitrogen units per
// hectare. ok is false when the ratio is undefined.
func CostPerNUnit(costPerHectare, nUnits float64) (float64, bool) {
	if nUnits <= 0 || math.IsNaN(nUnits) || math.IsInf(nUnits, 0) {
		return 0, false
	}
	v := costPerHectare / nUnits
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func displayName(name string, row int) string {
	if name == "" {
		return fmt.Sprintf("row %d", row+1)
	}
	return name
}
