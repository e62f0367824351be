package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

// ============================================================================
// TEST FIXTURES
// ============================================================================

func sampleRecords() []FertilizerRecord {
	return []FertilizerRecord{
		{Name: "UreaX", Category: "Economic", Manufacturer: "AgroA", Technology: "Conventional", NPercent: 46, KgPerHectare: 200, CostPerHectare: 80},
		{Name: "PureP", Category: "Economic", Manufacturer: "AgroB", Technology: "Conventional", PPercent: 40, KgPerHectare: 150, CostPerHectare: 60},
		{Name: "ShieldN", Category: "Premium", Manufacturer: "AgroA", Technology: "Protected", NPercent: 45, KgPerHectare: 180, CostPerHectare: 150, BagPrice: 210, BagKg: 50},
		{Name: "Balance", Category: "Premium", Manufacturer: "AgroC", Technology: "Controlled release", NPercent: 20, PPercent: 10, KPercent: 20, KgPerHectare: 300, CostPerHectare: 120},
		{Name: "Cheap", Category: "economic ", Manufacturer: "AgroB", Technology: "Conventional", NPercent: 32, KgPerHectare: 250, CostPerHectare: 60},
	}
}

// sampleTable returns the fixture records after ComputeMetrics, bound as a
// table, together with the warnings.
func sampleTable(t *testing.T) (*Table, []ComputationWarning) {
	t.Helper()
	records, warnings := ComputeMetrics(sampleRecords())
	require.Len(t, records, 5)
	return BindRecords(records), warnings
}

func names(view RecordView) []string {
	out := make([]string, view.Len())
	for i := 0; i < view.Len(); i++ {
		out[i] = view.Record(i).Name
	}
	return out
}

func isNaN(v float64) bool { return math.IsNaN(v) }
