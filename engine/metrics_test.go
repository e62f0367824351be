package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeMetrics_UreaX(t *testing.T) {
	out, warnings := ComputeMetrics([]FertilizerRecord{
		{Name: "UreaX", NPercent: 46, KgPerHectare: 200, CostPerHectare: 80},
	})
	require.Len(t, out, 1)
	assert.Empty(t, warnings)

	assert.InDelta(t, 92.0, out[0].NUnitsPerHectare, 1e-9)
	assert.InDelta(t, 0.8696, out[0].CostPerNUnit, 1e-4)
	assert.True(t, out[0].HasEfficiency())
}

func TestComputeMetrics_PurePIsSentinel(t *testing.T) {
	out, warnings := ComputeMetrics([]FertilizerRecord{
		{Name: "PureP", PPercent: 40, KgPerHectare: 150, CostPerHectare: 60},
	})
	require.Len(t, out, 1)

	assert.Equal(t, 0.0, out[0].NUnitsPerHectare)
	assert.True(t, math.IsNaN(out[0].CostPerNUnit))
	assert.False(t, out[0].HasEfficiency())

	require.Len(t, warnings, 1)
	assert.Equal(t, WarnUndefinedEfficiency, warnings[0].Kind)
	assert.Equal(t, "PureP", warnings[0].Product)
	assert.Equal(t, MeasureCostPerNUnit, warnings[0].Field)
	assert.Contains(t, warnings[0].Message, "PureP")
}

func TestComputeMetrics_NUnitsIdentity(t *testing.T) {
	out, _ := ComputeMetrics(sampleRecords())
	for _, r := range out {
		assert.InDelta(t, r.KgPerHectare*r.NPercent/100, r.NUnitsPerHectare, 1e-9, r.Name)
		if r.NUnitsPerHectare == 0 {
			assert.False(t, r.HasEfficiency(), r.Name)
		} else {
			assert.InDelta(t, r.CostPerHectare/r.NUnitsPerHectare, r.CostPerNUnit, 1e-9, r.Name)
		}
	}
}

func TestComputeMetrics_DoesNotMutateInput(t *testing.T) {
	in := sampleRecords()
	in[0].Row = 42
	_, _ = ComputeMetrics(in)

	assert.Equal(t, 42, in[0].Row)
	assert.Equal(t, 0.0, in[0].NUnitsPerHectare)
	assert.Equal(t, 0.0, in[0].CostPerNUnit)
}

func TestComputeMetrics_AssignsRows(t *testing.T) {
	out, warnings := ComputeMetrics(sampleRecords())
	for i, r := range out {
		assert.Equal(t, i, r.Row)
	}
	require.Len(t, warnings, 1)
	assert.Equal(t, 1, warnings[0].Row)
}

func TestCostPerNUnit(t *testing.T) {
	_, ok := CostPerNUnit(80, 0)
	assert.False(t, ok)
	_, ok = CostPerNUnit(80, math.NaN())
	assert.False(t, ok)
	_, ok = CostPerNUnit(80, -1)
	assert.False(t, ok)

	v, ok := CostPerNUnit(0, 10)
	assert.True(t, ok)
	assert.Equal(t, 0.0, v)
}

func TestComputeMetrics_UnnamedProductWarning(t *testing.T) {
	_, warnings := ComputeMetrics([]FertilizerRecord{{}, {}})
	require.Len(t, warnings, 2)
	assert.Contains(t, warnings[1].Message, "row 2")
}
