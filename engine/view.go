package engine

import "math"

// ============================================================================
// RECORD VIEW — Zero-Copy Data Access Interface
// ============================================================================
// The engine reads the dataset through this interface and never mutates it.
//
// Implementations:
//   DomainView[T]  reads typed structs via accessor functions (zero-copy)
//   SubView        filtered or reordered subset (indices into parent)
//
// The fertilizer accessors are registered once in fertilizerAdapter; the
// loader binds each freshly computed table through BindRecords.
// ============================================================================

// RecordView provides indexed access to a dataset.
// The engine calls Dimension/Measure in tight loops; keep implementations fast.
type RecordView interface {
	Len() int
	Record(index int) FertilizerRecord
	Dimension(index int, key string) string
	Measure(index int, key string) float64
	DimensionKeys() []string // available dimension keys
	MeasureKeys() []string   // available measure keys
}

// ============================================================================
// SUB VIEW — filtered subset (zero-copy)
// ============================================================================

// SubView is a subset of a parent RecordView, in the order of its indices.
// Holds indices into the parent; no data copy.
type SubView struct {
	parent  RecordView
	indices []int
}

func newSubView(parent RecordView, indices []int) RecordView {
	return &SubView{parent: parent, indices: indices}
}

func (v *SubView) Len() int { return len(v.indices) }

func (v *SubView) Record(i int) FertilizerRecord {
	if i < 0 || i >= len(v.indices) {
		return FertilizerRecord{}
	}
	return v.parent.Record(v.indices[i])
}

func (v *SubView) Dimension(i int, key string) string {
	if i < 0 || i >= len(v.indices) {
		return ""
	}
	return v.parent.Dimension(v.indices[i], key)
}

func (v *SubView) Measure(i int, key string) float64 {
	if i < 0 || i >= len(v.indices) {
		return 0
	}
	return v.parent.Measure(v.indices[i], key)
}

func (v *SubView) DimensionKeys() []string { return v.parent.DimensionKeys() }
func (v *SubView) MeasureKeys() []string   { return v.parent.MeasureKeys() }

// ============================================================================
// DOMAIN ADAPTER — Zero-copy typed struct access
// ============================================================================

// DomainAdapter builds a RecordView from typed structs.
// Declare once, bind many times.
type DomainAdapter[T any] struct {
	dimOrder []string
	mesOrder []string
	dims     map[string]func(T) string
	meas     map[string]func(T) float64
}

// NewDomainAdapter creates a new adapter for type T.
func NewDomainAdapter[T any]() *DomainAdapter[T] {
	return &DomainAdapter[T]{
		dims: make(map[string]func(T) string),
		meas: make(map[string]func(T) float64),
	}
}

// Dimension registers a dimension accessor.
func (a *DomainAdapter[T]) Dimension(key string, fn func(T) string) *DomainAdapter[T] {
	if _, exists := a.dims[key]; !exists {
		a.dimOrder = append(a.dimOrder, key)
	}
	a.dims[key] = fn
	return a
}

// Measure registers a measure accessor.
func (a *DomainAdapter[T]) Measure(key string, fn func(T) float64) *DomainAdapter[T] {
	if _, exists := a.meas[key]; !exists {
		a.mesOrder = append(a.mesOrder, key)
	}
	a.meas[key] = fn
	return a
}

// Bind creates a DomainView over a data slice. The slice is cloned so later
// writes by the caller cannot leak into the view.
func (a *DomainAdapter[T]) Bind(data []T) *DomainView[T] {
	owned := make([]T, len(data))
	copy(owned, data)
	return &DomainView[T]{
		data:     owned,
		dims:     a.dims,
		meas:     a.meas,
		dimKeys:  a.dimOrder,
		measKeys: a.mesOrder,
	}
}

// DomainView reads typed struct fields via registered accessor functions.
type DomainView[T any] struct {
	data     []T
	dims     map[string]func(T) string
	meas     map[string]func(T) float64
	dimKeys  []string
	measKeys []string
}

func (v *DomainView[T]) Len() int { return len(v.data) }

// Item returns the i-th element by value.
func (v *DomainView[T]) Item(i int) T {
	var zero T
	if i < 0 || i >= len(v.data) {
		return zero
	}
	return v.data[i]
}

func (v *DomainView[T]) Dimension(i int, key string) string {
	if i < 0 || i >= len(v.data) {
		return ""
	}
	if fn, ok := v.dims[key]; ok {
		return fn(v.data[i])
	}
	return ""
}

func (v *DomainView[T]) Measure(i int, key string) float64 {
	if i < 0 || i >= len(v.data) {
		return 0
	}
	if fn, ok := v.meas[key]; ok {
		return fn(v.data[i])
	}
	return 0
}

func (v *DomainView[T]) DimensionKeys() []string { return v.dimKeys }
func (v *DomainView[T]) MeasureKeys() []string   { return v.measKeys }

// ============================================================================
// FERTILIZER TABLE
// ============================================================================

var fertilizerAdapter = NewDomainAdapter[FertilizerRecord]().
	Dimension(DimName, func(r FertilizerRecord) string { return r.Name }).
	Dimension(DimCategory, func(r FertilizerRecord) string { return r.Category }).
	Dimension(DimManufacturer, func(r FertilizerRecord) string { return r.Manufacturer }).
	Dimension(DimTechnology, func(r FertilizerRecord) string { return r.Technology }).
	Measure(MeasureNPercent, func(r FertilizerRecord) float64 { return r.NPercent }).
	Measure(MeasurePPercent, func(r FertilizerRecord) float64 { return r.PPercent }).
	Measure(MeasureKPercent, func(r FertilizerRecord) float64 { return r.KPercent }).
	Measure(MeasureKgPerHectare, func(r FertilizerRecord) float64 { return r.KgPerHectare }).
	Measure(MeasureCostPerHectare, func(r FertilizerRecord) float64 { return r.CostPerHectare }).
	Measure(MeasureBagPrice, func(r FertilizerRecord) float64 { return r.BagPrice }).
	Measure(MeasureBagKg, func(r FertilizerRecord) float64 { return r.BagKg }).
	Measure(MeasureNUnitsPerHectare, func(r FertilizerRecord) float64 { return r.NUnitsPerHectare }).
	Measure(MeasureCostPerNUnit, func(r FertilizerRecord) float64 {
		if !r.HasEfficiency() {
			return math.NaN()
		}
		return r.CostPerNUnit
	})

// Table is the read-only fertilizer dataset.
type Table struct {
	*DomainView[FertilizerRecord]
}

// BindRecords wraps records in a read-only Table.
func BindRecords(records []FertilizerRecord) *Table {
	return &Table{DomainView: fertilizerAdapter.Bind(records)}
}

// Record returns the i-th record by value.
func (t *Table) Record(i int) FertilizerRecord { return t.Item(i) }

// Records returns a copy of every record in the view, in view order.
func Records(view RecordView) []FertilizerRecord {
	out := make([]FertilizerRecord, view.Len())
	for i := range out {
		out[i] = view.Record(i)
	}
	return out
}
