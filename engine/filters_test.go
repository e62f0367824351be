package engine

import (
	"net/url"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestApplyFilters_SingleCategory(t *testing.T) {
	table, _ := sampleTable(t)
	sel := NewSelection(map[string][]string{DimCategory: {"Premium"}})

	got := names(ApplyFilters(table, sel))
	if diff := cmp.Diff([]string{"ShieldN", "Balance"}, got); diff != "" {
		t.Errorf("Premium filter mismatch (-want +got):\n%s", diff)
	}
}

func TestApplyFilters_EmptySelectionIsPassThrough(t *testing.T) {
	table, _ := sampleTable(t)

	for name, sel := range map[string]Selection{
		"zero value":   {},
		"empty map":    NewSelection(map[string][]string{}),
		"blank values": NewSelection(map[string][]string{DimCategory: {"", "  "}}),
		"empty slices": {Dimensions: map[string][]string{DimCategory: {}, DimTechnology: nil}},
	} {
		t.Run(name, func(t *testing.T) {
			got := ApplyFilters(table, sel)
			assert.Equal(t, table.Len(), got.Len())
			if diff := cmp.Diff(names(table), names(got)); diff != "" {
				t.Errorf("order changed (-want +got):\n%s", diff)
			}
		})
	}
}

func TestApplyFilters_ORWithinANDAcross(t *testing.T) {
	table, _ := sampleTable(t)
	sel := NewSelection(map[string][]string{
		DimManufacturer: {"AgroA", "AgroB"},
		DimTechnology:   {"Conventional"},
	})

	got := names(ApplyFilters(table, sel))
	if diff := cmp.Diff([]string{"UreaX", "PureP", "Cheap"}, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestApplyFilters_CaseInsensitiveTrimmed(t *testing.T) {
	table, _ := sampleTable(t)
	sel := NewSelection(map[string][]string{DimCategory: {" ECONOMIC"}})

	got := names(ApplyFilters(table, sel))
	if diff := cmp.Diff([]string{"UreaX", "PureP", "Cheap"}, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestApplyFilters_NoMatch(t *testing.T) {
	table, _ := sampleTable(t)
	sel := NewSelection(map[string][]string{DimCategory: {"Organic"}})
	assert.Equal(t, 0, ApplyFilters(table, sel).Len())
}

func TestApplyFilters_Idempotent(t *testing.T) {
	table, _ := sampleTable(t)
	selections := []Selection{
		NewSelection(map[string][]string{DimCategory: {"Premium"}}),
		NewSelection(map[string][]string{DimManufacturer: {"AgroB"}, DimTechnology: {"Conventional"}}),
		NewSelection(map[string][]string{DimCategory: {"Economic", "Premium"}, DimManufacturer: {"AgroC"}}),
		{},
	}
	for _, sel := range selections {
		once := ApplyFilters(table, sel)
		twice := ApplyFilters(once, sel)
		if diff := cmp.Diff(names(once), names(twice)); diff != "" {
			t.Errorf("filter not idempotent for %v (-once +twice):\n%s", sel.Dimensions, diff)
		}
	}
}

func TestApplyFilters_DoesNotMutateBase(t *testing.T) {
	table, _ := sampleTable(t)
	before := Records(table)

	_ = ApplyFilters(table, NewSelection(map[string][]string{DimCategory: {"Premium"}}))

	after := Records(table)
	assert.Equal(t, names(table), []string{"UreaX", "PureP", "ShieldN", "Balance", "Cheap"})
	assert.Equal(t, len(before), len(after))
	for i := range before {
		assert.Equal(t, before[i].Name, after[i].Name)
		assert.Equal(t, before[i].Row, after[i].Row)
	}
}

func TestDistinctValues(t *testing.T) {
	table, _ := sampleTable(t)

	// "economic " collapses onto the first spelling.
	assert.Equal(t, []string{"Economic", "Premium"}, DistinctValues(table, DimCategory))
	assert.Equal(t, []string{"AgroA", "AgroB", "AgroC"}, DistinctValues(table, DimManufacturer))

	empty := BindRecords(nil)
	got := DistinctValues(empty, DimCategory)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestFilterOptions(t *testing.T) {
	table, _ := sampleTable(t)
	opts := FilterOptions(table)
	assert.Len(t, opts, len(FilterDimensions))
	assert.Equal(t, []string{"Conventional", "Protected", "Controlled release"}, opts[DimTechnology])
}

func TestSelectionFromQuery(t *testing.T) {
	q := url.Values{
		"category":     {"Premium", " "},
		"manufacturer": {"AgroA"},
		"colour":       {"green"},
	}
	sel := SelectionFromQuery(q)

	assert.Equal(t, []string{"Premium"}, sel.Values(DimCategory))
	assert.Equal(t, []string{"AgroA"}, sel.Values(DimManufacturer))
	assert.False(t, sel.HasFilter(DimTechnology))
	assert.False(t, sel.HasFilter("colour"))

	round := SelectionFromQuery(sel.Query())
	if diff := cmp.Diff(sel, round); diff != "" {
		t.Errorf("query round trip mismatch (-want +got):\n%s", diff)
	}
}
