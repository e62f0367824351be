package schema

import (
	"sort"

	"github.com/spektr-org/fertdash/engine"
)

// ============================================================================
// SCHEMA — The columns a fertilizer dataset must (or may) carry
// ============================================================================
// Each canonical column lists the normalized header spellings it accepts
// (aliases) and keyword rules for headers that only contain the right words
// ("Custo Total por Ha (€)" → cost_per_hectare). The loader resolves raw CSV
// headers against this description before reading a single value.
// ============================================================================

// ColumnKind tells whether a column holds text or numbers.
type ColumnKind string

const (
	KindDimension ColumnKind = "dimension"
	KindMeasure   ColumnKind = "measure"
)

// ColumnSpec describes one canonical column.
type ColumnSpec struct {
	Key         string     `json:"key" yaml:"key"`
	DisplayName string     `json:"displayName" yaml:"display_name"`
	Kind        ColumnKind `json:"kind" yaml:"kind"`
	Required    bool       `json:"required" yaml:"required"`
	// Aliases are compared after NormalizeHeader on both sides.
	Aliases []string `json:"aliases" yaml:"aliases"`
	// Keywords are all-of rules: a header matches a rule when every keyword
	// is a prefix of one of its normalized tokens.
	Keywords [][]string `json:"keywords,omitempty" yaml:"keywords,omitempty"`
}

// Config describes the complete shape of a fertilizer dataset.
type Config struct {
	Name    string       `json:"name"`
	Columns []ColumnSpec `json:"columns"`
}

// Default returns the fertilizer schema, including the Portuguese headers
// of the original spreadsheet.
func Default() Config {
	return Config{
		Name: "Fertilizer comparison",
		Columns: []ColumnSpec{
			{
				Key: engine.DimName, DisplayName: "Product", Kind: KindDimension, Required: true,
				Aliases: []string{"produto", "product", "product_name", "nome", "name", "fertilizante", "fertilizer"},
			},
			{
				Key: engine.DimCategory, DisplayName: "Category", Kind: KindDimension, Required: true,
				Aliases: []string{"categoria", "category", "segment", "segmento"},
			},
			{
				Key: engine.DimManufacturer, DisplayName: "Manufacturer", Kind: KindDimension, Required: true,
				Aliases: []string{"fabricante", "manufacturer", "brand", "marca", "producer", "maker"},
			},
			{
				Key: engine.DimTechnology, DisplayName: "Technology", Kind: KindDimension, Required: true,
				Aliases: []string{"tecnologia", "technology", "tech"},
			},
			{
				Key: engine.MeasureNPercent, DisplayName: "N (%)", Kind: KindMeasure, Required: true,
				Aliases: []string{"n", "n_pct", "n_percent", "n_percentage", "nitrogen", "nitrogenio", "azoto"},
			},
			{
				Key: engine.MeasurePPercent, DisplayName: "P (%)", Kind: KindMeasure, Required: true,
				Aliases: []string{"p", "p_pct", "p_percent", "p_percentage", "phosphorus", "fosforo", "p2o5"},
			},
			{
				Key: engine.MeasureKPercent, DisplayName: "K (%)", Kind: KindMeasure, Required: true,
				Aliases: []string{"k", "k_pct", "k_percent", "k_percentage", "potassium", "potassio", "k2o"},
			},
			{
				Key: engine.MeasureBagKg, DisplayName: "Bag size (kg)", Kind: KindMeasure,
				Aliases:  []string{"saca_kg", "bag_kg", "bag_size", "bag_size_kg", "peso_saca"},
				Keywords: [][]string{{"saca", "kg"}, {"bag", "kg"}},
			},
			{
				Key: engine.MeasureKgPerHectare, DisplayName: "kg/ha", Kind: KindMeasure, Required: true,
				Aliases:  []string{"kg_por_ha", "kg_ha", "kg_per_ha", "kg_per_hectare", "dose_kg_ha", "application_rate", "rate_kg_ha"},
				Keywords: [][]string{{"kg", "ha"}},
			},
			{
				Key: engine.MeasureCostPerHectare, DisplayName: "Cost per hectare", Kind: KindMeasure, Required: true,
				Aliases:  []string{"custo_por_ha", "custo_ha", "custo_total_por_ha", "custo_total_ha", "cost_per_ha", "cost_per_hectare", "cost_ha", "total_cost_per_ha"},
				Keywords: [][]string{{"total", "ha"}, {"custo", "ha"}, {"cost", "ha"}},
			},
			{
				Key: engine.MeasureBagPrice, DisplayName: "Price per bag", Kind: KindMeasure,
				Aliases:  []string{"preco_saca", "price_per_bag", "bag_price", "preco_estimado_saca"},
				Keywords: [][]string{{"pre", "est"}, {"pre", "saca"}, {"price", "bag"}},
			},
		},
	}
}

// WithAliases returns a copy of the config with extra aliases appended to
// the named columns. Unknown keys are returned in the second value.
func (c Config) WithAliases(extra map[string][]string) (Config, []string) {
	out := Config{Name: c.Name, Columns: make([]ColumnSpec, len(c.Columns))}
	copy(out.Columns, c.Columns)

	known := make(map[string]bool, len(c.Columns))
	for i := range out.Columns {
		spec := &out.Columns[i]
		known[spec.Key] = true
		if add := extra[spec.Key]; len(add) > 0 {
			spec.Aliases = append(append([]string{}, spec.Aliases...), add...)
		}
	}

	var unknown []string
	for key := range extra {
		if !known[key] {
			unknown = append(unknown, key)
		}
	}
	sort.Strings(unknown)
	return out, unknown
}

// Column returns the spec for a canonical key.
func (c Config) Column(key string) (ColumnSpec, bool) {
	for _, spec := range c.Columns {
		if spec.Key == key {
			return spec, true
		}
	}
	return ColumnSpec{}, false
}

// RequiredKeys returns the canonical keys that must be present.
func (c Config) RequiredKeys() []string {
	var keys []string
	for _, spec := range c.Columns {
		if spec.Required {
			keys = append(keys, spec.Key)
		}
	}
	return keys
}

// DimensionKeys returns all dimension keys.
func (c Config) DimensionKeys() []string {
	return c.keysOf(KindDimension)
}

// MeasureKeys returns all measure keys.
func (c Config) MeasureKeys() []string {
	return c.keysOf(KindMeasure)
}

func (c Config) keysOf(kind ColumnKind) []string {
	var keys []string
	for _, spec := range c.Columns {
		if spec.Kind == kind {
			keys = append(keys, spec.Key)
		}
	}
	return keys
}
