package loader

import (
	"fmt"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/spektr-org/fertdash/engine"
	"github.com/spektr-org/fertdash/schema"
)

// ============================================================================
// CSV — Decoded text → header + string rows → FertilizerRecords
// ============================================================================
// The dataframe reads every cell as a string with no header handling so raw
// headers reach the schema untouched (duplicates included). Typing happens
// here, per canonical column, with visible coercion warnings.
// ============================================================================

// readTable parses decoded text into a header row and data rows.
func readTable(text string, delimiter rune) ([]string, [][]string, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil, ErrEmptyFile
	}

	df := dataframe.ReadCSV(strings.NewReader(text),
		dataframe.HasHeader(false),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.WithDelimiter(delimiter),
		dataframe.NaNValues(nil),
	)
	if df.Err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrMalformedCSV, df.Err)
	}

	// Records() starts with the dataframe's generated column names.
	records := df.Records()
	if len(records) < 2 {
		return nil, nil, ErrEmptyFile
	}
	return records[1], records[2:], nil
}

// buildRecords converts string rows into records using the resolved mapping.
// Every coerced numeric cell yields a WarnCoercedValue warning.
func buildRecords(m *schema.Mapping, rows [][]string) ([]engine.FertilizerRecord, []engine.ComputationWarning) {
	records := make([]engine.FertilizerRecord, 0, len(rows))
	var warnings []engine.ComputationWarning

	text := func(row []string, key string) string {
		idx := m.Index(key)
		if idx < 0 || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	for i, row := range rows {
		rec := engine.FertilizerRecord{
			Row:          i,
			Name:         text(row, engine.DimName),
			Category:     text(row, engine.DimCategory),
			Manufacturer: text(row, engine.DimManufacturer),
			Technology:   text(row, engine.DimTechnology),
		}

		number := func(key string, required bool) float64 {
			if !m.Has(key) {
				return 0
			}
			raw := text(row, key)
			if v, ok := schema.ParseMeasure(raw); ok {
				return v
			}
			if raw == "" && !required {
				return 0
			}
			warnings = append(warnings, engine.ComputationWarning{
				Row:     i,
				Product: rec.Name,
				Field:   key,
				Kind:    engine.WarnCoercedValue,
				Message: coercionMessage(rec.Name, i, key, raw),
			})
			return 0
		}

		rec.NPercent = number(engine.MeasureNPercent, true)
		rec.PPercent = number(engine.MeasurePPercent, true)
		rec.KPercent = number(engine.MeasureKPercent, true)
		rec.KgPerHectare = number(engine.MeasureKgPerHectare, true)
		rec.CostPerHectare = number(engine.MeasureCostPerHectare, true)
		rec.BagPrice = number(engine.MeasureBagPrice, false)
		rec.BagKg = number(engine.MeasureBagKg, false)

		records = append(records, rec)
	}
	return records, warnings
}

func coercionMessage(name string, row int, key, raw string) string {
	who := name
	if who == "" {
		who = fmt.Sprintf("row %d", row+1)
	}
	if raw == "" {
		return fmt.Sprintf("%s: %s is blank; using 0", who, key)
	}
	return fmt.Sprintf("%s: %s value %q is not a non-negative number; using 0", who, key, raw)
}
