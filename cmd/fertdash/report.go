package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/spf13/cobra"

	"github.com/spektr-org/fertdash/engine"
	"github.com/spektr-org/fertdash/loader"
)

type reportFlags struct {
	categories    []string
	manufacturers []string
	technologies  []string
	format        string
	out           string
}

func newReportCmd(a *app) *cobra.Command {
	f := &reportFlags{}
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Render the comparison once and print it",
		Long: `Render the comparison for a selection and print it.

Formats:
  text      Summary, ranking and bars for the terminal (default)
  json      The full render result
  pretty    The full render result, indented
  csv       One row per product (ready for Sheets/Excel)`,
		Example: `  fertdash report --data fertilizantes.csv --category Premium
  fertdash report --manufacturer AgroA --manufacturer AgroB --format csv --out agro.csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			if f.out != "" {
				file, err := os.Create(f.out)
				if err != nil {
					return fmt.Errorf("failed to create output file: %w", err)
				}
				defer file.Close()
				w = file
			}
			return a.report(cmd.Context(), w, f)
		},
	}
	cmd.Flags().StringSliceVar(&f.categories, "category", nil, "Keep only these categories (repeatable)")
	cmd.Flags().StringSliceVar(&f.manufacturers, "manufacturer", nil, "Keep only these manufacturers (repeatable)")
	cmd.Flags().StringSliceVar(&f.technologies, "technology", nil, "Keep only these technologies (repeatable)")
	cmd.Flags().StringVarP(&f.format, "format", "f", "text", "Output format: text, json, pretty, csv")
	cmd.Flags().StringVarP(&f.out, "out", "o", "", "Write output to file instead of stdout")
	return cmd
}

// reportOutput is the JSON shape of a report.
type reportOutput struct {
	Dataset *loader.Dataset `json:"dataset"`
	Result  *engine.Result  `json:"result"`
}

func (a *app) report(ctx context.Context, w io.Writer, f *reportFlags) error {
	if ctx == nil {
		ctx = context.Background()
	}
	l, err := a.newLoader()
	if err != nil {
		return err
	}
	ds, err := l.Load(ctx, a.cfg.Data.Path)
	if err != nil {
		return err
	}

	sel := engine.NewSelection(map[string][]string{
		engine.DimCategory:     f.categories,
		engine.DimManufacturer: f.manufacturers,
		engine.DimTechnology:   f.technologies,
	})
	res := engine.Render(ds.View, sel, a.sessionOptions().EngineOptions(ds.Warnings)...)

	switch f.format {
	case "text":
		return writeText(w, ds, res)
	case "json", "pretty":
		return writeJSON(w, reportOutput{Dataset: ds, Result: res}, f.format)
	case "csv":
		return writeCSV(w, engine.ApplyFilters(ds.View, sel))
	}
	return fmt.Errorf("unknown format %q (valid: text, json, pretty, csv)", f.format)
}

// ============================================================================
// CSV OUTPUT — one row per product, raw numbers
// ============================================================================

var csvColumns = []string{
	engine.DimName, engine.DimCategory, engine.DimManufacturer, engine.DimTechnology,
	engine.MeasureNPercent, engine.MeasurePPercent, engine.MeasureKPercent,
	engine.MeasureKgPerHectare, engine.MeasureBagPrice, engine.MeasureBagKg,
	engine.MeasureCostPerHectare, engine.MeasureNUnitsPerHectare, engine.MeasureCostPerNUnit,
	"efficiency_rank",
}

func writeCSV(w io.Writer, view engine.RecordView) error {
	header := make([]string, len(csvColumns))
	for i, key := range csvColumns {
		header[i] = engine.LabelForDimension(key)
	}

	rank := make(map[int]int)
	ranked, _ := engine.RankByEfficiency(view)
	for i := 0; i < ranked.Len(); i++ {
		rank[ranked.Record(i).Row] = i + 1
	}

	records := [][]string{header}
	for i := 0; i < view.Len(); i++ {
		r := view.Record(i)
		row := []string{r.Name, r.Category, r.Manufacturer, r.Technology}
		for _, key := range csvColumns[4 : len(csvColumns)-2] {
			row = append(row, fmtNum(view.Measure(i, key)))
		}
		if r.HasEfficiency() {
			row = append(row, fmtNum(r.CostPerNUnit), fmt.Sprintf("%d", rank[r.Row]))
		} else {
			row = append(row, "", "")
		}
		records = append(records, row)
	}

	if len(records) == 1 {
		// gota cannot build a frame without rows
		_, err := fmt.Fprintln(w, strings.Join(header, ","))
		return err
	}
	df := dataframe.LoadRecords(records,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues(nil),
	)
	if df.Err != nil {
		return fmt.Errorf("failed to build CSV: %w", df.Err)
	}
	return df.WriteCSV(w)
}

// ============================================================================
// JSON OUTPUT
// ============================================================================

func writeJSON(w io.Writer, v any, format string) error {
	var out []byte
	var err error

	if format == "pretty" {
		out, err = json.MarshalIndent(v, "", "  ")
	} else {
		out, err = json.Marshal(v)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}

// ============================================================================
// TEXT OUTPUT — terminal summary with lipgloss bars
// ============================================================================

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	headingStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

const barWidth = 30

func writeText(w io.Writer, ds *loader.Dataset, res *engine.Result) error {
	var b strings.Builder

	b.WriteString(titleStyle.Render(res.Title) + "\n")
	b.WriteString(mutedStyle.Render(fmt.Sprintf("%d of %d products · %s (%s)", res.Matched, res.Total, ds.Source, ds.Encoding)) + "\n\n")

	if res.Empty {
		b.WriteString(res.Notice + "\n")
		_, err := io.WriteString(w, b.String())
		return err
	}

	if s := res.Summary; s != nil {
		fmt.Fprintf(&b, "Average cost/ha %s   Lowest %s   Highest %s\n",
			s.Display["avgCostPerHectare"], s.Display["minCostPerHectare"], s.Display["maxCostPerHectare"])
		if s.CheapestNProduct != "" {
			fmt.Fprintf(&b, "Cheapest nitrogen: %s at %s per N unit\n", s.CheapestNProduct, s.Display["cheapestNUnitCost"])
		}
		b.WriteString("\n")
	}

	if rk := res.Ranking; rk != nil {
		b.WriteString(headingStyle.Render("Cost per N unit (lower is better)") + "\n")
		labels := make([]string, 0, len(rk.Ranked))
		values := make([]float64, 0, len(rk.Ranked))
		for _, e := range rk.Ranked {
			labels = append(labels, fmt.Sprintf("%d. %s", e.Position, e.Name))
			values = append(values, *e.CostPerNUnit)
		}
		writeBars(&b, labels, values, nitrogenColor(res), res.Currency)
		if len(rk.Unranked) > 0 {
			names := make([]string, len(rk.Unranked))
			for i, e := range rk.Unranked {
				names[i] = e.Name
			}
			b.WriteString(mutedStyle.Render("Not ranked (no nitrogen): "+strings.Join(names, ", ")) + "\n")
		}
		b.WriteString("\n")
	}

	if c := res.CostChart; c != nil && len(c.Series) > 0 {
		b.WriteString(headingStyle.Render(c.Title) + "\n")
		labels := make([]string, len(c.Series[0].Data))
		values := make([]float64, len(c.Series[0].Data))
		for i, p := range c.Series[0].Data {
			labels[i], values[i] = p.Label, p.Value
		}
		writeBars(&b, labels, values, lipgloss.Color("#1f77b4"), res.Currency)
		b.WriteString("\n")
	}

	if len(res.Warnings) > 0 {
		b.WriteString(headingStyle.Render("Warnings") + "\n")
		for _, warn := range res.Warnings {
			b.WriteString(warnStyle.Render("! "+warn.Message) + "\n")
		}
		b.WriteString("\n")
	}

	if res.Note != "" {
		b.WriteString(mutedStyle.Width(80).Render(res.Note) + "\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// writeBars draws one horizontal bar per value, scaled to the largest.
func writeBars(b *strings.Builder, labels []string, values []float64, color lipgloss.Color, currency string) {
	top, width := 0.0, 0
	for i, v := range values {
		top = max(top, v)
		width = max(width, lipgloss.Width(labels[i]))
	}
	label := lipgloss.NewStyle().Width(width)
	filled := lipgloss.NewStyle().Foreground(color)
	for i, v := range values {
		n := 0
		if top > 0 {
			n = int(float64(barWidth) * v / top)
		}
		fmt.Fprintf(b, "%s %s%s %s\n",
			label.Render(labels[i]),
			filled.Render(strings.Repeat("█", n)),
			mutedStyle.Render(strings.Repeat("░", barWidth-n)),
			engine.FormatCurrency(v, currency),
		)
	}
}

func nitrogenColor(res *engine.Result) lipgloss.Color {
	if res.NPKChart != nil && len(res.NPKChart.Colors) > 0 {
		return lipgloss.Color(res.NPKChart.Colors[0])
	}
	return lipgloss.Color("#2ca02c")
}

// fmtNum prints whole numbers without decimals and everything else with two.
func fmtNum(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.2f", v)
}
