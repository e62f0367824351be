package dashboard

import (
	"bytes"
	"errors"
	"fmt"
	"html"
	"io"
	"strings"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/spektr-org/fertdash/engine"
)

// ============================================================================
// CHARTS — engine.ChartConfig → SVG
// ============================================================================
// go-chart has no grouped bar type. Grouped charts are drawn as one bar per
// (product, series) pair; the product label sits under the middle bar of
// each group and a spacer bar separates the groups.
// ============================================================================

// ChartNames lists the charts served under /charts/{name}.svg.
var ChartNames = []string{"npk", "cost", "efficiency"}

// ErrNoChart is returned when the requested chart has nothing to draw.
var ErrNoChart = errors.New("no chart data")

// ChartSize is the pixel size of rendered charts.
type ChartSize struct {
	Width  int
	Height int
}

// DefaultChartSize is used when no size is configured.
var DefaultChartSize = ChartSize{Width: 960, Height: 420}

// pickChart returns the named chart of a result.
func pickChart(res *engine.Result, name string) (*engine.ChartConfig, bool) {
	switch name {
	case "npk":
		return res.NPKChart, true
	case "cost":
		return res.CostChart, true
	case "efficiency":
		return res.EfficiencyChart, true
	}
	return nil, false
}

// RenderSVG draws cfg as an SVG bar chart.
func RenderSVG(w io.Writer, cfg *engine.ChartConfig, size ChartSize) error {
	if cfg == nil || len(cfg.Series) == 0 {
		return ErrNoChart
	}
	if size.Width <= 0 || size.Height <= 0 {
		size = DefaultChartSize
	}

	var bars []chart.Value
	if len(cfg.Series) > 1 {
		bars = groupedBars(cfg)
	} else {
		bars = singleBars(cfg.Series[0])
	}
	if len(bars) == 0 {
		return ErrNoChart
	}

	bc := chart.BarChart{
		Title:      cfg.Title,
		TitleStyle: chart.Style{FontSize: 13},
		Width:      size.Width,
		Height:     size.Height,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		BarSpacing: barSpacing(len(cfg.Series)),
		BarWidth:   barWidth(size.Width, len(bars)),
		XAxis:      chart.Style{FontSize: 9},
		YAxis: chart.YAxis{
			Name:  cfg.YAxis,
			Range: yRange(bars),
		},
		Bars: bars,
	}

	var buf bytes.Buffer
	if err := bc.Render(chart.SVG, &buf); err != nil {
		return fmt.Errorf("render chart %q: %w", cfg.Title, err)
	}
	_, err := w.Write(buf.Bytes())
	return err
}

func singleBars(s engine.ChartSeries) []chart.Value {
	bars := make([]chart.Value, 0, len(s.Data))
	for _, p := range s.Data {
		color := p.Color
		if color == "" {
			color = s.Color
		}
		bars = append(bars, chart.Value{
			Label: p.Label,
			Value: p.Value,
			Style: barStyle(color),
		})
	}
	return bars
}

func groupedBars(cfg *engine.ChartConfig) []chart.Value {
	n := len(cfg.Series[0].Data)
	mid := len(cfg.Series) / 2

	var bars []chart.Value
	for i := 0; i < n; i++ {
		if i > 0 {
			bars = append(bars, chart.Value{})
		}
		for si, s := range cfg.Series {
			if i >= len(s.Data) {
				continue
			}
			label := ""
			if si == mid {
				label = s.Data[i].Label
			}
			bars = append(bars, chart.Value{
				Label: label,
				Value: s.Data[i].Value,
				Style: barStyle(s.Color),
			})
		}
	}
	return bars
}

func barStyle(hex string) chart.Style {
	if hex == "" {
		return chart.Style{}
	}
	c := drawing.ColorFromHex(strings.TrimPrefix(hex, "#"))
	return chart.Style{FillColor: c, StrokeColor: c, StrokeWidth: 1}
}

// yRange pins the axis to zero; go-chart otherwise starts it at the
// smallest bar, which would then be drawn with no height.
func yRange(bars []chart.Value) *chart.ContinuousRange {
	max := 0.0
	for _, b := range bars {
		if b.Value > max {
			max = b.Value
		}
	}
	if max == 0 {
		max = 1
	}
	return &chart.ContinuousRange{Min: 0, Max: max * 1.1}
}

func barWidth(width, bars int) int {
	w := (width - 120) / (bars + 1)
	switch {
	case w < 4:
		return 4
	case w > 60:
		return 60
	}
	return w
}

func barSpacing(series int) int {
	if series > 1 {
		return 2
	}
	return 12
}

// errorSVG draws a plain message where a chart would go.
func errorSVG(w io.Writer, size ChartSize, msg string) {
	if size.Width <= 0 || size.Height <= 0 {
		size = DefaultChartSize
	}
	fmt.Fprintf(w, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d">`+
		`<rect width="100%%" height="100%%" fill="#fafafa"/>`+
		`<text x="50%%" y="50%%" text-anchor="middle" font-family="sans-serif" font-size="14" fill="#666">%s</text></svg>`,
		size.Width, size.Height, html.EscapeString(msg))
}
