package renderer

import (
	"bytes"
	"fmt"
	"time"

	"github.com/etnz/whatif"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// ChartFormat selects the image format of a chart.
type ChartFormat int

const (
	PNG ChartFormat = iota
	SVG
)

// palette colors the asset lines, in portfolio order.
var palette = []string{
	"2563eb", // blue-600
	"16a34a", // green-600
	"dc2626", // red-600
	"d97706", // amber-600
	"7c3aed", // violet-600
	"0891b2", // cyan-600
	"db2777", // pink-600
}

// RenderChart draws the value of every asset and of the whole portfolio
// over time. It needs at least two dates.
func RenderChart(res *whatif.Result, format ChartFormat) ([]byte, error) {
	v := res.Valuation
	if len(v.Total.Points) < 2 {
		return nil, fmt.Errorf("need at least 2 data points, got %d", len(v.Total.Points))
	}
	cur := res.Spec.DisplayCurrency()

	var series []chart.Series
	for i, s := range v.Series {
		// a line needs two points
		if len(s.Points) < 2 {
			continue
		}
		series = append(series, timeSeries(s, chart.Style{
			StrokeColor: drawing.ColorFromHex(palette[i%len(palette)]),
			StrokeWidth: 1.5,
		}))
	}
	series = append(series, timeSeries(v.Total, chart.Style{
		StrokeColor: drawing.ColorFromHex("111827"), // gray-900
		StrokeWidth: 2.5,
	}))

	graph := chart.Chart{
		Title:  fmt.Sprintf("What if %s had been invested on %s", formatMoney(res.Spec.Initial, cur), res.Spec.Start),
		Width:  900,
		Height: 400,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 10, Right: 20, Bottom: 10},
		},
		XAxis: chart.XAxis{
			TickPosition: chart.TickPositionBetweenTicks,
			ValueFormatter: func(v interface{}) string {
				if t, ok := v.(float64); ok {
					return chart.TimeFromFloat64(t).Format("Jan 06")
				}
				return ""
			},
		},
		YAxis: chart.YAxis{
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("%.0fk %s", f/1000, cur)
				}
				return ""
			},
		},
		Series: series,
	}
	graph.Elements = []chart.Renderable{
		chart.LegendLeft(&graph),
	}

	provider := chart.PNG
	if format == SVG {
		provider = chart.SVG
	}
	var buf bytes.Buffer
	if err := graph.Render(provider, &buf); err != nil {
		return nil, fmt.Errorf("chart render failed: %w", err)
	}
	return buf.Bytes(), nil
}

func timeSeries(s whatif.ValueSeries, style chart.Style) chart.TimeSeries {
	xValues := make([]time.Time, len(s.Points))
	yValues := make([]float64, len(s.Points))
	for i, p := range s.Points {
		xValues[i] = p.Date.Time()
		yValues[i] = p.Value.InexactFloat64()
	}
	return chart.TimeSeries{
		Name:    s.Name,
		Style:   style,
		XValues: xValues,
		YValues: yValues,
	}
}
