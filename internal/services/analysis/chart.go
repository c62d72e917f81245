package analysis

import (
	"bytes"
	"fmt"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/bobmcallan/prism/internal/models"
)

var palette = []string{
	"2563eb", // blue-600
	"dc2626", // red-600
	"16a34a", // green-600
	"d97706", // amber-600
	"7c3aed", // violet-600
	"0891b2", // cyan-600
	"db2777", // pink-600
	"4b5563", // gray-600
}

// RenderCumulativeReturns renders a PNG line chart of cumulative log
// returns, one series per ticker. Portfolio is drawn thicker in black.
// Null observations are skipped.
func RenderCumulativeReturns(panel *models.ValuationPanel, tickers []string) ([]byte, error) {
	if len(tickers) == 0 {
		tickers = panel.Tickers
	}

	var series []chart.Series
	for i, t := range tickers {
		var xs []time.Time
		var ys []float64
		for j, v := range panel.Series(t, models.FieldCumRet) {
			if v.Valid {
				xs = append(xs, panel.Dates[j])
				ys = append(ys, v.Float64)
			}
		}
		if len(xs) < 2 {
			continue
		}

		style := chart.Style{
			StrokeColor: drawing.ColorFromHex(palette[i%len(palette)]),
			StrokeWidth: 1.5,
		}
		if t == models.PortfolioTicker {
			style.StrokeColor = drawing.ColorBlack
			style.StrokeWidth = 3
		}
		series = append(series, chart.TimeSeries{Name: t, Style: style, XValues: xs, YValues: ys})
	}
	if len(series) == 0 {
		return nil, fmt.Errorf("no ticker has at least 2 cumulative return observations")
	}

	graph := chart.Chart{
		Title:  "Cumulative Log Returns",
		Width:  900,
		Height: 450,
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
					return fmt.Sprintf("%.0f%%", f*100)
				}
				return ""
			},
		},
		Series: series,
	}
	graph.Elements = []chart.Renderable{
		chart.LegendLeft(&graph),
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("chart render failed: %w", err)
	}
	return buf.Bytes(), nil
}

// RenderExplainedVariance renders a PNG bar chart of the explained variance
// ratio per principal component.
func RenderExplainedVariance(dec *models.FactorDecomposition) ([]byte, error) {
	if len(dec.ExplainedVarianceRatio) == 0 {
		return nil, fmt.Errorf("decomposition has no components")
	}

	bars := make([]chart.Value, len(dec.ExplainedVarianceRatio))
	for i, r := range dec.ExplainedVarianceRatio {
		color := palette[0]
		if i >= dec.DefaultComponents {
			color = "9ca3af" // gray-400: beyond the default cut
		}
		bars[i] = chart.Value{
			Label: dec.Components[i],
			Value: r,
			Style: chart.Style{
				FillColor:   drawing.ColorFromHex(color),
				StrokeColor: drawing.ColorFromHex(color),
			},
		}
	}

	graph := chart.BarChart{
		Title:  "Explained Variance Ratio",
		Width:  900,
		Height: 400,
		Background: chart.Style{
			Padding: chart.Box{Top: 40},
		},
		BarWidth: 40,
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: 1},
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("%.0f%%", f*100)
				}
				return ""
			},
		},
		Bars: bars,
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("chart render failed: %w", err)
	}
	return buf.Bytes(), nil
}

// RenderFactorSeries renders a PNG line chart of the cumulative projection
// of the returns onto each principal component.
func RenderFactorSeries(dec *models.FactorDecomposition) ([]byte, error) {
	cum := dec.CumulativeProjected()
	if len(cum) < 2 || len(dec.Components) == 0 {
		return nil, fmt.Errorf("decomposition has fewer than 2 projected observations")
	}
	if len(dec.Dates) != len(cum) {
		return nil, fmt.Errorf("decomposition has %d dates for %d projections", len(dec.Dates), len(cum))
	}

	series := make([]chart.Series, len(dec.Components))
	for k, name := range dec.Components {
		ys := make([]float64, len(cum))
		for i, row := range cum {
			ys[i] = row[k]
		}
		series[k] = chart.TimeSeries{
			Name: name,
			Style: chart.Style{
				StrokeColor: drawing.ColorFromHex(palette[k%len(palette)]),
				StrokeWidth: 1.5,
			},
			XValues: []time.Time(dec.Dates),
			YValues: ys,
		}
	}

	graph := chart.Chart{
		Title:  "Cumulative Principal Components",
		Width:  900,
		Height: 450,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 10, Right: 20, Bottom: 10},
		},
		XAxis: chart.XAxis{
			ValueFormatter: func(v interface{}) string {
				if t, ok := v.(float64); ok {
					return chart.TimeFromFloat64(t).Format("Jan 06")
				}
				return ""
			},
		},
		Series: series,
	}
	graph.Elements = []chart.Renderable{
		chart.LegendLeft(&graph),
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("chart render failed: %w", err)
	}
	return buf.Bytes(), nil
}
