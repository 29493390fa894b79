package backtesting

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// ErrNoEquityCurve is returned when a run has no closed trades to plot
var ErrNoEquityCurve = errors.New("backtest has no closed trades to chart")

// RenderEquityCurve renders the equity curve as a PNG. The curve is anchored
// at the initial capital on the start date.
func RenderEquityCurve(start time.Time, r *BacktestResult) ([]byte, error) {
	if len(r.EquityCurve) == 0 {
		return nil, ErrNoEquityCurve
	}

	xValues := make([]time.Time, 0, len(r.EquityCurve)+1)
	yValues := make([]float64, 0, len(r.EquityCurve)+1)
	xValues = append(xValues, start)
	yValues = append(yValues, r.InitialCapital)
	for _, p := range r.EquityCurve {
		xValues = append(xValues, p.Date)
		yValues = append(yValues, p.Equity)
	}

	equity := chart.TimeSeries{
		Name: "Equity",
		Style: chart.Style{
			StrokeColor: drawing.ColorFromHex("2563eb"),
			StrokeWidth: 2.5,
		},
		XValues: xValues,
		YValues: yValues,
	}

	graph := chart.Chart{
		Title:  fmt.Sprintf("Equity Curve (%s)", r.StrategyType),
		Width:  900,
		Height: 400,
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
		YAxis: chart.YAxis{
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("%.0f", f)
				}
				return ""
			},
		},
		Series: []chart.Series{equity},
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("chart render failed: %w", err)
	}
	return buf.Bytes(), nil
}
