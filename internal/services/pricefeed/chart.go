package pricefeed

import (
	"bytes"
	"fmt"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/ostapkoval/startrade/internal/models"
)

// RenderPriceChart renders a PNG line chart of the retained price history
// for one asset. Returns raw PNG bytes.
func RenderPriceChart(symbol string, points []models.PricePoint) ([]byte, error) {
	if len(points) < 2 {
		return nil, fmt.Errorf("need at least 2 data points, got %d", len(points))
	}

	xValues := make([]time.Time, len(points))
	yValues := make([]float64, len(points))
	for i, p := range points {
		xValues[i] = p.Time
		yValues[i], _ = p.Price.Float64()
	}

	up := len(points) > 0 && points[len(points)-1].Price.GreaterThanOrEqual(points[0].Price)
	strokeHex := "ef4444" // red-500
	if up {
		strokeHex = "22c55e" // green-500
	}

	series := chart.TimeSeries{
		Name: symbol,
		Style: chart.Style{
			StrokeColor: drawing.ColorFromHex(strokeHex),
			StrokeWidth: 2.0,
		},
		XValues: xValues,
		YValues: yValues,
	}

	graph := chart.Chart{
		Title:  symbol,
		Width:  900,
		Height: 400,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 10, Right: 20, Bottom: 10},
		},
		XAxis: chart.XAxis{
			TickPosition: chart.TickPositionBetweenTicks,
			ValueFormatter: func(v interface{}) string {
				if t, ok := v.(float64); ok {
					return chart.TimeFromFloat64(t).Format("15:04:05")
				}
				return ""
			},
		},
		YAxis: chart.YAxis{
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("$%.2f", f)
				}
				return ""
			},
		},
		Series: []chart.Series{series},
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("chart render failed: %w", err)
	}

	return buf.Bytes(), nil
}
