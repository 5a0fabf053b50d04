package service

import (
	"bytes"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

var (
	chartBackground = drawing.ColorFromHex("ffffff")
	chartLine       = drawing.ColorFromHex("2563eb")
	chartDot        = drawing.ColorFromHex("f59e0b")
	chartText       = drawing.ColorFromHex("1f2937")
)

// RenderPerformanceChart draws the score percentage of each game over time as a PNG.
func RenderPerformanceChart(p *Performance) ([]byte, error) {
	if p == nil || len(p.Scores) == 0 {
		return renderEmptyChart("No games played yet")
	}

	xValues := make([]time.Time, len(p.Scores))
	yValues := make([]float64, len(p.Scores))
	for i, pt := range p.Scores {
		xValues[i] = pt.Date
		yValues[i] = float64(pt.Percentage)
	}
	// a single point cannot span an axis
	if len(xValues) == 1 {
		xValues = append(xValues, xValues[0].Add(time.Minute))
		yValues = append(yValues, yValues[0])
	}

	graph := chart.Chart{
		Width:      800,
		Height:     400,
		Background: chart.Style{FillColor: chartBackground},
		Canvas:     chart.Style{FillColor: chartBackground},
		XAxis: chart.XAxis{
			Name:           "Date",
			ValueFormatter: chart.TimeValueFormatterWithFormat("2006-01-02"),
			Style:          chart.Style{FontColor: chartText},
		},
		YAxis: chart.YAxis{
			Name:  "Score %",
			Style: chart.Style{FontColor: chartText},
			Range: &chart.ContinuousRange{Min: 0, Max: 100},
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "Score",
				XValues: xValues,
				YValues: yValues,
				Style: chart.Style{
					StrokeColor: chartLine,
					StrokeWidth: 2,
					DotWidth:    4,
					DotColor:    chartDot,
				},
			},
		},
	}

	buffer := bytes.NewBuffer(nil)
	if err := graph.Render(chart.PNG, buffer); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

func renderEmptyChart(msg string) ([]byte, error) {
	now := time.Now()
	graph := chart.Chart{
		Width:      400,
		Height:     200,
		Background: chart.Style{FillColor: chartBackground},
		Canvas:     chart.Style{FillColor: chartBackground},
		XAxis:      chart.XAxis{Style: chart.Hidden()},
		YAxis: chart.YAxis{
			Style: chart.Hidden(),
			Range: &chart.ContinuousRange{Min: 0, Max: 100},
		},
		// Render needs at least one visible series
		Series: []chart.Series{
			chart.TimeSeries{
				XValues: []time.Time{now.Add(-time.Hour), now},
				YValues: []float64{0, 0},
				Style:   chart.Style{StrokeColor: drawing.ColorTransparent},
			},
		},
		Elements: []chart.Renderable{
			func(r chart.Renderer, cb chart.Box, _ chart.Style) {
				r.SetFontColor(chartText)
				r.SetFontSize(12.0)
				tb := r.MeasureText(msg)
				r.Text(msg, (cb.Width()-tb.Width())/2, (cb.Height()+tb.Height())/2)
			},
		},
	}
	buffer := bytes.NewBuffer(nil)
	if err := graph.Render(chart.PNG, buffer); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}
