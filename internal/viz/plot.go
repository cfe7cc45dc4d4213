package viz

import (
	"fmt"

	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/tlmsim/internal/experiment"
)

var seriesColors = []asciigraph.AnsiColor{
	asciigraph.Cyan,
	asciigraph.Magenta,
	asciigraph.Yellow,
	asciigraph.Green,
	asciigraph.Red,
	asciigraph.Blue,
}

// Plot draws one series as a line chart.
func Plot(values []float64, caption string, width, height int) string {
	if len(values) == 0 {
		return ""
	}
	return asciigraph.Plot(values,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(caption),
	)
}

// PlotLogs draws one variable of several node logs in one chart. Logs
// without the variable are skipped.
func PlotLogs(logs []experiment.NodeLog, variable string, width, height int) (string, error) {
	var data [][]float64
	var legends []string
	var colors []asciigraph.AnsiColor
	for _, l := range logs {
		series := l.Series(variable)
		if len(series) == 0 {
			continue
		}
		data = append(data, series)
		legends = append(legends, l.Name)
		colors = append(colors, seriesColors[len(colors)%len(seriesColors)])
	}
	if len(data) == 0 {
		return "", fmt.Errorf("no node logs %s", variable)
	}
	return asciigraph.PlotMany(data,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(variable),
		asciigraph.SeriesColors(colors...),
		asciigraph.SeriesLegends(legends...),
	), nil
}
