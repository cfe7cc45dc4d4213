package export

import (
	"fmt"
	"strings"

	"github.com/san-kum/tlmsim/internal/analysis"
	"github.com/san-kum/tlmsim/internal/experiment"
	"github.com/san-kum/tlmsim/internal/viz"
)

const svgHeader = `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`

// CanvasToSVG converts a braille canvas to SVG, one circle per dot.
func CanvasToSVG(canvas *viz.Canvas, scale float64) string {
	if canvas == nil {
		return ""
	}

	width := int(float64(canvas.Width) * scale * 2)
	height := int(float64(canvas.Height) * scale * 4)

	var sb strings.Builder
	fmt.Fprintf(&sb, svgHeader, width, height, width, height)
	sb.WriteString("<g fill=\"#00ff00\">\n")

	dots := [4][2]rune{
		{0x01, 0x08},
		{0x02, 0x10},
		{0x04, 0x20},
		{0x40, 0x80},
	}
	radius := scale * 0.4
	for row := 0; row < canvas.Height; row++ {
		for col := 0; col < canvas.Width; col++ {
			pattern := canvas.Grid[row][col] - 0x2800
			if pattern <= 0 {
				continue
			}
			baseX := float64(col) * scale * 2
			baseY := float64(row) * scale * 4
			for dy := 0; dy < 4; dy++ {
				for dx := 0; dx < 2; dx++ {
					if pattern&dots[dy][dx] == 0 {
						continue
					}
					cx := baseX + float64(dx)*scale + scale/2
					cy := baseY + float64(dy)*scale + scale/2
					fmt.Fprintf(&sb, "<circle cx=\"%.1f\" cy=\"%.1f\" r=\"%.1f\"/>\n", cx, cy, radius)
				}
			}
		}
	}

	sb.WriteString("</g>\n</svg>")
	return sb.String()
}

// TrajectoryToSVG draws the points as one path scaled to the image.
func TrajectoryToSVG(points []analysis.Point, width, height int, strokeColor string) string {
	if len(points) < 2 {
		return ""
	}
	p := analysis.PhasePortrait2D{Points: points}
	minX, maxX, minY, maxY := p.Bounds()

	var sb strings.Builder
	fmt.Fprintf(&sb, svgHeader, width, height, width, height)
	writePath(&sb, points, minX, maxX, minY, maxY, width, height, strokeColor)
	sb.WriteString("</svg>")
	return sb.String()
}

func writePath(sb *strings.Builder, points []analysis.Point, minX, maxX, minY, maxY float64, width, height int, color string) {
	rangeX := maxX - minX
	rangeY := maxY - minY
	fmt.Fprintf(sb, `<path fill="none" stroke="%s" stroke-width="1.5" d="M`, color)
	for i, p := range points {
		x := (p.X - minX) / rangeX * float64(width)
		y := float64(height) - (p.Y-minY)/rangeY*float64(height)
		if i == 0 {
			fmt.Fprintf(sb, "%.1f,%.1f", x, y)
		} else {
			fmt.Fprintf(sb, " L%.1f,%.1f", x, y)
		}
	}
	sb.WriteString("\"/>\n")
}

var palette = []string{"#00ffff", "#ff00ff", "#ffff00", "#00ff88", "#ff4444", "#4488ff"}

// LogsToSVG draws one variable of several node logs against time on shared
// axes, with a legend.
func LogsToSVG(logs []experiment.NodeLog, variable string, width, height int) (string, error) {
	type series struct {
		name   string
		points []analysis.Point
	}
	var all []series
	var bounds analysis.PhasePortrait2D
	for _, l := range logs {
		values := l.Series(variable)
		if len(values) < 2 {
			continue
		}
		s := series{name: l.Name}
		for i, v := range values[:min(len(values), len(l.Times))] {
			s.points = append(s.points, analysis.Point{X: l.Times[i], Y: v})
		}
		if len(s.points) < 2 {
			continue
		}
		bounds.Points = append(bounds.Points, s.points...)
		all = append(all, s)
	}
	if len(all) == 0 {
		return "", fmt.Errorf("no node logs %s", variable)
	}
	minX, maxX, minY, maxY := bounds.Bounds()

	var sb strings.Builder
	fmt.Fprintf(&sb, svgHeader, width, height, width, height)
	for i, s := range all {
		color := palette[i%len(palette)]
		writePath(&sb, s.points, minX, maxX, minY, maxY, width, height, color)
		fmt.Fprintf(&sb, "<text x=\"8\" y=\"%d\" fill=\"%s\" font-family=\"monospace\" font-size=\"12\">%s:%s</text>\n",
			16*(i+1), color, s.name, variable)
	}
	sb.WriteString("</svg>")
	return sb.String(), nil
}
