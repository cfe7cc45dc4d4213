package export

import (
	"strings"
	"testing"

	"github.com/san-kum/tlmsim/internal/analysis"
	"github.com/san-kum/tlmsim/internal/core"
	"github.com/san-kum/tlmsim/internal/experiment"
	"github.com/san-kum/tlmsim/internal/viz"
)

func TestCanvasToSVG(t *testing.T) {
	c := viz.NewCanvas(2, 1)
	c.Set(0, 0)
	c.Set(3, 3)

	svg := CanvasToSVG(c, 2)
	if !strings.HasPrefix(svg, "<?xml") || !strings.HasSuffix(svg, "</svg>") {
		t.Fatalf("not an svg document: %q", svg)
	}
	if n := strings.Count(svg, "<circle"); n != 2 {
		t.Errorf("expected 2 dots, got %d", n)
	}
	if CanvasToSVG(nil, 1) != "" {
		t.Error("nil canvas should give empty output")
	}
}

func TestTrajectoryToSVG(t *testing.T) {
	points := []analysis.Point{{X: 0, Y: 0}, {X: 1, Y: 1}, {X: 2, Y: 0}}
	svg := TrajectoryToSVG(points, 100, 50, "#ff0000")
	if !strings.Contains(svg, `stroke="#ff0000"`) {
		t.Error("missing stroke color")
	}
	if n := strings.Count(svg, " L"); n != 2 {
		t.Errorf("expected 2 line segments, got %d", n)
	}
	if TrajectoryToSVG(points[:1], 100, 50, "#fff") != "" {
		t.Error("a single point should give empty output")
	}
}

func TestLogsToSVG(t *testing.T) {
	logs := []experiment.NodeLog{
		{
			Name:      "a.out",
			Variables: []core.DataDescription{{Name: "Value"}},
			Times:     []float64{0, 1, 2},
			Values:    [][]float64{{0}, {1}, {2}},
		},
		{
			Name:      "b.out",
			Variables: []core.DataDescription{{Name: "Value"}},
			Times:     []float64{0, 1, 2},
			Values:    [][]float64{{2}, {1}, {0}},
		},
	}

	svg, err := LogsToSVG(logs, "Value", 200, 100)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if n := strings.Count(svg, "<path"); n != 2 {
		t.Errorf("expected 2 paths, got %d", n)
	}
	if !strings.Contains(svg, "b.out:Value") {
		t.Error("missing legend")
	}

	if _, err := LogsToSVG(logs, "Pressure", 200, 100); err == nil {
		t.Error("expected error for missing variable")
	}
}
