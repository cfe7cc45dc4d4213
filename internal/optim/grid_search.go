package optim

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/tlmsim/internal/config"
	"github.com/san-kum/tlmsim/internal/experiment"
)

// ErrNoResult is returned when no grid point produced the metric.
var ErrNoResult = errors.New("optim: no grid point produced the metric")

type GridSearch struct {
	paramNames []string
	ranges     [][]float64
	workers    int
}

func NewGridSearch(params []string, ranges [][]float64) *GridSearch {
	return &GridSearch{paramNames: params, ranges: ranges}
}

// SetWorkers limits the number of concurrent runs.
func (g *GridSearch) SetWorkers(n int) { g.workers = n }

// Range returns n evenly spaced values from lo to hi.
func Range(lo, hi float64, n int) []float64 {
	if n <= 1 {
		return []float64{lo}
	}
	vals := make([]float64, n)
	for i := range vals {
		vals[i] = lo + (hi-lo)*float64(i)/float64(n-1)
	}
	return vals
}

// Search runs every grid point and returns the parameters giving the
// smallest value of metricName, a "node:variable" key of the run metrics.
// With maximize set the largest value wins.
func (g *GridSearch) Search(
	ctx context.Context,
	cfg *config.Config,
	reg *experiment.Registry,
	metricName string,
	maximize bool,
) (map[string]float64, float64, error) {
	if len(g.paramNames) != len(g.ranges) {
		return nil, 0, fmt.Errorf("optim: %d parameters but %d ranges", len(g.paramNames), len(g.ranges))
	}

	points := experiment.Grid(g.paramNames, g.ranges)
	results, err := experiment.Sweep(ctx, cfg, reg, points, g.workers)
	if err != nil {
		return nil, 0, err
	}

	best := math.Inf(1)
	var bestParams map[string]float64
	for _, r := range results {
		if r.Err != nil {
			continue
		}
		val, ok := r.Metrics[metricName]
		if !ok || math.IsNaN(val) {
			continue
		}
		if maximize {
			val = -val
		}
		if val < best {
			best = val
			bestParams = r.Params
		}
	}
	if bestParams == nil {
		return nil, 0, fmt.Errorf("%w: %s", ErrNoResult, metricName)
	}
	if maximize {
		best = -best
	}
	return bestParams, best, nil
}
