package experiment

import (
	"context"
	"fmt"
	"maps"
	"runtime"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/san-kum/tlmsim/internal/config"
)

// SweepPoint is the outcome of one parameter set of a sweep.
type SweepPoint struct {
	Params  map[string]float64
	Metrics map[string]float64
	Steps   int
	Err     error
}

// WithParameters returns a copy of cfg with parameter overrides applied. A
// plain name sets a root system parameter, "component.parameter" sets a
// parameter of a root component.
func WithParameters(cfg *config.Config, values map[string]float64) (*config.Config, error) {
	out := *cfg
	out.System.Parameters = maps.Clone(cfg.System.Parameters)
	out.System.Components = slices.Clone(cfg.System.Components)

	for _, key := range sortedKeys(values) {
		v := values[key]
		comp, par, found := strings.Cut(key, ".")
		if !found {
			if _, ok := out.System.Parameters[key]; !ok {
				return nil, fmt.Errorf("%s has no system parameter %q", cfg.Name, key)
			}
			out.System.Parameters[key] = v
			continue
		}
		i := slices.IndexFunc(out.System.Components, func(c config.ComponentConfig) bool { return c.Name == comp })
		if i < 0 {
			return nil, fmt.Errorf("%s has no component %q", cfg.Name, comp)
		}
		cc := &out.System.Components[i]
		cc.Parameters = maps.Clone(cc.Parameters)
		if cc.Parameters == nil {
			cc.Parameters = make(map[string]float64)
		}
		cc.Parameters[par] = v
	}
	return &out, nil
}

// Grid returns every combination of the given parameter values.
func Grid(names []string, values [][]float64) []map[string]float64 {
	if len(names) != len(values) {
		return nil
	}
	points := []map[string]float64{{}}
	for i, name := range names {
		next := make([]map[string]float64, 0, len(points)*len(values[i]))
		for _, p := range points {
			for _, v := range values[i] {
				q := maps.Clone(p)
				q[name] = v
				next = append(next, q)
			}
		}
		points = next
	}
	return points
}

// Sweep runs the model once per parameter set with at most workers runs in
// flight (NumCPU if workers <= 0). Each run builds its own system. Failed
// runs are reported in their SweepPoint; the returned error is only set when
// ctx ends the sweep.
func Sweep(ctx context.Context, cfg *config.Config, reg *Registry, points []map[string]float64, workers int) ([]SweepPoint, error) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	out := make([]SweepPoint, len(points))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, p := range points {
		i, p := i, p
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				out[i] = SweepPoint{Params: p, Err: err}
				return err
			}
			out[i] = runPoint(ctx, cfg, reg, p)
			return nil
		})
	}
	err := g.Wait()
	return out, err
}

func runPoint(ctx context.Context, cfg *config.Config, reg *Registry, p map[string]float64) SweepPoint {
	pt := SweepPoint{Params: p}
	c, err := WithParameters(cfg, p)
	if err != nil {
		pt.Err = err
		return pt
	}
	// Points run concurrently, so each run is single threaded.
	c.Threads = 1
	exp, err := New(c, reg)
	if err != nil {
		pt.Err = err
		return pt
	}
	res, err := exp.Run(ctx)
	if res != nil {
		pt.Metrics = res.Metrics
		pt.Steps = res.Steps
	}
	pt.Err = err
	return pt
}
