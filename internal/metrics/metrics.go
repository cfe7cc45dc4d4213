package metrics

import (
	"errors"
	"io"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/san-kum/tlmsim/internal/core"
)

// Run outcomes used as the status label of RunsTotal.
const (
	StatusOK      = "ok"
	StatusStopped = "stopped"
	StatusError   = "error"
)

type run struct {
	started time.Time
	lastT   float64
	steps   prometheus.Counter
	simTime prometheus.Counter
	phases  [4]prometheus.Observer
}

type runTable struct {
	mu     sync.Mutex
	active map[*core.System]*run
}

var _ core.Observer = (*Registry)(nil)

// OnRunStart implements core.Observer.
func (r *Registry) OnRunStart(sys *core.System, startT, stopT float64, threads int) {
	model := sys.Name()
	rn := &run{
		started: time.Now(),
		lastT:   startT,
		steps:   r.StepsTotal.WithLabelValues(model),
		simTime: r.SimulatedSeconds.WithLabelValues(model),
	}
	for i, phase := range []string{"signal", "c", "q", "log"} {
		rn.phases[i] = r.PhaseDuration.WithLabelValues(model, phase)
	}

	r.runs.mu.Lock()
	r.runs.active[sys] = rn
	r.runs.mu.Unlock()

	r.RunsInFlight.Inc()
	r.Threads.WithLabelValues(model).Set(float64(threads))
	r.Nodes.WithLabelValues(model).Set(float64(len(sys.AllNodes())))
}

// OnStep implements core.Observer.
func (r *Registry) OnStep(sys *core.System, info core.StepInfo) {
	r.runs.mu.Lock()
	rn := r.runs.active[sys]
	r.runs.mu.Unlock()
	if rn == nil {
		return
	}

	rn.steps.Inc()
	if dt := info.Time - rn.lastT; dt > 0 {
		rn.simTime.Add(dt)
	}
	rn.lastT = info.Time
	for i, d := range []time.Duration{info.Signal, info.C, info.Q, info.Log} {
		if d > 0 {
			rn.phases[i].Observe(d.Seconds())
		}
	}
}

// OnRunEnd implements core.Observer.
func (r *Registry) OnRunEnd(sys *core.System, steps int, err error) {
	r.runs.mu.Lock()
	rn := r.runs.active[sys]
	delete(r.runs.active, sys)
	r.runs.mu.Unlock()
	if rn == nil {
		return
	}

	model := sys.Name()
	r.RunsInFlight.Dec()
	r.RunDuration.WithLabelValues(model).Observe(time.Since(rn.started).Seconds())
	r.RunsTotal.WithLabelValues(model, Status(err)).Inc()
}

// Status maps a run error to a status label.
func Status(err error) string {
	switch {
	case err == nil:
		return StatusOK
	case errors.Is(err, core.ErrStopped):
		return StatusStopped
	}
	return StatusError
}

// WriteText writes every metric in the Prometheus text format.
func (r *Registry) WriteText(w io.Writer) error {
	families, err := r.registry.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}
