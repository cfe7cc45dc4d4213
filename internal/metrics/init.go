package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initRunMetrics() {
	r.RunsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "tlmsim_runs_total",
			Help: "Simulation runs by model and outcome",
		},
		[]string{"model", "status"},
	)

	r.RunDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tlmsim_run_duration_seconds",
			Help:    "Wall clock time of a simulation run",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		},
		[]string{"model"},
	)

	r.RunsInFlight = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "tlmsim_runs_in_flight",
			Help: "Simulation runs currently in progress",
		},
	)

	r.Threads = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tlmsim_threads",
			Help: "Worker threads used by the last run of a model",
		},
		[]string{"model"},
	)

	r.Nodes = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tlmsim_nodes",
			Help: "Nodes of a model, subsystems included",
		},
		[]string{"model"},
	)
}

func (r *Registry) initStepMetrics() {
	r.StepsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "tlmsim_steps_total",
			Help: "Timesteps taken by the root system",
		},
		[]string{"model"},
	)

	r.SimulatedSeconds = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "tlmsim_simulated_seconds_total",
			Help: "Simulated time covered by completed steps",
		},
		[]string{"model"},
	)

	r.PhaseDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tlmsim_phase_duration_seconds",
			Help:    "Wall clock time of one scheduling phase of a step",
			Buckets: prometheus.ExponentialBuckets(1e-7, 4, 10),
		},
		[]string{"model", "phase"},
	)
}
