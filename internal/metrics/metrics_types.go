package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/san-kum/tlmsim/internal/core"
)

// Registry holds the simulation metrics. It implements core.Observer, so
// one registry can watch any number of systems.
type Registry struct {
	RunsTotal        *prometheus.CounterVec
	RunDuration      *prometheus.HistogramVec
	RunsInFlight     prometheus.Gauge
	StepsTotal       *prometheus.CounterVec
	SimulatedSeconds *prometheus.CounterVec
	PhaseDuration    *prometheus.HistogramVec
	Threads          *prometheus.GaugeVec
	Nodes            *prometheus.GaugeVec

	registry *prometheus.Registry
	runs     runTable
}

// NewRegistry creates a registry with all metrics initialized.
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),
		runs:     runTable{active: make(map[*core.System]*run)},
	}
	r.initRunMetrics()
	r.initStepMetrics()
	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry.
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}
