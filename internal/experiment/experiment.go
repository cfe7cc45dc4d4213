package experiment

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/san-kum/tlmsim/internal/config"
	"github.com/san-kum/tlmsim/internal/core"
)

// NodeLog is the logged history of one node.
type NodeLog struct {
	Name      string
	Type      core.NodeType
	Variables []core.DataDescription
	Times     []float64
	Values    [][]float64
}

// Series returns the values of one variable, or nil if the node has none by
// that name.
func (l NodeLog) Series(variable string) []float64 {
	for i, d := range l.Variables {
		if d.Name != variable {
			continue
		}
		series := make([]float64, len(l.Values))
		for k, row := range l.Values {
			series[k] = row[i]
		}
		return series
	}
	return nil
}

// Final returns the last logged value of a variable.
func (l NodeLog) Final(variable string) (float64, bool) {
	series := l.Series(variable)
	if len(series) == 0 {
		return 0, false
	}
	return series[len(series)-1], true
}

// Result is the outcome of one run.
type Result struct {
	System  *core.System
	Logs    []NodeLog
	Steps   int
	Elapsed time.Duration
	// Metrics holds the final value of every node variable, keyed
	// "node:variable".
	Metrics map[string]float64
}

// Log returns the log of the node with the given name.
func (r *Result) Log(name string) (NodeLog, bool) {
	for _, l := range r.Logs {
		if l.Name == name {
			return l, true
		}
	}
	return NodeLog{}, false
}

type Experiment struct {
	cfg       *config.Config
	sys       *core.System
	observers []core.Observer
}

// New builds the model of cfg.
func New(cfg *config.Config, reg *Registry) (*Experiment, error) {
	sys, err := Build(cfg, reg)
	if err != nil {
		return nil, err
	}
	return &Experiment{cfg: cfg, sys: sys}, nil
}

func (e *Experiment) Config() *config.Config { return e.cfg }

// System returns the built root system, for adding observers or stopping a
// run from another goroutine.
func (e *Experiment) System() *core.System { return e.sys }

func (e *Experiment) AddObserver(o core.Observer) {
	e.sys.AddObserver(o)
}

// Run initializes, simulates and finalizes the model over its configured
// interval. A run that stops early still returns the logs recorded so far
// together with the error.
func (e *Experiment) Run(ctx context.Context) (*Result, error) {
	cfg := e.cfg
	if err := e.sys.Initialize(cfg.Start, cfg.Stop, cfg.Samples); err != nil {
		return nil, err
	}

	start := time.Now()
	var simErr error
	if cfg.Threads > 1 {
		simErr = e.sys.SimulateMultiThreaded(ctx, cfg.Start, cfg.Stop, cfg.Threads)
	} else {
		simErr = e.sys.Simulate(ctx, cfg.Start, cfg.Stop)
	}
	elapsed := time.Since(start)

	if err := e.sys.Finalize(cfg.Start, cfg.Stop); err != nil && simErr == nil {
		simErr = err
	}

	res := &Result{
		System:  e.sys,
		Logs:    CollectLogs(e.sys),
		Steps:   e.sys.Steps(),
		Elapsed: elapsed,
	}
	res.Metrics = finalValues(res.Logs)

	if simErr != nil {
		return res, simErr
	}
	logrus.Infof("%s: %d steps in %v", cfg.Name, res.Steps, elapsed)
	return res, nil
}

// CollectLogs copies the logs of every node of sys and its subsystems.
// Names are node labels made unique with a numeric suffix.
func CollectLogs(sys *core.System) []NodeLog {
	nodes := sys.AllNodes()
	logs := make([]NodeLog, 0, len(nodes))
	used := make(map[string]int)
	for _, n := range nodes {
		name := n.Label()
		if k := used[name]; k > 0 {
			used[name] = k + 1
			name = fmt.Sprintf("%s_%d", name, k)
		} else {
			used[name] = 1
		}
		times, values := n.LogData()
		logs = append(logs, NodeLog{
			Name:      name,
			Type:      n.Type(),
			Variables: n.DataDescriptions(),
			Times:     times,
			Values:    values,
		})
	}
	return logs
}

func finalValues(logs []NodeLog) map[string]float64 {
	m := make(map[string]float64)
	for _, l := range logs {
		if len(l.Values) == 0 {
			continue
		}
		last := l.Values[len(l.Values)-1]
		for i, d := range l.Variables {
			m[l.Name+":"+d.Name] = last[i]
		}
	}
	return m
}
