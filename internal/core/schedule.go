package core

import (
	"strings"

	"github.com/sirupsen/logrus"
)

// scheduled is one entry of an execution bucket. Exactly one of solver and
// sys is set.
type scheduled struct {
	base   *ComponentBase
	solver Solver
	sys    *System
}

func (e *scheduled) simulate(t float64) {
	e.base.time = t
	if e.sys != nil {
		e.sys.stepSubsystem(t)
		return
	}
	e.solver.SimulateOneTimestep()
}

func (e *scheduled) initialize(startT, stopT float64, nSamples int) error {
	e.base.time = startT
	if e.sys != nil {
		return e.sys.initialize(startT, stopT, nSamples)
	}
	return e.solver.Initialize()
}

func (e *scheduled) finalize() {
	if e.sys != nil {
		e.sys.finalize()
		return
	}
	e.solver.Finalize()
}

// schedule holds the execution buckets. It is rebuilt from the component
// list at every Initialize and never patched in place.
type schedule struct {
	signal    []scheduled
	c         []scheduled
	q         []scheduled
	undefined []scheduled
}

func (sch *schedule) phases() [3][]scheduled {
	return [3][]scheduled{sch.signal, sch.c, sch.q}
}

func (s *System) buildSchedule() {
	var sch schedule
	for _, c := range s.order {
		e := scheduled{base: c.base()}
		if sub, ok := c.(*System); ok {
			e.sys = sub
		} else {
			e.solver = c.(Solver)
		}
		switch c.TypeCQS() {
		case TypeSignal:
			sch.signal = append(sch.signal, e)
		case TypeC:
			sch.c = append(sch.c, e)
		case TypeQ:
			sch.q = append(sch.q, e)
		default:
			sch.undefined = append(sch.undefined, e)
		}
	}
	sch.signal = s.sortSignal(sch.signal)
	s.sched = sch
}

// ScheduleOrder lists child names per phase as they run: Signal, C, Q. It
// is valid after Initialize.
func (s *System) ScheduleOrder() [3][]string {
	var out [3][]string
	for i, phase := range s.sched.phases() {
		for _, e := range phase {
			out[i] = append(out[i], e.base.name)
		}
	}
	return out
}

// signalPorts returns the bound read and write ports of a schedule entry,
// looking through subsystems to their leaves.
func signalPorts(e scheduled) []*Port {
	if e.sys == nil {
		return e.base.boundPorts()
	}
	var ports []*Port
	var walk func(sys *System)
	walk = func(sys *System) {
		for _, c := range sys.order {
			if sub, ok := c.(*System); ok {
				walk(sub)
				continue
			}
			ports = append(ports, c.base().boundPorts()...)
		}
	}
	walk(e.sys)
	return ports
}

// sortSignal orders signal entries so that writers of a node run before its
// readers. Ties keep insertion order. Entries on an algebraic loop keep their
// insertion order after all sortable entries.
func (s *System) sortSignal(entries []scheduled) []scheduled {
	if len(entries) < 2 {
		return entries
	}
	writers := make(map[*Node][]int)
	readers := make(map[*Node][]int)
	for i, e := range entries {
		for _, p := range signalPorts(e) {
			switch p.kind {
			case WritePort:
				writers[p.node] = append(writers[p.node], i)
			case ReadPort:
				readers[p.node] = append(readers[p.node], i)
			}
		}
	}

	succ := make([][]int, len(entries))
	indeg := make([]int, len(entries))
	for n, ws := range writers {
		for _, w := range ws {
			for _, r := range readers[n] {
				if r == w {
					continue
				}
				succ[w] = append(succ[w], r)
				indeg[r]++
			}
		}
	}

	done := make([]bool, len(entries))
	sorted := make([]scheduled, 0, len(entries))
	for len(sorted) < len(entries) {
		next := -1
		for i := range entries {
			if !done[i] && indeg[i] == 0 {
				next = i
				break
			}
		}
		if next < 0 {
			break
		}
		done[next] = true
		sorted = append(sorted, entries[next])
		for _, r := range succ[next] {
			indeg[r]--
		}
	}

	if len(sorted) < len(entries) {
		var loop []string
		for i, e := range entries {
			if !done[i] {
				loop = append(loop, e.base.name)
				sorted = append(sorted, e)
			}
		}
		logrus.Warnf("%s: algebraic loop among signal components %s, keeping insertion order",
			s.name, strings.Join(loop, ", "))
	}
	return sorted
}
