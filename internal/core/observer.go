package core

import "time"

// StepInfo describes one completed timestep of a root system.
type StepInfo struct {
	Step   int
	Time   float64
	Signal time.Duration
	C      time.Duration
	Q      time.Duration
	Log    time.Duration
}

// Observer receives run and step notifications. Callbacks run on the
// goroutine that drives the simulation and must not mutate the system.
type Observer interface {
	OnRunStart(sys *System, startT, stopT float64, threads int)
	OnStep(sys *System, info StepInfo)
	OnRunEnd(sys *System, steps int, err error)
}

// AddObserver registers an observer on a system. Only observers of the
// system that drives the run are notified.
func (s *System) AddObserver(o Observer) {
	s.observers = append(s.observers, o)
}
