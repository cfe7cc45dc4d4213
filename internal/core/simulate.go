package core

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"
)

// stepEpsilon absorbs rounding when counting whole steps in an interval.
const stepEpsilon = 1e-6

func stepsIn(startT, stopT, ts float64) int {
	if ts <= 0 || stopT <= startT {
		return 0
	}
	return int(math.Floor((stopT-startT)/ts + stepEpsilon))
}

// IsSimulationOK checks that every required port is connected, every child
// has a defined CQS type and the timestep is valid. All problems found are
// returned joined.
func (s *System) IsSimulationOK() error {
	var errs []error
	if s.desiredTimestep <= 0 {
		errs = append(errs, fmt.Errorf("%w: %s has %g", ErrInvalidTimestep, s.name, s.desiredTimestep))
	}
	for _, c := range s.order {
		b := c.base()
		if sub, ok := c.(*System); ok {
			if sub.DetermineCQSType() == TypeUndefined {
				errs = append(errs, fmt.Errorf("%w: subsystem %s", ErrUndefinedCQS, sub.name))
			}
			if err := sub.IsSimulationOK(); err != nil {
				errs = append(errs, err)
			}
			continue
		}
		if b.cqs == TypeUndefined {
			errs = append(errs, fmt.Errorf("%w: %s", ErrUndefinedCQS, b.name))
		}
		for _, p := range b.portOrder {
			if p.required && !p.IsConnected() {
				errs = append(errs, fmt.Errorf("%w: %s", ErrUnconnectedPort, p.FullName()))
			}
		}
	}
	return errors.Join(errs...)
}

// Initialize prepares a run over [startT, stopT] with about nSamples logged
// samples per node (DefaultSamples if nSamples <= 0): it validates the
// model, propagates timesteps, loads start values, allocates logs and calls
// Initialize on every child, Signal first, then C, then Q.
func (s *System) Initialize(startT, stopT float64, nSamples int) error {
	if s.State() == StateRunning {
		return ErrSystemRunning
	}
	if stopT < startT {
		return fmt.Errorf("%w: [%g, %g]", ErrInvalidTimeRange, startT, stopT)
	}
	if nSamples <= 0 {
		nSamples = DefaultSamples
	}
	s.stop.Store(false)
	s.DetermineCQSType()
	if err := s.IsSimulationOK(); err != nil {
		s.setState(StateUnconfigured)
		return err
	}
	s.timestep = s.desiredTimestep
	s.innerSteps = 1
	if err := s.initialize(startT, stopT, nSamples); err != nil {
		s.setState(StateUnconfigured)
		return err
	}
	logrus.Infof("%s: initialized [%g, %g] ts=%g, %d nodes", s.name, startT, stopT, s.timestep, len(s.AllNodes()))
	return nil
}

// initialize runs once the timestep of s is set.
func (s *System) initialize(startT, stopT float64, nSamples int) error {
	s.params.Update()
	s.time = startT
	for _, c := range s.order {
		b := c.base()
		sub, ok := c.(*System)
		if !ok {
			b.timestep = s.timestep
			continue
		}
		sub.innerSteps = 1
		if sub.desiredTimestep < s.timestep {
			sub.innerSteps = max(1, int(math.Round(s.timestep/sub.desiredTimestep)))
		}
		sub.timestep = s.timestep / float64(sub.innerSteps)
	}

	s.buildSchedule()
	s.loadStartValues()
	s.preAllocateLog(startT, stopT, nSamples)

	for _, phase := range s.sched.phases() {
		for i := range phase {
			if err := phase[i].initialize(startT, stopT, nSamples); err != nil {
				return fmt.Errorf("initialize %s: %w", phase[i].base.name, err)
			}
		}
	}

	s.stepCount = 0
	for _, n := range s.nodes {
		n.logSample(startT)
	}
	s.setState(StateInitialized)
	return nil
}

func (s *System) loadStartValues() {
	for _, n := range s.nodes {
		n.resetData()
		n.loadStartValues()
	}
}

// LoadStartValues resets every node of the system and its subsystems to the
// start values of its ports.
func (s *System) LoadStartValues() {
	s.loadStartValues()
	for _, c := range s.order {
		if sub, ok := c.(*System); ok {
			sub.LoadStartValues()
		}
	}
}

// LoadStartValuesFromSimulation stores the current node values as start
// values of all bound ports, so the next run continues where this one ended.
func (s *System) LoadStartValuesFromSimulation() error {
	if s.State() == StateRunning {
		return ErrSystemRunning
	}
	for _, n := range s.AllNodes() {
		for _, p := range n.ports {
			if p.start == nil {
				continue
			}
			for slot := range p.start {
				p.SetStartValue(slot, n.data[slot])
			}
		}
	}
	return nil
}

// outerTimestep is the time one step of s covers in its parent.
func (s *System) outerTimestep() float64 {
	return s.timestep * float64(s.innerSteps)
}

func (s *System) preAllocateLog(startT, stopT float64, nSamples int) {
	s.totalSteps = stepsIn(startT, stopT, s.outerTimestep())
	s.logEvery = 1
	if nSamples > 1 && s.totalSteps > nSamples-1 {
		s.logEvery = int(math.Ceil(float64(s.totalSteps) / float64(nSamples-1)))
	}
	samples := s.totalSteps/s.logEvery + 2
	for _, n := range s.nodes {
		n.preAllocateLog(samples)
	}
}

// LogEvery is the number of steps between logged samples.
func (s *System) LogEvery() int { return s.logEvery }

// Steps is the number of steps taken since the last Initialize.
func (s *System) Steps() int { return s.stepCount }

func (s *System) checkCanSimulate() error {
	switch s.State() {
	case StateInitialized:
		return nil
	case StateRunning:
		return ErrSystemRunning
	}
	return fmt.Errorf("%w: %s is %s", ErrNotInitialized, s.name, s.State())
}

// Simulate advances the system by the whole number of timesteps that fit in
// [startT, stopT]. Each step runs all Signal components, then all C
// components, then all Q components, then logs the nodes when a sample is
// due. Simulate can be called repeatedly on consecutive intervals.
func (s *System) Simulate(ctx context.Context, startT, stopT float64) error {
	if err := s.checkCanSimulate(); err != nil {
		return err
	}
	return s.run(ctx, startT, stopT, 1, sequential{})
}

func (s *System) run(ctx context.Context, startT, stopT float64, threads int, ex executor) (err error) {
	steps := stepsIn(startT, stopT, s.timestep)
	s.setState(StateRunning)
	defer s.setState(StateInitialized)

	for _, o := range s.observers {
		o.OnRunStart(s, startT, stopT, threads)
	}
	done := 0
	defer func() {
		for _, o := range s.observers {
			o.OnRunEnd(s, done, err)
		}
	}()

	timed := len(s.observers) > 0
	for i := 0; i < steps; i++ {
		t := startT + float64(i+1)*s.timestep
		if s.stop.Load() {
			logrus.Infof("%s: stopped at t=%g", s.name, t-s.timestep)
			return &SimulationError{System: s.name, Step: s.stepCount, Time: t - s.timestep, Err: ErrStopped}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		var info StepInfo
		if timed {
			info = s.timedStep(t, ex)
		} else {
			s.step(t, ex)
		}
		done++

		if s.nanGuard {
			if n := firstNonFinite(s.AllNodes()); n != nil {
				logrus.Warnf("%s: %s is not finite at t=%g", s.name, n, t)
				return &SimulationError{System: s.name, Step: s.stepCount, Time: t, Node: n.id, Err: ErrNonFiniteValue}
			}
		}
		for _, o := range s.observers {
			o.OnStep(s, info)
		}
	}
	return nil
}

func (s *System) step(t float64, ex executor) {
	s.time = t
	sequential{}.run(s.sched.signal, t)
	ex.run(s.sched.c, t)
	ex.run(s.sched.q, t)
	s.stepCount++
	if s.stepCount%s.logEvery == 0 {
		ex.log(s.nodes, t)
	}
}

func (s *System) timedStep(t float64, ex executor) StepInfo {
	info := StepInfo{Time: t}
	s.time = t

	start := time.Now()
	sequential{}.run(s.sched.signal, t)
	info.Signal = time.Since(start)

	start = time.Now()
	ex.run(s.sched.c, t)
	info.C = time.Since(start)

	start = time.Now()
	ex.run(s.sched.q, t)
	info.Q = time.Since(start)

	s.stepCount++
	info.Step = s.stepCount
	if s.stepCount%s.logEvery == 0 {
		start = time.Now()
		ex.log(s.nodes, t)
		info.Log = time.Since(start)
	}
	return info
}

// stepSubsystem advances a subsystem by one step of its parent, in
// innerSteps steps of its own timestep ending at tEnd.
func (s *System) stepSubsystem(tEnd float64) {
	t0 := tEnd - s.outerTimestep()
	for k := 1; k <= s.innerSteps; k++ {
		t := t0 + float64(k)*s.timestep
		if k == s.innerSteps {
			t = tEnd
		}
		s.time = t
		for _, phase := range s.sched.phases() {
			sequential{}.run(phase, t)
		}
	}
	s.stepCount++
	if s.stepCount%s.logEvery == 0 {
		sequential{}.log(s.nodes, tEnd)
	}
}

func firstNonFinite(nodes []*Node) *Node {
	for _, n := range nodes {
		if !n.isFinite() {
			return n
		}
	}
	return nil
}

// Stop asks a running simulation to end at the next step boundary. It is
// safe to call from any goroutine.
func (s *System) Stop() {
	s.stop.Store(true)
}

// Finalize calls Finalize on every child once and ends the run. The system
// must be initialized again before the next Simulate.
func (s *System) Finalize(startT, stopT float64) error {
	if err := s.checkCanSimulate(); err != nil {
		return err
	}
	s.finalize()
	logrus.Infof("%s: finalized [%g, %g] after %d steps", s.name, startT, stopT, s.stepCount)
	return nil
}

func (s *System) finalize() {
	for _, phase := range s.sched.phases() {
		for i := range phase {
			phase[i].finalize()
		}
	}
	s.setState(StateFinalized)
}
