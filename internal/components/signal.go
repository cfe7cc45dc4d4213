// Package components is a small library of leaf components for the core
// engine: signal sources and operators, TLM hydraulic and electric parts.
package components

import (
	"math"

	"github.com/san-kum/tlmsim/internal/core"
	"github.com/san-kum/tlmsim/internal/integrators"
)

// Constant writes a fixed value.
type Constant struct {
	core.ComponentBase
	Y float64

	out  *core.Port
	pOut *float64
}

func NewConstant() *Constant {
	c := &Constant{ComponentBase: core.NewComponentBase("SignalConstant", core.TypeSignal), Y: 1}
	c.out = c.AddWritePort("out", core.NodeSignal, core.NotRequired())
	c.RegisterParameter("y", "Constant value", "-", &c.Y)
	return c
}

func (c *Constant) Initialize() error {
	c.pOut = c.GetSafeNodeDataPtr(c.out, core.SignalValue)
	*c.pOut = c.Y
	return nil
}

func (c *Constant) SimulateOneTimestep() { *c.pOut = c.Y }

func (c *Constant) Finalize() {}

// Step writes Y0 before TStep and Y0+Amplitude from TStep on.
type Step struct {
	core.ComponentBase
	Y0        float64
	Amplitude float64
	TStep     float64

	out  *core.Port
	pOut *float64
}

func NewStep() *Step {
	s := &Step{ComponentBase: core.NewComponentBase("SignalStep", core.TypeSignal), Amplitude: 1, TStep: 1}
	s.out = s.AddWritePort("out", core.NodeSignal, core.NotRequired())
	s.RegisterParameter("y_0", "Base value", "-", &s.Y0)
	s.RegisterParameter("y_A", "Step amplitude", "-", &s.Amplitude)
	s.RegisterParameter("t_step", "Step time", "s", &s.TStep)
	return s
}

func (s *Step) Initialize() error {
	s.pOut = s.GetSafeNodeDataPtr(s.out, core.SignalValue)
	s.SimulateOneTimestep()
	return nil
}

func (s *Step) SimulateOneTimestep() {
	if s.Time() >= s.TStep {
		*s.pOut = s.Y0 + s.Amplitude
		return
	}
	*s.pOut = s.Y0
}

func (s *Step) Finalize() {}

// Sine writes Offset + Amplitude*sin(2*pi*Frequency*t).
type Sine struct {
	core.ComponentBase
	Amplitude float64
	Frequency float64
	Offset    float64

	out  *core.Port
	pOut *float64
}

func NewSine() *Sine {
	s := &Sine{ComponentBase: core.NewComponentBase("SignalSine", core.TypeSignal), Amplitude: 1, Frequency: 1}
	s.out = s.AddWritePort("out", core.NodeSignal, core.NotRequired())
	s.RegisterParameter("y_A", "Amplitude", "-", &s.Amplitude)
	s.RegisterParameter("f", "Frequency", "Hz", &s.Frequency)
	s.RegisterParameter("y_offset", "Offset", "-", &s.Offset)
	return s
}

func (s *Sine) Initialize() error {
	s.pOut = s.GetSafeNodeDataPtr(s.out, core.SignalValue)
	s.SimulateOneTimestep()
	return nil
}

func (s *Sine) SimulateOneTimestep() {
	*s.pOut = s.Offset + s.Amplitude*math.Sin(2*math.Pi*s.Frequency*s.Time())
}

func (s *Sine) Finalize() {}

// Gain writes K times its input.
type Gain struct {
	core.ComponentBase
	K float64

	in, out *core.Port
	pIn     *float64
	pOut    *float64
}

func NewGain() *Gain {
	g := &Gain{ComponentBase: core.NewComponentBase("SignalGain", core.TypeSignal), K: 1}
	g.in = g.AddReadPort("in", core.NodeSignal, core.NotRequired())
	g.out = g.AddWritePort("out", core.NodeSignal, core.NotRequired())
	g.RegisterParameter("k", "Gain", "-", &g.K)
	return g
}

func (g *Gain) Initialize() error {
	g.pIn = g.GetSafeNodeDataPtr(g.in, core.SignalValue, 0)
	g.pOut = g.GetSafeNodeDataPtr(g.out, core.SignalValue)
	g.SimulateOneTimestep()
	return nil
}

func (g *Gain) SimulateOneTimestep() { *g.pOut = g.K * *g.pIn }

func (g *Gain) Finalize() {}

// Add writes in1 + in2.
type Add struct {
	core.ComponentBase

	in1, in2, out *core.Port
	pIn1, pIn2    *float64
	pOut          *float64
}

func NewAdd() *Add {
	a := &Add{ComponentBase: core.NewComponentBase("SignalAdd", core.TypeSignal)}
	a.in1 = a.AddReadPort("in1", core.NodeSignal, core.NotRequired())
	a.in2 = a.AddReadPort("in2", core.NodeSignal, core.NotRequired())
	a.out = a.AddWritePort("out", core.NodeSignal, core.NotRequired())
	return a
}

func (a *Add) Initialize() error {
	a.pIn1 = a.GetSafeNodeDataPtr(a.in1, core.SignalValue, 0)
	a.pIn2 = a.GetSafeNodeDataPtr(a.in2, core.SignalValue, 0)
	a.pOut = a.GetSafeNodeDataPtr(a.out, core.SignalValue)
	a.SimulateOneTimestep()
	return nil
}

func (a *Add) SimulateOneTimestep() { *a.pOut = *a.pIn1 + *a.pIn2 }

func (a *Add) Finalize() {}

// Integrator integrates its input with the trapezoidal rule.
type Integrator struct {
	core.ComponentBase

	in, out *core.Port
	pIn     *float64
	pOut    *float64
	integ   *integrators.Trapezoid
}

func NewIntegrator() *Integrator {
	i := &Integrator{
		ComponentBase: core.NewComponentBase("SignalIntegrator", core.TypeSignal),
		integ:         integrators.NewTrapezoid(),
	}
	i.in = i.AddReadPort("in", core.NodeSignal, core.NotRequired())
	i.out = i.AddWritePort("out", core.NodeSignal, core.NotRequired())
	return i
}

func (i *Integrator) Initialize() error {
	i.pIn = i.GetSafeNodeDataPtr(i.in, core.SignalValue, 0)
	i.pOut = i.GetSafeNodeDataPtr(i.out, core.SignalValue)
	i.integ.Initialize(i.Timestep(), *i.pIn, *i.pOut)
	return nil
}

func (i *Integrator) SimulateOneTimestep() { *i.pOut = i.integ.Update(*i.pIn) }

func (i *Integrator) Finalize() {}

// Sink reads any number of signals. Its inputs are logged by the nodes they
// are connected to; Last holds the values read in the most recent step.
type Sink struct {
	core.ComponentBase

	in   *core.Port
	last []float64
}

func NewSink() *Sink {
	s := &Sink{ComponentBase: core.NewComponentBase("SignalSink", core.TypeSignal)}
	s.in = s.AddReadMultiPort("in", core.NodeSignal, core.NotRequired())
	return s
}

func (s *Sink) Initialize() error {
	s.last = make([]float64, s.in.NumPorts())
	s.SimulateOneTimestep()
	return nil
}

func (s *Sink) SimulateOneTimestep() {
	for i := range s.last {
		s.last[i] = s.in.ReadNodeAt(i, core.SignalValue)
	}
}

func (s *Sink) Finalize() {}

func (s *Sink) Last() []float64 { return s.last }
