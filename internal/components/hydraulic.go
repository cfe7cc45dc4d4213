package components

import (
	"math"

	"github.com/san-kum/tlmsim/internal/core"
	"github.com/san-kum/tlmsim/internal/integrators"
)

// Flow on a hydraulic node is positive into the C component. Q components
// compute
//
//	p = c + Zc*q
//
// from the wave variable c and characteristic impedance Zc published by the
// C component in the same step.

type hydraulicPtrs struct {
	p, q, c, zc *float64
}

func hydraulicNode(b *core.ComponentBase, port *core.Port) hydraulicPtrs {
	return hydraulicPtrs{
		p:  b.GetSafeNodeDataPtr(port, core.HydraulicPressure),
		q:  b.GetSafeNodeDataPtr(port, core.HydraulicFlow),
		c:  b.GetSafeNodeDataPtr(port, core.HydraulicWaveVariable),
		zc: b.GetSafeNodeDataPtr(port, core.HydraulicCharImp),
	}
}

// PressureSourceC is an ideal pressure source on the C side.
type PressureSourceC struct {
	core.ComponentBase
	P float64

	port *core.Port
	nd   hydraulicPtrs
}

func NewPressureSourceC() *PressureSourceC {
	s := &PressureSourceC{ComponentBase: core.NewComponentBase("HydraulicPressureSourceC", core.TypeC), P: 1e5}
	s.port = s.AddPowerPort("P1", core.NodeHydraulic)
	s.RegisterParameter("p", "Pressure", "Pa", &s.P)
	return s
}

func (s *PressureSourceC) Initialize() error {
	s.nd = hydraulicNode(&s.ComponentBase, s.port)
	*s.nd.p = s.P
	s.SimulateOneTimestep()
	return nil
}

func (s *PressureSourceC) SimulateOneTimestep() {
	*s.nd.c = s.P
	*s.nd.zc = 0
}

func (s *PressureSourceC) Finalize() {}

// PressureSourceQ is a pressure source on the Q side.
type PressureSourceQ struct {
	core.ComponentBase
	P float64

	port *core.Port
	nd   hydraulicPtrs
}

func NewPressureSourceQ() *PressureSourceQ {
	s := &PressureSourceQ{ComponentBase: core.NewComponentBase("HydraulicPressureSourceQ", core.TypeQ), P: 1e5}
	s.port = s.AddPowerPort("P1", core.NodeHydraulic)
	s.RegisterParameter("p", "Pressure", "Pa", &s.P)
	return s
}

func (s *PressureSourceQ) Initialize() error {
	s.nd = hydraulicNode(&s.ComponentBase, s.port)
	*s.nd.p = s.P
	return nil
}

func (s *PressureSourceQ) SimulateOneTimestep() {
	q := 0.0
	if *s.nd.zc > 0 {
		q = (s.P - *s.nd.c) / *s.nd.zc
	}
	*s.nd.q = q
	*s.nd.p = s.P
}

func (s *PressureSourceQ) Finalize() {}

// FlowSourceQ injects the flow read from its signal input, or Q when the
// input is unconnected. Pressure is clamped at zero.
type FlowSourceQ struct {
	core.ComponentBase
	Q float64

	in   *core.Port
	port *core.Port
	pIn  *float64
	nd   hydraulicPtrs
}

func NewFlowSourceQ() *FlowSourceQ {
	s := &FlowSourceQ{ComponentBase: core.NewComponentBase("HydraulicFlowSourceQ", core.TypeQ), Q: 1e-3}
	s.in = s.AddReadPort("in", core.NodeSignal, core.NotRequired())
	s.port = s.AddPowerPort("P1", core.NodeHydraulic)
	s.RegisterParameter("q", "Flow when input is unconnected", "m^3/s", &s.Q)
	return s
}

func (s *FlowSourceQ) Initialize() error {
	s.pIn = s.GetSafeNodeDataPtr(s.in, core.SignalValue, s.Q)
	s.nd = hydraulicNode(&s.ComponentBase, s.port)
	return nil
}

func (s *FlowSourceQ) SimulateOneTimestep() {
	q := s.Q
	if s.in.IsConnected() {
		q = *s.pIn
	}
	p := *s.nd.c + (*s.nd.zc)*q
	if p < 0 {
		p = 0
	}
	*s.nd.q = q
	*s.nd.p = p
}

func (s *FlowSourceQ) Finalize() {}

// Orifice is a laminar restriction q = Kc*(p1-p2) between two C components.
type Orifice struct {
	core.ComponentBase
	Kc float64

	p1, p2   *core.Port
	nd1, nd2 hydraulicPtrs
}

func NewOrifice() *Orifice {
	o := &Orifice{ComponentBase: core.NewComponentBase("HydraulicLaminarOrifice", core.TypeQ), Kc: 1e-11}
	o.p1 = o.AddPowerPort("P1", core.NodeHydraulic)
	o.p2 = o.AddPowerPort("P2", core.NodeHydraulic)
	o.RegisterParameter("Kc", "Pressure-flow coefficient", "m^5/Ns", &o.Kc)
	return o
}

func (o *Orifice) Initialize() error {
	o.nd1 = hydraulicNode(&o.ComponentBase, o.p1)
	o.nd2 = hydraulicNode(&o.ComponentBase, o.p2)
	return nil
}

func (o *Orifice) SimulateOneTimestep() {
	c1, zc1 := *o.nd1.c, *o.nd1.zc
	c2, zc2 := *o.nd2.c, *o.nd2.zc

	q2 := o.Kc * (c1 - c2) / (1 + o.Kc*(zc1+zc2))
	q1 := -q2

	*o.nd1.q = q1
	*o.nd1.p = c1 + zc1*q1
	*o.nd2.q = q2
	*o.nd2.p = c2 + zc2*q2
}

func (o *Orifice) Finalize() {}

// Volume is a fluid volume with two ports and bulk modulus Beta.
type Volume struct {
	core.ComponentBase
	V     float64
	Beta  float64
	Alpha float64

	p1, p2   *core.Port
	nd1, nd2 hydraulicPtrs
	zc       float64
}

func NewVolume() *Volume {
	v := &Volume{ComponentBase: core.NewComponentBase("HydraulicVolume", core.TypeC), V: 1e-3, Beta: 1e9}
	v.p1 = v.AddPowerPort("P1", core.NodeHydraulic)
	v.p2 = v.AddPowerPort("P2", core.NodeHydraulic)
	v.p1.SetStartValue(core.HydraulicPressure, 1e5)
	v.p2.SetStartValue(core.HydraulicPressure, 1e5)
	v.RegisterParameter("V", "Volume", "m^3", &v.V)
	v.RegisterParameter("Beta_e", "Bulk modulus", "Pa", &v.Beta)
	v.RegisterParameter("alpha", "Low pass coefficient", "-", &v.Alpha)
	return v
}

func (v *Volume) Initialize() error {
	v.nd1 = hydraulicNode(&v.ComponentBase, v.p1)
	v.nd2 = hydraulicNode(&v.ComponentBase, v.p2)
	v.zc = v.Beta / v.V * v.Timestep() / (1 - v.Alpha)

	*v.nd1.zc = v.zc
	*v.nd2.zc = v.zc
	*v.nd1.c = v.wave(v.nd2)
	*v.nd2.c = v.wave(v.nd1)
	return nil
}

func (v *Volume) SimulateOneTimestep() {
	c10 := v.wave(v.nd2)
	c20 := v.wave(v.nd1)

	a := v.Alpha
	*v.nd1.c = a*(*v.nd1.c) + (1-a)*c10
	*v.nd2.c = a*(*v.nd2.c) + (1-a)*c20
	*v.nd1.zc = v.zc
	*v.nd2.zc = v.zc
}

func (v *Volume) Finalize() {}

// wave is the wave variable leaving the volume through the other port.
func (v *Volume) wave(nd hydraulicPtrs) float64 {
	return *nd.p + v.zc*(*nd.q)
}

// LosslessLine is a transmission line whose waves take Delay seconds to
// travel from one end to the other.
type LosslessLine struct {
	core.ComponentBase
	Zc    float64
	Delay float64

	p1, p2   *core.Port
	nd1, nd2 hydraulicPtrs
	d1, d2   *integrators.Delay
}

func NewLosslessLine() *LosslessLine {
	l := &LosslessLine{ComponentBase: core.NewComponentBase("HydraulicLosslessLine", core.TypeC), Zc: 1e9, Delay: 0.01}
	l.p1 = l.AddPowerPort("P1", core.NodeHydraulic)
	l.p2 = l.AddPowerPort("P2", core.NodeHydraulic)
	l.p1.SetStartValue(core.HydraulicPressure, 1e5)
	l.p2.SetStartValue(core.HydraulicPressure, 1e5)
	l.RegisterParameter("Zc", "Characteristic impedance", "Pa s/m^3", &l.Zc)
	l.RegisterParameter("T", "Wave travel time", "s", &l.Delay)
	return l
}

func (l *LosslessLine) Initialize() error {
	l.nd1 = hydraulicNode(&l.ComponentBase, l.p1)
	l.nd2 = hydraulicNode(&l.ComponentBase, l.p2)

	// one step of the travel time is the TLM coupling itself
	steps := int(math.Round(l.Delay/l.Timestep())) - 1
	l.d1 = integrators.NewDelay(steps)
	l.d2 = integrators.NewDelay(steps)
	l.d1.Initialize(l.wave(l.nd2))
	l.d2.Initialize(l.wave(l.nd1))

	*l.nd1.c = l.d1.Oldest()
	*l.nd2.c = l.d2.Oldest()
	*l.nd1.zc = l.Zc
	*l.nd2.zc = l.Zc
	return nil
}

func (l *LosslessLine) SimulateOneTimestep() {
	*l.nd1.c = l.d1.Update(l.wave(l.nd2))
	*l.nd2.c = l.d2.Update(l.wave(l.nd1))
	*l.nd1.zc = l.Zc
	*l.nd2.zc = l.Zc
}

func (l *LosslessLine) Finalize() {}

func (l *LosslessLine) wave(nd hydraulicPtrs) float64 {
	return *nd.p + l.Zc*(*nd.q)
}
