package core

import (
	"io"
	"math"
	"os"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestMain(m *testing.M) {
	if os.Getenv("DEBUG_TESTS") == "" {
		logrus.SetOutput(io.Discard)
	}
	os.Exit(m.Run())
}

type testSource struct {
	ComponentBase
	Value float64
	out   *Port
}

func newTestSource(name string, v float64) *testSource {
	s := &testSource{ComponentBase: NewComponentBase("TestSource", TypeSignal), Value: v}
	s.name = name
	s.out = s.AddWritePort("out", NodeSignal)
	s.RegisterParameter("y", "output value", "-", &s.Value)
	return s
}

func (s *testSource) Initialize() error {
	s.out.WriteNode(SignalValue, s.Value)
	return nil
}

func (s *testSource) SimulateOneTimestep() { s.out.WriteNode(SignalValue, s.Value) }
func (s *testSource) Finalize() {}

type testGain struct {
	ComponentBase
	K       float64
	in, out *Port
}

func newTestGain(name string, k float64) *testGain {
	g := &testGain{ComponentBase: NewComponentBase("TestGain", TypeSignal), K: k}
	g.name = name
	g.in = g.AddReadPort("in", NodeSignal)
	g.out = g.AddWritePort("out", NodeSignal)
	g.RegisterParameter("k", "gain", "-", &g.K)
	return g
}

func (g *testGain) Initialize() error {
	g.SimulateOneTimestep()
	return nil
}

func (g *testGain) SimulateOneTimestep() {
	g.out.WriteNode(SignalValue, g.K*g.in.ReadNode(SignalValue))
}

func (g *testGain) Finalize() {}

type testSink struct {
	ComponentBase
	in   *Port
	Last float64
}

func newTestSink(name string) *testSink {
	s := &testSink{ComponentBase: NewComponentBase("TestSink", TypeSignal)}
	s.name = name
	s.in = s.AddReadPort("in", NodeSignal)
	return s
}

func (s *testSink) Initialize() error {
	s.Last = s.in.ReadNode(SignalValue)
	return nil
}

func (s *testSink) SimulateOneTimestep() { s.Last = s.in.ReadNode(SignalValue) }
func (s *testSink) Finalize() {}

type testMultiSink struct {
	ComponentBase
	in *Port
}

func newTestMultiSink(name string) *testMultiSink {
	s := &testMultiSink{ComponentBase: NewComponentBase("TestMultiSink", TypeSignal)}
	s.name = name
	s.in = s.AddReadMultiPort("in", NodeSignal)
	return s
}

func (s *testMultiSink) Initialize() error { return nil }
func (s *testMultiSink) SimulateOneTimestep() {}
func (s *testMultiSink) Finalize() {}

// testCounter counts its calls and has no ports.
type testCounter struct {
	ComponentBase
	inits, steps, finals int
}

func newTestCounter(name string) *testCounter {
	c := &testCounter{ComponentBase: NewComponentBase("TestCounter", TypeSignal)}
	c.name = name
	return c
}

func (c *testCounter) Initialize() error {
	c.inits++
	return nil
}

func (c *testCounter) SimulateOneTimestep() { c.steps++ }
func (c *testCounter) Finalize() { c.finals++ }

type testNaN struct {
	ComponentBase
	out *Port
}

func newTestNaN(name string) *testNaN {
	c := &testNaN{ComponentBase: NewComponentBase("TestNaN", TypeSignal)}
	c.name = name
	c.out = c.AddWritePort("out", NodeSignal)
	return c
}

func (c *testNaN) Initialize() error { return nil }
func (c *testNaN) SimulateOneTimestep() { c.out.WriteNode(SignalValue, math.NaN()) }
func (c *testNaN) Finalize() {}

// testVolume is a one-port hydraulic capacitance.
type testVolume struct {
	ComponentBase
	Cap, Zc float64
	p       float64
	P1      *Port
}

func newTestVolume(name string, p0 float64) *testVolume {
	v := &testVolume{ComponentBase: NewComponentBase("TestVolume", TypeC), Cap: 1, Zc: 1}
	v.name = name
	v.P1 = v.AddPowerPort("P1", NodeHydraulic)
	v.P1.SetStartValue(HydraulicPressure, p0)
	return v
}

func (v *testVolume) Initialize() error {
	v.p = v.P1.ReadNode(HydraulicPressure)
	v.publish()
	return nil
}

func (v *testVolume) SimulateOneTimestep() {
	v.p += v.Timestep() * v.P1.ReadNode(HydraulicFlow) / v.Cap
	v.publish()
}

func (v *testVolume) publish() {
	v.P1.WriteNode(HydraulicWaveVariable, v.p)
	v.P1.WriteNode(HydraulicCharImp, v.Zc)
}

func (v *testVolume) Finalize() {}

// testOrifice is a linear restriction between two capacitances.
type testOrifice struct {
	ComponentBase
	R      float64
	P1, P2 *Port
}

func newTestOrifice(name string) *testOrifice {
	o := &testOrifice{ComponentBase: NewComponentBase("TestOrifice", TypeQ), R: 1}
	o.name = name
	o.P1 = o.AddPowerPort("P1", NodeHydraulic)
	o.P2 = o.AddPowerPort("P2", NodeHydraulic)
	return o
}

func (o *testOrifice) Initialize() error { return nil }

func (o *testOrifice) SimulateOneTimestep() {
	c1, z1 := o.P1.ReadNode(HydraulicWaveVariable), o.P1.ReadNode(HydraulicCharImp)
	c2, z2 := o.P2.ReadNode(HydraulicWaveVariable), o.P2.ReadNode(HydraulicCharImp)
	q := (c1 - c2) / (z1 + z2 + o.R)
	o.P1.WriteNode(HydraulicFlow, -q)
	o.P2.WriteNode(HydraulicFlow, q)
	o.P1.WriteNode(HydraulicPressure, c1-z1*q)
	o.P2.WriteNode(HydraulicPressure, c2+z2*q)
}

func (o *testOrifice) Finalize() {}

// signalChain builds src -> gain -> sink with timestep ts.
func signalChain(t *testing.T, ts float64) (*System, *testSource, *testGain, *testSink) {
	t.Helper()
	root := NewSystem("root")
	if err := root.SetDesiredTimestep(ts); err != nil {
		t.Fatal(err)
	}
	src, gain, sink := newTestSource("src", 2), newTestGain("gain", 3), newTestSink("sink")
	if err := root.AddComponents(src, gain, sink); err != nil {
		t.Fatal(err)
	}
	if err := root.Connect(src.out, gain.in); err != nil {
		t.Fatal(err)
	}
	if err := root.Connect(gain.out, sink.in); err != nil {
		t.Fatal(err)
	}
	return root, src, gain, sink
}

// volumePairs builds n independent volume-orifice-volume chains, the first
// volume of each at a higher pressure than the second.
func volumePairs(n int) (*System, error) {
	root := NewSystem("pairs")
	if err := root.SetDesiredTimestep(0.01); err != nil {
		return nil, err
	}
	for i := 0; i < n; i++ {
		a := newTestVolume("a", 10+float64(i))
		b := newTestVolume("b", 1)
		o := newTestOrifice("orifice")
		if err := root.AddComponents(a, o, b); err != nil {
			return nil, err
		}
		if err := root.Connect(a.P1, o.P1); err != nil {
			return nil, err
		}
		if err := root.Connect(o.P2, b.P1); err != nil {
			return nil, err
		}
	}
	return root, nil
}
