package components

import "github.com/san-kum/tlmsim/internal/core"

// Electric nodes follow the hydraulic convention with voltage for pressure
// and current for flow: u = c + Zc*i, current positive into the C side.

type electricPtrs struct {
	u, i, c, zc *float64
}

func electricNode(b *core.ComponentBase, port *core.Port) electricPtrs {
	return electricPtrs{
		u:  b.GetSafeNodeDataPtr(port, core.ElectricVoltage),
		i:  b.GetSafeNodeDataPtr(port, core.ElectricCurrent),
		c:  b.GetSafeNodeDataPtr(port, core.ElectricWaveVariable),
		zc: b.GetSafeNodeDataPtr(port, core.ElectricCharImp),
	}
}

// Ground holds its node at zero volts.
type Ground struct {
	core.ComponentBase

	port *core.Port
	nd   electricPtrs
}

func NewGround() *Ground {
	g := &Ground{ComponentBase: core.NewComponentBase("ElectricGround", core.TypeC)}
	g.port = g.AddPowerPort("Pel1", core.NodeElectric)
	return g
}

func (g *Ground) Initialize() error {
	g.nd = electricNode(&g.ComponentBase, g.port)
	g.SimulateOneTimestep()
	return nil
}

func (g *Ground) SimulateOneTimestep() {
	*g.nd.c = 0
	*g.nd.zc = 0
}

func (g *Ground) Finalize() {}

// VoltageSourceC is an ideal voltage source against ground.
type VoltageSourceC struct {
	core.ComponentBase
	U float64

	port *core.Port
	nd   electricPtrs
}

func NewVoltageSourceC() *VoltageSourceC {
	s := &VoltageSourceC{ComponentBase: core.NewComponentBase("ElectricVoltageSourceC", core.TypeC), U: 12}
	s.port = s.AddPowerPort("Pel1", core.NodeElectric)
	s.RegisterParameter("U", "Voltage", "V", &s.U)
	return s
}

func (s *VoltageSourceC) Initialize() error {
	s.nd = electricNode(&s.ComponentBase, s.port)
	*s.nd.u = s.U
	s.SimulateOneTimestep()
	return nil
}

func (s *VoltageSourceC) SimulateOneTimestep() {
	*s.nd.c = s.U
	*s.nd.zc = 0
}

func (s *VoltageSourceC) Finalize() {}

// Resistor connects two C components through resistance R.
type Resistor struct {
	core.ComponentBase
	R float64

	p1, p2   *core.Port
	nd1, nd2 electricPtrs
}

func NewResistor() *Resistor {
	r := &Resistor{ComponentBase: core.NewComponentBase("ElectricResistor", core.TypeQ), R: 1}
	r.p1 = r.AddPowerPort("Pel1", core.NodeElectric)
	r.p2 = r.AddPowerPort("Pel2", core.NodeElectric)
	r.RegisterParameter("R", "Resistance", "Ohm", &r.R)
	return r
}

func (r *Resistor) Initialize() error {
	r.nd1 = electricNode(&r.ComponentBase, r.p1)
	r.nd2 = electricNode(&r.ComponentBase, r.p2)
	return nil
}

func (r *Resistor) SimulateOneTimestep() {
	c1, zc1 := *r.nd1.c, *r.nd1.zc
	c2, zc2 := *r.nd2.c, *r.nd2.zc

	i2 := (c1 - c2) / (r.R + zc1 + zc2)
	i1 := -i2

	*r.nd1.i = i1
	*r.nd1.u = c1 + zc1*i1
	*r.nd2.i = i2
	*r.nd2.u = c2 + zc2*i2
}

func (r *Resistor) Finalize() {}

// Capacitor is a capacitance C against ground. With Zc = dt/(2C) the wave
// update is the trapezoidal rule for du/dt = i/C.
type Capacitor struct {
	core.ComponentBase
	C float64

	port *core.Port
	nd   electricPtrs
	zc   float64
}

func NewCapacitor() *Capacitor {
	c := &Capacitor{ComponentBase: core.NewComponentBase("ElectricCapacitor", core.TypeC), C: 1e-3}
	c.port = c.AddPowerPort("Pel1", core.NodeElectric)
	c.RegisterParameter("C", "Capacitance", "F", &c.C)
	return c
}

func (c *Capacitor) Initialize() error {
	c.nd = electricNode(&c.ComponentBase, c.port)
	c.zc = c.Timestep() / (2 * c.C)
	*c.nd.zc = c.zc
	*c.nd.c = *c.nd.u + c.zc*(*c.nd.i)
	return nil
}

func (c *Capacitor) SimulateOneTimestep() {
	*c.nd.c = *c.nd.u + c.zc*(*c.nd.i)
	*c.nd.zc = c.zc
}

func (c *Capacitor) Finalize() {}

// Voltage is the capacitor voltage after the last Q phase.
func (c *Capacitor) Voltage() float64 { return *c.nd.u }
