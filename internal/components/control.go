package components

import (
	"github.com/san-kum/tlmsim/internal/core"
	"github.com/san-kum/tlmsim/internal/integrators"
)

// PID writes Kp*e + Ki*integral(e) + Kd*de/dt with e = ref - in. The
// integral is clamped to [-IMax, IMax].
type PID struct {
	core.ComponentBase
	Kp, Ki, Kd float64
	IMax       float64

	ref, in, out *core.Port
	pRef, pIn    *float64
	pOut         *float64

	integral *integrators.Limited
	prevErr  float64
	first    bool
}

func NewPID() *PID {
	p := &PID{ComponentBase: core.NewComponentBase("SignalPID", core.TypeSignal), Kp: 1, IMax: 1e12}
	p.ref = p.AddReadPort("ref", core.NodeSignal, core.NotRequired())
	p.in = p.AddReadPort("in", core.NodeSignal, core.NotRequired())
	p.out = p.AddWritePort("out", core.NodeSignal, core.NotRequired())
	p.RegisterParameter("k_p", "Proportional gain", "-", &p.Kp)
	p.RegisterParameter("k_i", "Integral gain", "1/s", &p.Ki)
	p.RegisterParameter("k_d", "Derivative gain", "s", &p.Kd)
	p.RegisterParameter("I_max", "Integral limit", "-", &p.IMax)
	return p
}

func (p *PID) Initialize() error {
	p.pRef = p.GetSafeNodeDataPtr(p.ref, core.SignalValue, 0)
	p.pIn = p.GetSafeNodeDataPtr(p.in, core.SignalValue, 0)
	p.pOut = p.GetSafeNodeDataPtr(p.out, core.SignalValue)
	p.integral = integrators.NewLimited(-p.IMax, p.IMax)
	p.first = true
	*p.pOut = 0
	return nil
}

func (p *PID) SimulateOneTimestep() {
	e := *p.pRef - *p.pIn
	if p.first {
		p.integral.Initialize(p.Timestep(), e, 0)
		p.prevErr = e
		p.first = false
	}
	i := p.integral.Update(e)
	d := (e - p.prevErr) / p.Timestep()
	p.prevErr = e
	*p.pOut = p.Kp*e + p.Ki*i + p.Kd*d
}

func (p *PID) Finalize() {}
