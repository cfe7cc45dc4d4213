package metrics

import (
	"fmt"

	"github.com/san-kum/tlmsim/internal/core"
)

// Energy integrates the power passing through one node, effort times flow,
// over a run with the trapezoidal rule. Flow is positive into the C
// component of the node.
type Energy struct {
	name         string
	node         *core.Node
	effort, flow int
	lastT        float64
	lastP        float64
	total        float64
}

// NewEnergy watches a power node. Signal nodes carry no power.
func NewEnergy(node *core.Node) (*Energy, error) {
	var effort, flow int
	switch node.Type() {
	case core.NodeHydraulic:
		effort, flow = core.HydraulicPressure, core.HydraulicFlow
	case core.NodeElectric:
		effort, flow = core.ElectricVoltage, core.ElectricCurrent
	case core.NodeMechanic:
		effort, flow = core.MechanicForce, core.MechanicVelocity
	default:
		return nil, fmt.Errorf("%s carries no power", node)
	}
	return &Energy{
		name:   "energy:" + node.Label(),
		node:   node,
		effort: effort,
		flow:   flow,
	}, nil
}

func (e *Energy) Name() string { return e.name }

func (e *Energy) power() float64 {
	return e.node.Data(e.effort) * e.node.Data(e.flow)
}

func (e *Energy) OnRunStart(sys *core.System, startT, stopT float64, threads int) {
	e.lastT = startT
	e.lastP = e.power()
}

func (e *Energy) OnStep(sys *core.System, info core.StepInfo) {
	p := e.power()
	e.total += 0.5 * (p + e.lastP) * (info.Time - e.lastT)
	e.lastT, e.lastP = info.Time, p
}

func (e *Energy) OnRunEnd(sys *core.System, steps int, err error) {}

// Value is the energy in joules since the last Reset.
func (e *Energy) Value() float64 { return e.total }

func (e *Energy) Reset() {
	e.total = 0
}
