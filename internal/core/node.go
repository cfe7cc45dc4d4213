package core

import (
	"fmt"
	"math"
	"slices"
	"sort"
	"sync"
	"sync/atomic"
)

// NodeType names the physical domain of a node. Ports declare the node type
// they accept and only ports with the same node type can share a node.
type NodeType string

const (
	NodeSignal    NodeType = "NodeSignal"
	NodeHydraulic NodeType = "NodeHydraulic"
	NodeMechanic  NodeType = "NodeMechanic"
	NodeElectric  NodeType = "NodeElectric"
)

// Data slots of NodeSignal.
const (
	SignalValue = iota
)

// Data slots of NodeHydraulic.
const (
	HydraulicFlow = iota
	HydraulicPressure
	HydraulicWaveVariable
	HydraulicCharImp
)

// Data slots of NodeMechanic.
const (
	MechanicVelocity = iota
	MechanicForce
	MechanicPosition
	MechanicWaveVariable
	MechanicCharImp
	MechanicEquivalentMass
)

// Data slots of NodeElectric.
const (
	ElectricVoltage = iota
	ElectricCurrent
	ElectricWaveVariable
	ElectricCharImp
)

// DataDescription names one data slot of a node type.
type DataDescription struct {
	Name string
	Unit string
}

var (
	nodeTypesMu sync.RWMutex
	nodeTypes   = map[NodeType][]DataDescription{
		NodeSignal: {
			{Name: "Value", Unit: "-"},
		},
		NodeHydraulic: {
			{Name: "Flow", Unit: "m^3/s"},
			{Name: "Pressure", Unit: "Pa"},
			{Name: "WaveVariable", Unit: "Pa"},
			{Name: "CharImp", Unit: "Pa s/m^3"},
		},
		NodeMechanic: {
			{Name: "Velocity", Unit: "m/s"},
			{Name: "Force", Unit: "N"},
			{Name: "Position", Unit: "m"},
			{Name: "WaveVariable", Unit: "N"},
			{Name: "CharImp", Unit: "N s/m"},
			{Name: "EquivalentMass", Unit: "kg"},
		},
		NodeElectric: {
			{Name: "Voltage", Unit: "V"},
			{Name: "Current", Unit: "A"},
			{Name: "WaveVariable", Unit: "V"},
			{Name: "CharImp", Unit: "V/A"},
		},
	}
)

// RegisterNodeType adds a node type. Registering an existing type fails.
func RegisterNodeType(t NodeType, slots []DataDescription) error {
	if t == "" || len(slots) == 0 {
		return fmt.Errorf("%w: empty node type description", ErrUndefinedNodeType)
	}
	nodeTypesMu.Lock()
	defer nodeTypesMu.Unlock()
	if _, ok := nodeTypes[t]; ok {
		return fmt.Errorf("node type %s already registered", t)
	}
	nodeTypes[t] = slices.Clone(slots)
	return nil
}

// NodeTypes lists the registered node types in name order.
func NodeTypes() []NodeType {
	nodeTypesMu.RLock()
	defer nodeTypesMu.RUnlock()
	types := make([]NodeType, 0, len(nodeTypes))
	for t := range nodeTypes {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// DataDescriptions returns the slot layout of a node type.
func (t NodeType) DataDescriptions() ([]DataDescription, bool) {
	nodeTypesMu.RLock()
	defer nodeTypesMu.RUnlock()
	d, ok := nodeTypes[t]
	return d, ok
}

// SlotIndex looks up a data slot by name.
func (t NodeType) SlotIndex(name string) (int, bool) {
	desc, ok := t.DataDescriptions()
	if !ok {
		return 0, false
	}
	for i, d := range desc {
		if d.Name == name {
			return i, true
		}
	}
	return 0, false
}

// NodeID is the stable identity of a node.
type NodeID uint64

var nodeIDs atomic.Uint64

// Node is the shared memory record behind a set of connected ports. Slot
// storage is allocated once, so pointers handed out by
// [ComponentBase.GetSafeNodeDataPtr] stay valid for the node's lifetime.
type Node struct {
	id    NodeID
	typ   NodeType
	desc  []DataDescription
	data  []float64
	ports []*Port
	owner *System

	logTimes []float64
	logData  []float64
}

func newNode(t NodeType) (*Node, error) {
	desc, ok := t.DataDescriptions()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUndefinedNodeType, t)
	}
	return &Node{
		id:   NodeID(nodeIDs.Add(1)),
		typ:  t,
		desc: desc,
		data: make([]float64, len(desc)),
	}, nil
}

func (n *Node) ID() NodeID { return n.id }

func (n *Node) Type() NodeType { return n.typ }

// Owner is the system responsible for storing and logging the node.
func (n *Node) Owner() *System { return n.owner }

func (n *Node) NumDataVariables() int { return len(n.data) }

func (n *Node) DataDescriptions() []DataDescription { return n.desc }

// Data reads one slot.
func (n *Node) Data(slot int) float64 {
	return n.data[slot]
}

// SetData writes one slot.
func (n *Node) SetData(slot int, v float64) {
	n.data[slot] = v
}

func (n *Node) dataPtr(slot int) *float64 {
	if slot < 0 || slot >= len(n.data) {
		panic(fmt.Sprintf("core: slot %d out of range for %s", slot, n.typ))
	}
	return &n.data[slot]
}

// Ports returns the ports currently bound to the node.
func (n *Node) Ports() []*Port {
	return slices.Clone(n.ports)
}

func (n *Node) NumPorts() int { return len(n.ports) }

func (n *Node) hasPort(p *Port) bool {
	return slices.Contains(n.ports, p)
}

func (n *Node) addPort(p *Port) {
	if !n.hasPort(p) {
		n.ports = append(n.ports, p)
	}
}

func (n *Node) removePort(p *Port) {
	if i := slices.Index(n.ports, p); i >= 0 {
		n.ports = slices.Delete(n.ports, i, i+1)
	}
}

func (n *Node) copyDataFrom(other *Node) {
	copy(n.data, other.data)
}

func (n *Node) resetData() {
	clear(n.data)
}

// loadStartValues applies the explicit start values of every bound port in
// port order.
func (n *Node) loadStartValues() {
	for _, p := range n.ports {
		for slot, set := range p.startSet {
			if set {
				n.data[slot] = p.start[slot]
			}
		}
	}
}

func (n *Node) isFinite() bool {
	for _, v := range n.data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (n *Node) preAllocateLog(samples int) {
	n.logTimes = make([]float64, 0, samples)
	n.logData = make([]float64, 0, samples*len(n.data))
}

func (n *Node) logSample(t float64) {
	n.logTimes = append(n.logTimes, t)
	n.logData = append(n.logData, n.data...)
}

// NumLogSamples is the number of samples logged since the last Initialize.
func (n *Node) NumLogSamples() int { return len(n.logTimes) }

// LogTimes returns the sample times.
func (n *Node) LogTimes() []float64 {
	return slices.Clone(n.logTimes)
}

// LogSeries returns the logged values of one slot.
func (n *Node) LogSeries(slot int) []float64 {
	nv := len(n.data)
	series := make([]float64, len(n.logTimes))
	for i := range series {
		series[i] = n.logData[i*nv+slot]
	}
	return series
}

// LogData returns the sample times and one row of slot values per sample.
func (n *Node) LogData() ([]float64, [][]float64) {
	nv := len(n.data)
	rows := make([][]float64, len(n.logTimes))
	for i := range rows {
		rows[i] = slices.Clone(n.logData[i*nv : (i+1)*nv])
	}
	return n.LogTimes(), rows
}

// Label names the node after one of its ports, preferring the port that
// writes it, qualified by the subsystem path below the root system.
func (n *Node) Label() string {
	var best *Port
	for _, p := range n.ports {
		switch p.kind {
		case WritePort, PowerPort:
			if best == nil || best.kind != WritePort && best.kind != PowerPort {
				best = p
			}
		case SystemPort:
			if best == nil {
				best = p
			}
		default:
			if best == nil || best.kind == SystemPort {
				best = p
			}
		}
	}
	if best == nil {
		return n.String()
	}
	name := best.FullName()
	if best.owner != nil && best.owner.parent != nil {
		if path := best.owner.parent.Path(); path != "" {
			name = path + "/" + name
		}
	}
	return name
}

func (n *Node) String() string {
	return fmt.Sprintf("%s#%d", n.typ, n.id)
}
