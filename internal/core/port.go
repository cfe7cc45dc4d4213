package core

import (
	"fmt"
	"slices"
)

// PortKind is the capability variant of a port.
type PortKind int

const (
	PowerPort PortKind = iota
	ReadPort
	WritePort
	PowerMultiPort
	ReadMultiPort
	SystemPort
)

func (k PortKind) String() string {
	switch k {
	case PowerPort:
		return "PowerPort"
	case ReadPort:
		return "ReadPort"
	case WritePort:
		return "WritePort"
	case PowerMultiPort:
		return "PowerMultiPort"
	case ReadMultiPort:
		return "ReadMultiPort"
	case SystemPort:
		return "SystemPort"
	default:
		return fmt.Sprintf("PortKind(%d)", int(k))
	}
}

// IsMultiPort reports whether ports of this kind aggregate sub-ports.
func (k PortKind) IsMultiPort() bool {
	return k == PowerMultiPort || k == ReadMultiPort
}

func (k PortKind) canRead() bool {
	return k != WritePort
}

func (k PortKind) canWrite() bool {
	return k != ReadPort && k != ReadMultiPort
}

// subPortKind is the kind of the sub-ports a multiport creates.
func (k PortKind) subPortKind() PortKind {
	if k == ReadMultiPort {
		return ReadPort
	}
	return PowerPort
}

// Port is a named attachment point on a component. A port is either bound to
// a node (connected) or not; multiports never hold a node themselves and
// instead own one sub-port per connection.
type Port struct {
	name     string
	kind     PortKind
	nodeType NodeType
	required bool
	owner    *ComponentBase

	node      *Node
	connected []*Port

	start    []float64
	startSet []bool
	dummy    *Node

	parent   *Port
	subports []*Port
}

// PortOption customizes a port at creation.
type PortOption func(*Port)

// NotRequired marks a port that may stay unconnected during simulation.
func NotRequired() PortOption {
	return func(p *Port) { p.required = false }
}

func newPort(name string, kind PortKind, nodeType NodeType, owner *ComponentBase) *Port {
	p := &Port{
		name:     name,
		kind:     kind,
		nodeType: nodeType,
		required: kind != SystemPort,
		owner:    owner,
	}
	p.allocStart()
	return p
}

func (p *Port) allocStart() {
	desc, ok := p.nodeType.DataDescriptions()
	if !ok {
		p.start, p.startSet = nil, nil
		return
	}
	p.start = make([]float64, len(desc))
	p.startSet = make([]bool, len(desc))
}

func (p *Port) Name() string { return p.name }

func (p *Port) Kind() PortKind { return p.kind }

func (p *Port) NodeType() NodeType { return p.nodeType }

func (p *Port) IsRequired() bool { return p.required }

func (p *Port) IsMultiPort() bool { return p.kind.IsMultiPort() }

// Component returns the component that owns the port, or nil before the
// component is added to a system.
func (p *Port) Component() Component {
	if p.owner == nil {
		return nil
	}
	return p.owner.self
}

// FullName is "component.port", with a sub-port index for multiport members.
func (p *Port) FullName() string {
	if p.parent != nil {
		return fmt.Sprintf("%s#%d", p.parent.FullName(), slices.Index(p.parent.subports, p))
	}
	if p.owner == nil {
		return p.name
	}
	return p.owner.name + "." + p.name
}

// IsConnected reports whether the port (or any sub-port) is bound to a node.
func (p *Port) IsConnected() bool {
	if p.IsMultiPort() {
		return slices.ContainsFunc(p.subports, (*Port).IsConnected)
	}
	return p.node != nil
}

// Node returns the bound node, or nil.
func (p *Port) Node() *Node {
	if p.IsMultiPort() {
		if len(p.subports) == 0 {
			return nil
		}
		return p.subports[0].node
	}
	return p.node
}

// ConnectedPorts lists the ports directly connected to this one.
func (p *Port) ConnectedPorts() []*Port {
	if p.IsMultiPort() {
		var all []*Port
		for _, sp := range p.subports {
			all = append(all, sp.connected...)
		}
		return all
	}
	return slices.Clone(p.connected)
}

// SubPorts returns the sub-ports of a multiport.
func (p *Port) SubPorts() []*Port { return slices.Clone(p.subports) }

// NumPorts is the number of sub-ports of a multiport and 1 otherwise.
func (p *Port) NumPorts() int {
	if p.IsMultiPort() {
		return len(p.subports)
	}
	return 1
}

func (p *Port) setNode(n *Node) {
	if p.node != nil && p.node != n {
		p.node.removePort(p)
	}
	p.node = n
	n.addPort(p)
}

func (p *Port) clearNode() {
	if p.node != nil {
		p.node.removePort(p)
	}
	p.node = nil
}

func (p *Port) isAdjacent(other *Port) bool {
	return slices.Contains(p.connected, other)
}

func (p *Port) addConnection(other *Port) {
	if !p.isAdjacent(other) {
		p.connected = append(p.connected, other)
	}
}

func (p *Port) removeConnection(other *Port) {
	if i := slices.Index(p.connected, other); i >= 0 {
		p.connected = slices.Delete(p.connected, i, i+1)
	}
}

// members returns the sub-ports of a multiport, or the port itself.
func (p *Port) members() []*Port {
	if p.IsMultiPort() {
		return slices.Clone(p.subports)
	}
	return []*Port{p}
}

func (p *Port) active() *Port {
	if !p.IsMultiPort() {
		return p
	}
	if len(p.subports) == 0 {
		return nil
	}
	return p.subports[0]
}

func (p *Port) at(idx int) *Port {
	if !p.IsMultiPort() {
		if idx != 0 {
			panic(fmt.Sprintf("core: port %s is not a multiport", p.FullName()))
		}
		return p
	}
	if idx < 0 || idx >= len(p.subports) {
		panic(fmt.Sprintf("core: sub-port %d out of range on %s", idx, p.FullName()))
	}
	return p.subports[idx]
}

// ReadNode reads a slot of the bound node. Unconnected ports read their
// start value. Calling ReadNode on a write port panics.
func (p *Port) ReadNode(slot int) float64 {
	if !p.kind.canRead() {
		panic(fmt.Sprintf("core: cannot read from %s, it is a %s", p.FullName(), p.kind))
	}
	a := p.active()
	if a == nil || a.node == nil {
		return p.dummyNode().data[slot]
	}
	return a.node.data[slot]
}

// WriteNode writes a slot of the bound node. Calling WriteNode on a read
// port panics.
func (p *Port) WriteNode(slot int, v float64) {
	if !p.kind.canWrite() {
		panic(fmt.Sprintf("core: cannot write to %s, it is a %s", p.FullName(), p.kind))
	}
	a := p.active()
	if a == nil || a.node == nil {
		p.dummyNode().data[slot] = v
		return
	}
	a.node.data[slot] = v
}

// ReadNodeAt reads a slot through sub-port idx of a multiport.
func (p *Port) ReadNodeAt(idx, slot int) float64 {
	if !p.kind.canRead() {
		panic(fmt.Sprintf("core: cannot read from %s, it is a %s", p.FullName(), p.kind))
	}
	return p.at(idx).ReadNode(slot)
}

// WriteNodeAt writes a slot through sub-port idx of a multiport.
func (p *Port) WriteNodeAt(idx, slot int, v float64) {
	if !p.kind.canWrite() {
		panic(fmt.Sprintf("core: cannot write to %s, it is a %s", p.FullName(), p.kind))
	}
	p.at(idx).WriteNode(slot, v)
}

// SetStartValue stores a start value that is applied to the bound node when
// the owning system loads start values.
func (p *Port) SetStartValue(slot int, v float64) {
	if p.start == nil {
		panic(fmt.Sprintf("core: port %s has no node type", p.FullName()))
	}
	p.start[slot] = v
	p.startSet[slot] = true
	if p.dummy != nil {
		p.dummy.data[slot] = v
	}
	if p.node != nil {
		p.node.data[slot] = v
	}
}

// StartValue returns the start value of a slot and whether it was set
// explicitly.
func (p *Port) StartValue(slot int) (float64, bool) {
	if p.start == nil || slot < 0 || slot >= len(p.start) {
		return 0, false
	}
	return p.start[slot], p.startSet[slot]
}

func (p *Port) dummyNode() *Node {
	if p.dummy == nil {
		n, err := newNode(p.nodeType)
		if err != nil {
			panic(fmt.Sprintf("core: port %s: %v", p.FullName(), err))
		}
		copy(n.data, p.start)
		p.dummy = n
	}
	return p.dummy
}

func (p *Port) addSubPort() *Port {
	sp := newPort(p.name, p.kind.subPortKind(), p.nodeType, p.owner)
	sp.parent = p
	p.subports = append(p.subports, sp)
	return sp
}

func (p *Port) removeSubPort(sp *Port) {
	if i := slices.Index(p.subports, sp); i >= 0 {
		p.subports = slices.Delete(p.subports, i, i+1)
	}
	sp.parent = nil
}

// findSubPortConnectedTo returns the sub-port of multiport p adjacent to
// other, or nil.
func (p *Port) findSubPortConnectedTo(other *Port) *Port {
	for _, sp := range p.subports {
		if other.IsMultiPort() {
			for _, osp := range other.subports {
				if sp.isAdjacent(osp) {
					return sp
				}
			}
			continue
		}
		if sp.isAdjacent(other) {
			return sp
		}
	}
	return nil
}

// system is the system a port lives in: the owning system for system ports,
// the owning component's parent otherwise.
func (p *Port) system() *System {
	if p.owner == nil {
		return nil
	}
	if p.kind == SystemPort {
		return p.owner.sys
	}
	return p.owner.parent
}

// isPowerLike reports whether the port counts as a power port in node rules.
func (p *Port) isPowerLike() bool {
	return p.kind == PowerPort || p.kind == PowerMultiPort
}
