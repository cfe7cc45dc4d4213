package core

import (
	"fmt"
	"slices"
	"sort"
	"strconv"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/san-kum/tlmsim/internal/params"
)

// State is the lifecycle state of a [System].
type State int32

const (
	StateUnconfigured State = iota
	StateInitialized
	StateRunning
	StateFinalized
)

func (s State) String() string {
	switch s {
	case StateUnconfigured:
		return "unconfigured"
	case StateInitialized:
		return "initialized"
	case StateRunning:
		return "running"
	case StateFinalized:
		return "finalized"
	}
	return "State(" + strconv.Itoa(int(s)) + ")"
}

const (
	DefaultTimestep = 0.001
	DefaultSamples  = 2048
)

// System is a component that contains other components. It owns the nodes
// between its children, resolves names, and runs the timestep loop.
type System struct {
	ComponentBase

	components map[string]Component
	order      []Component
	reserved   map[string]struct{}
	nodes      []*Node

	desiredTimestep float64
	innerSteps      int
	cqsOverride     CQSType
	params          *params.SystemParameters

	state     atomic.Int32
	stop      atomic.Bool
	nanGuard  bool
	observers []Observer

	sched      schedule
	logEvery   int
	totalSteps int
	stepCount  int
}

// NewSystem creates an empty system.
func NewSystem(name string) *System {
	s := &System{
		ComponentBase:   NewComponentBase("Subsystem", TypeUndefined),
		components:      make(map[string]Component),
		reserved:        make(map[string]struct{}),
		desiredTimestep: DefaultTimestep,
		innerSteps:      1,
		params:          params.New(),
	}
	s.name = name
	s.self = s
	s.sys = s
	return s
}

// Kind is always KindSystem; the scheduler looks at TypeCQS to place a
// subsystem in a phase.
func (s *System) Kind() Kind { return KindSystem }

func (s *System) State() State { return State(s.state.Load()) }

func (s *System) setState(st State) { s.state.Store(int32(st)) }

func (s *System) isRunning() bool {
	for sys := s; sys != nil; sys = sys.parent {
		if sys.State() == StateRunning {
			return true
		}
	}
	return false
}

// markDirty drops the system and its ancestors back to Unconfigured after a
// structural change.
func (s *System) markDirty() {
	for sys := s; sys != nil; sys = sys.parent {
		sys.setState(StateUnconfigured)
	}
}

// SystemParameters returns the parameter registry of this system.
func (s *System) SystemParameters() *params.SystemParameters { return s.params }

// SetDesiredTimestep sets the timestep of a root system, or the requested
// inner timestep of a subsystem.
func (s *System) SetDesiredTimestep(ts float64) error {
	if ts <= 0 {
		return fmt.Errorf("%w: %g", ErrInvalidTimestep, ts)
	}
	s.desiredTimestep = ts
	s.markDirty()
	return nil
}

func (s *System) DesiredTimestep() float64 { return s.desiredTimestep }

// SetNaNGuard enables a check after every step that stops the run when a
// node holds NaN or Inf.
func (s *System) SetNaNGuard(on bool) { s.nanGuard = on }

// ReserveUniqueName reserves desired, or desired with the lowest free
// numeric suffix, and returns the reserved name.
func (s *System) ReserveUniqueName(desired string) string {
	if desired == "" {
		desired = "Component"
	}
	name := desired
	for i := 1; s.nameTaken(name); i++ {
		name = desired + "_" + strconv.Itoa(i)
	}
	s.reserved[name] = struct{}{}
	return name
}

func (s *System) nameTaken(name string) bool {
	if name == s.name {
		return true
	}
	_, ok := s.reserved[name]
	return ok
}

func (s *System) unReserveName(name string) {
	delete(s.reserved, name)
}

// AddComponent takes ownership of c. A name collision is resolved by
// appending a numeric suffix; c.Name() reports the final name.
func (s *System) AddComponent(c Component) error {
	if c == nil {
		return fmt.Errorf("%w: nil component", ErrUnknownComponent)
	}
	if s.isRunning() {
		return ErrSystemRunning
	}
	b := c.base()
	if b.parent != nil {
		return fmt.Errorf("%w: %s is owned by %s", ErrAlreadyOwned, b.name, b.parent.name)
	}
	if sub, ok := c.(*System); ok {
		if sub == s || s.isDescendantOf(sub) {
			return fmt.Errorf("%w: %s cannot contain itself", ErrAlreadyOwned, sub.name)
		}
	} else if _, ok := c.(Solver); !ok {
		return fmt.Errorf("%w: %s (%T)", ErrNotSolver, b.name, c)
	}

	requested := b.name
	b.name = s.ReserveUniqueName(requested)
	b.parent = s
	b.self = c
	s.components[b.name] = c
	s.order = append(s.order, c)
	s.markDirty()

	if b.name != requested {
		logrus.Debugf("%s: added %s as %s", s.name, requested, b.name)
	} else {
		logrus.Debugf("%s: added %s", s.name, b.name)
	}
	return nil
}

// AddComponents adds every component in order and stops at the first error.
func (s *System) AddComponents(cs ...Component) error {
	for _, c := range cs {
		if err := s.AddComponent(c); err != nil {
			return err
		}
	}
	return nil
}

// Component looks up a direct child by name.
func (s *System) Component(name string) (Component, error) {
	c, ok := s.components[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q in %s", ErrUnknownComponent, name, s.name)
	}
	return c, nil
}

func (s *System) HaveSubComponent(name string) bool {
	_, ok := s.components[name]
	return ok
}

// SubComponentNames returns the child names in sorted order.
func (s *System) SubComponentNames() []string {
	names := make([]string, 0, len(s.components))
	for name := range s.components {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SubComponents returns the children in insertion order.
func (s *System) SubComponents() []Component { return slices.Clone(s.order) }

// ComponentsByType returns the children of one CQS type in insertion order.
func (s *System) ComponentsByType(t CQSType) []Component {
	var out []Component
	for _, c := range s.order {
		if c.TypeCQS() == t {
			out = append(out, c)
		}
	}
	return out
}

// RenameSubComponent renames a child and returns the name actually given,
// which carries a suffix if newName was taken.
func (s *System) RenameSubComponent(oldName, newName string) (string, error) {
	if s.isRunning() {
		return "", ErrSystemRunning
	}
	c, ok := s.components[oldName]
	if !ok {
		return "", fmt.Errorf("%w: %q in %s", ErrUnknownComponent, oldName, s.name)
	}
	if newName == oldName {
		return oldName, nil
	}
	s.unReserveName(oldName)
	name := s.ReserveUniqueName(newName)
	delete(s.components, oldName)
	s.components[name] = c
	c.base().name = name
	logrus.Debugf("%s: renamed %s to %s", s.name, oldName, name)
	return name, nil
}

// RemoveSubComponent disconnects every port of a child and erases it. Its
// name stays reserved for the rest of the session.
func (s *System) RemoveSubComponent(name string) error {
	if s.isRunning() {
		return ErrSystemRunning
	}
	c, ok := s.components[name]
	if !ok {
		return fmt.Errorf("%w: %q in %s", ErrUnknownComponent, name, s.name)
	}
	b := c.base()
	for _, p := range b.portOrder {
		for _, m := range p.members() {
			for _, peer := range slices.Clone(m.connected) {
				if s.inScope(peer) {
					s.disconnectPorts(m, peer)
				}
			}
		}
	}
	b.unMapAllParameters()

	delete(s.components, name)
	if i := slices.Index(s.order, c); i >= 0 {
		s.order = slices.Delete(s.order, i, i+1)
	}
	b.parent = nil
	s.markDirty()
	logrus.Debugf("%s: removed %s", s.name, name)
	return nil
}

// AddSystemPort adds a port through which the system's children connect to
// the outside. Its node type is taken from the first connection.
func (s *System) AddSystemPort(name string) *Port {
	p := s.addPort(name, SystemPort, "", nil)
	s.markDirty()
	return p
}

// RenameSystemPort renames a system port and returns the name actually given.
func (s *System) RenameSystemPort(oldName, newName string) (string, error) {
	p, ok := s.ports[oldName]
	if !ok || p.kind != SystemPort {
		return "", fmt.Errorf("%w: %s.%s", ErrUnknownPort, s.name, oldName)
	}
	if oldName == newName {
		return oldName, nil
	}
	delete(s.ports, oldName)
	p.name = s.uniquePortName(newName)
	s.ports[p.name] = p
	return p.name, nil
}

// DeleteSystemPort disconnects a system port on both sides and removes it.
func (s *System) DeleteSystemPort(name string) error {
	if s.isRunning() {
		return ErrSystemRunning
	}
	p, ok := s.ports[name]
	if !ok || p.kind != SystemPort {
		return fmt.Errorf("%w: %s.%s", ErrUnknownPort, s.name, name)
	}
	for _, peer := range slices.Clone(p.connected) {
		if s.inScope(peer) {
			s.disconnectPorts(p, peer)
		} else if s.parent != nil {
			s.parent.disconnectPorts(p, peer)
		}
	}
	s.removePort(p)
	s.markDirty()
	return nil
}

// Nodes returns the nodes stored in this system.
func (s *System) Nodes() []*Node { return slices.Clone(s.nodes) }

func (s *System) NumNodes() int { return len(s.nodes) }

// AllNodes returns the nodes of this system and of every subsystem, parents
// first.
func (s *System) AllNodes() []*Node {
	all := slices.Clone(s.nodes)
	for _, c := range s.order {
		if sub, ok := c.(*System); ok {
			all = append(all, sub.AllNodes()...)
		}
	}
	return all
}

func (s *System) addNode(n *Node) {
	n.owner = s
	s.nodes = append(s.nodes, n)
}

func (s *System) removeNode(n *Node) {
	if i := slices.Index(s.nodes, n); i >= 0 {
		s.nodes = slices.Delete(s.nodes, i, i+1)
	}
	if n.owner == s {
		n.owner = nil
	}
}

// inScope reports whether p can take part in a connection made by s: it is
// either a system port of s or a port of a direct child.
func (s *System) inScope(p *Port) bool {
	o := p.owner
	return o != nil && (o == &s.ComponentBase || o.parent == s)
}

// DetermineCQSType derives the system's CQS type from the children attached
// to its system ports through power nodes. When no child reaches a system
// port, children that are all C (or all Q) make the system C (or Q) and any
// other mix makes it a self-contained Signal system. A forced type set with
// [System.SetTypeCQS] wins.
func (s *System) DetermineCQSType() CQSType {
	for _, c := range s.order {
		if sub, ok := c.(*System); ok {
			sub.DetermineCQSType()
		}
	}
	if s.cqsOverride != TypeUndefined {
		s.cqs = s.cqsOverride
		return s.cqs
	}

	var boundary []Component
	for _, c := range s.order {
		if s.touchesSystemPort(c) {
			boundary = append(boundary, c)
		}
	}
	if len(boundary) > 0 {
		s.cqs = commonCQS(boundary)
		return s.cqs
	}

	s.cqs = commonCQS(s.order)
	if s.cqs == TypeUndefined {
		s.cqs = TypeSignal
	}
	return s.cqs
}

// commonCQS is C or Q when every non-signal component agrees, Signal when
// there are none and Undefined otherwise.
func commonCQS(comps []Component) CQSType {
	var nC, nQ, nUndefined int
	for _, c := range comps {
		switch c.TypeCQS() {
		case TypeC:
			nC++
		case TypeQ:
			nQ++
		case TypeSignal:
		default:
			nUndefined++
		}
	}
	switch {
	case nUndefined > 0, nC > 0 && nQ > 0:
		return TypeUndefined
	case nC > 0:
		return TypeC
	case nQ > 0:
		return TypeQ
	}
	return TypeSignal
}

// touchesSystemPort reports whether c shares a non-signal node with one of
// the system ports of s.
func (s *System) touchesSystemPort(c Component) bool {
	for _, bp := range c.base().boundPorts() {
		if bp.node.typ == NodeSignal {
			continue
		}
		for _, np := range bp.node.ports {
			if np.kind == SystemPort && np.owner == &s.ComponentBase {
				return true
			}
		}
	}
	return false
}

// SetTypeCQS forces the CQS type of the system. TypeUndefined removes the
// override.
func (s *System) SetTypeCQS(t CQSType) {
	s.cqsOverride = t
	s.DetermineCQSType()
	s.markDirty()
}

// ChangeTypeCQS changes the CQS type of a child. It fails without changing
// anything if the new type would put two C or two Q components on one node.
func (s *System) ChangeTypeCQS(name string, t CQSType) error {
	if s.isRunning() {
		return ErrSystemRunning
	}
	c, ok := s.components[name]
	if !ok {
		return fmt.Errorf("%w: %q in %s", ErrUnknownComponent, name, s.name)
	}
	if n := s.cqsConflict(c, t); n != nil {
		return fmt.Errorf("%w: %s as %s on %s", ErrCQSConflict, name, t, n)
	}
	if sub, ok := c.(*System); ok {
		sub.SetTypeCQS(t)
	} else {
		c.base().cqs = t
	}
	s.markDirty()
	return nil
}

// cqsConflict returns the first node that would hold two C or two Q power
// ports if c had type t.
func (s *System) cqsConflict(c Component, t CQSType) *Node {
	b := c.base()
	sub, _ := c.(*System)
	for _, bp := range b.boundPorts() {
		if sub == nil && !bp.isPowerLike() {
			continue
		}
		nC, nQ := 0, 0
		count := func(x CQSType) {
			switch x {
			case TypeC:
				nC++
			case TypeQ:
				nQ++
			}
		}
		count(t)
		for _, np := range bp.node.ports {
			if np.owner == b || !np.isPowerLike() {
				continue
			}
			if sub != nil && np.owner.isDescendantOf(sub) {
				continue
			}
			count(np.owner.cqs)
		}
		if nC > 1 || nQ > 1 {
			return bp.node
		}
	}
	return nil
}

// Path is the slash-separated chain of subsystem names from below the root
// system down to s. It is empty for a root system.
func (s *System) Path() string {
	if s.parent == nil {
		return ""
	}
	if pp := s.parent.Path(); pp != "" {
		return pp + "/" + s.name
	}
	return s.name
}
