package core

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// CQSType classifies a component by the role it plays in TLM decoupling.
type CQSType int

const (
	TypeUndefined CQSType = iota
	TypeSignal
	TypeC
	TypeQ
)

func (t CQSType) String() string {
	switch t {
	case TypeSignal:
		return "S"
	case TypeC:
		return "C"
	case TypeQ:
		return "Q"
	default:
		return "UndefinedCQSType"
	}
}

// ParseCQSType accepts "S", "C", "Q" and the long names.
func ParseCQSType(s string) (CQSType, error) {
	switch strings.ToLower(s) {
	case "s", "signal":
		return TypeSignal, nil
	case "c":
		return TypeC, nil
	case "q":
		return TypeQ, nil
	case "", "undefined":
		return TypeUndefined, nil
	}
	return TypeUndefined, fmt.Errorf("unknown CQS type %q", s)
}

// Kind is the scheduling variant of a component.
type Kind int

const (
	KindUndefined Kind = iota
	KindSignal
	KindC
	KindQ
	KindSystem
)

// Solver is the per-timestep contract of a leaf component. Initialize runs
// once after start values are loaded, SimulateOneTimestep once per step in
// the component's phase, and Finalize once after the run.
type Solver interface {
	Initialize() error
	SimulateOneTimestep()
	Finalize()
}

// Component is anything a [System] can own. Leaf components embed
// [ComponentBase] and implement [Solver]; [System] is the only composite.
type Component interface {
	Name() string
	TypeName() string
	TypeCQS() CQSType
	Kind() Kind
	base() *ComponentBase
}

// Parameter is a registered component parameter backed by a field of the
// component.
type Parameter struct {
	Name        string
	Description string
	Unit        string
	value       *float64
	sysParName  string
}

// Value reads the backing field.
func (p *Parameter) Value() float64 { return *p.value }

// SystemParameter is the system parameter the value is mapped to, if any.
func (p *Parameter) SystemParameter() string { return p.sysParName }

// ComponentBase holds the state common to all components: name, CQS type,
// timestep, ports and parameters.
type ComponentBase struct {
	name     string
	typeName string
	cqs      CQSType
	timestep float64
	time     float64

	ports      map[string]*Port
	portOrder  []*Port
	parameters []*Parameter

	parent *System
	self   Component
	sys    *System
}

// NewComponentBase is called from leaf constructors:
//
//	g := &Gain{ComponentBase: core.NewComponentBase("SignalGain", core.TypeSignal)}
//	g.in = g.AddReadPort("in", core.NodeSignal)
func NewComponentBase(typeName string, cqs CQSType) ComponentBase {
	return ComponentBase{
		name:     typeName,
		typeName: typeName,
		cqs:      cqs,
		timestep: 0.001,
		ports:    make(map[string]*Port),
	}
}

func (c *ComponentBase) base() *ComponentBase { return c }

func (c *ComponentBase) Name() string { return c.name }

// SetName renames a component that has not been added to a system yet. Use
// [System.RenameSubComponent] afterwards.
func (c *ComponentBase) SetName(name string) error {
	if c.parent != nil {
		return fmt.Errorf("%w: rename %q through its system", ErrAlreadyOwned, c.name)
	}
	c.name = name
	return nil
}

func (c *ComponentBase) TypeName() string { return c.typeName }

func (c *ComponentBase) TypeCQS() CQSType { return c.cqs }

func (c *ComponentBase) Kind() Kind {
	switch c.cqs {
	case TypeSignal:
		return KindSignal
	case TypeC:
		return KindC
	case TypeQ:
		return KindQ
	}
	return KindUndefined
}

func (c *ComponentBase) Timestep() float64 { return c.timestep }

// Time is the simulation time of the step being computed.
func (c *ComponentBase) Time() float64 { return c.time }

// Parent is the owning system, nil for a root system or unowned component.
func (c *ComponentBase) Parent() *System { return c.parent }

// Port looks up a port by name.
func (c *ComponentBase) Port(name string) (*Port, error) {
	p, ok := c.ports[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownPort, c.name, name)
	}
	return p, nil
}

// Ports returns the ports in creation order.
func (c *ComponentBase) Ports() []*Port { return slices.Clone(c.portOrder) }

func (c *ComponentBase) PortNames() []string {
	names := make([]string, len(c.portOrder))
	for i, p := range c.portOrder {
		names[i] = p.name
	}
	return names
}

func (c *ComponentBase) uniquePortName(desired string) string {
	if desired == "" {
		desired = "Port"
	}
	if _, taken := c.ports[desired]; !taken {
		return desired
	}
	for i := 1; ; i++ {
		candidate := desired + "_" + strconv.Itoa(i)
		if _, taken := c.ports[candidate]; !taken {
			return candidate
		}
	}
}

func (c *ComponentBase) addPort(name string, kind PortKind, nodeType NodeType, opts []PortOption) *Port {
	p := newPort(c.uniquePortName(name), kind, nodeType, c)
	for _, opt := range opts {
		opt(p)
	}
	c.ports[p.name] = p
	c.portOrder = append(c.portOrder, p)
	return p
}

func (c *ComponentBase) removePort(p *Port) {
	delete(c.ports, p.name)
	if i := slices.Index(c.portOrder, p); i >= 0 {
		c.portOrder = slices.Delete(c.portOrder, i, i+1)
	}
}

// AddPowerPort adds a bidirectional port.
func (c *ComponentBase) AddPowerPort(name string, nodeType NodeType, opts ...PortOption) *Port {
	return c.addPort(name, PowerPort, nodeType, opts)
}

// AddReadPort adds a port that can only read its node.
func (c *ComponentBase) AddReadPort(name string, nodeType NodeType, opts ...PortOption) *Port {
	return c.addPort(name, ReadPort, nodeType, opts)
}

// AddWritePort adds a port that can only write its node.
func (c *ComponentBase) AddWritePort(name string, nodeType NodeType, opts ...PortOption) *Port {
	return c.addPort(name, WritePort, nodeType, opts)
}

// AddPowerMultiPort adds a power port accepting any number of peers.
func (c *ComponentBase) AddPowerMultiPort(name string, nodeType NodeType, opts ...PortOption) *Port {
	return c.addPort(name, PowerMultiPort, nodeType, opts)
}

// AddReadMultiPort adds a read port accepting any number of peers.
func (c *ComponentBase) AddReadMultiPort(name string, nodeType NodeType, opts ...PortOption) *Port {
	return c.addPort(name, ReadMultiPort, nodeType, opts)
}

// GetSafeNodeDataPtr returns a pointer to a slot of the port's node that
// stays valid for the rest of the run. An unconnected port gets a private
// slot preset to defaultValue, or to its start value when no default is given.
func (c *ComponentBase) GetSafeNodeDataPtr(p *Port, slot int, defaultValue ...float64) *float64 {
	if p.IsMultiPort() {
		return c.GetSafeMultiPortNodeDataPtr(p, 0, slot, defaultValue...)
	}
	if p.node != nil {
		return p.node.dataPtr(slot)
	}
	d := p.dummyNode()
	ptr := d.dataPtr(slot)
	if len(defaultValue) > 0 {
		*ptr = defaultValue[0]
	} else if v, ok := p.StartValue(slot); ok {
		*ptr = v
	}
	return ptr
}

// GetSafeMultiPortNodeDataPtr is GetSafeNodeDataPtr for sub-port idx.
func (c *ComponentBase) GetSafeMultiPortNodeDataPtr(p *Port, idx, slot int, defaultValue ...float64) *float64 {
	if !p.IsMultiPort() {
		return c.GetSafeNodeDataPtr(p, slot, defaultValue...)
	}
	if idx >= len(p.subports) {
		d := p.dummyNode()
		ptr := d.dataPtr(slot)
		if len(defaultValue) > 0 {
			*ptr = defaultValue[0]
		}
		return ptr
	}
	return c.GetSafeNodeDataPtr(p.at(idx), slot, defaultValue...)
}

// RegisterParameter exposes a float64 field as a named parameter.
// Registering the same name twice panics.
func (c *ComponentBase) RegisterParameter(name, description, unit string, value *float64) {
	if value == nil {
		panic(fmt.Sprintf("core: parameter %s.%s has no backing field", c.name, name))
	}
	if c.parameter(name) != nil {
		panic(fmt.Sprintf("core: parameter %s.%s registered twice", c.name, name))
	}
	c.parameters = append(c.parameters, &Parameter{
		Name:        name,
		Description: description,
		Unit:        unit,
		value:       value,
	})
}

func (c *ComponentBase) parameter(name string) *Parameter {
	for _, p := range c.parameters {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// Parameters lists the registered parameters in registration order.
func (c *ComponentBase) Parameters() []*Parameter { return slices.Clone(c.parameters) }

// ParameterValue reads a parameter.
func (c *ComponentBase) ParameterValue(name string) (float64, error) {
	p := c.parameter(name)
	if p == nil {
		return 0, fmt.Errorf("%w: %s.%s", ErrUnknownParameter, c.name, name)
	}
	return *p.value, nil
}

// SetParameterValue writes a parameter. A parameter mapped to a system
// parameter is overwritten again on the next system parameter update.
func (c *ComponentBase) SetParameterValue(name string, v float64) error {
	p := c.parameter(name)
	if p == nil {
		return fmt.Errorf("%w: %s.%s", ErrUnknownParameter, c.name, name)
	}
	*p.value = v
	return nil
}

// MapParameterToSystem keeps a parameter in sync with a system parameter of
// the parent system.
func (c *ComponentBase) MapParameterToSystem(name, sysParName string) error {
	p := c.parameter(name)
	if p == nil {
		return fmt.Errorf("%w: %s.%s", ErrUnknownParameter, c.name, name)
	}
	if c.parent == nil {
		return fmt.Errorf("%w: %s has no parent system", ErrUnknownComponent, c.name)
	}
	if err := c.parent.params.MapParameter(sysParName, p.value); err != nil {
		return err
	}
	p.sysParName = sysParName
	return nil
}

// UnMapParameterFromSystem drops the system parameter mapping of a
// parameter.
func (c *ComponentBase) UnMapParameterFromSystem(name string) error {
	p := c.parameter(name)
	if p == nil {
		return fmt.Errorf("%w: %s.%s", ErrUnknownParameter, c.name, name)
	}
	if c.parent != nil && p.sysParName != "" {
		c.parent.params.UnMapParameter(p.sysParName, p.value)
	}
	p.sysParName = ""
	return nil
}

func (c *ComponentBase) unMapAllParameters() {
	if c.parent == nil {
		return
	}
	for _, p := range c.parameters {
		c.parent.params.UnMapAll(p.value)
		p.sysParName = ""
	}
}

// boundPorts returns every port bound to a node, expanding multiports.
func (c *ComponentBase) boundPorts() []*Port {
	var bound []*Port
	for _, p := range c.portOrder {
		if p.IsMultiPort() {
			for _, sp := range p.subports {
				if sp.node != nil {
					bound = append(bound, sp)
				}
			}
			continue
		}
		if p.node != nil {
			bound = append(bound, p)
		}
	}
	return bound
}

// isDescendantOf reports whether the component sits anywhere below sys.
func (c *ComponentBase) isDescendantOf(sys *System) bool {
	for p := c.parent; p != nil; p = p.parent {
		if p == sys {
			return true
		}
	}
	return false
}
