package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/tlmsim/internal/components"
	"github.com/san-kum/tlmsim/internal/core"
)

// Factory creates a fresh, unowned component.
type Factory func() core.Component

// Registry maps component type names to factories.
type Registry struct {
	components map[string]Factory
}

func NewRegistry() *Registry {
	r := &Registry{components: make(map[string]Factory)}

	for _, f := range []Factory{
		func() core.Component { return components.NewConstant() },
		func() core.Component { return components.NewStep() },
		func() core.Component { return components.NewSine() },
		func() core.Component { return components.NewGain() },
		func() core.Component { return components.NewAdd() },
		func() core.Component { return components.NewIntegrator() },
		func() core.Component { return components.NewSink() },
		func() core.Component { return components.NewPID() },

		func() core.Component { return components.NewPressureSourceC() },
		func() core.Component { return components.NewPressureSourceQ() },
		func() core.Component { return components.NewFlowSourceQ() },
		func() core.Component { return components.NewOrifice() },
		func() core.Component { return components.NewVolume() },
		func() core.Component { return components.NewLosslessLine() },

		func() core.Component { return components.NewGround() },
		func() core.Component { return components.NewVoltageSourceC() },
		func() core.Component { return components.NewResistor() },
		func() core.Component { return components.NewCapacitor() },
	} {
		if err := r.Register(f); err != nil {
			panic(err)
		}
	}
	return r
}

// Register adds a factory under the type name of the components it builds.
func (r *Registry) Register(f Factory) error {
	name := f().TypeName()
	if _, ok := r.components[name]; ok {
		return fmt.Errorf("component type %s already registered", name)
	}
	r.components[name] = f
	return nil
}

func (r *Registry) New(typeName string) (core.Component, error) {
	fn, ok := r.components[typeName]
	if !ok {
		return nil, fmt.Errorf("unknown component type: %s", typeName)
	}
	return fn(), nil
}

// ListComponents returns the registered type names in sorted order.
func (r *Registry) ListComponents() []string {
	names := make([]string, 0, len(r.components))
	for name := range r.components {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// PortInfo describes one port of a component type.
type PortInfo struct {
	Name     string
	Kind     core.PortKind
	NodeType core.NodeType
	Required bool
}

// ComponentInfo describes a component type as its factory builds it.
type ComponentInfo struct {
	TypeName   string
	CQS        core.CQSType
	Ports      []PortInfo
	Parameters []*core.Parameter
}

// Describe lists the ports and parameters of a component type.
func (r *Registry) Describe(typeName string) (ComponentInfo, error) {
	c, err := r.New(typeName)
	if err != nil {
		return ComponentInfo{}, err
	}
	leaf, ok := c.(interface {
		Ports() []*core.Port
		Parameters() []*core.Parameter
	})
	if !ok {
		return ComponentInfo{}, fmt.Errorf("component type %s cannot be described", typeName)
	}
	info := ComponentInfo{TypeName: typeName, CQS: c.TypeCQS(), Parameters: leaf.Parameters()}
	for _, p := range leaf.Ports() {
		info.Ports = append(info.Ports, PortInfo{
			Name:     p.Name(),
			Kind:     p.Kind(),
			NodeType: p.NodeType(),
			Required: p.IsRequired(),
		})
	}
	return info, nil
}
