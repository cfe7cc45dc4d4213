package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/tlmsim/internal/config"
	"github.com/san-kum/tlmsim/internal/core"
)

// configurable is the part of a component a model file can set. Every leaf
// embedding core.ComponentBase and every core.System provides it.
type configurable interface {
	core.Component
	SetName(name string) error
	Port(name string) (*core.Port, error)
	SetParameterValue(name string, v float64) error
	MapParameterToSystem(name, sysParName string) error
}

// Build creates the root system described by cfg.
func Build(cfg *config.Config, reg *Registry) (*core.System, error) {
	sys := core.NewSystem(cfg.Name)
	if err := sys.SetDesiredTimestep(cfg.Timestep); err != nil {
		return nil, err
	}
	if err := buildSystem(sys, &cfg.System, reg); err != nil {
		return nil, fmt.Errorf("build %s: %w", cfg.Name, err)
	}
	sys.SetNaNGuard(cfg.NaNGuard)
	return sys, nil
}

func buildSystem(sys *core.System, sc *config.SystemConfig, reg *Registry) error {
	if sc.Timestep > 0 {
		if err := sys.SetDesiredTimestep(sc.Timestep); err != nil {
			return err
		}
	}
	for _, name := range sortedKeys(sc.Parameters) {
		if err := sys.SystemParameters().Add(name, sc.Parameters[name]); err != nil {
			return fmt.Errorf("system parameter %s: %w", name, err)
		}
	}
	for _, name := range sc.Ports {
		if got := sys.AddSystemPort(name).Name(); got != name {
			return fmt.Errorf("system port %q: name taken, got %q", name, got)
		}
	}

	for _, cc := range sc.Components {
		c, err := newComponent(cc, reg)
		if err != nil {
			return err
		}
		if err := sys.AddComponent(c); err != nil {
			return fmt.Errorf("add %s: %w", cc.Name, err)
		}
		if c.Name() != cc.Name {
			return fmt.Errorf("component name %q is taken in %s", cc.Name, sys.Name())
		}
		if err := applyMappings(c, cc); err != nil {
			return err
		}
		if err := applyStartValues(c, cc); err != nil {
			return err
		}
		// Overrides go in before any connection so the connection rules
		// see the final types.
		if cc.CQS != "" {
			t, err := core.ParseCQSType(cc.CQS)
			if err != nil {
				return fmt.Errorf("%s: %w", cc.Name, err)
			}
			if err := sys.ChangeTypeCQS(cc.Name, t); err != nil {
				return err
			}
		}
	}

	for i, conn := range sc.Connections {
		comp1, port1, comp2, port2, err := conn.Endpoints()
		if err != nil {
			return fmt.Errorf("connection %d: %w", i, err)
		}
		if err := sys.ConnectByName(comp1, port1, comp2, port2); err != nil {
			return err
		}
	}

	if sc.CQS != "" {
		t, err := core.ParseCQSType(sc.CQS)
		if err != nil {
			return fmt.Errorf("%s: %w", sys.Name(), err)
		}
		sys.SetTypeCQS(t)
	}
	return nil
}

func newComponent(cc config.ComponentConfig, reg *Registry) (configurable, error) {
	if cc.Type == config.SubsystemType {
		if cc.System == nil {
			return nil, fmt.Errorf("subsystem %s has no system", cc.Name)
		}
		sub := core.NewSystem(cc.Name)
		if err := buildSystem(sub, cc.System, reg); err != nil {
			return nil, fmt.Errorf("subsystem %s: %w", cc.Name, err)
		}
		// Parameters of a subsystem entry override its system parameters.
		sp := sub.SystemParameters()
		for _, name := range sortedKeys(cc.Parameters) {
			if err := sp.SetValue(name, cc.Parameters[name]); err != nil {
				if err := sp.Add(name, cc.Parameters[name]); err != nil {
					return nil, err
				}
			}
		}
		return sub, nil
	}

	c, err := reg.New(cc.Type)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cc.Name, err)
	}
	leaf, ok := c.(configurable)
	if !ok {
		return nil, fmt.Errorf("%s: type %s cannot be configured", cc.Name, cc.Type)
	}
	if err := leaf.SetName(cc.Name); err != nil {
		return nil, err
	}
	for _, name := range sortedKeys(cc.Parameters) {
		if err := leaf.SetParameterValue(name, cc.Parameters[name]); err != nil {
			return nil, err
		}
	}
	return leaf, nil
}

func applyMappings(c configurable, cc config.ComponentConfig) error {
	if len(cc.Mappings) == 0 {
		return nil
	}
	if cc.Type == config.SubsystemType {
		return fmt.Errorf("%s: subsystem parameters cannot be mapped", cc.Name)
	}
	for _, name := range sortedKeys(cc.Mappings) {
		if err := c.MapParameterToSystem(name, cc.Mappings[name]); err != nil {
			return fmt.Errorf("map %s.%s: %w", cc.Name, name, err)
		}
	}
	return nil
}

func applyStartValues(c configurable, cc config.ComponentConfig) error {
	for _, sv := range cc.StartValues {
		p, err := c.Port(sv.Port)
		if err != nil {
			return err
		}
		slot, ok := p.NodeType().SlotIndex(sv.Variable)
		if !ok {
			return fmt.Errorf("%s: no variable %q on %s ports", p.FullName(), sv.Variable, p.NodeType())
		}
		p.SetStartValue(slot, sv.Value)
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
