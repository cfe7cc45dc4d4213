package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	DefaultTimestep = 0.001
	DefaultStart    = 0.0
	DefaultStop     = 10.0
	DefaultSamples  = 2048
	DefaultThreads  = 1

	// SubsystemType is the component type of a nested system.
	SubsystemType = "Subsystem"
)

// Config is a model file: run settings and the root system.
type Config struct {
	Name     string       `yaml:"name"`
	Timestep float64      `yaml:"timestep"`
	Start    float64      `yaml:"start"`
	Stop     float64      `yaml:"stop"`
	Samples  int          `yaml:"samples"`
	Threads  int          `yaml:"threads"`
	NaNGuard bool         `yaml:"nan_guard,omitempty"`
	System   SystemConfig `yaml:"system"`
}

// SystemConfig describes the contents of a system.
type SystemConfig struct {
	Timestep    float64            `yaml:"timestep,omitempty"`
	CQS         string             `yaml:"cqs,omitempty"`
	Parameters  map[string]float64 `yaml:"parameters,omitempty"`
	Ports       []string           `yaml:"ports,omitempty"`
	Components  []ComponentConfig  `yaml:"components"`
	Connections []ConnectionConfig `yaml:"connections,omitempty"`
}

// ComponentConfig describes one child. A child of type Subsystem carries
// its contents in System.
type ComponentConfig struct {
	Name        string             `yaml:"name"`
	Type        string             `yaml:"type"`
	CQS         string             `yaml:"cqs,omitempty"`
	Parameters  map[string]float64 `yaml:"parameters,omitempty"`
	Mappings    map[string]string  `yaml:"mappings,omitempty"`
	StartValues []StartValue       `yaml:"start_values,omitempty"`
	System      *SystemConfig      `yaml:"system,omitempty"`
}

// StartValue sets the start value of one data slot of a port.
type StartValue struct {
	Port     string  `yaml:"port"`
	Variable string  `yaml:"variable"`
	Value    float64 `yaml:"value"`
}

// ConnectionConfig joins two ports given as "component.port". Inside a
// subsystem the subsystem's own name addresses its system ports.
type ConnectionConfig struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// Endpoints splits both ends into component and port names.
func (c ConnectionConfig) Endpoints() (comp1, port1, comp2, port2 string, err error) {
	comp1, port1, err = SplitPortRef(c.From)
	if err != nil {
		return
	}
	comp2, port2, err = SplitPortRef(c.To)
	return
}

// SplitPortRef splits "component.port" at the last dot.
func SplitPortRef(ref string) (string, string, error) {
	i := strings.LastIndex(ref, ".")
	if i <= 0 || i == len(ref)-1 {
		return "", "", fmt.Errorf("port reference %q is not component.port", ref)
	}
	return ref[:i], ref[i+1:], nil
}

func DefaultConfig() *Config {
	return &Config{
		Name:     "model",
		Timestep: DefaultTimestep,
		Start:    DefaultStart,
		Stop:     DefaultStop,
		Samples:  DefaultSamples,
		Threads:  DefaultThreads,
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes a model over the defaults and validates it.
func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate reports every problem found in the model.
func (c *Config) Validate() error {
	var errs []error
	if c.Name == "" {
		errs = append(errs, errors.New("name is empty"))
	}
	if c.Timestep <= 0 {
		errs = append(errs, fmt.Errorf("timestep must be positive, got %g", c.Timestep))
	}
	if c.Stop < c.Start {
		errs = append(errs, fmt.Errorf("stop %g is before start %g", c.Stop, c.Start))
	}
	if c.Samples < 0 {
		errs = append(errs, fmt.Errorf("samples must not be negative, got %d", c.Samples))
	}
	errs = append(errs, c.System.validate(c.Name)...)
	return errors.Join(errs...)
}

func (s *SystemConfig) validate(path string) []error {
	var errs []error
	if s.Timestep < 0 {
		errs = append(errs, fmt.Errorf("%s: timestep must not be negative", path))
	}
	seen := make(map[string]bool)
	for i, comp := range s.Components {
		where := fmt.Sprintf("%s: component %d", path, i)
		switch {
		case comp.Name == "":
			errs = append(errs, fmt.Errorf("%s: name is empty", where))
		case seen[comp.Name]:
			errs = append(errs, fmt.Errorf("%s: duplicate name %q", where, comp.Name))
		}
		seen[comp.Name] = true
		if comp.Type == "" {
			errs = append(errs, fmt.Errorf("%s (%s): type is empty", where, comp.Name))
		}
		if comp.Type == SubsystemType {
			if comp.System == nil {
				errs = append(errs, fmt.Errorf("%s (%s): subsystem without system", where, comp.Name))
			} else {
				errs = append(errs, comp.System.validate(path+"/"+comp.Name)...)
			}
		}
		for _, sv := range comp.StartValues {
			if sv.Port == "" || sv.Variable == "" {
				errs = append(errs, fmt.Errorf("%s (%s): start value needs port and variable", where, comp.Name))
			}
		}
	}
	for i, conn := range s.Connections {
		if _, _, _, _, err := conn.Endpoints(); err != nil {
			errs = append(errs, fmt.Errorf("%s: connection %d: %w", path, i, err))
		}
	}
	return errs
}
