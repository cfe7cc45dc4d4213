package config

import "sort"

var presets = map[string]func() *Config{
	"signal_chain": func() *Config {
		return &Config{
			Name: "signal_chain", Timestep: 0.1, Stop: 1, Samples: 11, Threads: 1,
			System: SystemConfig{
				Components: []ComponentConfig{
					{Name: "src", Type: "SignalConstant", Parameters: map[string]float64{"y": 2}},
					{Name: "gain", Type: "SignalGain", Parameters: map[string]float64{"k": 3}},
					{Name: "sink", Type: "SignalSink"},
				},
				Connections: []ConnectionConfig{
					{From: "src.out", To: "gain.in"},
					{From: "gain.out", To: "sink.in"},
				},
			},
		}
	},
	"sine_integrator": func() *Config {
		return &Config{
			Name: "sine_integrator", Timestep: 0.001, Stop: 2, Samples: 512, Threads: 1,
			System: SystemConfig{
				Components: []ComponentConfig{
					{Name: "sine", Type: "SignalSine", Parameters: map[string]float64{"f": 2, "y_A": 1}},
					{Name: "integ", Type: "SignalIntegrator"},
					{Name: "sink", Type: "SignalSink"},
				},
				Connections: []ConnectionConfig{
					{From: "sine.out", To: "integ.in"},
					{From: "integ.out", To: "sink.in"},
					{From: "sine.out", To: "sink.in"},
				},
			},
		}
	},
	"orifice_volume": func() *Config {
		return &Config{
			Name: "orifice_volume", Timestep: 0.0001, Stop: 0.5, Samples: 1024, Threads: 2,
			System: SystemConfig{
				Parameters: map[string]float64{"Kc": 1e-11},
				Components: []ComponentConfig{
					{Name: "supply", Type: "HydraulicPressureSourceC", Parameters: map[string]float64{"p": 10e5}},
					{Name: "inlet", Type: "HydraulicLaminarOrifice", Mappings: map[string]string{"Kc": "Kc"}},
					{Name: "volume", Type: "HydraulicVolume", Parameters: map[string]float64{"V": 1e-3}},
					{Name: "outlet", Type: "HydraulicLaminarOrifice", Mappings: map[string]string{"Kc": "Kc"}},
					{Name: "tank", Type: "HydraulicPressureSourceC", Parameters: map[string]float64{"p": 1e5}},
				},
				Connections: []ConnectionConfig{
					{From: "supply.P1", To: "inlet.P1"},
					{From: "inlet.P2", To: "volume.P1"},
					{From: "volume.P2", To: "outlet.P1"},
					{From: "outlet.P2", To: "tank.P1"},
				},
			},
		}
	},
	"tlm_line": func() *Config {
		return &Config{
			Name: "tlm_line", Timestep: 0.0001, Stop: 0.2, Samples: 2001, Threads: 1,
			System: SystemConfig{
				Components: []ComponentConfig{
					{Name: "pump", Type: "HydraulicFlowSourceQ", Parameters: map[string]float64{"q": 1e-4}},
					{Name: "line", Type: "HydraulicLosslessLine", Parameters: map[string]float64{"Zc": 1e9, "T": 0.01}},
					{Name: "restriction", Type: "HydraulicLaminarOrifice", Parameters: map[string]float64{"Kc": 1e-10}},
					{Name: "tank", Type: "HydraulicPressureSourceC", Parameters: map[string]float64{"p": 1e5}},
				},
				Connections: []ConnectionConfig{
					{From: "pump.P1", To: "line.P1"},
					{From: "line.P2", To: "restriction.P1"},
					{From: "restriction.P2", To: "tank.P1"},
				},
			},
		}
	},
	"rc_circuit": func() *Config {
		return &Config{
			Name: "rc_circuit", Timestep: 0.0001, Stop: 0.01, Samples: 101, Threads: 1,
			System: SystemConfig{
				Components: []ComponentConfig{
					{Name: "battery", Type: "ElectricVoltageSourceC", Parameters: map[string]float64{"U": 10}},
					{Name: "resistor", Type: "ElectricResistor", Parameters: map[string]float64{"R": 1}},
					{Name: "capacitor", Type: "ElectricCapacitor", Parameters: map[string]float64{"C": 1e-3}},
				},
				Connections: []ConnectionConfig{
					{From: "battery.Pel1", To: "resistor.Pel1"},
					{From: "resistor.Pel2", To: "capacitor.Pel1"},
				},
			},
		}
	},
	"nested_gain": func() *Config {
		return &Config{
			Name: "nested_gain", Timestep: 0.01, Stop: 1, Samples: 101, Threads: 1,
			System: SystemConfig{
				Components: []ComponentConfig{
					{Name: "src", Type: "SignalStep", Parameters: map[string]float64{"y_A": 1, "t_step": 0.5}},
					{
						Name: "amp", Type: SubsystemType,
						System: &SystemConfig{
							Timestep:   0.005,
							Parameters: map[string]float64{"k": 4},
							Ports:      []string{"in", "out"},
							Components: []ComponentConfig{
								{Name: "gain", Type: "SignalGain", Mappings: map[string]string{"k": "k"}},
							},
							Connections: []ConnectionConfig{
								{From: "amp.in", To: "gain.in"},
								{From: "gain.out", To: "amp.out"},
							},
						},
					},
					{Name: "sink", Type: "SignalSink"},
				},
				Connections: []ConnectionConfig{
					{From: "src.out", To: "amp.in"},
					{From: "amp.out", To: "sink.in"},
				},
			},
		}
	},
}

// GetPreset returns a fresh copy of a built-in model, or nil.
func GetPreset(name string) *Config {
	fn, ok := presets[name]
	if !ok {
		return nil
	}
	return fn()
}

// ListPresets returns the preset names in sorted order.
func ListPresets() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
