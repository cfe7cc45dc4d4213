package experiment

import (
	"context"
	"io"
	"os"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/tlmsim/internal/components"
	"github.com/san-kum/tlmsim/internal/config"
	"github.com/san-kum/tlmsim/internal/core"
)

func TestMain(m *testing.M) {
	if os.Getenv("DEBUG_TESTS") == "" {
		logrus.SetOutput(io.Discard)
	}
	os.Exit(m.Run())
}

func run(t *testing.T, cfg *config.Config) *Result {
	t.Helper()
	exp, err := New(cfg, NewRegistry())
	require.NoError(t, err)
	res, err := exp.Run(context.Background())
	require.NoError(t, err)
	return res
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()

	names := reg.ListComponents()
	assert.IsNonDecreasing(t, names)
	assert.Contains(t, names, "SignalGain")
	assert.Contains(t, names, "HydraulicVolume")
	assert.Contains(t, names, "ElectricCapacitor")

	c, err := reg.New("SignalGain")
	require.NoError(t, err)
	assert.Equal(t, core.TypeSignal, c.TypeCQS())

	_, err = reg.New("Nope")
	assert.Error(t, err)

	err = reg.Register(func() core.Component { return components.NewGain() })
	assert.Error(t, err, "duplicate type must be rejected")
}

func TestRegistry_Describe(t *testing.T) {
	info, err := NewRegistry().Describe("HydraulicVolume")
	require.NoError(t, err)
	assert.Equal(t, core.TypeC, info.CQS)
	require.Len(t, info.Ports, 2)
	assert.Equal(t, "P1", info.Ports[0].Name)
	assert.Equal(t, core.PowerPort, info.Ports[0].Kind)
	assert.Equal(t, core.NodeHydraulic, info.Ports[0].NodeType)

	var names []string
	for _, p := range info.Parameters {
		names = append(names, p.Name)
	}
	assert.Contains(t, names, "V")

	_, err = NewRegistry().Describe("Nope")
	assert.Error(t, err)
}

func TestRun_SignalChain(t *testing.T) {
	res := run(t, config.GetPreset("signal_chain"))

	assert.Equal(t, 10, res.Steps)
	assert.InDelta(t, 6.0, res.Metrics["gain.out:Value"], 1e-12)
	assert.InDelta(t, 2.0, res.Metrics["src.out:Value"], 1e-12)

	log, ok := res.Log("gain.out")
	require.True(t, ok)
	assert.Len(t, log.Times, 11)
	assert.InDelta(t, 0.0, log.Times[0], 1e-12)
	assert.InDelta(t, 1.0, log.Times[10], 1e-9)
	assert.Equal(t, core.NodeSignal, log.Type)

	v, ok := log.Final("Value")
	assert.True(t, ok)
	assert.InDelta(t, 6.0, v, 1e-12)
	assert.Nil(t, log.Series("Pressure"))
}

func TestRun_NestedGain(t *testing.T) {
	res := run(t, config.GetPreset("nested_gain"))

	assert.InDelta(t, 4.0, res.Metrics["amp/gain.out:Value"], 1e-12)
	assert.InDelta(t, 1.0, res.Metrics["src.out:Value"], 1e-12)

	amp, err := res.System.Component("amp")
	require.NoError(t, err)
	assert.Equal(t, core.KindSystem, amp.Kind())
	assert.Equal(t, core.TypeSignal, amp.TypeCQS())
}

func TestRun_OrificeVolumeSteadyState(t *testing.T) {
	res := run(t, config.GetPreset("orifice_volume"))

	c, err := res.System.Component("volume")
	require.NoError(t, err)
	p1, err := c.(*components.Volume).Port("P1")
	require.NoError(t, err)

	// Equal orifices put the volume half way between supply and tank.
	assert.InDelta(t, 5.5e5, p1.Node().Data(core.HydraulicPressure), 5e3)
}

func TestRun_RCCircuit(t *testing.T) {
	res := run(t, config.GetPreset("rc_circuit"))

	c, err := res.System.Component("capacitor")
	require.NoError(t, err)
	assert.InDelta(t, 10.0, c.(*components.Capacitor).Voltage(), 0.01)
}

func TestBuild_Errors(t *testing.T) {
	reg := NewRegistry()
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"unknown type", func(c *config.Config) {
			c.System.Components[0].Type = "Nope"
		}},
		{"unknown parameter", func(c *config.Config) {
			c.System.Components[0].Parameters["nope"] = 1
		}},
		{"unknown port", func(c *config.Config) {
			c.System.Connections[0].To = "gain.nope"
		}},
		{"name taken", func(c *config.Config) {
			c.System.Components[2].Name = c.Name
		}},
		{"bad cqs", func(c *config.Config) {
			c.System.Components[1].CQS = "X"
		}},
		{"unknown start variable", func(c *config.Config) {
			c.System.Components[0].StartValues = []config.StartValue{{Port: "out", Variable: "Pressure", Value: 1}}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.GetPreset("signal_chain")
			tt.mutate(cfg)
			_, err := Build(cfg, reg)
			assert.Error(t, err)
		})
	}
}

func TestBuild_CQSOverrideBeforeConnect(t *testing.T) {
	cfg := &config.Config{
		Name:     "caps",
		Timestep: 0.001,
		System: config.SystemConfig{
			Components: []config.ComponentConfig{
				{Name: "c1", Type: "ElectricCapacitor"},
				{Name: "c2", Type: "ElectricCapacitor", CQS: "Q"},
			},
			Connections: []config.ConnectionConfig{{From: "c1.Pel1", To: "c2.Pel1"}},
		},
	}
	sys, err := Build(cfg, NewRegistry())
	require.NoError(t, err)

	c2, err := sys.Component("c2")
	require.NoError(t, err)
	assert.Equal(t, core.TypeQ, c2.TypeCQS())
	assert.Equal(t, 1, sys.NumNodes())

	cfg.System.Components[1].CQS = ""
	_, err = Build(cfg, NewRegistry())
	assert.ErrorIs(t, err, core.ErrCQSConflict)
}

func TestBuild_StartValues(t *testing.T) {
	cfg := config.GetPreset("orifice_volume")
	cfg.System.Components[2].StartValues = []config.StartValue{
		{Port: "P1", Variable: "Pressure", Value: 3e5},
	}
	sys, err := Build(cfg, NewRegistry())
	require.NoError(t, err)

	c, err := sys.Component("volume")
	require.NoError(t, err)
	p, err := c.(*components.Volume).Port("P1")
	require.NoError(t, err)
	v, set := p.StartValue(core.HydraulicPressure)
	assert.True(t, set)
	assert.Equal(t, 3e5, v)
}

func TestWithParameters(t *testing.T) {
	base := config.GetPreset("orifice_volume")

	cfg, err := WithParameters(base, map[string]float64{"Kc": 2e-11, "volume.V": 2e-3})
	require.NoError(t, err)
	assert.Equal(t, 2e-11, cfg.System.Parameters["Kc"])
	assert.Equal(t, 2e-3, cfg.System.Components[2].Parameters["V"])

	assert.Equal(t, 1e-11, base.System.Parameters["Kc"], "base must not change")
	assert.Equal(t, 1e-3, base.System.Components[2].Parameters["V"], "base must not change")

	_, err = WithParameters(base, map[string]float64{"missing": 1})
	assert.Error(t, err)
	_, err = WithParameters(base, map[string]float64{"ghost.V": 1})
	assert.Error(t, err)
}

func TestMappedSystemParameter(t *testing.T) {
	cfg, err := WithParameters(config.GetPreset("orifice_volume"), map[string]float64{"Kc": 3e-11})
	require.NoError(t, err)
	sys, err := Build(cfg, NewRegistry())
	require.NoError(t, err)
	require.NoError(t, sys.Initialize(cfg.Start, cfg.Stop, cfg.Samples))

	for _, name := range []string{"inlet", "outlet"} {
		c, err := sys.Component(name)
		require.NoError(t, err)
		v, err := c.(*components.Orifice).ParameterValue("Kc")
		require.NoError(t, err)
		assert.Equal(t, 3e-11, v, name)
	}
	require.NoError(t, sys.Finalize(cfg.Start, cfg.Stop))
}

func TestGrid(t *testing.T) {
	points := Grid([]string{"a", "b"}, [][]float64{{1, 2}, {10, 20, 30}})
	require.Len(t, points, 6)
	assert.Equal(t, map[string]float64{"a": 1, "b": 10}, points[0])
	assert.Equal(t, map[string]float64{"a": 2, "b": 30}, points[5])

	assert.Nil(t, Grid([]string{"a"}, nil))
}

func TestSweep(t *testing.T) {
	cfg := config.GetPreset("signal_chain")
	points := Grid([]string{"src.y"}, [][]float64{{1, 2, 3, 4}})

	results, err := Sweep(context.Background(), cfg, NewRegistry(), points, 2)
	require.NoError(t, err)
	require.Len(t, results, 4)
	for i, r := range results {
		require.NoError(t, r.Err)
		assert.Equal(t, 10, r.Steps)
		assert.InDelta(t, 3*float64(i+1), r.Metrics["gain.out:Value"], 1e-12)
	}
}

func TestSweep_PointError(t *testing.T) {
	cfg := config.GetPreset("signal_chain")
	points := []map[string]float64{{"src.y": 1}, {"src.nope": 1}}

	results, err := Sweep(context.Background(), cfg, NewRegistry(), points, 1)
	require.NoError(t, err)
	assert.NoError(t, results[0].Err)
	assert.Error(t, results[1].Err)
}

func TestSweep_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := Sweep(ctx, config.GetPreset("signal_chain"), NewRegistry(), []map[string]float64{{"src.y": 1}}, 1)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, results[0].Err, context.Canceled)
}
