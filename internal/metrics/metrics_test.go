package metrics

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/tlmsim/internal/config"
	"github.com/san-kum/tlmsim/internal/core"
	"github.com/san-kum/tlmsim/internal/experiment"
)

func TestMain(m *testing.M) {
	if os.Getenv("DEBUG_TESTS") == "" {
		logrus.SetOutput(io.Discard)
	}
	os.Exit(m.Run())
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func newExperiment(t *testing.T, preset string) *experiment.Experiment {
	t.Helper()
	exp, err := experiment.New(config.GetPreset(preset), experiment.NewRegistry())
	require.NoError(t, err)
	return exp
}

func TestRegistry_ObservesRun(t *testing.T) {
	reg := NewRegistry()
	exp := newExperiment(t, "signal_chain")
	exp.AddObserver(reg)

	_, err := exp.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 10.0, counterValue(t, reg.StepsTotal.WithLabelValues("signal_chain")))
	assert.Equal(t, 1.0, counterValue(t, reg.RunsTotal.WithLabelValues("signal_chain", StatusOK)))
	assert.InDelta(t, 1.0, counterValue(t, reg.SimulatedSeconds.WithLabelValues("signal_chain")), 1e-9)

	var g dto.Metric
	require.NoError(t, reg.RunsInFlight.Write(&g))
	assert.Equal(t, 0.0, g.GetGauge().GetValue())

	var buf bytes.Buffer
	require.NoError(t, reg.WriteText(&buf))
	assert.Contains(t, buf.String(), "tlmsim_steps_total")
	assert.Contains(t, buf.String(), `phase="signal"`)

	families, err := reg.GetPrometheusRegistry().Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestRegistry_StoppedRun(t *testing.T) {
	reg := NewRegistry()
	exp := newExperiment(t, "signal_chain")
	exp.AddObserver(reg)
	exp.AddObserver(stopAfter{n: 3})

	_, err := exp.Run(context.Background())
	require.ErrorIs(t, err, core.ErrStopped)
	assert.Equal(t, 1.0, counterValue(t, reg.RunsTotal.WithLabelValues("signal_chain", StatusStopped)))
	assert.Equal(t, 3.0, counterValue(t, reg.StepsTotal.WithLabelValues("signal_chain")))
}

type stopAfter struct{ n int }

func (s stopAfter) OnRunStart(*core.System, float64, float64, int) {}

func (s stopAfter) OnStep(sys *core.System, info core.StepInfo) {
	if info.Step >= s.n {
		sys.Stop()
	}
}

func (s stopAfter) OnRunEnd(*core.System, int, error) {}

func TestStatus(t *testing.T) {
	assert.Equal(t, StatusOK, Status(nil))
	assert.Equal(t, StatusStopped, Status(&core.SimulationError{Err: core.ErrStopped}))
	assert.Equal(t, StatusError, Status(errors.New("boom")))
}

func TestEnergy_Capacitor(t *testing.T) {
	exp := newExperiment(t, "rc_circuit")
	port, err := exp.System().FindPort("capacitor", "Pel1")
	require.NoError(t, err)

	e, err := NewEnergy(port.Node())
	require.NoError(t, err)
	exp.AddObserver(e)

	_, err = exp.Run(context.Background())
	require.NoError(t, err)
	// C u^2 / 2 with u = 10 V and C = 1 mF.
	assert.InDelta(t, 0.05, e.Value(), 2e-3)

	e.Reset()
	assert.Zero(t, e.Value())
}

func TestEnergy_SignalNode(t *testing.T) {
	exp := newExperiment(t, "signal_chain")
	port, err := exp.System().FindPort("src", "out")
	require.NoError(t, err)

	_, err = NewEnergy(port.Node())
	assert.Error(t, err)
}

func TestStability(t *testing.T) {
	s := NewStability(5)
	assert.Equal(t, 1.0, s.Value())

	exp := newExperiment(t, "signal_chain")
	exp.AddObserver(s)
	_, err := exp.Run(context.Background())
	require.NoError(t, err)
	// gain.out holds 6 in every step.
	assert.Equal(t, 0.0, s.Value())

	s = NewStability(100)
	exp = newExperiment(t, "signal_chain")
	exp.AddObserver(s)
	_, err = exp.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1.0, s.Value())
}
