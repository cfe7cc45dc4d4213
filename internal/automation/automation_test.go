package automation

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/tlmsim/internal/config"
	"github.com/san-kum/tlmsim/internal/experiment"
	"github.com/san-kum/tlmsim/internal/storage"
)

func TestMain(m *testing.M) {
	if os.Getenv("DEBUG_TESTS") == "" {
		logrus.SetOutput(io.Discard)
	}
	os.Exit(m.Run())
}

const scenarioYAML = `
name: chain
description: gain sweep by hand
steps:
  - preset: signal_chain
    params:
      src.y: 3
    save: true
  - model: models/chain.yaml
    stop: 0.5
`

func writeScenario(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "models"), 0755))
	require.NoError(t, config.Save(filepath.Join(dir, "models", "chain.yaml"), config.GetPreset("signal_chain")))
	path := filepath.Join(dir, "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(scenarioYAML), 0644))
	return path
}

func TestLoadScenario(t *testing.T) {
	path := writeScenario(t)
	sc, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "chain", sc.Name)
	require.Len(t, sc.Steps, 2)
	assert.Equal(t, map[string]float64{"src.y": 3}, sc.Steps[0].Params)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "models", "chain.yaml"), sc.Steps[1].Model)
}

func TestValidate(t *testing.T) {
	assert.Error(t, (&Scenario{Name: "empty"}).Validate())
	assert.Error(t, (&Scenario{Steps: []ScenarioStep{{}}}).Validate())
	assert.Error(t, (&Scenario{Steps: []ScenarioStep{{Preset: "a", Model: "b"}}}).Validate())
	assert.NoError(t, (&Scenario{Steps: []ScenarioStep{{Preset: "a"}}}).Validate())
}

func TestRunScenario(t *testing.T) {
	sc, err := LoadScenario(writeScenario(t))
	require.NoError(t, err)
	st := storage.New(t.TempDir())
	require.NoError(t, st.Init())

	results, err := RunScenario(context.Background(), sc, experiment.NewRegistry(), st)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.InDelta(t, 9.0, results[0].Result.Metrics["gain.out:Value"], 1e-12)
	assert.NotEmpty(t, results[0].RunID)
	assert.Equal(t, 5, results[1].Result.Steps)
	assert.Empty(t, results[1].RunID)

	runs, err := st.List()
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, results[0].RunID, runs[0].ID)
}

func TestRunScenario_StopsAtFailure(t *testing.T) {
	sc := &Scenario{Name: "bad", Steps: []ScenarioStep{
		{Preset: "signal_chain"},
		{Preset: "nope"},
		{Preset: "signal_chain"},
	}}
	results, err := RunScenario(context.Background(), sc, experiment.NewRegistry(), nil)
	assert.ErrorContains(t, err, "step 2")
	assert.Len(t, results, 1)
}
