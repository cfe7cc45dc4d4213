package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/sirupsen/logrus"

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

func sampleLogs() []experiment.NodeLog {
	return []experiment.NodeLog{
		{
			Name:      "src.out",
			Type:      core.NodeSignal,
			Variables: []core.DataDescription{{Name: "Value", Unit: "-"}},
			Times:     []float64{0, 0.5, 1},
			Values:    [][]float64{{2}, {2}, {2}},
		},
		{
			Name: "volume.P1",
			Type: core.NodeHydraulic,
			Variables: []core.DataDescription{
				{Name: "Flow", Unit: "m^3/s"},
				{Name: "Pressure", Unit: "Pa"},
			},
			Times:  []float64{0, 0.5, 1},
			Values: [][]float64{{0, 1e5}, {1.5e-5, 2.5e5}, {-2.5e-6, 5.5e5}},
		},
	}
}

func TestWriteCSV_Golden(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, sampleLogs()); err != nil {
		t.Fatalf("write: %v", err)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "node_table", buf.Bytes())
}

func TestReadCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, sampleLogs()); err != nil {
		t.Fatalf("write: %v", err)
	}

	logs, err := ReadCSV(&buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(logs) != 2 {
		t.Fatalf("expected 2 logs, got %d", len(logs))
	}
	vol := logs[1]
	if vol.Name != "volume.P1" || len(vol.Variables) != 2 {
		t.Fatalf("unexpected log %+v", vol)
	}
	if p, _ := vol.Final("Pressure"); p != 5.5e5 {
		t.Errorf("expected final pressure 5.5e5, got %g", p)
	}
	if len(vol.Times) != 3 || vol.Times[1] != 0.5 {
		t.Errorf("unexpected times %v", vol.Times)
	}
}

func TestReadCSV_BadHeader(t *testing.T) {
	for _, in := range []string{"", "t,a:b\n", "time,nocolon\n"} {
		if _, err := ReadCSV(bytes.NewBufferString(in)); !errors.Is(err, ErrBadHeader) {
			t.Errorf("%q: expected ErrBadHeader, got %v", in, err)
		}
	}
}

func TestWriteJSON(t *testing.T) {
	meta := RunMetadata{Model: "m", Timestep: 0.5, Stop: 1, Steps: 2, Metrics: map[string]float64{"src.out:Value": 2}}

	var buf bytes.Buffer
	if err := WriteJSON(&buf, NewExportData(meta, sampleLogs())); err != nil {
		t.Fatalf("write: %v", err)
	}

	var data ExportData
	if err := json.Unmarshal(buf.Bytes(), &data); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(data.Nodes) != 2 {
		t.Fatalf("expected 2 nodes, got %d", len(data.Nodes))
	}
	if data.Nodes[1].Units[1] != "Pa" {
		t.Errorf("expected unit Pa, got %q", data.Nodes[1].Units[1])
	}
}

func TestStoreSaveLoad(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	cfg := config.GetPreset("signal_chain")
	exp, err := experiment.New(cfg, experiment.NewRegistry())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	res, err := exp.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	runID, err := st.Save(cfg, res, nil)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if runID == "" {
		t.Error("expected non-empty run id")
	}

	meta, err := st.Load(runID)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if meta.Model != "signal_chain" {
		t.Errorf("expected model 'signal_chain', got '%s'", meta.Model)
	}
	if meta.Steps != 10 {
		t.Errorf("expected 10 steps, got %d", meta.Steps)
	}
	if meta.Metrics["gain.out:Value"] != 6 {
		t.Errorf("expected gain output 6, got %f", meta.Metrics["gain.out:Value"])
	}

	logs, err := st.LoadLogs(runID)
	if err != nil {
		t.Fatalf("load logs failed: %v", err)
	}
	if len(logs) != len(res.Logs) {
		t.Fatalf("expected %d logs, got %d", len(res.Logs), len(logs))
	}
	if logs[0].Type != core.NodeSignal || logs[0].Variables[0].Unit != "-" {
		t.Errorf("metadata not restored: %+v", logs[0])
	}
	if len(logs[0].Times) != 11 {
		t.Errorf("expected 11 samples, got %d", len(logs[0].Times))
	}

	model, err := st.LoadModel(runID)
	if err != nil {
		t.Fatalf("load model failed: %v", err)
	}
	if len(model.System.Components) != 3 {
		t.Errorf("expected 3 components, got %d", len(model.System.Components))
	}

	runs, err := st.List()
	if err != nil || len(runs) != 1 {
		t.Fatalf("expected one run, got %d (%v)", len(runs), err)
	}

	id, err := st.Resolve(runID[:8])
	if err != nil || id != runID {
		t.Errorf("resolve prefix: got %q, %v", id, err)
	}
}

func TestStoreLoadMissing(t *testing.T) {
	st := New(t.TempDir())
	if _, err := st.Load("nope"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}
	if _, err := st.Resolve("nope"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}

	runs, err := New(t.TempDir() + "/missing").List()
	if err != nil || len(runs) != 0 {
		t.Errorf("expected empty list, got %v, %v", runs, err)
	}
}
