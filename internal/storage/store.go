package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/san-kum/tlmsim/internal/config"
	"github.com/san-kum/tlmsim/internal/core"
	"github.com/san-kum/tlmsim/internal/experiment"
)

const (
	metadataFile = "metadata.json"
	nodesFile    = "nodes.csv"
	modelFile    = "model.yaml"
)

var ErrRunNotFound = errors.New("storage: run not found")

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

// NodeInfo describes one logged node of a run.
type NodeInfo struct {
	Name      string   `json:"name"`
	Type      string   `json:"type"`
	Variables []string `json:"variables"`
	Units     []string `json:"units"`
}

type RunMetadata struct {
	ID        string             `json:"id"`
	Model     string             `json:"model"`
	Timestamp time.Time          `json:"timestamp"`
	Timestep  float64            `json:"timestep"`
	Start     float64            `json:"start"`
	Stop      float64            `json:"stop"`
	Samples   int                `json:"samples"`
	Threads   int                `json:"threads"`
	Steps     int                `json:"steps"`
	Elapsed   time.Duration      `json:"elapsed_ns"`
	Error     string             `json:"error,omitempty"`
	Nodes     []NodeInfo         `json:"nodes"`
	Metrics   map[string]float64 `json:"metrics"`
}

// Save stores a run under a new ID: its metadata, the model it ran and the
// node logs. runErr is recorded for runs that ended early.
func (s *Store) Save(cfg *config.Config, res *experiment.Result, runErr error) (string, error) {
	runID := uuid.NewString()
	runDir := filepath.Join(s.baseDir, runID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:        runID,
		Model:     cfg.Name,
		Timestamp: time.Now(),
		Timestep:  cfg.Timestep,
		Start:     cfg.Start,
		Stop:      cfg.Stop,
		Samples:   cfg.Samples,
		Threads:   cfg.Threads,
		Steps:     res.Steps,
		Elapsed:   res.Elapsed,
		Metrics:   res.Metrics,
	}
	if runErr != nil {
		meta.Error = runErr.Error()
	}
	for _, l := range res.Logs {
		info := NodeInfo{Name: l.Name, Type: string(l.Type)}
		for _, d := range l.Variables {
			info.Variables = append(info.Variables, d.Name)
			info.Units = append(info.Units, d.Unit)
		}
		meta.Nodes = append(meta.Nodes, info)
	}

	if err := writeJSONFile(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}
	if err := config.Save(filepath.Join(runDir, modelFile), cfg); err != nil {
		return "", err
	}

	f, err := os.Create(filepath.Join(runDir, nodesFile))
	if err != nil {
		return "", err
	}
	defer f.Close()
	if err := WriteCSV(f, res.Logs); err != nil {
		return "", err
	}
	return runID, f.Close()
}

func writeJSONFile(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return err
	}
	return f.Close()
}

// List returns the metadata of every stored run, oldest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}
	sort.SliceStable(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// LoadModel returns the model a run was made with.
func (s *Store) LoadModel(runID string) (*config.Config, error) {
	return config.Load(filepath.Join(s.baseDir, runID, modelFile))
}

// LoadLogs reads the node logs of a run, with types and units restored from
// its metadata.
func (s *Store) LoadLogs(runID string) ([]experiment.NodeLog, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(filepath.Join(s.baseDir, runID, nodesFile))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	logs, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", runID, err)
	}
	info := make(map[string]NodeInfo, len(meta.Nodes))
	for _, n := range meta.Nodes {
		info[n.Name] = n
	}
	for i := range logs {
		n, ok := info[logs[i].Name]
		if !ok {
			continue
		}
		logs[i].Type = core.NodeType(n.Type)
		for j := range logs[i].Variables {
			if j < len(n.Units) {
				logs[i].Variables[j].Unit = n.Units[j]
			}
		}
	}
	return logs, nil
}

// Resolve accepts a full run ID or a unique prefix of one.
func (s *Store) Resolve(prefix string) (string, error) {
	runs, err := s.List()
	if err != nil {
		return "", err
	}
	var match string
	for _, r := range runs {
		if r.ID == prefix {
			return r.ID, nil
		}
		if prefix != "" && strings.HasPrefix(r.ID, prefix) {
			if match != "" {
				return "", fmt.Errorf("storage: run prefix %q is ambiguous", prefix)
			}
			match = r.ID
		}
	}
	if match == "" {
		return "", fmt.Errorf("%w: %s", ErrRunNotFound, prefix)
	}
	return match, nil
}
