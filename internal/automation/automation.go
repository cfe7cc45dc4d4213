// Package automation runs scripted sequences of simulations described in
// YAML.
package automation

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/tlmsim/internal/config"
	"github.com/san-kum/tlmsim/internal/experiment"
	"github.com/san-kum/tlmsim/internal/storage"
)

// Scenario defines a scripted simulation sequence
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Steps       []ScenarioStep `yaml:"steps"`
}

// ScenarioStep is one run. Exactly one of Preset and Model is set; Model is
// a model file path, relative to the scenario file.
type ScenarioStep struct {
	Preset  string             `yaml:"preset,omitempty"`
	Model   string             `yaml:"model,omitempty"`
	Stop    float64            `yaml:"stop,omitempty"`
	Threads int                `yaml:"threads,omitempty"`
	Params  map[string]float64 `yaml:"params,omitempty"`
	Save    bool               `yaml:"save,omitempty"`
}

// StepResult is the outcome of one step.
type StepResult struct {
	Step   int
	Model  string
	RunID  string
	Result *experiment.Result
}

// LoadScenario loads a scenario from a YAML file
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, err
	}
	dir := filepath.Dir(path)
	for i := range scenario.Steps {
		if m := scenario.Steps[i].Model; m != "" && !filepath.IsAbs(m) {
			scenario.Steps[i].Model = filepath.Join(dir, m)
		}
	}
	if err := scenario.Validate(); err != nil {
		return nil, err
	}
	return &scenario, nil
}

func (s *Scenario) Validate() error {
	if len(s.Steps) == 0 {
		return fmt.Errorf("scenario %s has no steps", s.Name)
	}
	var errs []error
	for i, step := range s.Steps {
		if (step.Preset == "") == (step.Model == "") {
			errs = append(errs, fmt.Errorf("step %d: need exactly one of preset and model", i+1))
		}
		if step.Stop < 0 || step.Threads < 0 {
			errs = append(errs, fmt.Errorf("step %d: negative stop or threads", i+1))
		}
	}
	return errors.Join(errs...)
}

func (step ScenarioStep) config() (*config.Config, error) {
	var cfg *config.Config
	if step.Model != "" {
		c, err := config.Load(step.Model)
		if err != nil {
			return nil, err
		}
		cfg = c
	} else {
		cfg = config.GetPreset(step.Preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s", step.Preset)
		}
	}
	if step.Stop > 0 {
		cfg.Stop = step.Stop
	}
	if step.Threads > 0 {
		cfg.Threads = step.Threads
	}
	if len(step.Params) > 0 {
		return experiment.WithParameters(cfg, step.Params)
	}
	return cfg, nil
}

// RunScenario executes the steps in order and stops at the first failure,
// returning the results so far. Steps with Save set are stored in st, which
// may be nil when no step saves.
func RunScenario(ctx context.Context, scenario *Scenario, reg *experiment.Registry, st *storage.Store) ([]StepResult, error) {
	results := make([]StepResult, 0, len(scenario.Steps))

	for i, step := range scenario.Steps {
		cfg, err := step.config()
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}
		logrus.Infof("scenario %s: step %d/%d: %s", scenario.Name, i+1, len(scenario.Steps), cfg.Name)

		exp, err := experiment.New(cfg, reg)
		if err != nil {
			return results, fmt.Errorf("step %d setup: %w", i+1, err)
		}
		res, err := exp.Run(ctx)
		if err != nil {
			return results, fmt.Errorf("step %d run: %w", i+1, err)
		}

		sr := StepResult{Step: i + 1, Model: cfg.Name, Result: res}
		if step.Save {
			if st == nil {
				return results, fmt.Errorf("step %d: no store to save to", i+1)
			}
			if sr.RunID, err = st.Save(cfg, res, nil); err != nil {
				return results, fmt.Errorf("step %d save: %w", i+1, err)
			}
		}
		results = append(results, sr)
	}

	return results, nil
}
