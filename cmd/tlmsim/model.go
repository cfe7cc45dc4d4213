package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/san-kum/tlmsim/internal/config"
	"github.com/san-kum/tlmsim/internal/experiment"
	"github.com/san-kum/tlmsim/internal/optim"
	"github.com/san-kum/tlmsim/internal/storage"
)

// loadModel reads the model from --config, --from or a preset name and
// applies the command line overrides. Flags win over the file.
func loadModel(cmd *cobra.Command, args []string) (*config.Config, error) {
	var cfg *config.Config
	switch {
	case fromRun != "":
		st := storage.New(dataDir)
		runID, err := st.Resolve(fromRun)
		if err != nil {
			return nil, err
		}
		if cfg, err = st.LoadModel(runID); err != nil {
			return nil, err
		}
	case configFile != "":
		c, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = c
	case len(args) == 1:
		cfg = config.GetPreset(args[0])
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", args[0], config.ListPresets())
		}
	default:
		return nil, fmt.Errorf("need a preset name or --config")
	}

	if cmd.Flags().Changed("dt") {
		cfg.Timestep = timestep
	}
	if cmd.Flags().Changed("stop") {
		cfg.Stop = stopTime
	}
	if cmd.Flags().Changed("threads") {
		cfg.Threads = threads
	}
	if cmd.Flags().Changed("nan-guard") {
		cfg.NaNGuard = nanGuard
	}

	values := make(map[string]float64, len(overrides))
	for _, o := range overrides {
		name, v, err := parseAssignment(o)
		if err != nil {
			return nil, err
		}
		values[name] = v
	}
	if len(values) > 0 {
		c, err := experiment.WithParameters(cfg, values)
		if err != nil {
			return nil, err
		}
		cfg = c
	}
	return cfg, cfg.Validate()
}

func splitAssignment(s string) (string, string, error) {
	name, value, ok := strings.Cut(s, "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return "", "", fmt.Errorf("expected name=value, got %q", s)
	}
	return name, strings.TrimSpace(value), nil
}

// parseAssignment parses "name=value".
func parseAssignment(s string) (string, float64, error) {
	name, value, err := splitAssignment(s)
	if err != nil {
		return "", 0, err
	}
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return "", 0, fmt.Errorf("%s: %w", name, err)
	}
	return name, v, nil
}

// parseList parses "name=v1,v2,...".
func parseList(s string) (string, []float64, error) {
	name, value, err := splitAssignment(s)
	if err != nil {
		return "", nil, err
	}
	var vals []float64
	for _, f := range strings.Split(value, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return "", nil, fmt.Errorf("%s: %w", name, err)
		}
		vals = append(vals, v)
	}
	return name, vals, nil
}

// parseRange parses "name=lo:hi:n" into n evenly spaced values.
func parseRange(s string) (string, []float64, error) {
	name, value, err := splitAssignment(s)
	if err != nil {
		return "", nil, err
	}
	parts := strings.Split(value, ":")
	if len(parts) != 3 {
		return "", nil, fmt.Errorf("%s: expected lo:hi:n, got %q", name, value)
	}
	lo, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return "", nil, fmt.Errorf("%s: %w", name, err)
	}
	hi, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return "", nil, fmt.Errorf("%s: %w", name, err)
	}
	n, err := strconv.Atoi(parts[2])
	if err != nil || n < 1 {
		return "", nil, fmt.Errorf("%s: bad point count %q", name, parts[2])
	}
	return name, optim.Range(lo, hi, n), nil
}
