package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/san-kum/tlmsim/internal/automation"
	"github.com/san-kum/tlmsim/internal/config"
	"github.com/san-kum/tlmsim/internal/experiment"
	"github.com/san-kum/tlmsim/internal/metrics"
	"github.com/san-kum/tlmsim/internal/optim"
	"github.com/san-kum/tlmsim/internal/storage"
	"github.com/san-kum/tlmsim/internal/viz"
)

func runModel(cmd *cobra.Command, args []string) error {
	cfg, err := loadModel(cmd, args)
	if err != nil {
		return err
	}
	exp, err := experiment.New(cfg, experiment.NewRegistry())
	if err != nil {
		return err
	}

	var reg *metrics.Registry
	if showMetrics {
		reg = metrics.NewRegistry()
		exp.AddObserver(reg)
	}
	var energies []*metrics.Energy
	for _, ref := range energyPorts {
		comp, port, err := config.SplitPortRef(ref)
		if err != nil {
			return err
		}
		p, err := exp.System().FindPort(comp, port)
		if err != nil {
			return err
		}
		e, err := metrics.NewEnergy(p.Node())
		if err != nil {
			return err
		}
		exp.AddObserver(e)
		energies = append(energies, e)
	}
	var stability *metrics.Stability
	if bound > 0 {
		stability = metrics.NewStability(bound)
		exp.AddObserver(stability)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Printf("running %s...\n", cfg.Name)
	res, runErr := exp.Run(ctx)
	if res == nil {
		return runErr
	}

	fmt.Printf("completed %d steps in %v\n", res.Steps, res.Elapsed)
	if save {
		st := storage.New(dataDir)
		if err := st.Init(); err != nil {
			return err
		}
		runID, err := st.Save(cfg, res, runErr)
		if err != nil {
			return err
		}
		fmt.Printf("run id: %s\n", runID)
	}

	fmt.Println()
	fmt.Print(metricTable(res.Metrics))
	for _, e := range energies {
		fmt.Printf("%s: %.6g J\n", e.Name(), e.Value())
	}
	if stability != nil {
		fmt.Printf("%s: %.4f\n", stability.Name(), stability.Value())
	}
	if reg != nil {
		fmt.Println()
		if err := reg.WriteText(os.Stdout); err != nil {
			return err
		}
	}
	return runErr
}

func metricTable(m map[string]float64) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	rows := make([][]string, 0, len(keys))
	for _, k := range keys {
		node, v, _ := strings.Cut(k, ":")
		rows = append(rows, []string{node, v, fmt.Sprintf("%.6g", m[k])})
	}
	return viz.Table([]string{"NODE", "VARIABLE", "FINAL"}, rows)
}

func sweepModel(cmd *cobra.Command, args []string) error {
	cfg, err := loadModel(cmd, args)
	if err != nil {
		return err
	}
	var names []string
	var values [][]float64
	for _, p := range sweepParams {
		name, vals, err := parseList(p)
		if err != nil {
			return err
		}
		names = append(names, name)
		values = append(values, vals)
	}
	if len(names) == 0 {
		return fmt.Errorf("need at least one --param")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	results, err := experiment.Sweep(ctx, cfg, experiment.NewRegistry(), experiment.Grid(names, values), workers)
	if err != nil {
		return err
	}

	header := append(append([]string{}, names...), "STEPS", strings.ToUpper(metricName))
	var rows [][]string
	for _, r := range results {
		row := make([]string, 0, len(header))
		for _, n := range names {
			row = append(row, fmt.Sprintf("%g", r.Params[n]))
		}
		row = append(row, fmt.Sprintf("%d", r.Steps))
		switch v, ok := r.Metrics[metricName]; {
		case r.Err != nil:
			row = append(row, r.Err.Error())
		case ok:
			row = append(row, fmt.Sprintf("%.6g", v))
		default:
			row = append(row, "-")
		}
		rows = append(rows, row)
	}
	fmt.Print(viz.Table(header, rows))
	return nil
}

func optimizeModel(cmd *cobra.Command, args []string) error {
	cfg, err := loadModel(cmd, args)
	if err != nil {
		return err
	}
	if metricName == "" {
		return fmt.Errorf("need --metric node:variable")
	}
	var names []string
	var ranges [][]float64
	for _, p := range sweepParams {
		name, vals, err := parseRange(p)
		if err != nil {
			return err
		}
		names = append(names, name)
		ranges = append(ranges, vals)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	g := optim.NewGridSearch(names, ranges)
	g.SetWorkers(workers)
	best, val, err := g.Search(ctx, cfg, experiment.NewRegistry(), metricName, maximize)
	if err != nil {
		return err
	}

	rows := make([][]string, 0, len(names))
	for _, n := range names {
		rows = append(rows, []string{n, fmt.Sprintf("%g", best[n])})
	}
	fmt.Print(viz.Table([]string{"PARAMETER", "BEST"}, rows))
	fmt.Printf("%s: %.6g\n", metricName, val)
	return nil
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := loadModel(cmd, args)
	if err != nil {
		return err
	}
	exp, err := experiment.New(cfg, experiment.NewRegistry())
	if err != nil {
		return err
	}
	viz.SetTheme(theme)

	m, err := viz.NewLiveModel(exp, stepsPerFrame)
	if err != nil {
		return err
	}
	final, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	if err != nil {
		return err
	}
	if lm, ok := final.(viz.LiveModel); ok {
		return lm.Err()
	}
	return nil
}

func runScenario(cmd *cobra.Command, args []string) error {
	sc, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}
	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	results, runErr := automation.RunScenario(ctx, sc, experiment.NewRegistry(), st)
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		id := "-"
		if r.RunID != "" {
			id = r.RunID[:8]
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", r.Step),
			r.Model,
			fmt.Sprintf("%d", r.Result.Steps),
			r.Result.Elapsed.String(),
			id,
		})
	}
	fmt.Print(viz.Table([]string{"STEP", "MODEL", "STEPS", "ELAPSED", "RUN"}, rows))
	return runErr
}
