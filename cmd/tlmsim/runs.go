package main

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/tlmsim/internal/analysis"
	"github.com/san-kum/tlmsim/internal/config"
	"github.com/san-kum/tlmsim/internal/experiment"
	"github.com/san-kum/tlmsim/internal/export"
	"github.com/san-kum/tlmsim/internal/storage"
	"github.com/san-kum/tlmsim/internal/viz"
)

func listRuns(cmd *cobra.Command, args []string) error {
	runs, err := storage.New(dataDir).List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		status := "ok"
		if r.Error != "" {
			status = "error"
		}
		rows = append(rows, []string{
			r.ID[:8],
			r.Model,
			r.Timestamp.Format("2006-01-02 15:04:05"),
			fmt.Sprintf("%g..%gs", r.Start, r.Stop),
			fmt.Sprintf("%gs", r.Timestep),
			fmt.Sprintf("%d", r.Steps),
			fmt.Sprintf("%d", r.Threads),
			status,
		})
	}
	fmt.Print(viz.Table([]string{"ID", "MODEL", "TIME", "RANGE", "DT", "STEPS", "THREADS", "STATUS"}, rows))
	return nil
}

// loadRun resolves a run ID prefix and reads its metadata and logs.
func loadRun(prefix string) (*storage.RunMetadata, []experiment.NodeLog, error) {
	st := storage.New(dataDir)
	runID, err := st.Resolve(prefix)
	if err != nil {
		return nil, nil, err
	}
	meta, err := st.Load(runID)
	if err != nil {
		return nil, nil, err
	}
	logs, err := st.LoadLogs(runID)
	if err != nil {
		return nil, nil, err
	}
	return meta, logs, nil
}

// selectLogs applies --node and picks the default --var.
func selectLogs(logs []experiment.NodeLog) ([]experiment.NodeLog, string, error) {
	if nodeName != "" {
		i := slices.IndexFunc(logs, func(l experiment.NodeLog) bool { return l.Name == nodeName })
		if i < 0 {
			return nil, "", fmt.Errorf("no node %s in run", nodeName)
		}
		logs = logs[i : i+1]
	}
	v := variable
	if v == "" {
		if len(logs) == 0 || len(logs[0].Variables) == 0 {
			return nil, "", fmt.Errorf("run has no logged nodes")
		}
		v = logs[0].Variables[0].Name
	}
	return logs, v, nil
}

func output() (io.Writer, func() error, error) {
	if outFile == "" {
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.Create(outFile)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}

func plotRun(cmd *cobra.Command, args []string) error {
	meta, logs, err := loadRun(args[0])
	if err != nil {
		return err
	}
	logs, v, err := selectLogs(logs)
	if err != nil {
		return err
	}
	out, err := viz.PlotLogs(logs, v, width, height)
	if err != nil {
		return err
	}
	fmt.Printf("run: %s\nmodel: %s\n\n", meta.ID, meta.Model)
	fmt.Println(out)
	return nil
}

func exportCSV(cmd *cobra.Command, args []string) error {
	_, logs, err := loadRun(args[0])
	if err != nil {
		return err
	}
	w, done, err := output()
	if err != nil {
		return err
	}
	if err := storage.WriteCSV(w, logs); err != nil {
		done()
		return err
	}
	return done()
}

func exportJSON(cmd *cobra.Command, args []string) error {
	meta, logs, err := loadRun(args[0])
	if err != nil {
		return err
	}
	w, done, err := output()
	if err != nil {
		return err
	}
	if err := storage.WriteJSON(w, storage.NewExportData(*meta, logs)); err != nil {
		done()
		return err
	}
	return done()
}

// portrait pairs the --vs series (node:variable) on the x axis with
// variable v of y.
func portrait(all []experiment.NodeLog, y experiment.NodeLog, v string) (*analysis.PhasePortrait2D, error) {
	name, xv, ok := strings.Cut(vsRef, ":")
	if !ok {
		return nil, fmt.Errorf("--vs: expected node:variable, got %q", vsRef)
	}
	i := slices.IndexFunc(all, func(l experiment.NodeLog) bool { return l.Name == name })
	if i < 0 {
		return nil, fmt.Errorf("no node %s in run", name)
	}
	x := all[i].Series(xv)
	if len(x) == 0 {
		return nil, fmt.Errorf("node %s has no variable %s", name, xv)
	}
	return analysis.NewPhasePortrait(vsRef, x, y.Name+":"+v, y.Series(v)), nil
}

func exportSVG(cmd *cobra.Command, args []string) error {
	_, all, err := loadRun(args[0])
	if err != nil {
		return err
	}
	logs, v, err := selectLogs(all)
	if err != nil {
		return err
	}

	var svg string
	switch {
	case vsRef != "":
		p, err := portrait(all, logs[0], v)
		if err != nil {
			return err
		}
		if svg = export.TrajectoryToSVG(p.Points, width, height, string(viz.CurrentTheme.Primary)); svg == "" {
			return fmt.Errorf("not enough samples for a trajectory")
		}
	case braille:
		const scale = 4
		c := viz.NewCanvas(max(1, width/(2*scale)), max(1, height/(4*scale)))
		c.PlotSeries(logs[0].Series(v))
		svg = export.CanvasToSVG(c, scale)
	default:
		if svg, err = export.LogsToSVG(logs, v, width, height); err != nil {
			return err
		}
	}
	w, done, err := output()
	if err != nil {
		return err
	}
	if _, err := io.WriteString(w, svg); err != nil {
		done()
		return err
	}
	return done()
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	meta, all, err := loadRun(args[0])
	if err != nil {
		return err
	}
	logs, v, err := selectLogs(all)
	if err != nil {
		return err
	}

	fmt.Printf("run: %s\nmodel: %s\nvariable: %s\n\n", meta.ID, meta.Model, v)
	var rows [][]string
	for _, l := range logs {
		values := l.Series(v)
		if len(values) < 2 {
			continue
		}
		s := analysis.Summarize(values)
		dt := l.Times[1] - l.Times[0]
		spec := analysis.NewSpectrum(values, dt)
		rows = append(rows, []string{
			l.Name,
			fmt.Sprintf("%.5g", s.Min),
			fmt.Sprintf("%.5g", s.Max),
			fmt.Sprintf("%.5g", s.Mean),
			fmt.Sprintf("%.5g", s.RMS),
			fmt.Sprintf("%.5g", s.Final),
			fmt.Sprintf("%.4gs", analysis.SettlingTime(l.Times, values, 0.02)),
			fmt.Sprintf("%.4gHz", spec.Dominant()),
			fmt.Sprintf("%.4gs", analysis.Period(l.Times, values)),
			viz.Sparkline(values, 20),
		})
	}
	if len(rows) == 0 {
		return fmt.Errorf("no node logs %s", v)
	}
	fmt.Print(viz.Table([]string{"NODE", "MIN", "MAX", "MEAN", "RMS", "FINAL", "SETTLE", "PEAK", "PERIOD", ""}, rows))

	if vsRef != "" {
		p, err := portrait(all, logs[0], v)
		if err != nil {
			return err
		}
		fmt.Printf("\n%s vs %s\n", p.YLabel, p.XLabel)
		fmt.Println(analysis.PhasePortraitToASCII(p, width, height))
	}
	return nil
}

func listComponents(cmd *cobra.Command, args []string) error {
	reg := experiment.NewRegistry()
	if len(args) == 0 {
		rows := make([][]string, 0)
		for _, name := range reg.ListComponents() {
			info, err := reg.Describe(name)
			if err != nil {
				return err
			}
			rows = append(rows, []string{name, info.CQS.String(), fmt.Sprintf("%d", len(info.Ports))})
		}
		fmt.Print(viz.Table([]string{"TYPE", "CQS", "PORTS"}, rows))
		return nil
	}

	info, err := reg.Describe(args[0])
	if err != nil {
		return err
	}
	fmt.Printf("%s (%s)\n\n", info.TypeName, info.CQS)
	var rows [][]string
	for _, p := range info.Ports {
		req := ""
		if p.Required {
			req = "required"
		}
		rows = append(rows, []string{p.Name, p.Kind.String(), string(p.NodeType), req})
	}
	fmt.Print(viz.Table([]string{"PORT", "KIND", "NODE", ""}, rows))
	if len(info.Parameters) > 0 {
		fmt.Println()
		rows = rows[:0]
		for _, p := range info.Parameters {
			rows = append(rows, []string{p.Name, fmt.Sprintf("%g", p.Value()), p.Unit, p.Description})
		}
		fmt.Print(viz.Table([]string{"PARAMETER", "DEFAULT", "UNIT", "DESCRIPTION"}, rows))
	}
	return nil
}

func listPresets(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		fmt.Println(strings.Join(config.ListPresets(), "\n"))
		return nil
	}
	cfg := config.GetPreset(args[0])
	if cfg == nil {
		return fmt.Errorf("unknown preset: %s", args[0])
	}
	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return err
	}
	return enc.Close()
}
