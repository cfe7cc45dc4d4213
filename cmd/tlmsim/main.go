package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	dataDir  string
	logLevel string

	configFile string
	fromRun    string
	timestep   float64
	stopTime   float64
	threads    int
	nanGuard   bool
	overrides  []string

	save        bool
	showMetrics bool
	energyPorts []string
	bound       float64

	nodeName string
	variable string
	width    int
	height   int
	outFile  string
	vsRef    string
	braille  bool

	sweepParams []string
	metricName  string
	maximize    bool
	workers     int

	stepsPerFrame int
	theme         string
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "tlmsim",
		Short:        "transmission line modelling simulator",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			lvl, err := logrus.ParseLevel(logLevel)
			if err != nil {
				return err
			}
			logrus.SetLevel(lvl)
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".tlmsim", "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	runCmd := &cobra.Command{
		Use:   "run [preset]",
		Short: "run a model",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runModel,
	}
	addModelFlags(runCmd)
	runCmd.Flags().BoolVar(&save, "save", true, "store the run under the data directory")
	runCmd.Flags().BoolVar(&showMetrics, "metrics", false, "print run metrics in Prometheus text format")
	runCmd.Flags().StringArrayVar(&energyPorts, "energy", nil, "integrate the power through component.port")
	runCmd.Flags().Float64Var(&bound, "bound", 0, "report the share of steps with all node values within this bound")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot one variable of the logged nodes",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	addSelectFlags(plotCmd)
	plotCmd.Flags().IntVar(&width, "width", 70, "plot width")
	plotCmd.Flags().IntVar(&height, "height", 15, "plot height")

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export node logs to CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}
	exportCSVCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default stdout)")

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run metadata and node logs to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}
	exportJSONCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default stdout)")

	exportSVGCmd := &cobra.Command{
		Use:   "export-svg [run_id]",
		Short: "export one variable of the logged nodes to SVG",
		Args:  cobra.ExactArgs(1),
		RunE:  exportSVG,
	}
	addSelectFlags(exportSVGCmd)
	exportSVGCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default stdout)")
	exportSVGCmd.Flags().IntVar(&width, "width", 800, "image width")
	exportSVGCmd.Flags().IntVar(&height, "height", 400, "image height")
	exportSVGCmd.Flags().StringVar(&vsRef, "vs", "", "draw the trajectory against node:variable")
	exportSVGCmd.Flags().BoolVar(&braille, "braille", false, "render the braille plot of the first node")

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "statistics and spectrum of a logged variable",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}
	addSelectFlags(analyzeCmd)
	analyzeCmd.Flags().StringVar(&vsRef, "vs", "", "also draw a phase portrait against node:variable")
	analyzeCmd.Flags().IntVar(&width, "width", 60, "phase portrait width")
	analyzeCmd.Flags().IntVar(&height, "height", 20, "phase portrait height")

	componentsCmd := &cobra.Command{
		Use:   "components [type]",
		Short: "list component types or describe one",
		Args:  cobra.MaximumNArgs(1),
		RunE:  listComponents,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets [name]",
		Short: "list built-in models or print one as YAML",
		Args:  cobra.MaximumNArgs(1),
		RunE:  listPresets,
	}

	sweepCmd := &cobra.Command{
		Use:   "sweep [preset]",
		Short: "run a model over a parameter grid",
		Args:  cobra.MaximumNArgs(1),
		RunE:  sweepModel,
	}
	addModelFlags(sweepCmd)
	sweepCmd.Flags().StringArrayVar(&sweepParams, "param", nil, "name=v1,v2,... (repeatable)")
	sweepCmd.Flags().StringVar(&metricName, "metric", "", "node:variable to report")
	sweepCmd.Flags().IntVar(&workers, "workers", 0, "concurrent runs (default NumCPU)")

	optimizeCmd := &cobra.Command{
		Use:   "optimize [preset]",
		Short: "grid search for the parameters that minimize a metric",
		Args:  cobra.MaximumNArgs(1),
		RunE:  optimizeModel,
	}
	addModelFlags(optimizeCmd)
	optimizeCmd.Flags().StringArrayVar(&sweepParams, "param", nil, "name=lo:hi:n (repeatable)")
	optimizeCmd.Flags().StringVar(&metricName, "metric", "", "node:variable to optimize")
	optimizeCmd.Flags().BoolVar(&maximize, "max", false, "maximize instead of minimize")
	optimizeCmd.Flags().IntVar(&workers, "workers", 0, "concurrent runs (default NumCPU)")

	liveCmd := &cobra.Command{
		Use:   "live [preset]",
		Short: "run a model with a live plot",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLive,
	}
	addModelFlags(liveCmd)
	liveCmd.Flags().IntVar(&stepsPerFrame, "steps", 50, "steps per frame")
	liveCmd.Flags().StringVar(&theme, "theme", "cyberpunk", "color theme")

	scenarioCmd := &cobra.Command{
		Use:   "scenario [file]",
		Short: "run the steps of a scenario file",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}

	rootCmd.AddCommand(runCmd, listCmd, plotCmd, exportCSVCmd, exportJSONCmd, exportSVGCmd,
		analyzeCmd, componentsCmd, presetsCmd, sweepCmd, optimizeCmd, liveCmd, scenarioCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func addModelFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&configFile, "config", "c", "", "model file (yaml)")
	cmd.Flags().StringVar(&fromRun, "from", "", "reuse the model of a stored run")
	cmd.Flags().Float64Var(&timestep, "dt", 0, "override the root timestep")
	cmd.Flags().Float64Var(&stopTime, "stop", 0, "override the stop time")
	cmd.Flags().IntVar(&threads, "threads", 0, "override the number of worker threads")
	cmd.Flags().BoolVar(&nanGuard, "nan-guard", false, "stop when a node value becomes NaN or Inf")
	cmd.Flags().StringArrayVar(&overrides, "set", nil, "parameter=value, or component.parameter=value (repeatable)")
}

func addSelectFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&nodeName, "node", "", "only this node")
	cmd.Flags().StringVar(&variable, "var", "", "node variable (default: first variable of the first node)")
}
