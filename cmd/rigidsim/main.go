package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"github.com/mechsim/rigidsim/internal/config"
	"github.com/mechsim/rigidsim/internal/metrics"
	"github.com/mechsim/rigidsim/internal/sim"
	"github.com/mechsim/rigidsim/internal/storage"
	"github.com/mechsim/rigidsim/internal/viz"
)

var (
	dataDir    string
	configFile string
	preset     string
	integrator string
	dt         float64
	steps      int
	seed       int64
	noise      float64
	gravity    float64
	links      int
	length     float64
	mass       float64
	column     string
	verbose    bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "rigidsim",
		Short: "constrained rigid-body dynamics lab",
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".rigidsim", "data directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	runCmd := &cobra.Command{
		Use:   "run [system]",
		Short: "run a constrained rollout",
		Args:  cobra.ExactArgs(1),
		RunE:  runSimulation,
	}
	addSystemFlags(runCmd)

	watchCmd := &cobra.Command{
		Use:   "watch [system]",
		Short: "run a rollout with live terminal view",
		Args:  cobra.ExactArgs(1),
		RunE:  watchSimulation,
	}
	addSystemFlags(watchCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list saved runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a saved run column",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVar(&column, "column", "energy", "column to plot")

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "print run metadata as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets [system]",
		Short: "list available presets for a system",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			names := config.ListPresets(args[0])
			if len(names) == 0 {
				fmt.Printf("no presets for system: %s\n", args[0])
				return nil
			}
			fmt.Printf("presets for %s:\n", args[0])
			for _, p := range names {
				fmt.Printf("  %s\n", p)
			}
			return nil
		},
	}

	rootCmd.AddCommand(runCmd, watchCmd, listCmd, plotCmd, exportCmd, presetsCmd)

	cobra.OnInitialize(func() {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		})))
	})

	if err := rootCmd.Execute(); err != nil {
		slog.Error("command failed", "err", err)
		os.Exit(1)
	}
}

func addSystemFlags(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "timestep")
	cmd.Flags().IntVar(&steps, "steps", config.DefaultSteps, "number of steps")
	cmd.Flags().Int64Var(&seed, "seed", 0, "random seed (0 = clock)")
	cmd.Flags().Float64Var(&noise, "noise", config.DefaultNoise, "initial-condition noise scale")
	cmd.Flags().Float64Var(&gravity, "gravity", config.DefaultGravity, "gravitational acceleration")
	cmd.Flags().IntVar(&links, "links", config.DefaultLinks, "chain links")
	cmd.Flags().Float64Var(&length, "length", config.DefaultLength, "rod length")
	cmd.Flags().Float64Var(&mass, "mass", config.DefaultMass, "body mass")
	cmd.Flags().StringVar(&integrator, "integrator", "leapfrog", "integrator (leapfrog|rk4)")
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
}

// buildConfig merges preset, config file, and flags (flags win).
func buildConfig(cmd *cobra.Command, system string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	cfg.System = system

	if preset != "" {
		p := config.GetPreset(system, preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(system))
		}
		*cfg = *p
	}
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		*cfg = *loaded
		cfg.System = system
	}

	if cmd.Flags().Changed("dt") {
		cfg.Dt = dt
	}
	if cmd.Flags().Changed("steps") {
		cfg.Steps = steps
	}
	if cmd.Flags().Changed("noise") {
		cfg.Noise = noise
	}
	if cmd.Flags().Changed("gravity") {
		cfg.Gravity = gravity
	}
	if cmd.Flags().Changed("links") {
		cfg.Links = links
	}
	if cmd.Flags().Changed("length") {
		cfg.Length = length
	}
	if cmd.Flags().Changed("mass") {
		cfg.Mass = mass
	}
	if cmd.Flags().Changed("integrator") {
		cfg.Integrator = integrator
	}
	if cmd.Flags().Changed("seed") || cfg.Seed == 0 {
		cfg.Seed = seed
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	return cfg, nil
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args[0])
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	sys, err := cfg.Build()
	if err != nil {
		return err
	}
	stepper, err := sys.Stepper(cfg.Integrator)
	if err != nil {
		return err
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	x0, err := sys.SampleInitial(rng, cfg.Noise)
	if err != nil {
		return err
	}

	runner := sim.NewRunner(sys, stepper)
	runner.AddMetric(metrics.NewEnergyDrift(sys.Energy))
	runner.AddMetric(metrics.NewConstraintResidual(sys.Asm))

	slog.Info("running rollout", "system", cfg.System, "integrator", cfg.Integrator,
		"steps", cfg.Steps, "dt", cfg.Dt, "seed", cfg.Seed)
	start := time.Now()

	result, err := runner.Run(context.Background(), x0, cfg.RunConfig())
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	runID, err := st.Save(cfg.System, cfg.Integrator, cfg.Dt, cfg.Seed, result)
	if err != nil {
		return err
	}

	slog.Info("completed", "elapsed", elapsed, "run_id", runID, "steps", result.StepsTaken)
	fmt.Println("\nmetrics:")
	for name, val := range result.Metrics {
		fmt.Printf("  %s: %.3e\n", name, val)
	}
	fmt.Println("\nenergy:")
	fmt.Println(asciigraph.Plot(result.Energies, asciigraph.Height(10), asciigraph.Width(70)))
	return nil
}

func watchSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args[0])
	if err != nil {
		return err
	}

	sys, err := cfg.Build()
	if err != nil {
		return err
	}
	stepper, err := sys.Stepper(cfg.Integrator)
	if err != nil {
		return err
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	x0, err := sys.SampleInitial(rng, cfg.Noise)
	if err != nil {
		return err
	}
	return viz.Run(sys, stepper, x0, cfg.Dt, cfg.System)
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSYSTEM\tTIME\tSTEPS\tDT\tINTEG\tDRIFT")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%.4f\t%s\t%.2e\n",
			run.ID,
			run.System,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Steps,
			run.Dt,
			run.Integrator,
			run.EnergyDrift,
		)
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	header, columns, err := st.LoadColumns(args[0])
	if err != nil {
		return err
	}
	for i, name := range header {
		if name == column {
			fmt.Printf("%s / %s\n", args[0], name)
			fmt.Println(asciigraph.Plot(columns[i], asciigraph.Height(12), asciigraph.Width(70)))
			return nil
		}
	}
	return fmt.Errorf("column %q not found (have %v)", column, header)
}

func exportRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}
