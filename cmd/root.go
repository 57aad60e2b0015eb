package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sca-traffic/sca-mcs/sim"
	"github.com/sca-traffic/sca-mcs/sim/analysis"
	"github.com/sca-traffic/sca-mcs/sim/store"
	"github.com/sca-traffic/sca-mcs/sim/visualize"
)

var (
	// CLI flags for the run command
	numSamples int    // Number of Monte Carlo trials
	outputDir  string // Directory for results and plots
	configPath string // Parameter distribution YAML
	mode       string // Sampling mode: nominal or importance
	seed       int64  // Master seed for every random stream
	logLevel   string // Log verbosity level
	workers    int    // Concurrent simulation chunks (0 = GOMAXPROCS)
	plots      bool   // Render plots and the HTML report
	dbPath     string // SQLite run history (empty disables)
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "sca-mcs",
	Short: "Monte Carlo simulation of sudden cardiac arrest risk while driving",
}

// runOptions carries everything a simulation run needs.
type runOptions struct {
	NumSamples int
	OutputDir  string
	ConfigPath string
	Mode       string
	Seed       int64
	Workers    int
	Plots      bool
	DBPath     string
}

// runCmd executes the simulation using parameters from CLI flags
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the SCA traffic risk simulation",
	Run: func(cmd *cobra.Command, args []string) {
		setLogLevel()

		startTime := time.Now()
		err := runSimulation(runOptions{
			NumSamples: numSamples,
			OutputDir:  outputDir,
			ConfigPath: configPath,
			Mode:       mode,
			Seed:       seed,
			Workers:    workers,
			Plots:      plots,
			DBPath:     dbPath,
		}, os.Stdout)
		if err != nil {
			logrus.Fatalf("simulation failed: %v", err)
		}
		logrus.Infof("Simulation complete in %v.", time.Since(startTime).Round(time.Millisecond))
	},
}

// validateCmd parses and validates a configuration without running it
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a parameter configuration file",
	Run: func(cmd *cobra.Command, args []string) {
		setLogLevel()
		cfg, err := loadValidConfig(configPath)
		if err != nil {
			logrus.Fatalf("invalid configuration: %v", err)
		}
		fmt.Fprintf(os.Stdout, "%s: %d parameters OK %v\n", configPath, len(cfg.Parameters), cfg.ParameterNames())
	},
}

func setLogLevel() {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		logrus.Fatalf("Invalid log level: %s", logLevel)
	}
	logrus.SetLevel(level)
}

func loadValidConfig(path string) (*sim.Config, error) {
	cfg, err := sim.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(sim.RequiredParameters...); err != nil {
		return nil, err
	}
	return cfg, nil
}

// runSimulation executes one full pipeline: sample, simulate, aggregate,
// persist. The summary is printed to w. Files are rendered into a staging
// directory and published into o.OutputDir only after every stage, the
// optional database record included, has succeeded.
func runSimulation(o runOptions, w io.Writer) error {
	samplingMode, err := sim.ParseSamplingMode(o.Mode)
	if err != nil {
		return err
	}
	cfg, err := loadValidConfig(o.ConfigPath)
	if err != nil {
		return err
	}
	var runs *store.RunStore
	if o.DBPath != "" {
		if runs, err = store.Open(o.DBPath); err != nil {
			return fmt.Errorf("opening run store %s: %w", o.DBPath, err)
		}
		defer runs.Close()
	}
	logrus.Infof("Starting simulation: n=%d mode=%s seed=%d config=%s", o.NumSamples, samplingMode, o.Seed, o.ConfigPath)

	rng := sim.NewPartitionedRNG(sim.NewSimulationKey(o.Seed))
	sampler, err := sim.NewParameterSampler(cfg, samplingMode, rng)
	if err != nil {
		return err
	}
	samples, err := sampler.GenerateSamples(o.NumSamples)
	if err != nil {
		return err
	}
	simulator, err := sim.NewCardiacArrestSimulator(samples, rng)
	if err != nil {
		return err
	}
	simulator.Workers = o.Workers
	results, err := simulator.Run()
	if err != nil {
		return err
	}

	summary, err := analysis.NewRiskAggregator().Analyze(results, samples)
	if err != nil {
		return err
	}
	summary.Print(w)

	stage, err := store.NewStage(o.OutputDir)
	if err != nil {
		return err
	}
	defer stage.Discard()

	runID, err := store.SaveResults(results, summary, stage.Dir)
	if err != nil {
		return err
	}
	if o.Plots {
		if _, err := visualize.NewResultVisualizer().GeneratePlots(results, filepath.Join(stage.Dir, visualize.PlotsDir)); err != nil {
			return err
		}
	}
	if runs != nil {
		if err := runs.RecordRun(store.Run{ID: runID, Seed: o.Seed, Results: results, Summary: summary}); err != nil {
			return err
		}
		logrus.Infof("Run %s recorded in %s", runID, o.DBPath)
	}
	if err := stage.Commit(); err != nil {
		return fmt.Errorf("publishing run %s to %s: %w", runID, o.OutputDir, err)
	}
	logrus.Infof("Run %s written to %s", runID, o.OutputDir)
	return nil
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "info", "Log level (trace, debug, info, warn, error, fatal, panic)")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config/parameters.yml", "Path to the parameter distribution YAML")

	runCmd.Flags().IntVarP(&numSamples, "num_samples", "n", 10000, "Number of Monte Carlo trials")
	runCmd.Flags().StringVarP(&outputDir, "output_dir", "o", "data/simulation_results", "Directory for results and plots")
	runCmd.Flags().StringVarP(&mode, "mode", "m", string(sim.ModeNominal), "Sampling mode (nominal, importance)")
	runCmd.Flags().Int64Var(&seed, "seed", 42, "Master seed for all random streams")
	runCmd.Flags().IntVar(&workers, "workers", 0, "Concurrent simulation chunks (0 uses GOMAXPROCS)")
	runCmd.Flags().BoolVar(&plots, "plots", true, "Render PNG plots and the HTML report")
	runCmd.Flags().StringVar(&dbPath, "db", "", "SQLite file to record the run in (empty disables)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(runsCmd)
}
