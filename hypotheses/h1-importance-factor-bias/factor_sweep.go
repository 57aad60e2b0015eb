// H1 Importance Factor Bias Sweep
//
// Importance mode multiplies every sca_risk parameter by its factor without
// reweighting the estimates. Hypothesis: with the shipped drivers none of the
// scaled parameters feed the simulator, so the joint SCA+accident rate is
// unchanged at every factor. This program sweeps the factor and writes each
// importance run next to the nominal run at the same seed.
//
// Usage: go run factor_sweep.go --config ../../config/parameters.yml --output-dir <dir>
package main

import (
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/sca-traffic/sca-mcs/sim"
	"github.com/sca-traffic/sca-mcs/sim/analysis"
)

var sweepFactors = []float64{1, 1.25, 1.5, 2, 3, 5}

var csvHeader = []string{"factor", "joint_rate", "nominal_joint_rate", "sca_rate", "nominal_sca_rate"}

func main() {
	configPath := flag.String("config", "config/parameters.yml", "Parameter distribution YAML")
	outputDir := flag.String("output-dir", ".", "Output directory for the CSV")
	n := flag.Int("n", 100000, "Trials per run")
	seed := flag.Int64("seed", 42, "Master seed")
	flag.Parse()

	cfg, err := sim.LoadConfig(*configPath)
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(sim.RequiredParameters...); err != nil {
		logrus.Fatalf("Invalid config: %v", err)
	}

	rows, err := sweep(cfg, sweepFactors, *n, *seed)
	if err != nil {
		logrus.Fatalf("Sweep failed: %v", err)
	}
	path := filepath.Join(*outputDir, "factor_sweep.csv")
	if err := writeCSV(path, rows); err != nil {
		logrus.Fatalf("Failed to write %s: %v", path, err)
	}
	logrus.Infof("wrote %s", path)
}

// sweep runs the nominal baseline once, then one importance run per factor,
// and returns the CSV rows (header first). cfg's importance factors are
// overwritten for every sca_risk parameter.
func sweep(cfg *sim.Config, factors []float64, n int, seed int64) ([][]string, error) {
	if cfg.ImportanceFactors == nil {
		cfg.ImportanceFactors = map[string]float64{}
	}
	nominal, err := run(cfg, sim.ModeNominal, n, seed)
	if err != nil {
		return nil, fmt.Errorf("nominal run: %w", err)
	}

	rows := [][]string{csvHeader}
	for _, factor := range factors {
		for name := range cfg.Parameters {
			if strings.Contains(name, "sca_risk") {
				cfg.ImportanceFactors[name] = factor
			}
		}
		s, err := run(cfg, sim.ModeImportance, n, seed)
		if err != nil {
			return nil, fmt.Errorf("factor %g: %w", factor, err)
		}
		logrus.Infof("factor=%.2f joint=%.6f nominal=%.6f", factor, s.JointRate, nominal.JointRate)
		rows = append(rows, []string{
			strconv.FormatFloat(factor, 'f', 2, 64),
			strconv.FormatFloat(s.JointRate, 'f', 8, 64),
			strconv.FormatFloat(nominal.JointRate, 'f', 8, 64),
			strconv.FormatFloat(s.SCARate, 'f', 8, 64),
			strconv.FormatFloat(nominal.SCARate, 'f', 8, 64),
		})
	}
	return rows, nil
}

// writeCSV writes rows to path. Write, flush and close errors are all
// reported.
func writeCSV(path string, rows [][]string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()

	w := csv.NewWriter(f)
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func run(cfg *sim.Config, mode sim.SamplingMode, n int, seed int64) (*analysis.RiskSummary, error) {
	rng := sim.NewPartitionedRNG(sim.NewSimulationKey(seed))
	sampler, err := sim.NewParameterSampler(cfg, mode, rng)
	if err != nil {
		return nil, fmt.Errorf("sampler: %w", err)
	}
	samples, err := sampler.GenerateSamples(n)
	if err != nil {
		return nil, fmt.Errorf("sampling: %w", err)
	}
	c, err := sim.NewCardiacArrestSimulator(samples, rng)
	if err != nil {
		return nil, fmt.Errorf("simulator: %w", err)
	}
	results, err := c.Run()
	if err != nil {
		return nil, fmt.Errorf("run: %w", err)
	}
	summary, err := analysis.NewRiskAggregator().Analyze(results, samples)
	if err != nil {
		return nil, fmt.Errorf("analyze: %w", err)
	}
	return summary, nil
}
