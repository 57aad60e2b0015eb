// Package store persists simulation runs: a JSON output document per run, a
// staging directory that publishes a run's files at once, and an optional
// SQLite history of runs and trials.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/sca-traffic/sca-mcs/sim"
	"github.com/sca-traffic/sca-mcs/sim/analysis"
)

// OutputFile is the name of the JSON document written by SaveResults.
const OutputFile = "simulation_output.json"

// Output is the persisted form of one run.
type Output struct {
	RunID          string                `json:"run_id"`
	Results        *sim.ResultSet        `json:"results"`
	AggregatedRisk *analysis.RiskSummary `json:"aggregated_risk"`
}

// SaveResults writes results and summary to dir/simulation_output.json under a
// fresh run ID, creating dir if needed. It returns the run ID.
func SaveResults(results *sim.ResultSet, summary *analysis.RiskSummary, dir string) (string, error) {
	if results == nil || summary == nil {
		return "", fmt.Errorf("%w: nothing to save", sim.ErrConfiguration)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating output dir: %w", err)
	}

	out := Output{RunID: uuid.NewString(), Results: results, AggregatedRisk: summary}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding results: %w", err)
	}
	path := filepath.Join(dir, OutputFile)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	logrus.Debugf("results saved to %s (run %s)", path, out.RunID)
	return out.RunID, nil
}

// LoadResults reads a document written by SaveResults.
func LoadResults(path string) (*Output, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var out Output
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return &out, nil
}
