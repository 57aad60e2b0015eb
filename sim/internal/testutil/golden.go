package testutil

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// GoldenExample represents the structure of testdata/golden_example.json:
// the exact vectors of a small nominal run of the canonical four-parameter
// configuration, plus one reweighted parameter.
type GoldenExample struct {
	Seed       int64                `json:"seed"`
	NumSamples int                  `json:"num_samples"`
	Samples    map[string][]float64 `json:"samples"`
	Results    GoldenResults        `json:"results"`
	Importance GoldenImportance     `json:"importance"`
}

// GoldenResults mirrors sim.ResultSet.
type GoldenResults struct {
	SCAEvents         []bool    `json:"sca_events"`
	ReactionTimes     []float64 `json:"reaction_times"`
	AccidentProbs     []float64 `json:"accident_probs"`
	AccidentsOccurred []bool    `json:"accidents_occurred"`
}

// GoldenImportance pins a LogNormal parameter drawn under both sampling modes.
type GoldenImportance struct {
	Parameter  string    `json:"parameter"`
	Mu         float64   `json:"mu"`
	Sigma      float64   `json:"sigma"`
	Factor     float64   `json:"factor"`
	Nominal    []float64 `json:"nominal"`
	Importance []float64 `json:"importance"`
}

// LoadGoldenExample loads the golden example from the testdata directory.
// The path is resolved relative to this source file: sim/internal/testutil/ → testdata/.
func LoadGoldenExample(t *testing.T) *GoldenExample {
	t.Helper()

	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("Failed to get current file path")
	}
	path := filepath.Join(filepath.Dir(thisFile), "..", "..", "..", "testdata", "golden_example.json")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read golden example: %v", err)
	}

	var golden GoldenExample
	if err := json.Unmarshal(data, &golden); err != nil {
		t.Fatalf("Failed to parse golden example: %v", err)
	}
	if golden.NumSamples < 1 {
		t.Fatalf("golden example has num_samples=%d", golden.NumSamples)
	}
	return &golden
}

// AssertFloat64SliceEqual compares two slices element-wise with relative tolerance.
func AssertFloat64SliceEqual(t *testing.T, name string, want, got []float64, relTol float64) {
	t.Helper()
	if len(want) != len(got) {
		t.Errorf("%s: got %d values, want %d", name, len(got), len(want))
		return
	}
	for i := range want {
		AssertFloat64Equal(t, fmt.Sprintf("%s[%d]", name, i), want[i], got[i], relTol)
	}
}
