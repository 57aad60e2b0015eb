package visualize

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sca-traffic/sca-mcs/sim"
)

func sampleResults(n int) *sim.ResultSet {
	r := &sim.ResultSet{
		SCAEvents:         make([]bool, n),
		ReactionTimes:     make([]float64, n),
		AccidentProbs:     make([]float64, n),
		AccidentsOccurred: make([]bool, n),
	}
	for i := 0; i < n; i++ {
		r.SCAEvents[i] = i%7 == 0
		r.ReactionTimes[i] = sim.MinCriticalWindow + float64(i%29)
		r.AccidentProbs[i] = float64(i%100) / 100
		r.AccidentsOccurred[i] = i%3 == 0
	}
	return r
}

func TestGeneratePlots_WritesAllFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "plots")
	paths, err := NewResultVisualizer().GeneratePlots(sampleResults(500), dir)
	require.NoError(t, err)

	want := []string{ReactionTimesFile, AccidentProbsFile, ScatterFile, ReportFile}
	require.Len(t, paths, len(want))
	for i, name := range want {
		assert.Equal(t, filepath.Join(dir, name), paths[i])
		info, err := os.Stat(paths[i])
		require.NoError(t, err, name)
		assert.Positive(t, info.Size(), name)
	}
}

func TestGeneratePlots_ReportContainsCharts(t *testing.T) {
	dir := t.TempDir()
	_, err := NewResultVisualizer().GeneratePlots(sampleResults(200), dir)
	require.NoError(t, err)

	html, err := os.ReadFile(filepath.Join(dir, ReportFile))
	require.NoError(t, err)
	out := string(html)
	assert.Contains(t, out, "Simulated Events")
	assert.Contains(t, out, "Critical Window Distribution")
	assert.True(t, strings.Contains(out, "echarts"), "report should load echarts")
}

func TestGeneratePlots_DownsamplesLargeScatter(t *testing.T) {
	v := NewResultVisualizer()
	v.MaxScatterPoints = 100
	_, err := v.GeneratePlots(sampleResults(12345), t.TempDir())
	require.NoError(t, err)
}

func TestGeneratePlots_OutOfRangeWindowsDoNotPanic(t *testing.T) {
	r := sampleResults(10)
	r.ReactionTimes[0] = -5
	r.ReactionTimes[1] = 100
	_, err := NewResultVisualizer().GeneratePlots(r, t.TempDir())
	require.NoError(t, err)
}

func TestGeneratePlots_EmptyResultsRejected(t *testing.T) {
	v := NewResultVisualizer()
	_, err := v.GeneratePlots(nil, t.TempDir())
	assert.ErrorIs(t, err, sim.ErrConfiguration)

	_, err = v.GeneratePlots(&sim.ResultSet{}, t.TempDir())
	assert.ErrorIs(t, err, sim.ErrConfiguration)
}

func TestWindowDividers_CoverClippedRange(t *testing.T) {
	assert.Equal(t, sim.MinCriticalWindow, windowDividers[0])
	assert.Greater(t, windowDividers[len(windowDividers)-1], sim.MaxCriticalWindow)
	assert.Equal(t, 4.0, windowDividers[1])
}
