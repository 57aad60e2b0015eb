package main

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sca-traffic/sca-mcs/sim"
)

func sweepConfig() *sim.Config {
	return &sim.Config{Parameters: map[string]sim.DistSpec{
		sim.ParamSCAProbability: sim.NormalSpec(0.01, 0.002),
		sim.ParamAge:            sim.NormalSpec(45, 10),
		sim.ParamHealthStatus:   sim.NormalSpec(1, 0.3),
		sim.ParamSpeed:          sim.NormalSpec(80, 15),
		"sca_risk_multiplier":   sim.LogNormalSpec(0, 0.25),
	}}
}

func TestSweep_JointRateUnchangedByFactor(t *testing.T) {
	rows, err := sweep(sweepConfig(), []float64{1, 2, 5}, 2000, 42)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, csvHeader, rows[0])
	for _, row := range rows[1:] {
		assert.Equal(t, row[2], row[1], "joint rate at factor %s", row[0])
		assert.Equal(t, row[4], row[3], "sca rate at factor %s", row[0])
	}
}

func TestSweep_SimulatorErrorIsReturned(t *testing.T) {
	cfg := sweepConfig()
	delete(cfg.Parameters, sim.ParamSpeed)
	_, err := sweep(cfg, []float64{2}, 10, 42)
	require.ErrorIs(t, err, sim.ErrConfiguration)
}

func TestWriteCSV_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "factor_sweep.csv")
	rows := [][]string{csvHeader, {"2.00", "0.1", "0.1", "0.01", "0.01"}}
	require.NoError(t, writeCSV(path, rows))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	got, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, rows, got)
}

func TestWriteCSV_ReportsErrors(t *testing.T) {
	t.Run("uncreatable path", func(t *testing.T) {
		err := writeCSV(filepath.Join(t.TempDir(), "missing", "factor_sweep.csv"), [][]string{csvHeader})
		assert.Error(t, err)
	})
	t.Run("write fails", func(t *testing.T) {
		// Every write to /dev/full fails with ENOSPC.
		if _, err := os.Stat("/dev/full"); err != nil {
			t.Skip("/dev/full not available")
		}
		err := writeCSV("/dev/full", [][]string{csvHeader, {"2.00", "0.1", "0.1", "0.01", "0.01"}})
		assert.Error(t, err)
	})
}
