package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/sca-traffic/sca-mcs/sim"
	"github.com/sca-traffic/sca-mcs/sim/analysis"
)

// Run is one completed simulation to be recorded.
type Run struct {
	ID        string
	CreatedAt time.Time
	Seed      int64
	Results   *sim.ResultSet
	Summary   *analysis.RiskSummary
}

// RunInfo is the stored metadata of a recorded run.
type RunInfo struct {
	ID          string
	CreatedAt   time.Time
	Seed        int64
	Mode        string
	NumSamples  int
	SCAEvents   int
	Accidents   int
	JointEvents int
	JointRate   float64
	JointRateCI [2]float64
	Biased      bool
}

// RunStore is a SQLite history of simulation runs.
type RunStore struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and migrates it to the latest
// schema.
func Open(path string) (*RunStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// modernc sqlite serializes writers; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}
	if err := migrateUp(db); err != nil {
		db.Close()
		return nil, err
	}
	return &RunStore{db: db}, nil
}

// Close closes the database.
func (s *RunStore) Close() error {
	return s.db.Close()
}

// RecordRun stores run metadata and every trial row in one transaction.
func (s *RunStore) RecordRun(run Run) error {
	if run.ID == "" || run.Results == nil || run.Summary == nil {
		return fmt.Errorf("%w: run needs an ID, results and a summary", sim.ErrConfiguration)
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}
	r, sum := run.Results, run.Summary

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.Exec(`INSERT INTO runs (id, created_at, seed, mode, num_samples, sca_events, accidents,
		joint_events, joint_rate, joint_rate_lo, joint_rate_hi, biased)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.CreatedAt.UnixNano(), run.Seed, sum.Mode, sum.NumSamples, sum.SCAEvents, sum.Accidents,
		sum.JointEvents, sum.JointRate, sum.JointRateCI[0], sum.JointRateCI[1], sum.Biased)
	if err != nil {
		return fmt.Errorf("inserting run %s: %w", run.ID, err)
	}

	stmt, err := tx.Prepare(`INSERT INTO trials (run_id, idx, sca_event, reaction_time, accident_prob, accident)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i := 0; i < r.Len(); i++ {
		if _, err := stmt.Exec(run.ID, i, r.SCAEvents[i], r.ReactionTimes[i], r.AccidentProbs[i], r.AccidentsOccurred[i]); err != nil {
			return fmt.Errorf("inserting trial %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	logrus.Debugf("recorded run %s (%d trials)", run.ID, r.Len())
	return nil
}

// Runs lists recorded runs, oldest first.
func (s *RunStore) Runs() ([]RunInfo, error) {
	rows, err := s.db.Query(`SELECT id, created_at, seed, mode, num_samples, sca_events, accidents,
		joint_events, joint_rate, joint_rate_lo, joint_rate_hi, biased
		FROM runs ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []RunInfo
	for rows.Next() {
		var ri RunInfo
		var created int64
		if err := rows.Scan(&ri.ID, &created, &ri.Seed, &ri.Mode, &ri.NumSamples, &ri.SCAEvents, &ri.Accidents,
			&ri.JointEvents, &ri.JointRate, &ri.JointRateCI[0], &ri.JointRateCI[1], &ri.Biased); err != nil {
			return nil, err
		}
		ri.CreatedAt = time.Unix(0, created)
		runs = append(runs, ri)
	}
	return runs, rows.Err()
}

// TrialCount returns the number of trial rows stored for runID.
func (s *RunStore) TrialCount(runID string) (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM trials WHERE run_id = ?`, runID).Scan(&n)
	return n, err
}
