// Package store persists simulation results to Postgres, implementing
// simulate.Recorder against the long-form tables record.SystemRecord
// accumulates in memory.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	_ "github.com/lib/pq"

	"github.com/devskill-org/pownet-sim/modeling"
	"github.com/devskill-org/pownet-sim/record"
	"github.com/devskill-org/pownet-sim/simulate"
	"github.com/devskill-org/pownet-sim/system"
)

// Store persists each rolling-horizon window's solved variables and any
// infeasibility diagnostics to Postgres. A nil *Store is valid: every
// method becomes a no-op, mirroring the teacher's "db == nil" guard in
// scheduler/mpc_persistence.go rather than a panic.
type Store struct {
	db *sql.DB
}

// Open connects to Postgres via lib/pq and ensures the result tables
// exist. connString is a standard postgres:// or libpq keyword DSN.
func Open(connString string) (*Store, error) {
	db, err := sql.Open("postgres", connString)
	if err != nil {
		return nil, fmt.Errorf("store: opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: pinging database: %w", err)
	}
	s := &Store{db: db}
	if err := s.ensureSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying connection pool; nil-safe.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) ensureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS simulation_runs (
			run_id TEXT PRIMARY KEY,
			started_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			windows_completed INT NOT NULL DEFAULT 0,
			status TEXT NOT NULL DEFAULT 'running'
		)`,
		`CREATE TABLE IF NOT EXISTS solution_values (
			run_id TEXT NOT NULL,
			window INT NOT NULL,
			hour INT NOT NULL,
			category TEXT NOT NULL,
			varname TEXT NOT NULL,
			value DOUBLE PRECISION NOT NULL,
			PRIMARY KEY (run_id, window, hour, category, varname)
		)`,
		`CREATE TABLE IF NOT EXISTS window_objectives (
			run_id TEXT NOT NULL,
			window INT NOT NULL,
			objective DOUBLE PRECISION NOT NULL,
			PRIMARY KEY (run_id, window)
		)`,
		`CREATE TABLE IF NOT EXISTS infeasible_windows (
			run_id TEXT NOT NULL,
			window INT NOT NULL,
			mps_path TEXT NOT NULL,
			ilp_path TEXT NOT NULL,
			record_snapshot JSONB NOT NULL,
			recorded_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (run_id, window)
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("store: ensuring schema: %w", err)
		}
	}
	return nil
}

// EnsureRun upserts a simulation_runs row for runID; call once before
// the rolling-horizon loop starts.
func (s *Store) EnsureRun(ctx context.Context, runID string) error {
	if s == nil || s.db == nil {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO simulation_runs (run_id) VALUES ($1)
		ON CONFLICT (run_id) DO NOTHING
	`, runID)
	if err != nil {
		return fmt.Errorf("store: ensuring run row: %w", err)
	}
	return nil
}

// PersistWindow implements simulate.Recorder: every solved value for
// hours 1..h is upserted into solution_values, the window's objective
// into window_objectives, and simulation_runs.windows_completed is
// advanced, all inside one transaction per the teacher's
// BeginTx/defer-Rollback/Commit pattern (scheduler/mpc_persistence.go).
func (s *Store) PersistWindow(ctx context.Context, runID string, k, h int, sol *modeling.Solution) error {
	if s == nil || s.db == nil {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO solution_values (run_id, window, hour, category, varname, value)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (run_id, window, hour, category, varname) DO UPDATE SET
			value = EXCLUDED.value
	`)
	if err != nil {
		return fmt.Errorf("store: preparing solution_values upsert: %w", err)
	}
	defer stmt.Close()

	for name, value := range sol.Values {
		category, relHour, ok := splitVarKey(name)
		if !ok || relHour < 1 || relHour > h {
			continue
		}
		abs := system.AbsoluteHour(relHour, k)
		if _, err := stmt.ExecContext(ctx, runID, k, abs, category, name, value); err != nil {
			return fmt.Errorf("store: inserting solution value %q: %w", name, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO window_objectives (run_id, window, objective) VALUES ($1, $2, $3)
		ON CONFLICT (run_id, window) DO UPDATE SET objective = EXCLUDED.objective
	`, runID, k, sol.Objective); err != nil {
		return fmt.Errorf("store: inserting window objective: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE simulation_runs SET windows_completed = $2 WHERE run_id = $1
	`, runID, k); err != nil {
		return fmt.Errorf("store: updating windows_completed: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: committing transaction: %w", err)
	}
	return nil
}

// PersistInfeasible implements simulate.Recorder: records the paths to
// the ILP/MPS diagnostics written by solver.WriteILPMPS, a JSON snapshot
// of everything recorded so far, and marks simulation_runs.status
// "infeasible".
func (s *Store) PersistInfeasible(ctx context.Context, runID string, k int, mpsPath, ilpPath string, rec *record.SystemRecord) error {
	if s == nil || s.db == nil {
		return nil
	}

	snapshot, err := json.Marshal(snapshotOf(rec))
	if err != nil {
		return fmt.Errorf("store: marshaling record snapshot: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO infeasible_windows (run_id, window, mps_path, ilp_path, record_snapshot)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (run_id, window) DO UPDATE SET
			mps_path = EXCLUDED.mps_path,
			ilp_path = EXCLUDED.ilp_path,
			record_snapshot = EXCLUDED.record_snapshot
	`, runID, k, mpsPath, ilpPath, snapshot); err != nil {
		return fmt.Errorf("store: inserting infeasible window: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE simulation_runs SET status = 'infeasible' WHERE run_id = $1
	`, runID); err != nil {
		return fmt.Errorf("store: updating run status: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: committing transaction: %w", err)
	}
	return nil
}

// recordSnapshot is the JSON shape written to infeasible_windows so an
// operator can inspect what was solved up to the failing window without
// a database round trip through the three long tables.
type recordSnapshot struct {
	NodeValues   []record.NodeValue   `json:"node_values"`
	FlowValues   []record.FlowValue   `json:"flow_values"`
	SystemValues []record.SystemValue `json:"system_values"`
}

func snapshotOf(rec *record.SystemRecord) recordSnapshot {
	if rec == nil {
		return recordSnapshot{}
	}
	return recordSnapshot{
		NodeValues:   rec.NodeValues,
		FlowValues:   rec.FlowValues,
		SystemValues: rec.SystemValues,
	}
}

// WriteSnapshotFile is a convenience fallback for when no database is
// configured: dump the same JSON payload PersistInfeasible would have
// stored, to outputFolder, so infeasibility is never silently lost.
func WriteSnapshotFile(outputFolder, name string, rec *record.SystemRecord) (string, error) {
	snapshot, err := json.MarshalIndent(snapshotOf(rec), "", "  ")
	if err != nil {
		return "", fmt.Errorf("store: marshaling record snapshot: %w", err)
	}
	path := outputFolder + "/" + name + ".json"
	if err := os.WriteFile(path, snapshot, 0o644); err != nil {
		return "", fmt.Errorf("store: writing snapshot file: %w", err)
	}
	return path, nil
}

// splitVarKey decomposes a builder-style variable name such as
// "pthermal[gen1,5]", "flow_fwd[bus1-bus2,5]", or "spin_shortfall[5]"
// (the three conventions record/names.go generates) into its category
// (the prefix before '[') and the relative hour t trailing the last
// comma (or the sole bracket contents, for the hour-only convention).
func splitVarKey(name string) (category string, hour int, ok bool) {
	open := strings.IndexByte(name, '[')
	closeIdx := strings.LastIndexByte(name, ']')
	if open < 0 || closeIdx < open {
		return "", 0, false
	}
	category = name[:open]
	inner := name[open+1 : closeIdx]
	comma := strings.LastIndexByte(inner, ',')
	hourStr := inner
	if comma >= 0 {
		hourStr = inner[comma+1:]
	}
	hour, err := strconv.Atoi(hourStr)
	if err != nil {
		return "", 0, false
	}
	return category, hour, true
}

var _ simulate.Recorder = (*Store)(nil)
