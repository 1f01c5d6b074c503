// Package history keeps a sqlite record of every mission run.
package history

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/mattn/go-sqlite3"

	"mission-runner/internal/metrics"
)

//go:embed migrations/*.sql
var migrations embed.FS

type Store struct {
	db *sql.DB
}

// Open creates or upgrades the database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
	}
	if err := runMigrations(path); err != nil {
		return nil, fmt.Errorf("migrate history: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1) // sqlite
	return &Store{db: db}, nil
}

func runMigrations(path string) error {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return err
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, "sqlite3://"+path)
	if err != nil {
		return err
	}
	defer m.Close()

	err = m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		return nil
	}
	return err
}

func (s *Store) Close() error { return s.db.Close() }

// Record implements dispatcher.Recorder.
func (s *Store) Record(ctx context.Context, r metrics.RunMetrics) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (run_id, mission_id, label, started_at, ended_at, duration_ms, outcome, err, reset_err, log_path)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.MissionID, r.Label, r.Start.UTC(), r.End.UTC(), r.DurationMs,
		string(r.Outcome), r.Err, r.ResetErr, r.LogPath)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", r.RunID, err)
	}
	return nil
}

// Recent returns up to limit runs, newest first. An empty missionID matches
// every mission.
func (s *Store) Recent(ctx context.Context, missionID string, limit int) ([]metrics.RunMetrics, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, mission_id, label, started_at, ended_at, duration_ms, outcome, err, reset_err, log_path
		FROM runs
		WHERE ? = '' OR mission_id = ?
		ORDER BY started_at DESC
		LIMIT ?`, missionID, missionID, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []metrics.RunMetrics
	for rows.Next() {
		var r metrics.RunMetrics
		var outcome string
		if err := rows.Scan(&r.RunID, &r.MissionID, &r.Label, &r.Start, &r.End, &r.DurationMs,
			&outcome, &r.Err, &r.ResetErr, &r.LogPath); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.Outcome = metrics.Outcome(outcome)
		out = append(out, r)
	}
	return out, rows.Err()
}
