package foodstore

import (
	"context"
	"fmt"
)

// ImportRun is one row of the import_runs history table.
type ImportRun struct {
	ID         int64  `json:"id"`
	Source     string `json:"source"`
	StartedAt  int64  `json:"started_at"`
	FinishedAt int64  `json:"finished_at"`
	Seen       int    `json:"seen"`
	Created    int    `json:"created"`
	Updated    int    `json:"updated"`
	Skipped    int    `json:"skipped"`
	DryRun     bool   `json:"dry_run"`
}

const runsDDL = `CREATE TABLE IF NOT EXISTS import_runs (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	source       TEXT NOT NULL DEFAULT '',
	started_at   INTEGER NOT NULL,
	finished_at  INTEGER NOT NULL,
	seen         INTEGER NOT NULL DEFAULT 0,
	created      INTEGER NOT NULL DEFAULT 0,
	updated      INTEGER NOT NULL DEFAULT 0,
	skipped      INTEGER NOT NULL DEFAULT 0,
	dry_run      INTEGER NOT NULL DEFAULT 0
)`

// RecordImport appends a run to the history.
func (s *Store) RecordImport(ctx context.Context, r ImportRun) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO import_runs
		(source, started_at, finished_at, seen, created, updated, skipped, dry_run)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.Source, r.StartedAt, r.FinishedAt, r.Seen, r.Created, r.Updated, r.Skipped, r.DryRun)
	if err != nil {
		return fmt.Errorf("record import: %w", err)
	}
	return nil
}

// ListImports returns the most recent runs, newest first.
func (s *Store) ListImports(ctx context.Context, limit int) ([]ImportRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id, source, started_at, finished_at,
		seen, created, updated, skipped, dry_run
		FROM import_runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list imports: %w", err)
	}
	defer rows.Close()

	var runs []ImportRun
	for rows.Next() {
		var r ImportRun
		if err := rows.Scan(&r.ID, &r.Source, &r.StartedAt, &r.FinishedAt,
			&r.Seen, &r.Created, &r.Updated, &r.Skipped, &r.DryRun); err != nil {
			return nil, fmt.Errorf("scan import: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
