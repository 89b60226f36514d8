package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"meshtopo/internal/cluster"
)

func ensureRunSchema(db *sql.DB) error {
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	action TEXT NOT NULL,
	namespace TEXT NOT NULL,
	prefix TEXT NOT NULL,
	succeeded INTEGER NOT NULL,
	failed INTEGER NOT NULL,
	at_ns INTEGER NOT NULL
)`); err != nil {
		return fmt.Errorf("initialize runs schema: %w", err)
	}
	return nil
}

func (s *Store) RecordRun(ctx context.Context, r cluster.Run) error {
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, action, namespace, prefix, succeeded, failed, at_ns)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		 succeeded = excluded.succeeded,
		 failed = excluded.failed,
		 at_ns = excluded.at_ns`,
		r.ID, r.Action, r.Namespace, r.Prefix, r.Succeeded, r.Failed, r.At.UnixNano(),
	); err != nil {
		return fmt.Errorf("record run %s: %w", r.ID, err)
	}
	return nil
}

// RecentRuns returns up to limit runs of one topology, newest first.
func (s *Store) RecentRuns(ctx context.Context, namespace, prefix string, limit int) ([]cluster.Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, action, succeeded, failed, at_ns FROM runs
		 WHERE namespace = ? AND prefix = ?
		 ORDER BY at_ns DESC, id DESC LIMIT ?`,
		namespace, prefix, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []cluster.Run
	for rows.Next() {
		r := cluster.Run{Namespace: namespace, Prefix: prefix}
		var at int64
		if err := rows.Scan(&r.ID, &r.Action, &r.Succeeded, &r.Failed, &at); err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		r.At = time.Unix(0, at).UTC()
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run rows: %w", err)
	}
	return out, nil
}
