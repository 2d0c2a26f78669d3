package sqlite

import (
	"context"
	"database/sql"
)

// Migrate runs all database migrations.
func Migrate(ctx context.Context, db *sql.DB) error {
	migrations := []string{
		// Pipeline runs table
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			target TEXT NOT NULL,
			branch TEXT NOT NULL,
			commit_sha TEXT,
			state INTEGER NOT NULL DEFAULT 10,
			error TEXT,
			created_at DATETIME NOT NULL,
			started_at DATETIME,
			finished_at DATETIME
		)`,

		// Stage results table
		`CREATE TABLE IF NOT EXISTS stage_results (
			run_id TEXT NOT NULL,
			idx INTEGER NOT NULL,
			name TEXT NOT NULL,
			kind TEXT NOT NULL,
			status INTEGER NOT NULL DEFAULT 10,
			exit_code INTEGER NOT NULL DEFAULT 0,
			log TEXT,
			skip_reason TEXT,
			started_at DATETIME,
			finished_at DATETIME,
			PRIMARY KEY (run_id, idx),
			FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
		)`,

		// Single-flight leases per pipeline target
		`CREATE TABLE IF NOT EXISTS leases (
			target TEXT PRIMARY KEY,
			holder TEXT NOT NULL,
			acquired_at DATETIME NOT NULL,
			expires_at DATETIME NOT NULL
		)`,

		// Indexes for efficient queries
		`CREATE INDEX IF NOT EXISTS idx_runs_target ON runs(target, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_state ON runs(state)`,
		`CREATE INDEX IF NOT EXISTS idx_stage_results_run ON stage_results(run_id)`,
	}

	for _, migration := range migrations {
		if _, err := db.ExecContext(ctx, migration); err != nil {
			return err
		}
	}
	return nil
}
