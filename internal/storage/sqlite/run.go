package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/nbr23/github-log/internal/domain"
	"github.com/nbr23/github-log/internal/storage"
)

type runRepo struct {
	tx *sql.Tx
}

func (r *runRepo) Create(ctx context.Context, run *domain.Run) error {
	_, err := r.tx.ExecContext(ctx, `
		INSERT INTO runs (id, target, branch, commit_sha, state, error, created_at, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.Target, run.Branch, run.Commit, run.State, run.Error,
		run.CreatedAt, run.StartedAt, run.FinishedAt)
	if err != nil {
		return err
	}

	for i := range run.Stages {
		if err := r.insertStage(ctx, run.ID, i, &run.Stages[i]); err != nil {
			return err
		}
	}
	return nil
}

func (r *runRepo) insertStage(ctx context.Context, runID string, idx int, sr *domain.StageResult) error {
	_, err := r.tx.ExecContext(ctx, `
		INSERT INTO stage_results (run_id, idx, name, kind, status, exit_code, log, skip_reason, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, runID, idx, sr.Name, string(sr.Kind), sr.Status, sr.ExitCode, sr.Log,
		sr.SkipReason, sr.StartedAt, sr.FinishedAt)
	return err
}

func (r *runRepo) Get(ctx context.Context, id string) (*domain.Run, error) {
	row := r.tx.QueryRowContext(ctx, `
		SELECT id, target, branch, commit_sha, state, error, created_at, started_at, finished_at
		FROM runs WHERE id = ?
	`, id)

	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := r.loadStages(ctx, run); err != nil {
		return nil, err
	}
	return run, nil
}

func (r *runRepo) loadStages(ctx context.Context, run *domain.Run) error {
	rows, err := r.tx.QueryContext(ctx, `
		SELECT name, kind, status, exit_code, log, skip_reason, started_at, finished_at
		FROM stage_results WHERE run_id = ? ORDER BY idx
	`, run.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	run.Stages = nil
	for rows.Next() {
		var sr domain.StageResult
		var kind string
		var log, skipReason sql.NullString
		err := rows.Scan(&sr.Name, &kind, &sr.Status, &sr.ExitCode,
			&log, &skipReason, &sr.StartedAt, &sr.FinishedAt)
		if err != nil {
			return err
		}
		sr.Kind = domain.StageKind(kind)
		sr.Log = log.String
		sr.SkipReason = skipReason.String
		run.Stages = append(run.Stages, sr)
	}
	return rows.Err()
}

func (r *runRepo) Update(ctx context.Context, run *domain.Run) error {
	result, err := r.tx.ExecContext(ctx, `
		UPDATE runs
		SET state = ?, commit_sha = ?, error = ?, started_at = ?, finished_at = ?
		WHERE id = ?
	`, run.State, run.Commit, run.Error, run.StartedAt, run.FinishedAt, run.ID)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrNotFound
	}

	// Stage results are rewritten wholesale: runs have few stages and
	// updates happen once per stage transition.
	if _, err := r.tx.ExecContext(ctx, `DELETE FROM stage_results WHERE run_id = ?`, run.ID); err != nil {
		return err
	}
	for i := range run.Stages {
		if err := r.insertStage(ctx, run.ID, i, &run.Stages[i]); err != nil {
			return err
		}
	}
	return nil
}

func (r *runRepo) List(ctx context.Context, opts storage.ListOptions) ([]*domain.Run, error) {
	query := `
		SELECT id, target, branch, commit_sha, state, error, created_at, started_at, finished_at
		FROM runs`
	var conds []string
	var args []any

	if opts.Target != "" {
		conds = append(conds, "target = ?")
		args = append(args, opts.Target)
	}
	if len(opts.States) > 0 {
		placeholders := make([]string, len(opts.States))
		for i, st := range opts.States {
			placeholders[i] = "?"
			args = append(args, st)
		}
		conds = append(conds, fmt.Sprintf("state IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC"
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
		if opts.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, opts.Offset)
		}
	}

	rows, err := r.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*domain.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, run := range runs {
		if err := r.loadStages(ctx, run); err != nil {
			return nil, err
		}
	}
	return runs, nil
}

func (r *runRepo) Delete(ctx context.Context, id string) error {
	result, err := r.tx.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*domain.Run, error) {
	run := &domain.Run{}
	var commit, errMsg sql.NullString
	err := row.Scan(&run.ID, &run.Target, &run.Branch, &commit, &run.State,
		&errMsg, &run.CreatedAt, &run.StartedAt, &run.FinishedAt)
	if err != nil {
		return nil, err
	}
	run.Commit = commit.String
	run.Error = errMsg.String
	return run, nil
}
