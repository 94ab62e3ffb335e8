package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nao1215/pagehunter/internal/model"
)

// SaveRankRun stores a run and its rankings in one transaction.
func (cdb *CrawlDB) SaveRankRun(ctx context.Context, run *model.Run) error {
	seeds, err := json.Marshal(run.Seeds)
	if err != nil {
		return fmt.Errorf("failed to serialize seeds: %w", err)
	}

	tx, err := cdb.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }() //nolint:errcheck // no-op after Commit

	insertRun := `
	INSERT INTO rank_runs (id, seeds, started_at, finished_at, alpha, epsilon, iterations, delta, converged, page_count)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	converged := 0
	if run.Converged {
		converged = 1
	}
	if _, err := tx.ExecContext(ctx, cdb.rebind(insertRun),
		run.ID,
		string(seeds),
		formatTimestamp(run.StartedAt),
		formatTimestamp(run.FinishedAt),
		run.Alpha,
		run.Epsilon,
		run.Iterations,
		run.Delta,
		converged,
		len(run.Rankings),
	); err != nil {
		return fmt.Errorf("failed to save rank run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, cdb.rebind(
		`INSERT INTO ranks (run_id, url, page_rank, display, position) VALUES (?, ?, ?, ?, ?)`))
	if err != nil {
		return fmt.Errorf("failed to prepare rank insert: %w", err)
	}
	defer stmt.Close()

	for i, p := range run.Rankings {
		if _, err := stmt.ExecContext(ctx, run.ID, p.URL, p.Score, p.Display, i); err != nil {
			return fmt.Errorf("failed to save rank of %s: %w", p.URL, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit rank run: %w", err)
	}
	return nil
}

const runColumns = `id, seeds, started_at, finished_at, alpha, epsilon, iterations, delta, converged, page_count`

// scanRun reads one rank_runs row.
func scanRun(row interface{ Scan(dest ...any) error }) (*model.Run, error) {
	var (
		run                 model.Run
		seeds               string
		startedAt, finished string
		converged           int
	)
	if err := row.Scan(
		&run.ID,
		&seeds,
		&startedAt,
		&finished,
		&run.Alpha,
		&run.Epsilon,
		&run.Iterations,
		&run.Delta,
		&converged,
		&run.Pages,
	); err != nil {
		return nil, err
	}
	if seeds != "" {
		if err := json.Unmarshal([]byte(seeds), &run.Seeds); err != nil {
			return nil, fmt.Errorf("failed to parse seeds: %w", err)
		}
	}
	run.StartedAt = parseTimestamp(startedAt)
	run.FinishedAt = parseTimestamp(finished)
	run.Converged = converged != 0
	run.Rankings = make([]model.RankedPage, 0)
	return &run, nil
}

// GetRankRun returns the run with id and its rankings.
// It returns ErrRunNotFound when no such run exists.
func (cdb *CrawlDB) GetRankRun(ctx context.Context, id string) (*model.Run, error) {
	row := cdb.db.QueryRowContext(ctx, cdb.rebind(`SELECT `+runColumns+` FROM rank_runs WHERE id = ?`), id)
	return cdb.loadRun(ctx, row)
}

// LatestRankRun returns the most recent run and its rankings.
// It returns ErrRunNotFound when nothing has been ranked yet.
func (cdb *CrawlDB) LatestRankRun(ctx context.Context) (*model.Run, error) {
	row := cdb.db.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM rank_runs ORDER BY started_at DESC, id DESC LIMIT 1`)
	return cdb.loadRun(ctx, row)
}

// PreviousRankRun returns the run that started right before the run with
// id, with its rankings. It returns ErrRunNotFound when there is none.
func (cdb *CrawlDB) PreviousRankRun(ctx context.Context, id string) (*model.Run, error) {
	query := `
	SELECT ` + runColumns + ` FROM rank_runs
	WHERE started_at < (SELECT started_at FROM rank_runs WHERE id = ?)
	ORDER BY started_at DESC, id DESC
	LIMIT 1
	`
	row := cdb.db.QueryRowContext(ctx, cdb.rebind(query), id)
	return cdb.loadRun(ctx, row)
}

func (cdb *CrawlDB) loadRun(ctx context.Context, row *sql.Row) (*model.Run, error) {
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get rank run: %w", err)
	}

	rows, err := cdb.db.QueryContext(ctx, cdb.rebind(
		`SELECT url, page_rank, display FROM ranks WHERE run_id = ? ORDER BY position`), run.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get ranks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p model.RankedPage
		if err := rows.Scan(&p.URL, &p.Score, &p.Display); err != nil {
			return nil, fmt.Errorf("failed to scan rank: %w", err)
		}
		run.Rankings = append(run.Rankings, p)
	}
	return run, rows.Err()
}

// ListRankRuns returns run metadata, newest first, without rankings.
// limit <= 0 returns every run.
func (cdb *CrawlDB) ListRankRuns(ctx context.Context, limit int) ([]*model.Run, error) {
	query := `SELECT ` + runColumns + ` FROM rank_runs ORDER BY started_at DESC, id DESC`
	args := make([]any, 0, 1)
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := cdb.db.QueryContext(ctx, cdb.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list rank runs: %w", err)
	}
	defer rows.Close()

	runs := make([]*model.Run, 0)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rank run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
