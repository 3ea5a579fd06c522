package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/bryan-besnyi/siteindex/internal/listing"
)

// ErrNoLinkRun is returned when no link-check run has been recorded yet.
var ErrNoLinkRun = errors.New("store: no link-check run recorded")

// SaveLinkRun persists a completed link-check pass and its per-URL results
// in one transaction. Runs are audit data and are not cached.
func (s *Store) SaveLinkRun(ctx context.Context, run listing.LinkRun) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin link run: %w", err)
	}
	defer tx.Rollback()

	query, args, err := psql.Insert("link_runs").
		Columns("id", "started_at", "finished_at", "checked", "broken").
		Values(run.ID, run.StartedAt, run.FinishedAt, run.Checked, run.Broken).
		ToSql()
	if err != nil {
		return fmt.Errorf("store: build link run insert: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("store: insert link run: %w", err)
	}

	for _, r := range run.Results {
		query, args, err := psql.Insert("link_results").
			Columns("run_id", "listing_id", "url", "status", "http_status", "checked_at").
			Values(run.ID, r.ListingID, r.URL, r.Status, r.HTTPStatus, r.CheckedAt).
			ToSql()
		if err != nil {
			return fmt.Errorf("store: build link result insert: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("store: insert link result: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit link run: %w", err)
	}
	return nil
}

// LatestLinkRun returns the most recent run with its results.
func (s *Store) LatestLinkRun(ctx context.Context) (listing.LinkRun, error) {
	query, _, err := psql.Select("id", "started_at", "finished_at", "checked", "broken").
		From("link_runs").
		OrderBy("started_at DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return listing.LinkRun{}, fmt.Errorf("store: build latest run: %w", err)
	}

	var run listing.LinkRun
	err = s.db.QueryRowContext(ctx, query).
		Scan(&run.ID, &run.StartedAt, &run.FinishedAt, &run.Checked, &run.Broken)
	if errors.Is(err, sql.ErrNoRows) {
		return listing.LinkRun{}, ErrNoLinkRun
	}
	if err != nil {
		return listing.LinkRun{}, fmt.Errorf("store: latest run: %w", err)
	}

	query, args, err := psql.Select("listing_id", "url", "status", "http_status", "checked_at").
		From("link_results").
		Where(sq.Eq{"run_id": run.ID}).
		OrderBy("url ASC").
		ToSql()
	if err != nil {
		return listing.LinkRun{}, fmt.Errorf("store: build run results: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return listing.LinkRun{}, fmt.Errorf("store: run results: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var r listing.LinkResult
		if err := rows.Scan(&r.ListingID, &r.URL, &r.Status, &r.HTTPStatus, &r.CheckedAt); err != nil {
			return listing.LinkRun{}, fmt.Errorf("store: scan run result: %w", err)
		}
		run.Results = append(run.Results, r)
	}
	if err := rows.Err(); err != nil {
		return listing.LinkRun{}, fmt.Errorf("store: run results: %w", err)
	}
	return run, nil
}
