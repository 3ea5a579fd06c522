package store

import (
	"context"
	"fmt"

	"github.com/bryan-besnyi/siteindex/cache"
	"github.com/bryan-besnyi/siteindex/internal/listing"
)

// CountByCategory returns listing counts grouped by category, cached under
// stats:category.
func (s *Store) CountByCategory(ctx context.Context) ([]listing.Counts, error) {
	key := cache.Key(StatsNamespace, "category")
	return s.stats.GetOrPopulate(ctx, key, func(ctx context.Context) ([]listing.Counts, error) {
		return s.queryCounts(ctx, "category")
	}, ReadTTL)
}

// CountByPartition returns listing counts grouped by partition, cached
// under stats:partition.
func (s *Store) CountByPartition(ctx context.Context) ([]listing.Counts, error) {
	key := cache.Key(StatsNamespace, "partition")
	return s.stats.GetOrPopulate(ctx, key, func(ctx context.Context) ([]listing.Counts, error) {
		return s.queryCounts(ctx, "partition")
	}, ReadTTL)
}

// queryCounts groups by one of the two fixed dimension columns. column is
// never caller input.
func (s *Store) queryCounts(ctx context.Context, column string) ([]listing.Counts, error) {
	query, _, err := psql.Select(column+" AS value", "COUNT(*) AS count").
		From("listings").
		GroupBy(column).
		OrderBy(column + " ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("store: build counts: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("store: count by %s: %w", column, err)
	}
	defer rows.Close()

	var out []listing.Counts
	for rows.Next() {
		var c listing.Counts
		if err := rows.Scan(&c.Value, &c.Count); err != nil {
			return nil, fmt.Errorf("store: scan counts: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: count by %s: %w", column, err)
	}
	return out, nil
}
