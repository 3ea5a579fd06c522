package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	sq "github.com/Masterminds/squirrel"
	"go.uber.org/zap"

	"github.com/bryan-besnyi/siteindex/cache"
	"github.com/bryan-besnyi/siteindex/internal/listing"
)

const listingColumns = "id, title, category, url, partition, created_at, updated_at"

// List returns listings matching f, read through the cache. Results are
// ordered by category then title so cached payloads are deterministic.
func (s *Store) List(ctx context.Context, f Filter) ([]listing.Listing, error) {
	return s.idx.GetOrPopulate(ctx, f.key(), func(ctx context.Context) ([]listing.Listing, error) {
		return s.queryListings(ctx, f)
	}, ReadTTL)
}

// Get returns one listing by id. Point reads skip the cache: they are a
// primary-key lookup, and caching them would add a fifth invalidation
// dimension for no measurable win.
func (s *Store) Get(ctx context.Context, id string) (listing.Listing, error) {
	query, args, err := psql.Select(listingColumns).
		From("listings").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return listing.Listing{}, fmt.Errorf("store: build get: %w", err)
	}
	var l listing.Listing
	err = s.db.QueryRowContext(ctx, query, args...).
		Scan(&l.ID, &l.Title, &l.Category, &l.URL, &l.Partition, &l.CreatedAt, &l.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return listing.Listing{}, ErrNotFound
	}
	if err != nil {
		return listing.Listing{}, fmt.Errorf("store: get listing: %w", err)
	}
	return l, nil
}

func (s *Store) queryListings(ctx context.Context, f Filter) ([]listing.Listing, error) {
	q := psql.Select(listingColumns).
		From("listings").
		OrderBy("category ASC", "title ASC")
	if f.Partition != "" {
		q = q.Where(sq.Eq{"partition": f.Partition})
	}
	if f.Category != "" {
		q = q.Where(sq.Eq{"category": f.Category})
	}
	if f.Term != "" {
		q = q.Where(sq.ILike{"title": "%" + f.Term + "%"})
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("store: build list: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: list listings: %w", err)
	}
	defer rows.Close()

	out := make([]listing.Listing, 0, 64)
	for rows.Next() {
		var l listing.Listing
		if err := rows.Scan(&l.ID, &l.Title, &l.Category, &l.URL, &l.Partition, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, fmt.Errorf("store: scan listing: %w", err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list listings: %w", err)
	}
	return out, nil
}

// Create inserts a listing with a store-assigned id, then invalidates every
// cache key whose dimensions could include it.
func (s *Store) Create(ctx context.Context, l listing.Listing) (listing.Listing, error) {
	l.ID = s.newID()
	l.CreatedAt = s.now().UTC()
	l.UpdatedAt = l.CreatedAt

	query, args, err := psql.Insert("listings").
		Columns("id", "title", "category", "url", "partition", "created_at", "updated_at").
		Values(l.ID, l.Title, l.Category, l.URL, l.Partition, l.CreatedAt, l.UpdatedAt).
		ToSql()
	if err != nil {
		return listing.Listing{}, fmt.Errorf("store: build insert: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return listing.Listing{}, fmt.Errorf("store: insert listing: %w", err)
	}

	s.invalidateFor(ctx, dims{l.Category, l.Partition})
	return l, nil
}

// Update rewrites a listing. Both the old and new (category, partition)
// pairs are invalidated: the record may have moved between keys.
func (s *Store) Update(ctx context.Context, l listing.Listing) (listing.Listing, error) {
	prev, err := s.Get(ctx, l.ID)
	if err != nil {
		return listing.Listing{}, err
	}
	l.CreatedAt = prev.CreatedAt
	l.UpdatedAt = s.now().UTC()

	query, args, err := psql.Update("listings").
		Set("title", l.Title).
		Set("category", l.Category).
		Set("url", l.URL).
		Set("partition", l.Partition).
		Set("updated_at", l.UpdatedAt).
		Where(sq.Eq{"id": l.ID}).
		ToSql()
	if err != nil {
		return listing.Listing{}, fmt.Errorf("store: build update: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return listing.Listing{}, fmt.Errorf("store: update listing: %w", err)
	}

	s.invalidateFor(ctx, dims{prev.Category, prev.Partition}, dims{l.Category, l.Partition})
	return l, nil
}

// Delete removes a listing by id, returning ErrNotFound when nothing
// matched. The deleted record's dimensions are read back so its keys can be
// invalidated.
func (s *Store) Delete(ctx context.Context, id string) error {
	query, args, err := psql.Delete("listings").
		Where(sq.Eq{"id": id}).
		Suffix("RETURNING category, partition").
		ToSql()
	if err != nil {
		return fmt.Errorf("store: build delete: %w", err)
	}

	var d dims
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&d.category, &d.partition)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("store: delete listing: %w", err)
	}

	s.invalidateFor(ctx, d)
	return nil
}

// BulkImport inserts records in one transaction, then invalidates the
// deduplicated union of keys implied by all records' dimensions.
func (s *Store) BulkImport(ctx context.Context, ls []listing.Listing) ([]listing.Listing, error) {
	if len(ls) == 0 {
		return nil, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("store: begin import: %w", err)
	}
	defer tx.Rollback()

	now := s.now().UTC()
	affected := make([]dims, 0, len(ls))
	for i := range ls {
		ls[i].ID = s.newID()
		ls[i].CreatedAt = now
		ls[i].UpdatedAt = now

		query, args, err := psql.Insert("listings").
			Columns("id", "title", "category", "url", "partition", "created_at", "updated_at").
			Values(ls[i].ID, ls[i].Title, ls[i].Category, ls[i].URL, ls[i].Partition, now, now).
			ToSql()
		if err != nil {
			return nil, fmt.Errorf("store: build import insert: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return nil, fmt.Errorf("store: import listing %q: %w", ls[i].Title, err)
		}
		affected = append(affected, dims{ls[i].Category, ls[i].Partition})
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("store: commit import: %w", err)
	}

	s.invalidateFor(ctx, affected...)
	return ls, nil
}

// dims is the (category, partition) pair a record contributes to key
// invalidation.
type dims struct {
	category  string
	partition listing.Partition
}

// invalidateFor removes every exact key whose filter dimensions could
// include the affected records, plus all term-bearing search keys and
// analytics counts by pattern. Invalidation is issued strictly after the
// mutation is acknowledged; failures degrade to stale-until-TTL, never to a
// failed write.
func (s *Store) invalidateFor(ctx context.Context, affected ...dims) {
	set := map[string]struct{}{allKey(): {}}
	for _, d := range affected {
		set[cache.Key(Namespace, "", d.category, "")] = struct{}{}
		set[cache.Key(Namespace, string(d.partition), "", "")] = struct{}{}
		set[cache.Key(Namespace, string(d.partition), d.category, "")] = struct{}{}
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	if _, err := s.idx.Invalidate(ctx, cache.Selector{Keys: keys}); err != nil {
		s.log.Warn("listing invalidation rejected", zap.Error(err))
	}
	if _, err := s.idx.Invalidate(ctx, cache.Selector{Pattern: searchPattern()}); err != nil {
		s.log.Warn("search invalidation rejected", zap.Error(err))
	}
	if _, err := s.stats.Invalidate(ctx, cache.Selector{Pattern: statsPattern()}); err != nil {
		s.log.Warn("stats invalidation rejected", zap.Error(err))
	}
}
