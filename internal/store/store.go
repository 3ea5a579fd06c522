// Package store is the data-access layer: PostgreSQL queries behind the
// read-through cache, with key-convention invalidation after every write.
package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bryan-besnyi/siteindex/cache"
	"github.com/bryan-besnyi/siteindex/internal/listing"
)

// ReadTTL is the fixed TTL for every read cache entry.
const ReadTTL = time.Hour

// Cache key namespaces. Listing reads live under "idx", analytics counts
// under "stats"; both follow the ordered-dimension convention in cache.Key.
const (
	Namespace      = "idx"
	StatsNamespace = "stats"
)

// ErrNotFound is returned when a listing id does not exist.
var ErrNotFound = errors.New("store: listing not found")

// psql builds $n-placeholder queries for PostgreSQL.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Store executes listing queries and keeps the cache coherent with writes.
type Store struct {
	db    *sql.DB
	idx   cache.Cache[[]listing.Listing]
	stats cache.Cache[[]listing.Counts]
	log   *zap.Logger

	newID func() string
	now   func() time.Time
}

// Option overrides Store seams in tests.
type Option func(*Store)

// WithIDGenerator replaces the uuid source.
func WithIDGenerator(f func() string) Option {
	return func(s *Store) { s.newID = f }
}

// WithClock replaces the time source.
func WithClock(f func() time.Time) Option {
	return func(s *Store) { s.now = f }
}

func New(db *sql.DB, idx cache.Cache[[]listing.Listing], stats cache.Cache[[]listing.Counts], log *zap.Logger, opts ...Option) *Store {
	s := &Store{
		db:    db,
		idx:   idx,
		stats: stats,
		log:   log,
		newID: uuid.NewString,
		now:   time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Ping verifies database connectivity (health endpoint).
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Filter selects listings by any combination of dimensions. The zero value
// selects everything.
type Filter struct {
	Partition listing.Partition
	Category  string
	Term      string // free-text match on title
}

// key builds the cache key for this filter per the ordered-dimension
// convention: idx:<partition>:<category>:<term>.
func (f Filter) key() string {
	return cache.Key(Namespace, string(f.Partition), f.Category, f.Term)
}

// allKey is the all-items key (every dimension empty).
func allKey() string {
	return cache.Key(Namespace, "", "", "")
}

// searchPattern matches every key with a non-empty free-text segment.
// Term-bearing keys cannot be enumerated from a record's dimensions, so
// writes invalidate them wholesale by pattern.
func searchPattern() string {
	return Namespace + ":*:*:?*"
}

// statsPattern matches every analytics key.
func statsPattern() string {
	return StatsNamespace + ":*"
}
