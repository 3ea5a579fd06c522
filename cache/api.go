package cache

import (
	"context"
	"time"

	c "github.com/bryan-besnyi/siteindex/cache/codec"
	pr "github.com/bryan-besnyi/siteindex/cache/provider"
)

// PopulateFunc performs the expensive read (the database query) on a miss.
type PopulateFunc[V any] func(ctx context.Context) (V, error)

// SetCostFunc lets cost-aware providers (ristretto) weigh entries.
type SetCostFunc func(key string, raw []byte) int64

// Cache is the read-through cache API. V is the caller's value type;
// serialization is handled by a pluggable Codec[V].
type Cache[V any] interface {
	// GetOrPopulate returns the cached value for key, or runs populate,
	// caches its result with ttl (0 => DefaultTTL) and returns it. A store
	// failure degrades to a direct populate call; only a populate error is
	// ever returned.
	GetOrPopulate(ctx context.Context, key string, populate PopulateFunc[V], ttl time.Duration) (V, error)

	// Invalidate removes the entries named by sel and returns how many were
	// removed. Store failures are logged and reported as zero removals; an
	// empty or ambiguous selector is a caller error.
	Invalidate(ctx context.Context, sel Selector) (int, error)

	// Inspect lists live keys matching the glob pattern with their
	// remaining TTLs. Backs the admin cache inspector.
	Inspect(ctx context.Context, pattern string) ([]KeyInfo, error)

	Enabled() bool
	Close(ctx context.Context) error
}

// Selector names the entries an Invalidate call removes.
// Exactly one field must be set.
type Selector struct {
	Key     string   // a single key
	Keys    []string // an explicit list
	Pattern string   // a glob: '*' any run (incl. empty), '?' one character
}

// KeyInfo is one row of the cache inspector.
type KeyInfo struct {
	Key string        `json:"key"`
	TTL time.Duration `json:"ttl"` // provider.NoExpiry when no expiry is set
}

// Options tune the cache. Only Provider and Codec are required; others have
// sensible defaults.
type Options[V any] struct {
	// Required
	Provider pr.Provider
	Codec    c.Codec[V]

	Logger     Logger        // nil => NopLogger
	Hooks      Hooks         // nil => NopHooks
	DefaultTTL time.Duration // 0 => 1h

	// CoalescePopulate collapses concurrent misses for the same key into a
	// single populate call (in-process only). Off by default: duplicate
	// reads of idempotent data are tolerated.
	CoalescePopulate bool

	// Disabled bypasses the store entirely; every read populates directly.
	Disabled bool

	ComputeSetCost SetCostFunc // default: constant 1
}

func New[V any](opts Options[V]) (Cache[V], error) {
	return newWrapper[V](opts)
}
