// Package cache implements the read-through cache that fronts the site
// index's database reads: get-or-populate with a fixed TTL, and explicit
// invalidation by key, key list, or glob pattern.
//
// Components:
//   - provider.Provider: byte store with TTL (Redis in production; an
//     in-process store for development and tests).
//   - codec.Codec[V]: (de)serializes V <-> []byte. Every entry is framed in
//     a versioned envelope carrying the codec's wire id; anything else found
//     under a key is a hard miss, never a guess.
//   - Hooks/Logger: cheap observability callbacks and a pluggable logger.
//
// The cache is a strict performance layer: a store failure degrades a read
// to a direct database query and is never the proximate cause of a request
// failure. There is no mutual exclusion between concurrent misses on the
// same key by default (duplicate populate work is tolerated; the later write
// wins). Options.CoalescePopulate collapses concurrent misses per key when
// that duplication is worth avoiding.
package cache
