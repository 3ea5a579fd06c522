// Package provider defines the byte-store abstraction the cache sits on.
//
// Implementations MUST be byte-for-byte transparent: Get must return exactly
// the same []byte that was previously passed to Set for a key (no
// prepended/appended metadata, no re-encoding, no mutation). If a store
// performs internal transforms (e.g. compression), they MUST be fully
// reversed so the bytes returned by Get are identical to the bytes given to
// Set.
package provider

import (
	"context"
	"errors"
	"time"
)

// ErrKeysUnsupported is returned by Keys on stores that cannot enumerate
// their keyspace. Pattern invalidation is unavailable on such stores.
var ErrKeysUnsupported = errors.New("provider: key enumeration unsupported")

// NoExpiry is returned by TTL for entries stored without an expiry.
const NoExpiry = time.Duration(-1)

// Provider is a minimal byte store with TTLs. Implementations must be safe
// for concurrent use.
type Provider interface {
	// Get returns (value, true, nil) on hit; (nil, false, nil) on miss.
	// If an IO/remote error happens, return (nil, false, err).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value with the given TTL. May ignore cost if unsupported.
	// Returns ok=false when the store rejected the write under pressure.
	Set(ctx context.Context, key string, value []byte, cost int64, ttl time.Duration) (ok bool, err error)

	// Del removes a key (best-effort, idempotent). removed reports whether
	// an entry actually existed, so invalidation counts reflect real
	// deletions.
	Del(ctx context.Context, key string) (removed bool, err error)

	// Keys lists keys matched by the glob pattern ('*', '?'); "" and "*"
	// list everything. Stores that cannot enumerate return
	// ErrKeysUnsupported.
	Keys(ctx context.Context, pattern string) ([]string, error)

	// TTL reports the remaining lifetime of key. ok=false means no such
	// entry; NoExpiry means the entry never expires.
	TTL(ctx context.Context, key string) (ttl time.Duration, ok bool, err error)

	// Close releases resources.
	Close(ctx context.Context) error
}
