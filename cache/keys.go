package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Separator joins key segments. Keys are built deterministically from the
// ordered tuple of filter dimensions applied to a query, with absent
// dimensions kept as empty segments: filtering by nothing yields the
// all-items key "ns:::", filtering only by partition yields "ns:CAN::".
// Keeping every position present is what makes pattern invalidation
// ("ns:CAN:*") work without an index of existing keys.
const Separator = ":"

// maxRawSegment is the longest free-text segment stored verbatim. Longer
// segments (and any containing separator or wildcard characters) are
// replaced by a fixed-width hash so the convention stays pattern-friendly.
const maxRawSegment = 48

// Key builds a cache key from a namespace and an ordered tuple of filter
// dimensions. Empty dimensions stay as empty segments.
func Key(namespace string, dims ...string) string {
	parts := make([]string, 0, len(dims)+1)
	parts = append(parts, namespace)
	for _, d := range dims {
		parts = append(parts, Segment(d))
	}
	return strings.Join(parts, Separator)
}

// Segment normalizes one key segment. Values that would break the key
// grammar (separator, wildcards) or exceed maxRawSegment are hashed to
// 16 hex chars.
func Segment(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= maxRawSegment && !strings.ContainsAny(s, ":*?") {
		return s
	}
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:8])
}
