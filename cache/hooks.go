package cache

// Hooks are lightweight callbacks for high-signal cache events.
// Implementations MUST be cheap and non-blocking; the cache calls them on
// hot paths. Wrap a slow sink with hooks/async.
type Hooks interface {
	// Hit: key served from the store.
	Hit(key string)

	// Miss: key absent (or healed) and the populate path ran.
	Miss(key string)

	// PopulateError: the underlying query failed; the error was returned to
	// the caller.
	PopulateError(key string, err error)

	// SelfHeal: an entry was deleted on read.
	// reason is one of "corrupt", "codec_mismatch", "value_decode".
	SelfHeal(key, reason string)

	// Invalidated: an Invalidate call removed count entries.
	Invalidated(count int)

	// StoreError: the provider failed; op is "get", "set", "del" or "keys".
	// The cache degraded gracefully instead of surfacing the error.
	StoreError(op string, err error)
}

type NopHooks struct{}

var _ Hooks = NopHooks{}

func (NopHooks) Hit(string)                 {}
func (NopHooks) Miss(string)                {}
func (NopHooks) PopulateError(string, error) {}
func (NopHooks) SelfHeal(string, string)    {}
func (NopHooks) Invalidated(int)            {}
func (NopHooks) StoreError(string, error)   {}
