package cache

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	c "github.com/bryan-besnyi/siteindex/cache/codec"
	"github.com/bryan-besnyi/siteindex/cache/internal/match"
	"github.com/bryan-besnyi/siteindex/cache/internal/wire"
	pr "github.com/bryan-besnyi/siteindex/cache/provider"
)

const (
	defaultTTL = time.Hour

	// deleteFanout bounds concurrent per-key deletes during pattern
	// invalidation. The deletes are independent, so they are issued as a
	// batch rather than one round trip at a time.
	deleteFanout = 16
)

type wrapper[V any] struct {
	provider pr.Provider
	codec    c.Codec[V]
	log      Logger
	hooks    Hooks

	enabled    bool
	defaultTTL time.Duration
	cost       SetCostFunc

	sf *singleflight.Group // non-nil only with CoalescePopulate
}

func newWrapper[V any](opts Options[V]) (*wrapper[V], error) {
	if opts.Provider == nil {
		return nil, fmt.Errorf("cache: provider is required")
	}
	if opts.Codec == nil {
		return nil, fmt.Errorf("cache: codec is required")
	}

	w := &wrapper[V]{
		provider: opts.Provider,
		codec:    opts.Codec,
		enabled:  !opts.Disabled,
	}

	// defaults
	w.log = coalesce[Logger](opts.Logger, NopLogger{})
	w.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})
	w.defaultTTL = coalesce[time.Duration](opts.DefaultTTL, defaultTTL)

	if opts.ComputeSetCost != nil {
		w.cost = opts.ComputeSetCost
	} else {
		w.cost = func(_ string, _ []byte) int64 { return 1 }
	}

	if opts.CoalescePopulate {
		w.sf = new(singleflight.Group)
	}
	return w, nil
}

func (w *wrapper[V]) Enabled() bool { return w.enabled }

func (w *wrapper[V]) Close(ctx context.Context) error {
	if w.provider != nil {
		return w.provider.Close(ctx)
	}
	return nil
}

func (w *wrapper[V]) GetOrPopulate(ctx context.Context, key string, populate PopulateFunc[V], ttl time.Duration) (V, error) {
	var zero V
	if populate == nil {
		return zero, ErrNilPopulate
	}
	if !w.enabled {
		return populate(ctx)
	}
	if ttl <= 0 {
		ttl = w.defaultTTL
	}
	if w.sf == nil {
		return w.lookup(ctx, key, populate, ttl)
	}
	v, err, _ := w.sf.Do(key, func() (any, error) {
		return w.lookup(ctx, key, populate, ttl)
	})
	if err != nil {
		return zero, err
	}
	return v.(V), nil
}

// lookup is the read-through path: store read, envelope + codec validation
// with self-healing, then populate and best-effort write-back.
func (w *wrapper[V]) lookup(ctx context.Context, key string, populate PopulateFunc[V], ttl time.Duration) (V, error) {
	var zero V

	raw, ok, err := w.provider.Get(ctx, key)
	if err != nil {
		// The store is a performance layer, never a correctness dependency:
		// serve the read directly and skip caching while the store is down.
		w.hooks.StoreError("get", err)
		w.log.Warn("cache store get failed; populating directly", Fields{"key": key, "err": err})
		return populate(ctx)
	}

	if ok {
		if v, hit := w.decode(ctx, key, raw); hit {
			w.hooks.Hit(key)
			return v, nil
		}
	}

	w.hooks.Miss(key)
	v, err := populate(ctx)
	if err != nil {
		// Data-layer errors pass through unchanged; the cache adds no retry.
		w.hooks.PopulateError(key, err)
		return zero, err
	}
	w.writeBack(ctx, key, v, ttl)
	return v, nil
}

// decode unwraps the envelope and payload. Corrupt entries, foreign shapes
// and codec mismatches are deleted (self-heal) and reported as a miss.
func (w *wrapper[V]) decode(ctx context.Context, key string, raw []byte) (V, bool) {
	var zero V
	codecID, payload, err := wire.Decode(raw)
	if err != nil {
		w.heal(ctx, key, "corrupt")
		return zero, false
	}
	if codecID != w.codec.WireID() {
		w.heal(ctx, key, "codec_mismatch")
		return zero, false
	}
	v, err := w.codec.Decode(payload)
	if err != nil {
		w.heal(ctx, key, "value_decode")
		return zero, false
	}
	return v, true
}

func (w *wrapper[V]) heal(ctx context.Context, key, reason string) {
	if _, err := w.provider.Del(ctx, key); err != nil {
		w.hooks.StoreError("del", err)
	}
	w.hooks.SelfHeal(key, reason)
	w.log.Debug("healed cache entry", Fields{"key": key, "reason": reason})
}

// writeBack stores v under key. Failures are logged, never surfaced: the
// caller already has the value.
func (w *wrapper[V]) writeBack(ctx context.Context, key string, v V, ttl time.Duration) {
	payload, err := w.codec.Encode(v)
	if err != nil {
		w.log.Error("cache encode failed; entry not cached", Fields{"key": key, "err": err})
		return
	}
	env := wire.Encode(w.codec.WireID(), payload)
	ok, err := w.provider.Set(ctx, key, env, w.cost(key, env), ttl)
	if err != nil {
		w.hooks.StoreError("set", err)
		w.log.Warn("cache store set failed", Fields{"key": key, "err": err})
		return
	}
	if !ok {
		w.log.Debug("cache set rejected by provider (pressure)", Fields{"key": key})
	}
}

func (w *wrapper[V]) Invalidate(ctx context.Context, sel Selector) (int, error) {
	keys, pattern, err := sel.resolve()
	if err != nil {
		return 0, err
	}
	if !w.enabled {
		return 0, nil
	}

	var n int
	if pattern != "" {
		n = w.invalidatePattern(ctx, pattern)
	} else {
		n = w.deleteKeys(ctx, keys)
	}

	w.hooks.Invalidated(n)
	w.log.Info("cache invalidated", Fields{"count": n, "selector": sel.describe()})
	return n, nil
}

// resolve validates the selector and splits it into its two shapes.
func (s Selector) resolve() (keys []string, pattern string, err error) {
	set := 0
	if s.Key != "" {
		set++
		keys = []string{s.Key}
	}
	if len(s.Keys) > 0 {
		set++
		keys = s.Keys
	}
	if s.Pattern != "" {
		set++
		pattern = s.Pattern
	}
	switch set {
	case 0:
		return nil, "", ErrEmptySelector
	case 1:
		return keys, pattern, nil
	default:
		return nil, "", ErrAmbiguousSelector
	}
}

func (s Selector) describe() string {
	switch {
	case s.Pattern != "":
		return "pattern=" + s.Pattern
	case len(s.Keys) > 0:
		return fmt.Sprintf("keys=%d", len(s.Keys))
	default:
		return "key=" + s.Key
	}
}

// deleteKeys removes each key independently; one failure does not abort the
// rest. Returns the number of successful deletes.
func (w *wrapper[V]) deleteKeys(ctx context.Context, keys []string) int {
	n := 0
	for _, k := range keys {
		removed, err := w.provider.Del(ctx, k)
		if err != nil {
			w.hooks.StoreError("del", err)
			w.log.Warn("cache delete failed", Fields{"key": k, "err": err})
			continue
		}
		if removed {
			n++
		}
	}
	return n
}

// invalidatePattern lists the store's keys, filters them against the glob
// converted to an anchored regexp, and batch-deletes the matches
// concurrently. Zero matches is not an error; an unreachable store degrades
// to a zero count.
func (w *wrapper[V]) invalidatePattern(ctx context.Context, pattern string) int {
	all, err := w.provider.Keys(ctx, "*")
	if err != nil {
		w.hooks.StoreError("keys", err)
		w.log.Warn("cache key listing failed; nothing invalidated", Fields{"pattern": pattern, "err": err})
		return 0
	}
	matched := match.Filter(all, pattern)
	if len(matched) == 0 {
		return 0
	}

	var n atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(deleteFanout)
	for _, k := range matched {
		g.Go(func() error {
			removed, err := w.provider.Del(gctx, k)
			if err != nil {
				w.hooks.StoreError("del", err)
				w.log.Warn("cache delete failed", Fields{"key": k, "err": err})
				return nil // keep deleting the rest
			}
			if removed {
				n.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait() // workers never return errors
	return int(n.Load())
}

// Inspect backs the admin cache inspector: live keys matching pattern with
// remaining TTLs.
func (w *wrapper[V]) Inspect(ctx context.Context, pattern string) ([]KeyInfo, error) {
	if !w.enabled {
		return nil, nil
	}
	all, err := w.provider.Keys(ctx, "*")
	if err != nil {
		return nil, fmt.Errorf("cache: list keys: %w", err)
	}
	matched := match.Filter(all, pattern)
	out := make([]KeyInfo, 0, len(matched))
	for _, k := range matched {
		ttl, ok, err := w.provider.TTL(ctx, k)
		if err != nil || !ok {
			continue // expired or gone between listing and lookup
		}
		out = append(out, KeyInfo{Key: k, TTL: ttl})
	}
	return out, nil
}
