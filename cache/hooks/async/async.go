// Package async decouples a slow Hooks sink from the cache's hot paths with
// a bounded queue and worker pool. Events are dropped, not blocked on, when
// the queue is full.
//
// usage:
//
//	stats := &cache.Stats{}
//	hooks := async.New(stats, 1, 1000) // 1 worker; queue 1000 events
//	defer hooks.Close()
//
//	idx, _ := cache.New[[]listing.Listing](cache.Options[[]listing.Listing]{
//	    Provider: provider,
//	    Codec:    codec.JSON[[]listing.Listing]{},
//	    Hooks:    hooks, // or stats directly if it is cheap enough
//	})
package async

import (
	"sync"

	"github.com/bryan-besnyi/siteindex/cache"
)

type Hooks struct {
	inner cache.Hooks
	q     chan func()
	wg    sync.WaitGroup
	once  sync.Once
}

var _ cache.Hooks = (*Hooks)(nil)

func New(inner cache.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

func (h *Hooks) Close() {
	h.once.Do(func() {
		close(h.q)
		h.wg.Wait()
	})
}

func (h *Hooks) try(f func()) {
	select {
	case h.q <- f:
	default: // drop
	}
}

func (h *Hooks) Hit(k string)  { h.try(func() { h.inner.Hit(k) }) }
func (h *Hooks) Miss(k string) { h.try(func() { h.inner.Miss(k) }) }
func (h *Hooks) PopulateError(k string, err error) {
	h.try(func() { h.inner.PopulateError(k, err) })
}
func (h *Hooks) SelfHeal(k, reason string) { h.try(func() { h.inner.SelfHeal(k, reason) }) }
func (h *Hooks) Invalidated(n int)         { h.try(func() { h.inner.Invalidated(n) }) }
func (h *Hooks) StoreError(op string, err error) {
	h.try(func() { h.inner.StoreError(op, err) })
}
