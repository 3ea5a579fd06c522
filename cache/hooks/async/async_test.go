package async

import (
	"errors"
	"sync"
	"testing"

	"github.com/bryan-besnyi/siteindex/cache"
)

// recorder counts delivered events under a lock so tests can assert after
// Close has drained the queue.
type recorder struct {
	mu          sync.Mutex
	hits        int
	misses      int
	popErrs     int
	selfHeals   int
	invalidated int
	storeErrs   int
}

var _ cache.Hooks = (*recorder)(nil)

func (r *recorder) Hit(string) { r.mu.Lock(); r.hits++; r.mu.Unlock() }
func (r *recorder) Miss(string) {
	r.mu.Lock()
	r.misses++
	r.mu.Unlock()
}
func (r *recorder) PopulateError(string, error) { r.mu.Lock(); r.popErrs++; r.mu.Unlock() }
func (r *recorder) SelfHeal(string, string)     { r.mu.Lock(); r.selfHeals++; r.mu.Unlock() }
func (r *recorder) Invalidated(int)             { r.mu.Lock(); r.invalidated++; r.mu.Unlock() }
func (r *recorder) StoreError(string, error)    { r.mu.Lock(); r.storeErrs++; r.mu.Unlock() }

func TestDeliversAllEventKinds(t *testing.T) {
	rec := &recorder{}
	h := New(rec, 2, 64)

	h.Hit("k")
	h.Miss("k")
	h.PopulateError("k", errors.New("boom"))
	h.SelfHeal("k", "corrupt")
	h.Invalidated(3)
	h.StoreError("get", errors.New("down"))

	h.Close() // drains the queue

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.hits != 1 || rec.misses != 1 || rec.popErrs != 1 ||
		rec.selfHeals != 1 || rec.invalidated != 1 || rec.storeErrs != 1 {
		t.Fatalf("delivery counts: %+v", rec)
	}
}

func TestDropsWhenQueueFull(t *testing.T) {
	rec := &recorder{}
	block := make(chan struct{})

	h := New(&gate{inner: rec, release: block}, 1, 1)

	// first event occupies the worker, second fills the queue,
	// the rest must be dropped without blocking.
	for i := 0; i < 50; i++ {
		h.Hit("k")
	}
	close(block)
	h.Close()

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.hits < 1 || rec.hits > 2 {
		t.Fatalf("hits = %d, want 1 or 2 (rest dropped)", rec.hits)
	}
}

func TestCloseIdempotent(t *testing.T) {
	h := New(&recorder{}, 1, 8)
	h.Close()
	h.Close()
}

// gate forwards to inner after release closes; used to hold the worker busy.
type gate struct {
	inner   cache.Hooks
	release chan struct{}
}

func (g *gate) Hit(k string) { <-g.release; g.inner.Hit(k) }
func (g *gate) Miss(k string) {
	<-g.release
	g.inner.Miss(k)
}
func (g *gate) PopulateError(k string, err error) { <-g.release; g.inner.PopulateError(k, err) }
func (g *gate) SelfHeal(k, reason string)         { <-g.release; g.inner.SelfHeal(k, reason) }
func (g *gate) Invalidated(n int)                 { <-g.release; g.inner.Invalidated(n) }
func (g *gate) StoreError(op string, err error)   { <-g.release; g.inner.StoreError(op, err) }
