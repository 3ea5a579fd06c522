// Package memory is an in-process provider with per-entry expiry and full
// key enumeration. It backs local development and deterministic tests; it is
// the only bundled store that supports both exact per-entry TTLs and Keys().
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/bryan-besnyi/siteindex/cache/internal/match"
	pr "github.com/bryan-besnyi/siteindex/cache/provider"
)

type entry struct {
	value []byte
	exp   time.Time // zero => no expiry
}

// Store is a TTL-aware map. Expired entries are dropped lazily on access and
// pruned by an optional background sweep.
type Store struct {
	mu sync.RWMutex
	m  map[string]entry

	ticker *time.Ticker
	stopCh chan struct{}
	wg     sync.WaitGroup
	once   sync.Once

	now func() time.Time // test seam
}

var _ pr.Provider = (*Store)(nil)

type Option func(*Store)

// WithClock overrides the time source. Tests use this to step through TTL
// expiry without sleeping.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates a Store. sweepInterval > 0 starts a background goroutine that
// prunes expired entries; 0 disables sweeping (lazy expiry only).
func New(sweepInterval time.Duration, opts ...Option) *Store {
	s := &Store{
		m:   make(map[string]entry),
		now: time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	if sweepInterval > 0 {
		s.ticker = time.NewTicker(sweepInterval)
		s.stopCh = make(chan struct{})
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			for {
				select {
				case <-s.ticker.C:
					s.sweep()
				case <-s.stopCh:
					return
				}
			}
		}()
	}
	return s
}

func (s *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	e, ok := s.m[key]
	s.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if !e.exp.IsZero() && s.now().After(e.exp) {
		s.mu.Lock()
		delete(s.m, key)
		s.mu.Unlock()
		return nil, false, nil
	}
	return e.value, true, nil
}

func (s *Store) Set(_ context.Context, key string, value []byte, _ int64, ttl time.Duration) (bool, error) {
	var exp time.Time
	if ttl > 0 {
		exp = s.now().Add(ttl)
	}
	// copy so the caller can reuse its buffer
	v := make([]byte, len(value))
	copy(v, value)

	s.mu.Lock()
	s.m[key] = entry{value: v, exp: exp}
	s.mu.Unlock()
	return true, nil
}

func (s *Store) Del(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	e, ok := s.m[key]
	delete(s.m, key)
	s.mu.Unlock()
	if !ok {
		return false, nil
	}
	// an entry that already lapsed counts as absent
	if !e.exp.IsZero() && s.now().After(e.exp) {
		return false, nil
	}
	return true, nil
}

func (s *Store) Keys(_ context.Context, pattern string) ([]string, error) {
	now := s.now()
	s.mu.RLock()
	all := make([]string, 0, len(s.m))
	for k, e := range s.m {
		if !e.exp.IsZero() && now.After(e.exp) {
			continue
		}
		all = append(all, k)
	}
	s.mu.RUnlock()
	return match.Filter(all, pattern), nil
}

func (s *Store) TTL(_ context.Context, key string) (time.Duration, bool, error) {
	s.mu.RLock()
	e, ok := s.m[key]
	s.mu.RUnlock()
	if !ok {
		return 0, false, nil
	}
	if e.exp.IsZero() {
		return pr.NoExpiry, true, nil
	}
	d := e.exp.Sub(s.now())
	if d <= 0 {
		return 0, false, nil
	}
	return d, true, nil
}

func (s *Store) sweep() {
	now := s.now()
	s.mu.Lock()
	for k, e := range s.m {
		if !e.exp.IsZero() && now.After(e.exp) {
			delete(s.m, k)
		}
	}
	s.mu.Unlock()
}

func (s *Store) Close(context.Context) error {
	s.once.Do(func() {
		if s.stopCh != nil {
			close(s.stopCh)
			s.ticker.Stop() // stop ticker before waiting
			s.wg.Wait()
		}
	})
	return nil
}

// Len reports live (unexpired) entries. Test helper.
func (s *Store) Len() int {
	now := s.now()
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, e := range s.m {
		if e.exp.IsZero() || now.Before(e.exp) {
			n++
		}
	}
	return n
}
