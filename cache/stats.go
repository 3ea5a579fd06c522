package cache

import "sync/atomic"

// Stats is a Hooks implementation that aggregates atomic counters. It feeds
// the admin performance dashboard. Safe for concurrent use; the zero value
// is ready.
type Stats struct {
	hits           atomic.Uint64
	misses         atomic.Uint64
	populateErrors atomic.Uint64
	selfHeals      atomic.Uint64
	invalidated    atomic.Uint64
	storeErrors    atomic.Uint64
}

var _ Hooks = (*Stats)(nil)

func (s *Stats) Hit(string)                  { s.hits.Add(1) }
func (s *Stats) Miss(string)                 { s.misses.Add(1) }
func (s *Stats) PopulateError(string, error) { s.populateErrors.Add(1) }
func (s *Stats) SelfHeal(string, string)     { s.selfHeals.Add(1) }
func (s *Stats) Invalidated(n int) {
	if n > 0 {
		s.invalidated.Add(uint64(n))
	}
}
func (s *Stats) StoreError(string, error) { s.storeErrors.Add(1) }

// StatsSnapshot is a point-in-time copy of the counters.
type StatsSnapshot struct {
	Hits           uint64  `json:"hits"`
	Misses         uint64  `json:"misses"`
	PopulateErrors uint64  `json:"populateErrors"`
	SelfHeals      uint64  `json:"selfHeals"`
	Invalidated    uint64  `json:"invalidated"`
	StoreErrors    uint64  `json:"storeErrors"`
	HitRate        float64 `json:"hitRate"`
}

func (s *Stats) Snapshot() StatsSnapshot {
	snap := StatsSnapshot{
		Hits:           s.hits.Load(),
		Misses:         s.misses.Load(),
		PopulateErrors: s.populateErrors.Load(),
		SelfHeals:      s.selfHeals.Load(),
		Invalidated:    s.invalidated.Load(),
		StoreErrors:    s.storeErrors.Load(),
	}
	if total := snap.Hits + snap.Misses; total > 0 {
		snap.HitRate = float64(snap.Hits) / float64(total)
	}
	return snap
}
