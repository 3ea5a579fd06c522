// Package ristretto adapts dgraph-io/ristretto. Ristretto supports per-entry
// TTLs and admission-based eviction but cannot enumerate its keyspace, so
// Keys returns ErrKeysUnsupported and pattern invalidation is unavailable.
// The link checker uses it to memoize recent URL results, where only exact
// keys are ever touched.
package ristretto

import (
	"context"
	"errors"
	"time"

	rc "github.com/dgraph-io/ristretto"

	pr "github.com/bryan-besnyi/siteindex/cache/provider"
)

type Provider struct {
	c *rc.Cache
}

var _ pr.Provider = (*Provider)(nil)

type Config struct {
	NumCounters int64
	MaxCost     int64
	BufferItems int64
	Metrics     bool
}

func New(cfg Config) (*Provider, error) {
	if cfg.NumCounters <= 0 || cfg.MaxCost <= 0 || cfg.BufferItems <= 0 {
		return nil, errors.New("ristretto: invalid config")
	}
	c, err := rc.NewCache(&rc.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
		Metrics:     cfg.Metrics,
	})
	if err != nil {
		return nil, err
	}
	return &Provider{c: c}, nil
}

func (p *Provider) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := p.c.Get(key)
	if !ok {
		return nil, false, nil
	}
	b, _ := v.([]byte)
	if b == nil {
		// self-heal: drop unexpected entry shape
		p.c.Del(key)
		return nil, false, nil
	}
	return b, true, nil
}

func (p *Provider) Set(_ context.Context, key string, value []byte, cost int64, ttl time.Duration) (bool, error) {
	return p.c.SetWithTTL(key, value, cost, ttl), nil
}

// Del is best-effort: ristretto's delete does not report prior existence,
// so a Get probes first. The probe races concurrent writers, which is
// acceptable for memo entries.
func (p *Provider) Del(_ context.Context, key string) (bool, error) {
	_, existed := p.c.Get(key)
	p.c.Del(key)
	return existed, nil
}

func (p *Provider) Keys(context.Context, string) ([]string, error) {
	return nil, pr.ErrKeysUnsupported
}

func (p *Provider) TTL(_ context.Context, key string) (time.Duration, bool, error) {
	d, ok := p.c.GetTTL(key)
	if !ok {
		return 0, false, nil
	}
	if d == 0 {
		return pr.NoExpiry, true, nil
	}
	return d, true, nil
}

func (p *Provider) Close(_ context.Context) error {
	p.c.Wait()
	p.c.Close()
	return nil
}

// Metrics exposes ristretto's own counters for dashboards. Not part of the
// provider contract.
func (p *Provider) Metrics() *rc.Metrics { return p.c.Metrics }
