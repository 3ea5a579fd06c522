// Package linkcheck walks the index's URLs in bounded batches and classifies
// each outcome. Recent results are memoized through the cache layer (backed
// by ristretto) so back-to-back runs skip URLs that were just checked.
package linkcheck

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/bryan-besnyi/siteindex/cache"
	"github.com/bryan-besnyi/siteindex/internal/listing"
)

// memoNamespace prefixes memo keys: link:<url-segment>.
const memoNamespace = "link"

// Config tunes a Checker. Zero fields fall back to defaults.
type Config struct {
	BatchSize   int           // URLs per batch; default 20
	Concurrency int           // in-flight requests within a batch; default 5
	Timeout     time.Duration // per-request deadline; default 10s
	BatchEvery  time.Duration // minimum spacing between batch starts; default 1s
	MemoTTL     time.Duration // how long a result is trusted; default 15m
}

func (c *Config) fill() {
	if c.BatchSize <= 0 {
		c.BatchSize = 20
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 5
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	if c.BatchEvery <= 0 {
		c.BatchEvery = time.Second
	}
	if c.MemoTTL <= 0 {
		c.MemoTTL = 15 * time.Minute
	}
}

// Checker performs one classification pass over a set of listings.
type Checker struct {
	cfg     Config
	client  *http.Client
	memo    cache.Cache[listing.LinkResult]
	limiter *rate.Limiter
	log     *zap.Logger

	now   func() time.Time
	newID func() string
}

// New builds a Checker. memo may be nil to disable memoization (every run
// hits every URL).
func New(cfg Config, memo cache.Cache[listing.LinkResult], log *zap.Logger) *Checker {
	cfg.fill()
	return &Checker{
		cfg: cfg,
		client: &http.Client{
			// don't follow redirects: a 3xx is itself a classification
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		memo:    memo,
		limiter: rate.NewLimiter(rate.Every(cfg.BatchEvery), 1),
		log:     log,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// Run checks every listing URL, batch by batch. Batches run sequentially
// with paced starts; requests within a batch fan out up to Concurrency.
// Only context cancellation aborts a run; individual failures become
// classifications.
func (c *Checker) Run(ctx context.Context, items []listing.Listing) (listing.LinkRun, error) {
	run := listing.LinkRun{
		ID:        c.newID(),
		StartedAt: c.now().UTC(),
		Results:   make([]listing.LinkResult, len(items)),
	}

	for start := 0; start < len(items); start += c.cfg.BatchSize {
		if err := c.limiter.Wait(ctx); err != nil {
			return listing.LinkRun{}, fmt.Errorf("linkcheck: run aborted: %w", err)
		}
		end := min(start+c.cfg.BatchSize, len(items))

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(c.cfg.Concurrency)
		for i := start; i < end; i++ {
			g.Go(func() error {
				run.Results[i] = c.check(gctx, items[i])
				return gctx.Err()
			})
		}
		if err := g.Wait(); err != nil {
			return listing.LinkRun{}, fmt.Errorf("linkcheck: run aborted: %w", err)
		}
		c.log.Debug("link batch done", zap.Int("from", start), zap.Int("to", end))
	}

	run.FinishedAt = c.now().UTC()
	run.Checked = len(run.Results)
	for _, r := range run.Results {
		if r.Bad() {
			run.Broken++
		}
	}
	return run, nil
}

// check resolves one listing, through the memo when configured.
func (c *Checker) check(ctx context.Context, l listing.Listing) listing.LinkResult {
	if c.memo == nil {
		return c.probe(ctx, l)
	}
	key := cache.Key(memoNamespace, l.URL)
	res, err := c.memo.GetOrPopulate(ctx, key, func(ctx context.Context) (listing.LinkResult, error) {
		return c.probe(ctx, l), nil
	}, c.cfg.MemoTTL)
	if err != nil {
		// populate never fails; this is only reachable on cancellation
		return c.probe(ctx, l)
	}
	res.ListingID = l.ID // memo is per-URL; restore the caller's record
	return res
}

// probe issues a HEAD (GET fallback for servers that reject HEAD) and
// classifies the outcome. Transport failures are classifications, not
// errors.
func (c *Checker) probe(ctx context.Context, l listing.Listing) listing.LinkResult {
	res := listing.LinkResult{
		ListingID: l.ID,
		URL:       l.URL,
		CheckedAt: c.now().UTC(),
	}

	status, err := c.request(ctx, http.MethodHead, l.URL)
	if err == nil && (status == http.StatusMethodNotAllowed || status == http.StatusNotImplemented) {
		status, err = c.request(ctx, http.MethodGet, l.URL)
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			res.Status = listing.LinkTimeout
		} else {
			res.Status = listing.LinkError
		}
		c.log.Debug("link probe failed", zap.String("url", l.URL), zap.Error(err))
		return res
	}

	res.HTTPStatus = status
	switch {
	case status >= 200 && status < 300:
		res.Status = listing.LinkOK
	case status >= 300 && status < 400:
		res.Status = listing.LinkRedirect
	default:
		res.Status = listing.LinkBroken
	}
	return res
}

func (c *Checker) request(ctx context.Context, method, url string) (int, error) {
	rctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(rctx, method, url, nil)
	if err != nil {
		return 0, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return 0, err
	}
	resp.Body.Close()
	return resp.StatusCode, nil
}
