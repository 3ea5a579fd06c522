package httpapi

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/bryan-besnyi/siteindex/cache"
	"github.com/bryan-besnyi/siteindex/internal/store"
)

// cacheKeys is the cache inspector: live keys and remaining TTLs, optionally
// narrowed by a glob pattern and capped by ?limit=.
func (s *Server) cacheKeys(c echo.Context) error {
	pattern := c.QueryParam("pattern")
	limit := parseLimit(c, "limit", 200)

	infos, err := s.idx.Inspect(c.Request().Context(), pattern)
	if err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "cache store unreachable")
	}
	if len(infos) > limit {
		infos = infos[:limit]
	}
	return c.JSON(http.StatusOK, infos)
}

func (s *Server) cacheStats(c echo.Context) error {
	return c.JSON(http.StatusOK, s.stats.Snapshot())
}

func (s *Server) cacheInvalidate(c echo.Context) error {
	var req invalidateRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	sel := cache.Selector{Key: req.Key, Keys: req.Keys, Pattern: req.Pattern}

	n, err := s.idx.Invalidate(c.Request().Context(), sel)
	if errors.Is(err, cache.ErrEmptySelector) || errors.Is(err, cache.ErrAmbiguousSelector) {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, invalidateResponse{InvalidatedCount: n})
}

// runLinkCheck performs a full pass synchronously and persists the run.
// Batches are paced, so large indexes take a while; the admin dashboard
// calls this from a background job slot.
func (s *Server) runLinkCheck(c echo.Context) error {
	ctx := c.Request().Context()

	ls, err := s.store.List(ctx, store.Filter{})
	if err != nil {
		return err
	}
	run, err := s.checker.Run(ctx, ls)
	if err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	}
	if err := s.store.SaveLinkRun(ctx, run); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, run)
}

func (s *Server) latestLinkCheck(c echo.Context) error {
	run, err := s.store.LatestLinkRun(c.Request().Context())
	if errors.Is(err, store.ErrNoLinkRun) {
		return echo.NewHTTPError(http.StatusNotFound, "no link-check run recorded")
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, run)
}
