// Package httpapi exposes the site index over REST plus the admin tooling
// surface: cache inspector, cache stats, invalidation, link checker, CSV
// export and analytics.
package httpapi

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/bryan-besnyi/siteindex/cache"
	"github.com/bryan-besnyi/siteindex/config"
	"github.com/bryan-besnyi/siteindex/internal/linkcheck"
	"github.com/bryan-besnyi/siteindex/internal/listing"
	"github.com/bryan-besnyi/siteindex/internal/store"
)

// Server wires the echo engine to the store, cache and link checker.
type Server struct {
	e       *echo.Echo
	cfg     *config.Config
	store   *store.Store
	idx     cache.Cache[[]listing.Listing]
	stats   *cache.Stats
	checker *linkcheck.Checker
	log     *zap.Logger
}

func New(cfg *config.Config, st *store.Store, idx cache.Cache[[]listing.Listing], stats *cache.Stats, checker *linkcheck.Checker, log *zap.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = newRequestValidator()

	s := &Server{
		e:       e,
		cfg:     cfg,
		store:   st,
		idx:     idx,
		stats:   stats,
		checker: checker,
		log:     log,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.e.Use(s.requestLogger())

	s.e.GET("/healthz", s.health)

	api := s.e.Group("/api")
	api.GET("/listings", s.listListings)
	api.GET("/partitions", s.listPartitions)
	api.GET("/analytics", s.analytics)
	api.GET("/export", s.exportCSV)

	// Writes and tooling sit behind the admin gate. With no token
	// configured the routes stay registered but always refuse, so a
	// misconfigured deployment fails closed.
	mutate := api.Group("", s.adminGate)
	mutate.POST("/listings", s.createListing)
	mutate.PUT("/listings/:id", s.updateListing)
	mutate.DELETE("/listings/:id", s.deleteListing)
	mutate.POST("/listings/import", s.importListings)

	admin := s.e.Group("/admin", s.adminGate)
	admin.GET("/cache/keys", s.cacheKeys)
	admin.GET("/cache/stats", s.cacheStats)
	admin.DELETE("/cache", s.cacheInvalidate)
	admin.POST("/linkcheck", s.runLinkCheck)
	admin.GET("/linkcheck", s.latestLinkCheck)
}

// Handler exposes the routing tree (tests drive it with httptest).
func (s *Server) Handler() http.Handler { return s.e }

func (s *Server) Start() error {
	return s.e.Start(s.cfg.Server.Addr())
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.e.Shutdown(ctx)
}

func (s *Server) health(c echo.Context) error {
	resp := healthResponse{Status: "ok", Database: "ok", Cache: "ok"}

	if err := s.store.Ping(c.Request().Context()); err != nil {
		// the database is the source of truth; without it we are down
		resp.Status = "unavailable"
		resp.Database = "unreachable"
		return c.JSON(http.StatusServiceUnavailable, resp)
	}
	if _, err := s.idx.Inspect(c.Request().Context(), "*"); err != nil {
		// cache loss is degradation, not an outage
		resp.Status = "degraded"
		resp.Cache = "unreachable"
	}
	return c.JSON(http.StatusOK, resp)
}
