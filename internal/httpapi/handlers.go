package httpapi

import (
	"encoding/csv"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/bryan-besnyi/siteindex/internal/listing"
	"github.com/bryan-besnyi/siteindex/internal/store"
)

func (s *Server) listListings(c echo.Context) error {
	f := store.Filter{
		Partition: listing.Partition(c.QueryParam("partition")),
		Category:  c.QueryParam("category"),
		Term:      c.QueryParam("q"),
	}
	if f.Partition != "" && !f.Partition.Valid() {
		return echo.NewHTTPError(http.StatusBadRequest, "unknown partition")
	}
	if f.Category != "" && !listing.ValidCategory(f.Category) {
		return echo.NewHTTPError(http.StatusBadRequest, "category must be a single uppercase letter")
	}

	ls, err := s.store.List(c.Request().Context(), f)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ls)
}

func (s *Server) listPartitions(c echo.Context) error {
	return c.JSON(http.StatusOK, listing.Partitions())
}

func (s *Server) createListing(c echo.Context) error {
	var req listingRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := c.Validate(req); err != nil {
		return err
	}
	l, err := s.store.Create(c.Request().Context(), req.toListing())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, l)
}

func (s *Server) updateListing(c echo.Context) error {
	var req listingRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := c.Validate(req); err != nil {
		return err
	}
	l := req.toListing()
	l.ID = c.Param("id")

	updated, err := s.store.Update(c.Request().Context(), l)
	if errors.Is(err, store.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "listing not found")
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, updated)
}

func (s *Server) deleteListing(c echo.Context) error {
	err := s.store.Delete(c.Request().Context(), c.Param("id"))
	if errors.Is(err, store.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "listing not found")
	}
	if err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) importListings(c echo.Context) error {
	var req importRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := c.Validate(req); err != nil {
		return err
	}
	ls := make([]listing.Listing, len(req.Listings))
	for i, r := range req.Listings {
		ls[i] = r.toListing()
	}
	imported, err := s.store.BulkImport(c.Request().Context(), ls)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, imported)
}

func (s *Server) analytics(c echo.Context) error {
	ctx := c.Request().Context()
	byCat, err := s.store.CountByCategory(ctx)
	if err != nil {
		return err
	}
	byPart, err := s.store.CountByPartition(ctx)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, analyticsResponse{ByCategory: byCat, ByPartition: byPart})
}

// exportCSV streams the whole index as CSV, the portable backup format the
// admin dashboard offers.
func (s *Server) exportCSV(c echo.Context) error {
	ls, err := s.store.List(c.Request().Context(), store.Filter{})
	if err != nil {
		return err
	}

	c.Response().Header().Set(echo.HeaderContentType, "text/csv")
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="siteindex.csv"`)
	c.Response().WriteHeader(http.StatusOK)

	w := csv.NewWriter(c.Response())
	if err := w.Write([]string{"id", "title", "category", "url", "partition", "updated_at"}); err != nil {
		return err
	}
	for _, l := range ls {
		rec := []string{l.ID, l.Title, l.Category, l.URL, string(l.Partition), l.UpdatedAt.Format("2006-01-02T15:04:05Z07:00")}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// parseLimit reads an optional positive integer query param.
func parseLimit(c echo.Context, name string, def int) int {
	raw := c.QueryParam(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
