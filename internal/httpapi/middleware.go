package httpapi

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const requestIDHeader = "X-Request-Id"

// requestLogger tags every request with an id and logs method, path, status
// and latency.
func (s *Server) requestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := c.Request().Header.Get(requestIDHeader)
			if id == "" {
				id = uuid.NewString()
			}
			c.Response().Header().Set(requestIDHeader, id)

			start := time.Now()
			if err := next(c); err != nil {
				// resolve the error here so the logged status is final
				c.Error(err)
			}

			s.log.Info("request",
				zap.String("id", id),
				zap.String("method", c.Request().Method),
				zap.String("path", c.Request().URL.Path),
				zap.Int("status", c.Response().Status),
				zap.Duration("latency", time.Since(start)),
			)
			return nil
		}
	}
}

// adminGate stands in for the district's session provider: requests must
// carry the configured bearer token. An empty configured token refuses
// everything.
func (s *Server) adminGate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token := s.cfg.Admin.Token
		if token == "" {
			return echo.NewHTTPError(http.StatusForbidden, "admin access not configured")
		}
		got := c.Request().Header.Get(echo.HeaderAuthorization)
		want := "Bearer " + token
		if subtle.ConstantTimeCompare([]byte(got), []byte(want)) != 1 {
			return echo.NewHTTPError(http.StatusUnauthorized, "admin token required")
		}
		return next(c)
	}
}
