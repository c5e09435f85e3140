package server

import (
	"github.com/labstack/echo/v4"

	"github.com/gaborage/keyrelay/logger"
)

// UpstreamStats returns middleware that adds the upstream call counters to
// the request context. The outbound client increments them and the request
// logger reports them.
func UpstreamStats() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := logger.WithUpstreamCounter(c.Request().Context())
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}
