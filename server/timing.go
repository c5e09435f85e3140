package server

import (
	"time"

	"github.com/labstack/echo/v4"
)

// Timing sets the X-Response-Time header. The header is written before the
// body, so it is added through a before-write hook.
func Timing() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			if resp := c.Response(); resp != nil {
				resp.Before(func() {
					resp.Header().Set(HeaderXResponseTime, time.Since(start).String())
				})
			}
			return next(c)
		}
	}
}
