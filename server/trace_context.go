package server

import (
	"github.com/labstack/echo/v4"

	reqtrace "github.com/gaborage/keyrelay/trace"
)

// TraceContext copies the request ID and inbound W3C trace headers into the
// request context, so outbound provider calls can carry them without
// depending on Echo.
func TraceContext() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()

			ctx := reqtrace.WithTraceID(req.Context(), getTraceID(c))
			if tp := req.Header.Get(reqtrace.HeaderTraceParent); tp != "" {
				ctx = reqtrace.WithTraceParent(ctx, tp)
			}
			if ts := req.Header.Get(reqtrace.HeaderTraceState); ts != "" {
				ctx = reqtrace.WithTraceState(ctx, ts)
			}

			c.SetRequest(req.WithContext(ctx))
			return next(c)
		}
	}
}
