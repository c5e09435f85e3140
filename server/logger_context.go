package server

import (
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// RequestLogContextKey is the Echo context key holding the request logging state.
const RequestLogContextKey = "_request_log_ctx"

// requestLogContext tracks the peak severity seen while serving one request.
// The severity hook may fire from any goroutine the handler starts.
type requestLogContext struct {
	mu                 sync.Mutex
	startTime          time.Time
	peakSeverity       zerolog.Level
	hadExplicitWarning bool
}

func newRequestLogContext() *requestLogContext {
	return &requestLogContext{
		startTime:    time.Now(),
		peakSeverity: zerolog.InfoLevel,
	}
}

// getRequestLogContext returns nil when the request is not tracked.
func getRequestLogContext(c echo.Context) *requestLogContext {
	if reqCtx, ok := c.Get(RequestLogContextKey).(*requestLogContext); ok {
		return reqCtx
	}
	return nil
}

func (r *requestLogContext) getStartTime() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.startTime
}

func (r *requestLogContext) hadExplicitWarningOccurred() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hadExplicitWarning
}

// escalateSeverity is the severity hook for logs emitted during the request.
func (r *requestLogContext) escalateSeverity(level zerolog.Level) {
	r.escalate(level, true)
}

// escalateSeverityFromStatus raises severity from the final status without
// counting as an explicit warning log.
func (r *requestLogContext) escalateSeverityFromStatus(level zerolog.Level) {
	r.escalate(level, false)
}

func (r *requestLogContext) escalate(level zerolog.Level, explicit bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if level > r.peakSeverity {
		r.peakSeverity = level
	}
	if explicit && level >= zerolog.WarnLevel {
		r.hadExplicitWarning = true
	}
}

// EscalateSeverity lets handlers raise the request severity without logging.
func EscalateSeverity(c echo.Context, level zerolog.Level) {
	if reqCtx := getRequestLogContext(c); reqCtx != nil {
		reqCtx.escalateSeverity(level)
	}
}
