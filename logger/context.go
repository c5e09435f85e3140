package logger

import (
	"context"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// contextKey is the type for context keys to avoid collisions
type contextKey string

const (
	// upstreamCounterKey tracks outbound provider calls per request
	upstreamCounterKey contextKey = "upstream_call_counter"
	// upstreamElapsedKey tracks total outbound elapsed time per request
	upstreamElapsedKey contextKey = "upstream_elapsed_nanos"
	// severityHookKey stores a callback for request-level severity tracking
	severityHookKey contextKey = "severity_hook"
)

// WithSeverityHook attaches a severity hook to the context. The hook is used by the
// logging adapter to propagate WARN/ERROR logs back to request middleware.
func WithSeverityHook(ctx context.Context, hook func(zerolog.Level)) context.Context {
	if ctx == nil || hook == nil {
		return ctx
	}
	return context.WithValue(ctx, severityHookKey, hook)
}

func severityHookFromContext(ctx context.Context) func(zerolog.Level) {
	if ctx == nil {
		return nil
	}
	if hook, ok := ctx.Value(severityHookKey).(func(zerolog.Level)); ok {
		return hook
	}
	return nil
}

// WithUpstreamCounter creates a new context with an outbound call counter and elapsed time tracker
func WithUpstreamCounter(ctx context.Context) context.Context {
	counter := int64(0)
	elapsed := int64(0)
	ctx = context.WithValue(ctx, upstreamCounterKey, &counter)
	ctx = context.WithValue(ctx, upstreamElapsedKey, &elapsed)
	return ctx
}

// IncrementUpstreamCounter increments the outbound call counter in the context
func IncrementUpstreamCounter(ctx context.Context) {
	if counter, ok := ctx.Value(upstreamCounterKey).(*int64); ok && counter != nil {
		atomic.AddInt64(counter, 1)
	}
}

// GetUpstreamCounter returns the current outbound call count from the context
func GetUpstreamCounter(ctx context.Context) int64 {
	if counter, ok := ctx.Value(upstreamCounterKey).(*int64); ok && counter != nil {
		return atomic.LoadInt64(counter)
	}
	return 0
}

// AddUpstreamElapsed adds elapsed nanoseconds to the outbound elapsed time in the context
func AddUpstreamElapsed(ctx context.Context, nanos int64) {
	if elapsed, ok := ctx.Value(upstreamElapsedKey).(*int64); ok && elapsed != nil {
		atomic.AddInt64(elapsed, nanos)
	}
}

// GetUpstreamElapsed returns the total outbound elapsed time in nanoseconds from the context
func GetUpstreamElapsed(ctx context.Context) int64 {
	if elapsed, ok := ctx.Value(upstreamElapsedKey).(*int64); ok && elapsed != nil {
		return atomic.LoadInt64(elapsed)
	}
	return 0
}
