package rotation

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"

	"github.com/gaborage/keyrelay/credential"
	"github.com/gaborage/keyrelay/logger"
	"github.com/gaborage/keyrelay/observability"
)

const (
	instrumentationName = "github.com/gaborage/keyrelay/rotation"
	spanName            = "rotation.invoke"
	attemptEventName    = "rotation.attempt"

	metricAttempts  = "keyrelay.rotation.attempts"
	metricExhausted = "keyrelay.rotation.exhausted"

	outcomeSuccess = "success"
	outcomeFailure = "failure"
)

// Operation performs one upstream call with exactly one credential.
type Operation[T any] func(ctx context.Context, cred credential.Credential) (T, error)

// Option configures an Invoker.
type Option func(*options)

type options struct {
	log            logger.Logger
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
}

// WithLogger sets the logger used for per-attempt diagnostics.
func WithLogger(log logger.Logger) Option {
	return func(o *options) {
		o.log = log
	}
}

// WithTracerProvider overrides the global tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		o.tracerProvider = tp
	}
}

// WithMeterProvider overrides the global meter provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) {
		o.meterProvider = mp
	}
}

// Invoker applies the stop-on-success, aggregate-on-exhaustion policy.
// It holds no per-invocation state and is safe for concurrent use.
type Invoker[T any] struct {
	log       logger.Logger
	tracer    trace.Tracer
	attempts  metric.Int64Counter
	exhausted metric.Int64Counter
}

// NewInvoker creates an Invoker. Without options it logs nowhere and reports
// to the global OpenTelemetry providers.
func NewInvoker[T any](opts ...Option) *Invoker[T] {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.NewNop()
	}
	if o.tracerProvider == nil {
		o.tracerProvider = otel.GetTracerProvider()
	}
	if o.meterProvider == nil {
		o.meterProvider = otel.GetMeterProvider()
	}

	meter := o.meterProvider.Meter(instrumentationName)
	attempts, err := observability.CreateCounter(meter, metricAttempts, "Credential attempts made against upstream providers")
	if err != nil {
		o.log.Warn().Err(err).Str("metric", metricAttempts).Msg("Falling back to no-op counter")
		attempts, _ = noop.Meter{}.Int64Counter(metricAttempts)
	}
	exhausted, err := observability.CreateCounter(meter, metricExhausted, "Invocations where every credential failed")
	if err != nil {
		o.log.Warn().Err(err).Str("metric", metricExhausted).Msg("Falling back to no-op counter")
		exhausted, _ = noop.Meter{}.Int64Counter(metricExhausted)
	}

	return &Invoker[T]{
		log:       o.log,
		tracer:    o.tracerProvider.Tracer(instrumentationName),
		attempts:  attempts,
		exhausted: exhausted,
	}
}

// invocation is the private state of one Invoke call.
type invocation struct {
	provider string
	size     int
	state    State
	attempts int
	last     error
}

// Invoke runs op with each credential of pool in order until one succeeds.
//
// An empty pool yields a *credential.ConfigurationError and op is never
// called. Exhaustion yields an *AggregatedError whose Last is the final
// failure with the raw credential redacted from its message. If ctx is done
// before an attempt starts, no further credentials are tried.
func (inv *Invoker[T]) Invoke(ctx context.Context, pool credential.Pool, op Operation[T]) (T, error) {
	var zero T
	run := &invocation{provider: pool.Provider(), size: pool.Len(), state: Pending}

	ctx, span := inv.tracer.Start(ctx, spanName, trace.WithAttributes(
		attribute.String("provider", run.provider),
		attribute.Int("pool.size", run.size),
	))
	defer func() {
		span.SetAttributes(
			attribute.String("rotation.state", run.state.String()),
			attribute.Int("rotation.attempts", run.attempts),
		)
		span.End()
	}()

	if run.size == 0 {
		err := credential.NewConfigurationError(run.provider, nil)
		span.RecordError(err)
		span.SetStatus(codes.Error, "no credentials configured")
		return zero, err
	}

	log := inv.log.WithContext(ctx)

	for _, cred := range pool.Credentials() {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, inv.abandon(ctx, span, log, run, ctxErr)
		}

		run.state = AttemptingKey
		run.attempts++

		result, err := op(ctx, cred)
		if err == nil {
			run.state = Succeeded
			inv.recordAttempt(ctx, span, run, outcomeSuccess)
			log.Debug().
				Str("provider", run.provider).
				Int("attempt", run.attempts).
				Int("pool_size", run.size).
				Str("state", run.state.String()).
				Msg("Credential attempt succeeded")
			return result, nil
		}

		run.last = &attemptError{msg: credential.Redact(err.Error(), cred), err: err}
		inv.recordAttempt(ctx, span, run, outcomeFailure)
		log.Warn().
			Str("provider", run.provider).
			Str("key_hint", cred.String()).
			Int("attempt", run.attempts).
			Int("pool_size", run.size).
			Err(run.last).
			Msg("Credential attempt failed, rotating to next credential")
	}

	return zero, inv.exhaust(ctx, span, log, run)
}

func (inv *Invoker[T]) recordAttempt(ctx context.Context, span trace.Span, run *invocation, outcome string) {
	inv.attempts.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", run.provider),
		attribute.String("outcome", outcome),
	))
	span.AddEvent(attemptEventName, trace.WithAttributes(
		attribute.Int("attempt", run.attempts),
		attribute.String("outcome", outcome),
	))
}

func (inv *Invoker[T]) exhaust(ctx context.Context, span trace.Span, log logger.Logger, run *invocation) error {
	run.state = ExhaustedAllKeys
	err := &AggregatedError{Provider: run.provider, Attempts: run.attempts, Last: run.last}

	inv.exhausted.Add(ctx, 1, metric.WithAttributes(attribute.String("provider", run.provider)))
	span.RecordError(err)
	span.SetStatus(codes.Error, "all credentials exhausted")
	log.Warn().
		Str("provider", run.provider).
		Int("attempts", run.attempts).
		Str("state", run.state.String()).
		Err(run.last).
		Msg("All credentials exhausted")
	return err
}

// abandon ends the invocation early because the request context is done.
// The context error is joined with the last failure, if any.
func (inv *Invoker[T]) abandon(ctx context.Context, span trace.Span, log logger.Logger, run *invocation, ctxErr error) error {
	if run.last != nil {
		run.last = errors.Join(ctxErr, run.last)
	} else {
		run.last = ctxErr
	}
	log.Debug().
		Str("provider", run.provider).
		Int("attempts", run.attempts).
		Int("pool_size", run.size).
		Msg("Request context done, stopping credential rotation")
	return inv.exhaust(context.WithoutCancel(ctx), span, log, run)
}
