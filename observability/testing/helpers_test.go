package testing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

func TestSpanCollectorFilters(t *testing.T) {
	tp := NewTestTraceProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()

	tracer := tp.Tracer("test")
	_, s1 := tracer.Start(context.Background(), "rotation.invoke", trace.WithSpanKind(trace.SpanKindInternal))
	s1.SetAttributes(attribute.String("provider", "gemini"), attribute.Int("pool.size", 3))
	s1.SetStatus(codes.Error, "exhausted")
	s1.End()
	_, s2 := tracer.Start(context.Background(), "POST", trace.WithSpanKind(trace.SpanKindClient))
	s2.End()

	all := NewSpanCollector(t, tp.Exporter)
	assert.Equal(t, 2, all.Len())

	invoke := all.WithName("rotation.invoke").AssertCount(1).Get(0)
	AssertSpanAttribute(t, &invoke, "provider", "gemini")
	AssertSpanAttribute(t, &invoke, "pool.size", 3)
	AssertSpanStatus(t, &invoke, codes.Error)

	all.WithKind(trace.SpanKindClient).AssertCount(1)
	all.WithName("missing").AssertCount(0)
}

func TestSpanCollectorAssertNotContains(t *testing.T) {
	tp := NewTestTraceProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()

	_, span := tp.Tracer("test").Start(context.Background(), "HTTP POST")
	span.SetAttributes(attribute.String("url.full", "https://example.test/models/m:predict"))
	span.AddEvent("attempt", trace.WithAttributes(attribute.String("credential", "...1234")))
	span.End()

	NewSpanCollector(t, tp.Exporter).AssertCount(1).AssertNotContains("secret-value")
}

func TestMetricHelpers(t *testing.T) {
	mp := NewTestMeterProvider()
	defer func() { _ = mp.Shutdown(context.Background()) }()

	counter, err := mp.Meter("test").Int64Counter("keyrelay.test.attempts")
	require.NoError(t, err)

	ctx := context.Background()
	counter.Add(ctx, 2, metric.WithAttributes(attribute.String("outcome", "failure")))
	counter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "success")))

	rm := mp.Collect(t)
	require.NotNil(t, FindMetric(rm, "keyrelay.test.attempts"))
	assert.Nil(t, FindMetric(rm, "keyrelay.test.missing"))

	AssertMetricValue(t, rm, "keyrelay.test.attempts", 3)
	assert.Equal(t, int64(2), SumWithAttribute(rm, "keyrelay.test.attempts", "outcome", "failure"))
	assert.Equal(t, int64(1), SumWithAttribute(rm, "keyrelay.test.attempts", "outcome", "success"))
	assert.Zero(t, SumWithAttribute(rm, "keyrelay.test.missing", "outcome", "success"))
}
