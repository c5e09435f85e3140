package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	nethttp "net/http"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/gaborage/keyrelay/logger"
	"github.com/gaborage/keyrelay/observability"
	reqtrace "github.com/gaborage/keyrelay/trace"
)

const (
	// DefaultTimeout is the default request timeout duration
	DefaultTimeout = 30 * time.Second

	// DefaultMaxResponseBytes caps how much of a response body is read.
	DefaultMaxResponseBytes int64 = 32 << 20

	instrumentationName = "github.com/gaborage/keyrelay/http"
	metricDuration      = "keyrelay.upstream.duration"
)

// client implements the Client interface
type client struct {
	httpClient           *nethttp.Client
	logger               logger.Logger
	config               *Config
	requestInterceptors  []RequestInterceptor
	responseInterceptors []ResponseInterceptor
	duration             metric.Float64Histogram
	callCount            int64
}

// Builder provides a fluent interface for configuring the client
type Builder struct {
	config         *Config
	logger         logger.Logger
	transport      nethttp.RoundTripper
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
}

// NewBuilder creates a new client builder
func NewBuilder(log logger.Logger) *Builder {
	return &Builder{
		config: &Config{
			Timeout:              DefaultTimeout,
			MaxResponseBytes:     DefaultMaxResponseBytes,
			RequestInterceptors:  []RequestInterceptor{},
			ResponseInterceptors: []ResponseInterceptor{},
			DefaultHeaders:       make(map[string]string),
		},
		logger: log,
	}
}

// NewClient creates a client with default configuration
func NewClient(log logger.Logger) Client {
	return NewBuilder(log).Build()
}

// WithTimeout sets the per-request timeout
func (b *Builder) WithTimeout(timeout time.Duration) *Builder {
	b.config.Timeout = timeout
	return b
}

// WithMaxResponseBytes caps the response body size
func (b *Builder) WithMaxResponseBytes(limit int64) *Builder {
	b.config.MaxResponseBytes = limit
	return b
}

// WithDefaultHeader adds a default header that will be sent with all requests
func (b *Builder) WithDefaultHeader(key, value string) *Builder {
	b.config.DefaultHeaders[key] = value
	return b
}

// WithRequestInterceptor adds a request interceptor
func (b *Builder) WithRequestInterceptor(interceptor RequestInterceptor) *Builder {
	b.config.RequestInterceptors = append(b.config.RequestInterceptors, interceptor)
	return b
}

// WithResponseInterceptor adds a response interceptor
func (b *Builder) WithResponseInterceptor(interceptor ResponseInterceptor) *Builder {
	b.config.ResponseInterceptors = append(b.config.ResponseInterceptors, interceptor)
	return b
}

// WithTransport sets the base round tripper wrapped by the tracing transport.
func (b *Builder) WithTransport(rt nethttp.RoundTripper) *Builder {
	b.transport = rt
	return b
}

// WithTracerProvider overrides the global tracer provider for client spans.
func (b *Builder) WithTracerProvider(tp trace.TracerProvider) *Builder {
	b.tracerProvider = tp
	return b
}

// WithMeterProvider overrides the global meter provider.
func (b *Builder) WithMeterProvider(mp metric.MeterProvider) *Builder {
	b.meterProvider = mp
	return b
}

// Build creates the client with the configured options
func (b *Builder) Build() Client {
	log := b.logger
	if log == nil {
		log = logger.NewNop()
	}

	base := b.transport
	if base == nil {
		base = nethttp.DefaultTransport
	}
	otelOpts := []otelhttp.Option{}
	if b.tracerProvider != nil {
		otelOpts = append(otelOpts, otelhttp.WithTracerProvider(b.tracerProvider))
	}
	if b.meterProvider != nil {
		otelOpts = append(otelOpts, otelhttp.WithMeterProvider(b.meterProvider))
	}

	mp := b.meterProvider
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	duration, err := observability.CreateHistogram(mp.Meter(instrumentationName), metricDuration,
		"Outbound provider call duration in milliseconds", metric.WithUnit("ms"))
	if err != nil {
		log.Warn().Err(err).Str("metric", metricDuration).Msg("Upstream duration histogram disabled")
	}

	return &client{
		httpClient: &nethttp.Client{
			Timeout:   b.config.Timeout,
			Transport: otelhttp.NewTransport(&secretQueryTransport{base: base}, otelOpts...),
		},
		logger:               log,
		config:               b.config,
		requestInterceptors:  b.config.RequestInterceptors,
		responseInterceptors: b.config.ResponseInterceptors,
		duration:             duration,
	}
}

// Get performs a GET request
func (c *client) Get(ctx context.Context, req *Request) (*Response, error) {
	return c.Do(ctx, nethttp.MethodGet, req)
}

// Post performs a POST request
func (c *client) Post(ctx context.Context, req *Request) (*Response, error) {
	return c.Do(ctx, nethttp.MethodPost, req)
}

// Do performs exactly one HTTP request. A non-2xx status returns both the
// response and an HTTP ClientError.
func (c *client) Do(ctx context.Context, method string, req *Request) (*Response, error) {
	if err := c.validateRequest(req); err != nil {
		return nil, err
	}

	start := time.Now()
	callCount := atomic.AddInt64(&c.callCount, 1)
	logger.IncrementUpstreamCounter(ctx)
	defer func() {
		elapsed := time.Since(start)
		logger.AddUpstreamElapsed(ctx, elapsed.Nanoseconds())
		if c.duration != nil {
			c.duration.Record(ctx, float64(elapsed.Microseconds())/1000.0,
				metric.WithAttributes(attribute.String("method", method)))
		}
	}()

	log := c.logger.WithContext(ctx)
	c.logRequest(log, method, req)

	httpReq, err := c.buildRequest(ctx, method, req)
	if err != nil {
		return nil, err
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if c.isTimeout(err) {
			return nil, NewTimeoutError("request timeout", c.config.Timeout, err)
		}
		return nil, NewNetworkError("request execution failed", err)
	}

	resp, err := c.buildResponse(ctx, start, callCount, httpReq, httpResp)
	if err != nil {
		return nil, err
	}

	c.logResponse(log, resp)
	if IsSuccessStatus(resp.StatusCode) {
		return resp, nil
	}
	return resp, NewHTTPError(
		fmt.Sprintf("HTTP request failed with status %d", resp.StatusCode),
		resp.StatusCode,
		resp.Body,
	)
}

// validateRequest validates the request before sending
func (c *client) validateRequest(req *Request) error {
	if req == nil {
		return NewValidationError("request cannot be nil", "request")
	}
	if req.URL == "" {
		return NewValidationError("URL cannot be empty", "url")
	}
	return nil
}

// applyHeaders applies headers to the HTTP request
func (c *client) applyHeaders(httpReq *nethttp.Request, req *Request) {
	for key, value := range c.config.DefaultHeaders {
		httpReq.Header.Set(key, value)
	}

	// Request-specific headers override defaults
	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}

	if httpReq.Header.Get("Content-Type") == "" && req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
}

// buildRequest constructs an *http.Request, applies headers and runs request interceptors.
func (c *client) buildRequest(ctx context.Context, method string, req *Request) (*nethttp.Request, error) {
	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	if len(req.SecretQuery) > 0 {
		ctx = context.WithValue(ctx, secretQueryKey{}, req.SecretQuery)
	}
	httpReq, err := nethttp.NewRequestWithContext(ctx, method, req.URL, body)
	if err != nil {
		return nil, NewValidationError(fmt.Sprintf("invalid request: %v", err), "url")
	}

	c.applyHeaders(httpReq, req)
	reqtrace.InjectHeaders(ctx, httpReq.Header)

	if err := c.runRequestInterceptors(ctx, httpReq); err != nil {
		return nil, NewInterceptorError("request interceptor failed", "request", err)
	}
	return httpReq, nil
}

// buildResponse runs response interceptors, reads body, and builds a Response.
func (c *client) buildResponse(ctx context.Context, start time.Time, callCount int64, httpReq *nethttp.Request, httpResp *nethttp.Response) (*Response, error) {
	defer httpResp.Body.Close()

	if err := c.runResponseInterceptors(ctx, httpReq, httpResp); err != nil {
		return nil, NewInterceptorError("response interceptor failed", "response", err)
	}

	limit := c.config.MaxResponseBytes
	if limit <= 0 {
		limit = DefaultMaxResponseBytes
	}
	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, limit+1))
	if err != nil {
		if c.isTimeout(err) {
			return nil, NewTimeoutError("response body read timeout", c.config.Timeout, err)
		}
		return nil, NewNetworkError("failed to read response body", err)
	}
	if int64(len(respBody)) > limit {
		return nil, NewNetworkError(fmt.Sprintf("response body exceeds %d bytes", limit), nil)
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Body:       respBody,
		Headers:    httpResp.Header,
		Stats: Stats{
			ElapsedTime: time.Since(start),
			CallCount:   callCount,
		},
	}, nil
}

func (c *client) isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// runRequestInterceptors executes all request interceptors
func (c *client) runRequestInterceptors(ctx context.Context, req *nethttp.Request) error {
	for _, interceptor := range c.requestInterceptors {
		if err := interceptor(ctx, req); err != nil {
			return err
		}
	}
	return nil
}

// runResponseInterceptors executes all response interceptors
func (c *client) runResponseInterceptors(ctx context.Context, req *nethttp.Request, resp *nethttp.Response) error {
	for _, interceptor := range c.responseInterceptors {
		if err := interceptor(ctx, req, resp); err != nil {
			return err
		}
	}
	return nil
}

// logRequest logs the outgoing request. The URL passes through the
// sensitive-data filter, which masks the key query parameter.
func (c *client) logRequest(log logger.Logger, method string, req *Request) {
	log.Debug().
		Str("direction", "outbound").
		Str("method", method).
		Str("url", req.URL).
		Int("body_bytes", len(req.Body)).
		Msg("Upstream request")
}

// logResponse logs the incoming response without its body
func (c *client) logResponse(log logger.Logger, resp *Response) {
	log.Debug().
		Str("direction", "inbound").
		Int("status", resp.StatusCode).
		Dur("elapsed", resp.Stats.ElapsedTime).
		Int64("call_count", resp.Stats.CallCount).
		Int("body_bytes", len(resp.Body)).
		Msg("Upstream response")
}
