package tracking

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	obtest "github.com/gaborage/keyrelay/observability/testing"
)

func newEcho(mp *obtest.TestMeterProvider, cfg HTTPMetricsConfig) *echo.Echo {
	e := echo.New()
	e.Use(HTTPMetrics(mp, cfg))
	e.POST("/api/generate", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.GET("/fail", func(_ echo.Context) error {
		return echo.NewHTTPError(http.StatusBadGateway, "upstream")
	})
	e.GET("/health", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	return e
}

func TestHTTPMetricsCountsResponses(t *testing.T) {
	mp := obtest.NewTestMeterProvider()
	e := newEcho(mp, HTTPMetricsConfig{})

	for _, r := range []*http.Request{
		httptest.NewRequest(http.MethodPost, "/api/generate", http.NoBody),
		httptest.NewRequest(http.MethodPost, "/api/generate", http.NoBody),
		httptest.NewRequest(http.MethodGet, "/fail", http.NoBody),
	} {
		e.ServeHTTP(httptest.NewRecorder(), r)
	}

	rm := mp.Collect(t)
	obtest.AssertMetricValue(t, rm, metricResponses, 3)
	assert.Equal(t, int64(2), obtest.SumWithAttribute(rm, metricResponses, attrHTTPRoute, "/api/generate"))
	assert.Equal(t, int64(1), obtest.SumWithAttribute(rm, metricResponses, attrErrorType, "502"))
	// Every request finished, so nothing is in flight.
	obtest.AssertMetricValue(t, rm, metricActiveRequests, 0)
}

func TestHTTPMetricsSkipper(t *testing.T) {
	mp := obtest.NewTestMeterProvider()
	e := newEcho(mp, HTTPMetricsConfig{Skipper: func(c echo.Context) bool {
		return c.Request().URL.Path == "/health"
	}})

	e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", http.NoBody))

	rm := mp.Collect(t)
	assert.Nil(t, obtest.FindMetric(rm, metricResponses))
}

func TestClassifyHTTPError(t *testing.T) {
	assert.Equal(t, "", classifyHTTPError(http.StatusOK, nil))
	assert.Equal(t, "handler_error", classifyHTTPError(http.StatusOK, errors.New("boom")))
	assert.Equal(t, "404", classifyHTTPError(http.StatusNotFound, nil))
	assert.Equal(t, "503", classifyHTTPError(http.StatusServiceUnavailable, errors.New("down")))
}

func TestExtractScheme(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	c := e.NewContext(req, httptest.NewRecorder())
	assert.Equal(t, "http", extractScheme(c))

	req.Header.Set("X-Forwarded-Proto", "https")
	assert.Equal(t, "https", extractScheme(c))
}

func TestNormalizeRoute(t *testing.T) {
	require.Equal(t, "unknown", normalizeRoute(""))
	require.Equal(t, "/x", normalizeRoute("/x"))
}
