package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/invoicegen/backend/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// HTTPMetricsConfig holds configuration for HTTP metrics middleware.
type HTTPMetricsConfig struct {
	MeterProvider *telemetry.MeterProvider
	Enabled       bool
}

// responseSizeBuckets reach into megabytes: generate returns both documents inline
var responseSizeBuckets = []float64{256, 1024, 16384, 65536, 262144, 1048576, 4194304, 16777216}

// rejectReasons names the statuses produced by the body limit and the render limiter
var rejectReasons = map[int]string{
	http.StatusRequestEntityTooLarge: "body_too_large",
	http.StatusTooManyRequests:       "rate_limited",
}

type httpMetrics struct {
	requests *telemetry.Counter
	duration *telemetry.Histogram
	respSize *telemetry.Histogram
	rejected *telemetry.Counter
	inFlight metric.Int64UpDownCounter
}

func newHTTPMetrics(meter metric.Meter) (*httpMetrics, error) {
	m := &httpMetrics{}
	var err error

	if m.requests, err = telemetry.NewCounter(meter,
		"http_server_request_total", "HTTP requests by method, route and status", "{request}"); err != nil {
		return nil, err
	}
	if m.duration, err = telemetry.NewHistogram(meter, telemetry.HistogramOpts{
		Name:        "http_server_request_duration_seconds",
		Description: "HTTP request latency in seconds",
		Unit:        "s",
		Boundaries:  telemetry.HTTPDurationBuckets,
	}); err != nil {
		return nil, err
	}
	if m.respSize, err = telemetry.NewHistogram(meter, telemetry.HistogramOpts{
		Name:        "http_server_response_size_bytes",
		Description: "HTTP response body size in bytes",
		Unit:        "By",
		Boundaries:  responseSizeBuckets,
	}); err != nil {
		return nil, err
	}
	if m.rejected, err = telemetry.NewCounter(meter,
		"http_server_rejected_total", "Requests refused before reaching a handler, by reason", "{request}"); err != nil {
		return nil, err
	}
	if m.inFlight, err = meter.Int64UpDownCounter("http_server_active_requests",
		metric.WithDescription("HTTP requests in flight"),
		metric.WithUnit("{request}")); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *httpMetrics) record(c *gin.Context, elapsed time.Duration) {
	ctx := c.Request.Context()
	route := getRoutePattern(c)
	status := c.Writer.Status()
	attrs := []attribute.KeyValue{
		telemetry.AttrHTTPMethod.String(c.Request.Method),
		telemetry.AttrHTTPRoute.String(route),
	}

	m.requests.Inc(ctx, append(attrs, telemetry.AttrHTTPStatusCode.Int(status))...)
	m.duration.RecordDuration(ctx, elapsed, attrs...)
	if size := c.Writer.Size(); size > 0 {
		m.respSize.Record(ctx, float64(size), attrs...)
	}
	if reason, ok := rejectReasons[status]; ok {
		m.rejected.Inc(ctx, attribute.String("reason", reason), telemetry.AttrHTTPRoute.String(route))
	}
}

// HTTPMetrics records request count, latency, response size, rejections
// and in-flight requests. It passes through when metrics are off.
func HTTPMetrics(cfg HTTPMetricsConfig) gin.HandlerFunc {
	if !cfg.Enabled || !cfg.MeterProvider.IsEnabled() {
		return passThrough
	}
	return HTTPMetricsWithMeter(cfg.MeterProvider.Meter("invoicegen/http"), true)
}

// HTTPMetricsWithMeter is HTTPMetrics on a caller supplied meter.
func HTTPMetricsWithMeter(meter metric.Meter, enabled bool) gin.HandlerFunc {
	if !enabled || meter == nil {
		return passThrough
	}
	m, err := newHTTPMetrics(meter)
	if err != nil {
		return passThrough
	}

	return func(c *gin.Context) {
		start := time.Now()
		m.inFlight.Add(c.Request.Context(), 1)
		defer m.inFlight.Add(c.Request.Context(), -1)

		c.Next()
		m.record(c, time.Since(start))
	}
}

func passThrough(c *gin.Context) {
	c.Next()
}

// getRoutePattern returns the matched route, e.g. "/api/v1/invoices/:number",
// so invoice numbers never become attribute values.
func getRoutePattern(c *gin.Context) string {
	if route := c.FullPath(); route != "" {
		return route
	}
	return "unknown"
}
