package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/petshop/erp/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var httpDurationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

// httpMetrics holds the HTTP server instruments
type httpMetrics struct {
	requests *telemetry.Counter
	duration *telemetry.Histogram
	active   metric.Int64UpDownCounter
}

func newHTTPMetrics(meter metric.Meter) (*httpMetrics, error) {
	requests, err := telemetry.NewCounter(meter,
		"http_server_request_total", "Total number of HTTP requests", "{request}")
	if err != nil {
		return nil, err
	}
	duration, err := telemetry.NewHistogram(meter, telemetry.HistogramOpts{
		Name:        "http_server_request_duration_seconds",
		Description: "HTTP request latency distribution in seconds",
		Unit:        "s",
		Boundaries:  httpDurationBuckets,
	})
	if err != nil {
		return nil, err
	}
	active, err := meter.Int64UpDownCounter("http_server_active_requests",
		metric.WithDescription("Number of in-flight HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}
	return &httpMetrics{requests: requests, duration: duration, active: active}, nil
}

// HTTPMetrics records request counts, latency and concurrency. Routes are
// labelled by pattern to keep cardinality bounded; a nil meter disables it.
func HTTPMetrics(meter metric.Meter) gin.HandlerFunc {
	if meter == nil {
		return func(c *gin.Context) { c.Next() }
	}
	m, err := newHTTPMetrics(meter)
	if err != nil {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		start := time.Now()
		// recorded after the request so cancellation cannot drop samples
		ctx := context.WithoutCancel(c.Request.Context())

		m.active.Add(ctx, 1)
		c.Next()
		m.active.Add(ctx, -1)

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		attrs := []attribute.KeyValue{
			attribute.String("http.method", c.Request.Method),
			attribute.String("http.route", route),
		}
		m.duration.RecordDuration(ctx, time.Since(start), attrs...)

		attrs = append(attrs, attribute.Int("http.status_code", c.Writer.Status()))
		if id := c.GetString(TenantIDKey); id != "" {
			attrs = append(attrs, telemetry.AttrTenantID.String(id))
		}
		m.requests.Inc(ctx, attrs...)
	}
}
