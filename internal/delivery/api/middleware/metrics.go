package middleware

import (
	"time"

	"authgate/internal/infra/metrics"

	"github.com/labstack/echo/v4"
)

// MetricsMiddleware records request latency by route and status.
//
// It renders handler errors itself so the status is known when the request is recorded,
// and so the error body is written while the session middleware still buffers the response.
type MetricsMiddleware struct {
	collector *metrics.Collector
}

// NewMetricsMiddleware is the constructor for MetricsMiddleware.
func NewMetricsMiddleware(collector *metrics.Collector) *MetricsMiddleware {
	return &MetricsMiddleware{collector: collector}
}

func (m *MetricsMiddleware) Handle(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()

		if err := next(c); err != nil {
			c.Error(err)
		}

		route := c.Path()
		if route == "" {
			route = "unmatched"
		}
		m.collector.RecordRequest(c.Request().Method, route, c.Response().Status, time.Since(start))

		return nil
	}
}
