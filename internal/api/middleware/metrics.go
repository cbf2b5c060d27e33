package middleware

import (
	"net/http"
	"sync/atomic"
)

// MetricsCollector counts requests, error responses, and disclosure gate
// failures. Gate failures return 200 with gates_passed=false, so the
// status-code error count never sees them; they get their own counter.
type MetricsCollector struct {
	requestCount     *atomic.Int64
	errorCount       *atomic.Int64
	gateFailureCount *atomic.Int64
}

func NewMetricsCollector(requestCount, errorCount, gateFailureCount *atomic.Int64) *MetricsCollector {
	return &MetricsCollector{
		requestCount:     requestCount,
		errorCount:       errorCount,
		gateFailureCount: gateFailureCount,
	}
}

// CountGateFailure records one answer that the disclosure gate refused to
// pass. Called by the answer handler, not by the middleware.
func (mc *MetricsCollector) CountGateFailure() {
	mc.gateFailureCount.Add(1)
}

// Middleware counts every request and every 4xx/5xx response.
func (mc *MetricsCollector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mc.requestCount.Add(1)

		rw := newResponseWriter(w)
		next.ServeHTTP(rw, r)

		if rw.statusCode >= 400 {
			mc.errorCount.Add(1)
		}
	})
}
