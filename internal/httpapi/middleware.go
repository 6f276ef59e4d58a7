package httpapi

import (
	"net"
	"net/http"
	"time"

	"github.com/mixaill76/ai-firewall/internal/monitoring"
	"github.com/mixaill76/ai-firewall/internal/ratelimit"
)

// rateLimitMiddleware enforces a per-client-IP request ceiling ahead of the
// router, grounded on the house internal/ratelimit package and the ambient
// stack's fail-open posture: a nil limiter (rate limiting disabled in
// configuration) degrades to unlimited rather than blocking.
func rateLimitMiddleware(limiter *ratelimit.KeyedWindowLimiter, metrics *monitoring.Metrics, next http.Handler) http.Handler {
	if limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := clientIP(r)
		if !limiter.Allow(key) {
			if metrics != nil {
				metrics.RecordRateLimitRejection(r.URL.Path)
			}
			writeErrorRateLimit(w, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP extracts the caller's address, preferring the request's remote
// address over proxy-supplied headers since this service has no configured
// trusted proxy chain.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// metricsMiddleware records per-endpoint request counts and latency.
func metricsMiddleware(metrics *monitoring.Metrics, next http.Handler) http.Handler {
	if metrics == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rc := &statusCapture{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rc, r)
		metrics.RecordRequest(r.URL.Path, statusClass(rc.statusCode), time.Since(start))
	})
}

type statusCapture struct {
	http.ResponseWriter
	statusCode int
}

func (rc *statusCapture) WriteHeader(code int) {
	rc.statusCode = code
	rc.ResponseWriter.WriteHeader(code)
}

func statusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
