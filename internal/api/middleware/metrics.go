package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nassor22/maarifaHub/internal/metrics"
)

// statusWriter wraps http.ResponseWriter to capture status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// Metrics returns middleware that records Prometheus metrics.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Wrap response writer to capture status
		wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		path := routeLabel(r)
		metrics.HTTPRequestsTotal.WithLabelValues(
			r.Method, path, strconv.Itoa(wrapped.status),
		).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(
			r.Method, path,
		).Observe(time.Since(start).Seconds())
	})
}

// routeLabel prefers the matched chi pattern and falls back to a
// normalized path for requests that matched no route.
func routeLabel(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return normalizePath(r.URL.Path)
}

// normalizePath normalizes paths to avoid high cardinality in metrics.
func normalizePath(path string) string {
	const prefix = "/messages/conversations/"
	if !strings.HasPrefix(path, prefix) || len(path) == len(prefix) {
		return path
	}
	rest := strings.TrimPrefix(path, prefix)
	_, tail, found := strings.Cut(rest, "/")
	if !found {
		return prefix + "{id}"
	}
	switch tail {
	case "select", "messages":
		return prefix + "{id}/" + tail
	default:
		return prefix + "{id}/*"
	}
}
