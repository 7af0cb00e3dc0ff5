package handlers

import (
	"context"
	"net/http"
	"os"
	"time"
)

const version = "0.1.0"

// Check represents the status of a health check.
type Check struct {
	Status  string `json:"status"`            // "pass", "fail" or "skip"
	Latency string `json:"latency,omitempty"` // e.g., "2ms"
	Message string `json:"message,omitempty"`
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status         string           `json:"status"` // "healthy" or "degraded"
	Version        string           `json:"version"`
	Instance       string           `json:"instance,omitempty"`
	Checks         map[string]Check `json:"checks"`
	PendingReplies int              `json:"pendingReplies"`
	Timestamp      string           `json:"timestamp"`
}

type pinger interface {
	Ping(ctx context.Context) error
}

func runCheck(ctx context.Context, p pinger) Check {
	start := time.Now()
	if err := p.Ping(ctx); err != nil {
		return Check{Status: "fail", Message: "connection failed"}
	}
	return Check{Status: "pass", Latency: time.Since(start).String()}
}

// Health handles the health check endpoint.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	checks := make(map[string]Check)

	checks["roster"] = runCheck(ctx, h.source)
	if c := checks["roster"]; c.Status == "pass" {
		c.Message = h.source.Name()
		checks["roster"] = c
	}

	// Redis is optional; rate limiting falls back to in-process buckets
	if h.redis != nil {
		checks["redis"] = runCheck(ctx, h.redis)
	} else {
		checks["redis"] = Check{Status: "skip", Message: "not configured"}
	}

	status := "healthy"
	statusCode := http.StatusOK
	for _, c := range checks {
		if c.Status == "fail" {
			status = "degraded"
			statusCode = http.StatusServiceUnavailable
			break
		}
	}

	h.JSON(w, statusCode, HealthResponse{
		Status:         status,
		Version:        version,
		Instance:       os.Getenv("HOSTNAME"),
		Checks:         checks,
		PendingReplies: h.session.PendingReplies(),
		Timestamp:      time.Now().UTC().Format(time.RFC3339),
	})
}

// RootResponse represents the root endpoint response.
type RootResponse struct {
	Name      string   `json:"name"`
	Version   string   `json:"version"`
	Endpoints []string `json:"endpoints"`
}

// Root handles the root endpoint.
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	h.JSON(w, http.StatusOK, RootResponse{
		Name:    "MaarifaHub messages",
		Version: version,
		Endpoints: []string{
			"GET /health",
			"GET /metrics",
			"GET /messages/conversations",
			"POST /messages/conversations",
			"GET /messages/conversations/{id}",
			"POST /messages/conversations/{id}/select",
			"POST /messages/conversations/{id}/messages",
			"GET /notifications",
			"GET /events",
		},
	})
}
