package handlers

import (
	"net/http"
	"strconv"

	"github.com/nassor22/maarifaHub/internal/store"
)

const defaultEventLimit = 50

// EventsResponse is the recent session activity mirrored into Redis.
type EventsResponse struct {
	Events []store.EventRecord `json:"events"`
}

// RecentEvents returns session events, newest first. The history lives in
// Redis, so the route answers 503 without it.
func (h *Handler) RecentEvents(w http.ResponseWriter, r *http.Request) {
	if h.redis == nil {
		h.Error(w, http.StatusServiceUnavailable, "event history requires Redis")
		return
	}

	limit := defaultEventLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			h.Error(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	events, err := h.redis.RecentEvents(r.Context(), limit)
	if err != nil {
		h.logger.Error().Err(err).Msg("recent events read failed")
		h.Error(w, http.StatusInternalServerError, "failed to read events")
		return
	}
	h.JSON(w, http.StatusOK, EventsResponse{Events: events})
}
