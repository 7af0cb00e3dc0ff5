package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"unicode"

	"github.com/rs/zerolog"

	"github.com/nassor22/maarifaHub/internal/feed"
	"github.com/nassor22/maarifaHub/internal/inbox"
	"github.com/nassor22/maarifaHub/internal/store"
)

const (
	maxMessageBytes = 4096
	maxNameLength   = 100
)

// Handler contains shared dependencies for all HTTP handlers.
type Handler struct {
	session *inbox.Session
	feed    *feed.Feed
	source  store.RosterSource
	redis   *store.RedisStore // nil when Redis is not configured
	logger  zerolog.Logger
}

// NewHandler creates a new Handler around a running session.
func NewHandler(session *inbox.Session, f *feed.Feed, source store.RosterSource, redis *store.RedisStore, logger zerolog.Logger) *Handler {
	return &Handler{session: session, feed: f, source: source, redis: redis, logger: logger}
}

// JSON sends a JSON response with the given status code.
func (h *Handler) JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Error sends a JSON error response with the given status code.
func (h *Handler) Error(w http.ResponseWriter, status int, message string) {
	h.JSON(w, status, map[string]string{"error": message})
}

// sanitizeName trims and limits name to 100 characters, removing control characters.
func sanitizeName(name string) string {
	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, name)
	name = strings.TrimSpace(name)

	if r := []rune(name); len(r) > maxNameLength {
		name = string(r[:maxNameLength])
	}
	return name
}
