package middleware

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

// AuthMiddleware checks bearer tokens against a bcrypt hash.
type AuthMiddleware struct {
	hash   []byte
	logger zerolog.Logger

	mu       sync.RWMutex
	verified map[string]bool // sha256 of tokens that passed bcrypt
}

// NewAuthMiddleware creates a new auth middleware. An empty hash disables
// the check.
func NewAuthMiddleware(tokenHash string, logger zerolog.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		hash:     []byte(tokenHash),
		logger:   logger,
		verified: make(map[string]bool),
	}
}

// Enabled reports whether requests are checked.
func (m *AuthMiddleware) Enabled() bool {
	return len(m.hash) > 0
}

// RequireAuth rejects requests without a valid Authorization: Bearer token.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.Enabled() {
			next.ServeHTTP(w, r)
			return
		}

		token, ok := bearerToken(r)
		if !ok {
			jsonError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		if !m.check(token) {
			m.logger.Warn().
				Str("type", "security").
				Str("event", "invalid_token").
				Str("ip", RealIP(r)).
				Str("endpoint", r.URL.Path).
				Msg("rejected bearer token")
			jsonError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// check verifies token, remembering tokens that already passed so bcrypt
// runs once per distinct token.
func (m *AuthMiddleware) check(token string) bool {
	key := sha256Hex([]byte(token))

	m.mu.RLock()
	ok := m.verified[key]
	m.mu.RUnlock()
	if ok {
		return true
	}

	if err := bcrypt.CompareHashAndPassword(m.hash, []byte(token)); err != nil {
		return false
	}

	m.mu.Lock()
	m.verified[key] = true
	m.mu.Unlock()
	return true
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(h, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func sha256Hex(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

func jsonError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
