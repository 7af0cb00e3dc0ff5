package api

import (
	"encoding/json"
	"io"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/nassor22/maarifaHub/internal/feed"
	"github.com/nassor22/maarifaHub/internal/handlers"
	"github.com/nassor22/maarifaHub/internal/inbox"
	"github.com/nassor22/maarifaHub/internal/store"
)

func newTestServer(t *testing.T, tokenHash string) (*httptest.Server, *inbox.VirtualScheduler) {
	t.Helper()

	fixtures, err := store.LoadFixtures("")
	require.NoError(t, err)
	src, err := store.NewFixtureStore(fixtures)
	require.NoError(t, err)

	sched := inbox.NewVirtualScheduler(time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC))
	session, err := inbox.NewSession(fixtures.Roster(), inbox.Options{
		Scheduler: sched,
		Rand:      rand.New(rand.NewSource(1)),
		Logger:    zerolog.Nop(),
	})
	require.NoError(t, err)
	t.Cleanup(session.Close)

	h := handlers.NewHandler(session, feed.New(fixtures.NotificationList()), src, nil, zerolog.Nop())
	srv := httptest.NewServer(NewRouter(zerolog.Nop(), h, Options{AuthTokenHash: tokenHash}))
	t.Cleanup(srv.Close)
	return srv, sched
}

func request(t *testing.T, method, url, token, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestRouterConversationFlow(t *testing.T) {
	srv, sched := newTestServer(t, "")

	resp := request(t, http.MethodGet, srv.URL+"/messages/conversations", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.NotEmpty(t, resp.Header.Get("X-RateLimit-Limit"))

	resp = request(t, http.MethodPost, srv.URL+"/messages/conversations/conv2/messages", "", `{"content":"Hello"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	sched.Advance(inbox.DefaultReplyMaxDelay)

	resp = request(t, http.MethodGet, srv.URL+"/messages/conversations/conv2", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body handlers.ConversationResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Messages, 2)
	assert.True(t, body.Messages[0].SenderIsSelf)
	assert.False(t, body.Messages[1].SenderIsSelf)
}

func TestRouterRequiresToken(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("letmein"), bcrypt.MinCost)
	require.NoError(t, err)
	srv, _ := newTestServer(t, string(hash))

	// reads stay public
	resp := request(t, http.MethodGet, srv.URL+"/messages/conversations", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = request(t, http.MethodPost, srv.URL+"/messages/conversations/conv1/select", "", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = request(t, http.MethodPost, srv.URL+"/messages/conversations/conv1/select", "wrong", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = request(t, http.MethodPost, srv.URL+"/messages/conversations/conv1/select", "letmein", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = request(t, http.MethodPost, srv.URL+"/messages/conversations", "letmein", `{"participantName":"Grace"}`)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestRouterMetricsAndHealth(t *testing.T) {
	srv, _ := newTestServer(t, "")

	request(t, http.MethodGet, srv.URL+"/messages/conversations/conv1", "", "")

	resp := request(t, http.MethodGet, srv.URL+"/health", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = request(t, http.MethodGet, srv.URL+"/metrics", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var sb strings.Builder
	_, err := io.Copy(&sb, resp.Body)
	require.NoError(t, err)
	assert.Contains(t, sb.String(), `maarifa_http_requests_total`)
	assert.Contains(t, sb.String(), `path="/messages/conversations/{id}"`)
}

func TestRouterRejectsNonJSON(t *testing.T) {
	srv, _ := newTestServer(t, "")

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/messages/conversations", strings.NewReader("name=x"))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode)
}
