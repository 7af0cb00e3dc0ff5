package maarifa

import (
	"context"
	"errors"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nassor22/maarifaHub/internal/api"
	"github.com/nassor22/maarifaHub/internal/feed"
	"github.com/nassor22/maarifaHub/internal/handlers"
	"github.com/nassor22/maarifaHub/internal/inbox"
	"github.com/nassor22/maarifaHub/internal/store"
)

func newServer(t *testing.T) (*Client, *inbox.VirtualScheduler) {
	t.Helper()

	fixtures, err := store.LoadFixtures("")
	require.NoError(t, err)
	src, err := store.NewFixtureStore(fixtures)
	require.NoError(t, err)

	sched := inbox.NewVirtualScheduler(time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC))
	session, err := inbox.NewSession(fixtures.Roster(), inbox.Options{
		Scheduler: sched,
		Rand:      rand.New(rand.NewSource(5)),
		Logger:    zerolog.Nop(),
	})
	require.NoError(t, err)
	t.Cleanup(session.Close)

	h := handlers.NewHandler(session, feed.New(fixtures.NotificationList()), src, nil, zerolog.Nop())
	srv := httptest.NewServer(api.NewRouter(zerolog.Nop(), h, api.Options{}))
	t.Cleanup(srv.Close)

	return NewClient(srv.URL+"/", "token"), sched
}

func TestClientConversationFlow(t *testing.T) {
	ctx := context.Background()
	c, sched := newServer(t)

	list, err := c.Conversations(ctx)
	require.NoError(t, err)
	assert.Equal(t, "conv1", list.Active)
	require.Len(t, list.Conversations, 3)

	conv, err := c.Select(ctx, "conv3")
	require.NoError(t, err)
	assert.Equal(t, 0, conv.UnreadCount)

	msg, err := c.SendMessage(ctx, "conv3", "Habari Mary")
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, "Habari Mary", msg.Body)

	msg, err = c.SendMessage(ctx, "conv3", "   ")
	require.NoError(t, err)
	assert.Nil(t, msg)

	sched.Advance(inbox.DefaultReplyMaxDelay)

	detail, err := c.Messages(ctx, "conv3")
	require.NoError(t, err)
	require.Len(t, detail.Messages, 2)
	assert.Equal(t, "You", detail.Messages[0].SenderLabel(detail.Conversation.CounterpartName))
	assert.Equal(t, "Mary Wanjiru", detail.Messages[1].SenderLabel(detail.Conversation.CounterpartName))

	started, err := c.StartConversation(ctx, "Grace Achieng")
	require.NoError(t, err)
	assert.Equal(t, "Grace Achieng", started.CounterpartName)

	notes, err := c.Notifications(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, notes.Unread)

	health, err := c.Health(ctx)
	require.NoError(t, err)
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "pass", health.Checks["roster"].Status)
}

func TestClientAPIError(t *testing.T) {
	c, _ := newServer(t)

	_, err := c.Messages(context.Background(), "missing")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "conversation not found", apiErr.Message)
}

func TestClientDefaultErrorMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("<html>bad gateway</html>"))
	}))
	defer srv.Close()

	err := NewClient(srv.URL, "").Call(context.Background(), "/x", http.MethodGet, nil, nil)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, DefaultErrorMessage, apiErr.Message)
	assert.Equal(t, "maarifa error 502: Something went wrong", apiErr.Error())
}

func TestClientSendsBearerToken(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	require.NoError(t, NewClient(srv.URL, "abc").Call(context.Background(), "/", http.MethodGet, nil, nil))
	assert.Equal(t, "Bearer abc", got)

	require.NoError(t, NewClient(srv.URL, "").Call(context.Background(), "/", http.MethodGet, nil, nil))
	assert.Empty(t, got)
}

func TestClientTransportErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	url := srv.URL

	var out map[string]any
	err := NewClient(url, "").Call(context.Background(), "/", http.MethodGet, nil, &out)
	var tErr *TransportError
	require.ErrorAs(t, err, &tErr)
	assert.Equal(t, "decode", tErr.Op)

	srv.Close()
	err = NewClient(url, "").Call(context.Background(), "/", http.MethodGet, nil, nil)
	require.ErrorAs(t, err, &tErr)
	assert.Equal(t, "send", tErr.Op)

	var apiErr *APIError
	assert.False(t, errors.As(err, &apiErr))

	err = NewClient(url, "").Call(context.Background(), "/", http.MethodPost, func() {}, nil)
	require.ErrorAs(t, err, &tErr)
	assert.Equal(t, "encode", tErr.Op)
}

func TestClientEventsNeedRedis(t *testing.T) {
	c, _ := newServer(t)

	_, err := c.Events(context.Background(), 10)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.Status)
	assert.Equal(t, "event history requires Redis", apiErr.Message)
}
