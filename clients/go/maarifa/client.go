// Package maarifa provides a client for the MaarifaHub messages API.
package maarifa

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/nassor22/maarifaHub/internal/models"
)

// DefaultErrorMessage is reported when the server gives no error text.
const DefaultErrorMessage = "Something went wrong"

// APIError is an error response from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("maarifa error %d: %s", e.Status, e.Message)
}

// TransportError is a failure to reach the server or to read its reply.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("maarifa %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Client is a MaarifaHub API client.
type Client struct {
	BaseURL    string
	Token      string // sent as a bearer token when set
	HTTPClient *http.Client
}

// NewClient creates a new client.
func NewClient(baseURL, token string) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		Token:      token,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Call sends body as JSON to path and decodes the response into out.
// A nil body sends no payload; a nil out discards the response.
func (c *Client) Call(ctx context.Context, path, method string, body, out any) error {
	var payload io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &TransportError{Op: "encode", Err: err}
		}
		payload = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, payload)
	if err != nil {
		return &TransportError{Op: "request", Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return &TransportError{Op: "send", Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Op: "read", Err: err}
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(respBody, &errResp)
		msg := errResp.Error
		if msg == "" {
			msg = DefaultErrorMessage
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return &TransportError{Op: "decode", Err: err}
	}
	return nil
}

// ConversationList is the conversation directory.
type ConversationList struct {
	Active        string                `json:"active"`
	Conversations []models.Conversation `json:"conversations"`
}

// ConversationDetail is one conversation with its log.
type ConversationDetail struct {
	Conversation models.Conversation `json:"conversation"`
	Messages     []models.Message    `json:"messages"`
}

// NotificationFeed is the notification list with the bell badge count.
type NotificationFeed struct {
	Notifications []models.Notification `json:"notifications"`
	Unread        int                   `json:"unread"`
}

// Health is the server health report.
type Health struct {
	Status         string `json:"status"`
	Version        string `json:"version"`
	PendingReplies int    `json:"pendingReplies"`
	Checks         map[string]struct {
		Status  string `json:"status"`
		Latency string `json:"latency,omitempty"`
		Message string `json:"message,omitempty"`
	} `json:"checks"`
}

func conversationPath(id string, rest ...string) string {
	p := "/messages/conversations/" + url.PathEscape(id)
	for _, r := range rest {
		p += "/" + r
	}
	return p
}

// Conversations fetches the conversation directory.
func (c *Client) Conversations(ctx context.Context) (*ConversationList, error) {
	var resp ConversationList
	if err := c.Call(ctx, "/messages/conversations", http.MethodGet, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Messages fetches a conversation and its messages.
func (c *Client) Messages(ctx context.Context, conversationID string) (*ConversationDetail, error) {
	var resp ConversationDetail
	if err := c.Call(ctx, conversationPath(conversationID), http.MethodGet, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Select makes a conversation active.
func (c *Client) Select(ctx context.Context, conversationID string) (*models.Conversation, error) {
	var resp models.Conversation
	if err := c.Call(ctx, conversationPath(conversationID, "select"), http.MethodPost, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SendMessage posts a message to a conversation. It returns nil without an
// error when the server dropped a blank message.
func (c *Client) SendMessage(ctx context.Context, conversationID, content string) (*models.Message, error) {
	var resp struct {
		Message *models.Message `json:"message"`
	}
	req := map[string]string{"content": content}
	if err := c.Call(ctx, conversationPath(conversationID, "messages"), http.MethodPost, req, &resp); err != nil {
		return nil, err
	}
	return resp.Message, nil
}

// StartConversation opens a conversation with a new participant.
func (c *Client) StartConversation(ctx context.Context, participantName string) (*models.Conversation, error) {
	var resp models.Conversation
	req := map[string]string{"participantName": participantName}
	if err := c.Call(ctx, "/messages/conversations", http.MethodPost, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Notifications fetches the notification feed.
func (c *Client) Notifications(ctx context.Context) (*NotificationFeed, error) {
	var resp NotificationFeed
	if err := c.Call(ctx, "/notifications", http.MethodGet, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Event is one entry of the server's recent activity log.
type Event struct {
	ID             string `json:"id"`
	Kind           string `json:"kind"`
	ConversationID string `json:"conversationId"`
	MessageID      int64  `json:"messageId,omitempty"`
	Unread         int    `json:"unread"`
	Timestamp      int64  `json:"ts"` // unix milliseconds
}

// Events fetches up to limit recent session events, newest first. Servers
// without Redis answer 503.
func (c *Client) Events(ctx context.Context, limit int) ([]Event, error) {
	path := "/events"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var resp struct {
		Events []Event `json:"events"`
	}
	if err := c.Call(ctx, path, http.MethodGet, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Events, nil
}

// Health checks server health. A degraded server answers 503, which is
// returned as an *APIError.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	var resp Health
	if err := c.Call(ctx, "/health", http.MethodGet, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
