package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nassor22/maarifaHub/internal/inbox"
	"github.com/nassor22/maarifaHub/internal/models"
)

// ConversationListResponse is the conversation directory.
type ConversationListResponse struct {
	Active        string                `json:"active"`
	Conversations []models.Conversation `json:"conversations"`
}

// ConversationResponse is one conversation with its full log.
type ConversationResponse struct {
	Conversation models.Conversation `json:"conversation"`
	Messages     []models.Message    `json:"messages"`
}

// StartConversationRequest represents the start conversation request.
type StartConversationRequest struct {
	ParticipantName string `json:"participantName"`
}

// SendMessageRequest represents the send message request.
type SendMessageRequest struct {
	Content string `json:"content"`
}

// SendMessageResponse represents the send message response.
type SendMessageResponse struct {
	Message models.Message `json:"message"`
}

// ListConversations returns the directory in display order.
func (h *Handler) ListConversations(w http.ResponseWriter, r *http.Request) {
	h.JSON(w, http.StatusOK, ConversationListResponse{
		Active:        h.session.Active(),
		Conversations: h.session.Conversations(),
	})
}

// StartConversation adds a conversation with a new counterpart.
func (h *Handler) StartConversation(w http.ResponseWriter, r *http.Request) {
	var req StartConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	name := sanitizeName(req.ParticipantName)
	if name == "" {
		h.Error(w, http.StatusBadRequest, "participantName is required")
		return
	}

	c, err := h.session.StartConversation(name)
	if err != nil {
		h.logger.Error().Err(err).Msg("start conversation failed")
		h.Error(w, http.StatusInternalServerError, "failed to start conversation")
		return
	}

	h.JSON(w, http.StatusCreated, c)
}

// GetConversation returns one conversation and its messages.
func (h *Handler) GetConversation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	c, err := h.session.Conversation(id)
	if err != nil {
		h.conversationError(w, err)
		return
	}
	msgs, err := h.session.Messages(id)
	if err != nil {
		h.conversationError(w, err)
		return
	}

	h.JSON(w, http.StatusOK, ConversationResponse{Conversation: c, Messages: msgs})
}

// SelectConversation makes a conversation active and clears its unread count.
func (h *Handler) SelectConversation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.session.SelectConversation(id); err != nil {
		h.conversationError(w, err)
		return
	}
	c, err := h.session.Conversation(id)
	if err != nil {
		h.conversationError(w, err)
		return
	}

	h.JSON(w, http.StatusOK, c)
}

// SendMessage selects the conversation and posts a message to it.
// A blank body is dropped and answered with 204.
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(req.Content) > maxMessageBytes {
		h.Error(w, http.StatusUnprocessableEntity, "message too long (max 4096 bytes)")
		return
	}

	msg, ok, err := h.session.SendMessageTo(id, req.Content)
	if err != nil {
		h.conversationError(w, err)
		return
	}
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	h.JSON(w, http.StatusCreated, SendMessageResponse{Message: msg})
}

func (h *Handler) conversationError(w http.ResponseWriter, err error) {
	if errors.Is(err, inbox.ErrUnknownConversation) {
		h.Error(w, http.StatusNotFound, "conversation not found")
		return
	}
	h.logger.Error().Err(err).Msg("conversation request failed")
	h.Error(w, http.StatusInternalServerError, "internal error")
}
