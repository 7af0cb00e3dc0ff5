package handlers

import (
	"net/http"

	"github.com/nassor22/maarifaHub/internal/models"
)

// NotificationsResponse is the notification feed with its bell badge count.
type NotificationsResponse struct {
	Notifications []models.Notification `json:"notifications"`
	Unread        int                   `json:"unread"`
}

// ListNotifications returns the notification feed.
func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	h.JSON(w, http.StatusOK, NotificationsResponse{
		Notifications: h.feed.List(),
		Unread:        h.feed.UnreadCount(),
	})
}
