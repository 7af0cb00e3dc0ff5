package inbox

import "github.com/nassor22/maarifaHub/internal/models"

// EventKind names a session mutation.
type EventKind string

const (
	EventSent     EventKind = "sent"
	EventReceived EventKind = "received"
	EventSelected EventKind = "selected"
	EventStarted  EventKind = "started"
)

// Event is published to subscribers after every session mutation.
type Event struct {
	Kind           EventKind
	ConversationID string
	Message        *models.Message // nil for selected/started
	Unread         int             // unread count of ConversationID after the change
}
