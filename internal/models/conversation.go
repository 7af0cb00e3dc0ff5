package models

import "time"

// Conversation represents a chat thread between the local user and one counterpart.
type Conversation struct {
	ID                 string    `json:"id"`
	CounterpartName    string    `json:"name"`
	LastMessagePreview string    `json:"lastMessage"`
	LastActivityLabel  string    `json:"time"`
	LastActivityAt     time.Time `json:"lastActivityAt,omitempty"`
	UnreadCount        int       `json:"unread"`
}
