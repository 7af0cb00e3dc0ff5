package models

import "time"

// Message represents one entry in a conversation log.
type Message struct {
	ID             int64     `json:"id"` // Sequence within the conversation
	ConversationID string    `json:"conversationId"`
	SenderIsSelf   bool      `json:"isOwn"`
	Body           string    `json:"text"`
	SentAtLabel    string    `json:"time"`
	SentAt         time.Time `json:"sentAt,omitempty"`
}

// SenderLabel returns the display name for the message author.
func (m Message) SenderLabel(counterpart string) string {
	if m.SenderIsSelf {
		return "You"
	}
	return counterpart
}
