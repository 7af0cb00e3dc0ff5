package inbox

import (
	"github.com/nassor22/maarifaHub/internal/models"
)

// MessageStore holds the ordered message log of every conversation.
// It is owned by a Session and is not safe for concurrent use on its own.
type MessageStore struct {
	logs map[string][]models.Message
}

// NewMessageStore creates an empty message store.
func NewMessageStore() *MessageStore {
	return &MessageStore{logs: make(map[string][]models.Message)}
}

// Append stores msg at the end of the conversation log and returns the
// stored copy. The message receives the next local sequence id: one more
// than the highest existing id, or 1 for an empty log.
func (s *MessageStore) Append(conversationID string, msg models.Message) models.Message {
	log := s.logs[conversationID]

	next := int64(1)
	if n := len(log); n > 0 {
		// ids only grow, so the tail holds the maximum
		next = log[n-1].ID + 1
	}

	msg.ID = next
	msg.ConversationID = conversationID
	s.logs[conversationID] = append(log, msg)
	return msg
}

// ListFor returns a copy of the conversation log in insertion order.
func (s *MessageStore) ListFor(conversationID string) []models.Message {
	log := s.logs[conversationID]
	out := make([]models.Message, len(log))
	copy(out, log)
	return out
}

// Len returns the number of messages in the conversation log.
func (s *MessageStore) Len(conversationID string) int {
	return len(s.logs[conversationID])
}
