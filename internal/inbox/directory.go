package inbox

import (
	"fmt"
	"time"

	"github.com/nassor22/maarifaHub/internal/models"
)

// Directory lists conversations with their summary fields in insertion
// order. Entries are never re-sorted by recency. It is owned by a Session
// and is not safe for concurrent use on its own.
type Directory struct {
	order   []string
	entries map[string]*models.Conversation
	active  string
}

// NewDirectory creates an empty directory.
func NewDirectory() *Directory {
	return &Directory{entries: make(map[string]*models.Conversation)}
}

// Add appends a conversation to the end of the directory.
func (d *Directory) Add(c models.Conversation) error {
	if _, ok := d.entries[c.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateConversation, c.ID)
	}
	entry := c
	if entry.UnreadCount < 0 {
		entry.UnreadCount = 0
	}
	d.entries[c.ID] = &entry
	d.order = append(d.order, c.ID)
	return nil
}

// List returns a copy of every conversation in insertion order.
func (d *Directory) List() []models.Conversation {
	out := make([]models.Conversation, 0, len(d.order))
	for _, id := range d.order {
		out = append(out, *d.entries[id])
	}
	return out
}

// Get returns a copy of one conversation.
func (d *Directory) Get(id string) (models.Conversation, bool) {
	c, ok := d.entries[id]
	if !ok {
		return models.Conversation{}, false
	}
	return *c, true
}

// Has reports whether id names a conversation in the directory.
func (d *Directory) Has(id string) bool {
	_, ok := d.entries[id]
	return ok
}

// First returns the id of the first conversation, or "" if empty.
func (d *Directory) First() string {
	if len(d.order) == 0 {
		return ""
	}
	return d.order[0]
}

// Len returns the number of conversations.
func (d *Directory) Len() int {
	return len(d.order)
}

// Active returns the id of the focused conversation.
func (d *Directory) Active() string {
	return d.active
}

// SetActive marks id as the focused conversation.
func (d *Directory) SetActive(id string) error {
	if _, err := d.lookup(id); err != nil {
		return err
	}
	d.active = id
	return nil
}

// UpdateSummary overwrites the preview and activity label. Last write wins.
func (d *Directory) UpdateSummary(id, preview, activityLabel string) error {
	c, err := d.lookup(id)
	if err != nil {
		return err
	}
	c.LastMessagePreview = preview
	c.LastActivityLabel = activityLabel
	return nil
}

// Touch records the instant of the latest activity.
func (d *Directory) Touch(id string, at time.Time) error {
	c, err := d.lookup(id)
	if err != nil {
		return err
	}
	c.LastActivityAt = at
	return nil
}

// IncrementUnread bumps the unread count unless id is the active conversation.
func (d *Directory) IncrementUnread(id string) error {
	c, err := d.lookup(id)
	if err != nil {
		return err
	}
	if id == d.active {
		return nil
	}
	c.UnreadCount++
	return nil
}

// ClearUnread resets the unread count to zero.
func (d *Directory) ClearUnread(id string) error {
	c, err := d.lookup(id)
	if err != nil {
		return err
	}
	c.UnreadCount = 0
	return nil
}

// TotalUnread sums unread counts across all conversations.
func (d *Directory) TotalUnread() int {
	total := 0
	for _, c := range d.entries {
		total += c.UnreadCount
	}
	return total
}

func (d *Directory) lookup(id string) (*models.Conversation, error) {
	c, ok := d.entries[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownConversation, id)
	}
	return c, nil
}
