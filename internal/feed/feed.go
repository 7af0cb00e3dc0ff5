// Package feed holds the notification list shown behind the bell icon.
package feed

import (
	"sync"

	"github.com/nassor22/maarifaHub/internal/models"
)

// Feed is a read-only notification list plus the open/closed state of the
// overlay that displays it. It never touches conversations or messages.
type Feed struct {
	mu    sync.RWMutex
	items []models.Notification
	open  bool
}

// New returns a closed feed over a copy of items.
func New(items []models.Notification) *Feed {
	cp := make([]models.Notification, len(items))
	copy(cp, items)
	return &Feed{items: cp}
}

// List returns the notifications in load order.
func (f *Feed) List() []models.Notification {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make([]models.Notification, len(f.items))
	copy(out, f.items)
	return out
}

// UnreadCount counts notifications flagged unread at load time.
// The flag is never cleared.
func (f *Feed) UnreadCount() int {
	f.mu.RLock()
	defer f.mu.RUnlock()

	n := 0
	for _, it := range f.items {
		if it.Unread {
			n++
		}
	}
	return n
}

// Toggle flips the overlay and reports whether it is now open.
func (f *Feed) Toggle() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.open = !f.open
	return f.open
}

// Dismiss closes the overlay. It is called for any interaction outside it.
func (f *Feed) Dismiss() {
	f.mu.Lock()
	f.open = false
	f.mu.Unlock()
}

func (f *Feed) IsOpen() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.open
}
