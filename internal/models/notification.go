package models

// NotificationCategory classifies a notification for display.
type NotificationCategory string

const (
	CategoryMessage NotificationCategory = "message"
	CategoryAnswer  NotificationCategory = "answer"
	CategoryUpvote  NotificationCategory = "upvote"
	CategoryOther   NotificationCategory = "other"
)

// ParseCategory maps a stored category name to a known category.
// Unrecognized names fall back to CategoryOther.
func ParseCategory(s string) NotificationCategory {
	switch c := NotificationCategory(s); c {
	case CategoryMessage, CategoryAnswer, CategoryUpvote:
		return c
	default:
		return CategoryOther
	}
}

// Notification represents a system notification shown in the feed.
type Notification struct {
	ID        string               `json:"id"`
	Category  NotificationCategory `json:"type"`
	Text      string               `json:"text"`
	TimeLabel string               `json:"time"`
	Unread    bool                 `json:"unread"`
}
