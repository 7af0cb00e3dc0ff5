package inbox

import "time"

// ActivityJustNow is the recency label written on every new message.
const ActivityJustNow = "Just now"

// SentAtLabel formats a message timestamp the way the chat view shows it.
func SentAtLabel(t time.Time) string {
	return t.Format("3:04 PM")
}
