package app

import (
	"fmt"
	"time"
)

// formatRelative renders a message timestamp for the transcript meta line.
func formatRelative(at time.Time, now time.Time) string {
	if at.IsZero() {
		return ""
	}
	if now.IsZero() {
		now = time.Now()
	}
	delta := now.Sub(at)
	if delta < 0 {
		delta = 0
	}
	if delta < 30*time.Second {
		return "just now"
	}
	if delta < time.Minute {
		secs := int(delta.Round(time.Second).Seconds())
		if secs <= 1 {
			return "1 second ago"
		}
		return fmt.Sprintf("%d seconds ago", secs)
	}
	if delta < time.Hour {
		minutes := int(delta.Round(time.Minute).Minutes())
		if minutes <= 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", minutes)
	}
	if delta < 24*time.Hour {
		hours := int(delta.Round(time.Hour).Hours())
		if hours <= 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", hours)
	}
	days := int(delta.Round(24*time.Hour).Hours() / 24)
	if days <= 1 {
		return "1 day ago"
	}
	return fmt.Sprintf("%d days ago", days)
}
