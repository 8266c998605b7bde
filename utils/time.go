package utils

import (
	"fmt"
	"time"
)

// FormatDuration formats a track length as M:SS, or H:MM:SS once it passes an hour.
// A zero or negative duration is reported as "Unknown".
func FormatDuration(d time.Duration) string {
	if d <= 0 {
		return "Unknown"
	}
	total := int(d.Seconds())
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60
	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%d:%02d", minutes, seconds)
}
