package query

import (
	"fmt"
	"math"
)

// FormatRemaining renders a millisecond duration as [-]HH:MM:SS. Hours are
// not capped at 24.
func FormatRemaining(ms int64) string {
	sign := ""
	if ms < 0 {
		sign = "-"
		ms = -ms
		if ms < 0 {
			ms = math.MaxInt64
		}
	}
	totalSeconds := ms / 1000
	hours := totalSeconds / 3600
	minutes := (totalSeconds % 3600) / 60
	seconds := totalSeconds % 60
	return fmt.Sprintf("%s%02d:%02d:%02d", sign, hours, minutes, seconds)
}
