package route

import "fmt"

const metersPerMile = 1609.34

// FormatDistance renders meters as miles with one decimal, e.g. "12.3 mi".
func FormatDistance(meters int) string {
	return fmt.Sprintf("%.1f mi", float64(meters)/metersPerMile)
}

// FormatDuration renders seconds as "{h}h {m}m", or "{m}m" under an hour.
func FormatDuration(seconds int) string {
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}
