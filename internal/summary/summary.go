// Package summary turns stored report rows into the numbers shown on the
// dashboard. Every view and API goes through these functions so the rounding
// and bucketing rules live in one place.
package summary

import "math"

// Percent returns round(part/total*100), or 0 when total is not positive.
func Percent(part, total int) int {
	if total <= 0 {
		return 0
	}
	return RatioPercent(float64(part) / float64(total))
}

// RatioPercent returns round(ratio*100).
func RatioPercent(ratio float64) int {
	if math.IsNaN(ratio) || math.IsInf(ratio, 0) {
		return 0
	}
	return int(math.Round(ratio * 100))
}
