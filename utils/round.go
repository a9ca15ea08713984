package utils

import "math"

// RoundTo rounds v half away from zero to the given number of decimals.
func RoundTo(v float64, digits int) float64 {
	p := math.Pow(10, float64(digits))
	return math.Round(v*p) / p
}

// Percent returns 100*part/total rounded to digits decimals, or 0 when total
// is not positive.
func Percent(part, total float64, digits int) float64 {
	if total <= 0 {
		return 0
	}
	return RoundTo(100*part/total, digits)
}
