// Package util holds small numeric helpers.
package util

import "math"

// AsInt32 clamps i into the int32 range. Counts in API responses are int32.
func AsInt32(i int) int32 {
	if i > math.MaxInt32 {
		return math.MaxInt32
	}
	if i < math.MinInt32 {
		return math.MinInt32
	}
	// #nosec G115 - bounded by explicit check
	return int32(i)
}
