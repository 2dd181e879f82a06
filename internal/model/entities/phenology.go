package entities

import "time"

// GrowthThresholdC is the mean air temperature (°C) below which the sward does
// not transpire.
const GrowthThresholdC = 5.0

// Dormant reports whether the sward is dormant in month m (November through
// February).
func Dormant(m time.Month) bool {
	switch m {
	case time.November, time.December, time.January, time.February:
		return true
	default:
		return false
	}
}

// Growing reports whether a day with mean temperature t in month m can
// transpire at all.
func Growing(m time.Month, t float64) bool {
	return !Dormant(m) && t >= GrowthThresholdC
}
