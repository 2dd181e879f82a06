package legray

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/floats"
)

// Model B1, table 4.
const (
	Beta0 = 1.783
	Beta1 = 0.025
	Beta2 = -0.0552 // per cut number
)

// Window selects which days of the ETA series belong to a cut.
type Window int

const (
	// WindowInclusive sums from the previous cut (or the first day) through
	// the cut day itself.
	WindowInclusive Window = iota
	// WindowExclusive stops the day before the cut, so a cut on the very
	// first day has an empty window.
	WindowExclusive
)

func (w Window) String() string {
	if w == WindowExclusive {
		return "exclusive"
	}
	return "inclusive"
}

// ParseWindow accepts "", "inclusive" and "exclusive".
func ParseWindow(s string) (Window, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "inclusive":
		return WindowInclusive, nil
	case "exclusive":
		return WindowExclusive, nil
	default:
		return WindowInclusive, fmt.Errorf("unknown window %q", s)
	}
}

// Yield is eq. 12. The result is not clamped.
func Yield(sumETA float64, cn int) float64 {
	return Beta0 + Beta1*sumETA + Beta2*float64(cn)
}

// SumETA adds eta[start..end], both ends included. An empty range
// (start > end) sums to 0.
func SumETA(eta []float64, start, end int) (float64, error) {
	if start > end {
		return 0, nil
	}
	if start < 0 || end >= len(eta) {
		return 0, fmt.Errorf("%w: [%d, %d] over %d days", ErrWindowRange, start, end, len(eta))
	}
	return floats.Sum(eta[start : end+1]), nil
}

// YieldAtCut evaluates the yield of the window eta[start..end] for cut number cn.
func YieldAtCut(eta []float64, start, end, cn int) (float64, error) {
	sum, err := SumETA(eta, start, end)
	if err != nil {
		return 0, err
	}
	return Yield(sum, cn), nil
}
