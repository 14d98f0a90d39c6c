// Package scoring holds the pure scoring algorithms of the pipeline. Nothing
// here performs I/O; scouts feed it data and publish what it returns.
package scoring

import "math"

// Confidence is a qualitative indicator of how much data supported a score.
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

func clampScore(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
