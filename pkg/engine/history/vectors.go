package history

import (
	"math"
)

// Vector is a change between two ledger entries over the dimensions
// (failing, critical findings, high findings, drift in tens of percent).
type Vector []float64

// Pattern names the shape of a change.
type Pattern string

const (
	PatternStable     Pattern = "STABLE"
	PatternDegrading  Pattern = "DEGRADING"
	PatternRecovering Pattern = "RECOVERING"
	PatternDrift      Pattern = "CONFIG_DRIFT"
	PatternMixed      Pattern = "MIXED"
)

var (
	// Outages spread: more failing assets and more severe findings.
	degrading = Normalize(Vector{1.0, 0.5, 1.0, 0.2})

	// Configuration walks away from the baseline without new failures.
	drifting = Normalize(Vector{0.0, 0.1, 0.2, 1.0})
)

// Delta is the change vector from a to b.
func Delta(a, b Entry) Vector {
	return Vector{
		float64(b.Failing - a.Failing),
		float64(b.FindingsBySeverity["critical"] - a.FindingsBySeverity["critical"]),
		float64(b.FindingsBySeverity["high"] - a.FindingsBySeverity["high"]),
		(b.DriftPercentage - a.DriftPercentage) / 10,
	}
}

// Normalize scales the vector to unit length.
func Normalize(v Vector) Vector {
	magnitude := math.Sqrt(DotProduct(v, v))
	if magnitude == 0 {
		return v
	}
	result := make(Vector, len(v))
	for i, x := range v {
		result[i] = x / magnitude
	}
	return result
}

// DotProduct returns 0 for vectors of different length.
func DotProduct(a, b Vector) float64 {
	if len(a) != len(b) {
		return 0
	}
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// CosineSimilarity is 0 when either vector is zero.
func CosineSimilarity(a, b Vector) float64 {
	magA := math.Sqrt(DotProduct(a, a))
	magB := math.Sqrt(DotProduct(b, b))
	if magA == 0 || magB == 0 {
		return 0
	}
	return DotProduct(a, b) / (magA * magB)
}

// ClassifyPattern matches a change vector against the known shapes.
func ClassifyPattern(v Vector) Pattern {
	if DotProduct(v, v) == 0 {
		return PatternStable
	}
	switch sim := CosineSimilarity(v, degrading); {
	case sim > 0.8:
		return PatternDegrading
	case sim < -0.8:
		return PatternRecovering
	}
	if CosineSimilarity(v, drifting) > 0.8 {
		return PatternDrift
	}
	return PatternMixed
}
