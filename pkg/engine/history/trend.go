package history

import (
	"fmt"
	"time"
)

// Trend holds derived signals over the ledger window.
type Trend struct {
	Samples int   `json:"samples"`
	Current Entry `json:"current"`

	FailingVelocity float64 `json:"failingVelocity"` // failing assets per hour
	Acceleration    float64 `json:"acceleration"`    // change of FailingVelocity per hour
	DriftVelocity   float64 `json:"driftVelocity"`   // drift percentage points per hour

	Pattern Pattern  `json:"pattern"`
	Alerts  []string `json:"alerts,omitempty"`
}

// Analyze derives trends from the ledger, oldest entry first. Fewer than two
// entries produce only the current state.
func Analyze(entries []Entry) Trend {
	if len(entries) == 0 {
		return Trend{Pattern: PatternStable}
	}
	current := entries[len(entries)-1]
	t := Trend{Samples: len(entries), Current: current, Pattern: PatternStable}
	if len(entries) < 2 {
		return t
	}
	prev := entries[len(entries)-2]

	hours := current.Timestamp.Sub(prev.Timestamp).Hours()
	if hours <= 0 {
		return t
	}
	t.FailingVelocity = float64(current.Failing-prev.Failing) / hours
	t.DriftVelocity = (current.DriftPercentage - prev.DriftPercentage) / hours

	if len(entries) >= 3 {
		prev2 := entries[len(entries)-3]
		if h2 := prev.Timestamp.Sub(prev2.Timestamp).Hours(); h2 > 0 {
			prevVelocity := float64(prev.Failing-prev2.Failing) / h2
			t.Acceleration = (t.FailingVelocity - prevVelocity) / hours
		}
	}

	t.Pattern = ClassifyPattern(Delta(prev, current))

	if t.FailingVelocity >= 1 {
		t.Alerts = append(t.Alerts, fmt.Sprintf("[CRITICAL] FAILURE SPREAD: +%.1f failing assets per hour", t.FailingVelocity))
	}
	if t.Acceleration > 0.5 {
		t.Alerts = append(t.Alerts, fmt.Sprintf("[WARNING] FAILURE ACCELERATION: failures growing faster (+%.1f/h²)", t.Acceleration))
	}
	if c, p := current.FindingsBySeverity["critical"], prev.FindingsBySeverity["critical"]; c > p {
		t.Alerts = append(t.Alerts, fmt.Sprintf("[WARNING] NEW CRITICAL FINDINGS: %d -> %d", p, c))
	}
	if t.DriftVelocity > 5 {
		t.Alerts = append(t.Alerts, fmt.Sprintf("[WARNING] DRIFT GROWTH: +%.1f%% of baseline per hour", t.DriftVelocity))
	}
	return t
}

// Since is the age of the current entry relative to now.
func (t Trend) Since(now time.Time) time.Duration {
	if t.Samples == 0 {
		return 0
	}
	return now.Sub(t.Current.Timestamp)
}
