package history

import (
	"context"
	"fmt"
	"time"
)

// SeedDemo fills backend with a day of hourly entries: a stable plant that
// degrades over the final two hours. It backs the --mock history view.
func SeedDemo(ctx context.Context, backend Backend, now time.Time) error {
	start := now.Add(-24 * time.Hour).Truncate(time.Hour)
	for i := 0; i < 22; i++ {
		e := Entry{
			Timestamp:          start.Add(time.Duration(i) * time.Hour),
			RunID:              fmt.Sprintf("demo-%02d", i),
			SnapshotVersion:    uint64(i + 1),
			Assets:             17,
			Failing:            1,
			FindingsBySeverity: map[string]int{"low": 2, "medium": 3, "high": 1, "critical": 0},
			DriftPercentage:    25,
		}
		if err := backend.Append(ctx, e); err != nil {
			return err
		}
	}

	spike := []Entry{
		{Failing: 3, FindingsBySeverity: map[string]int{"low": 2, "medium": 4, "high": 3, "critical": 1}, DriftPercentage: 50},
		{Failing: 6, FindingsBySeverity: map[string]int{"low": 3, "medium": 5, "high": 6, "critical": 2}, DriftPercentage: 75},
	}
	for i, e := range spike {
		n := 22 + i
		e.Timestamp = start.Add(time.Duration(n) * time.Hour)
		e.RunID = fmt.Sprintf("demo-%02d", n)
		e.SnapshotVersion = uint64(n + 1)
		e.Assets = 17
		if err := backend.Append(ctx, e); err != nil {
			return err
		}
	}
	return nil
}
