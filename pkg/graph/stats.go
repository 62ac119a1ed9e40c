package graph

import "sort"

// healthy statuses count toward uptime.
var healthyStatuses = NewStatusSet(StatusOnline, StatusRunning)

// failingStatuses count as down in statistics.
var failingStatuses = NewStatusSet(StatusOffline, StatusError, StatusFailed, StatusUnreachable)

// Stats summarises a snapshot.
type Stats struct {
	Assets         int                      `json:"assets"`
	Relationships  int                      `json:"relationships"`
	Healthy        int                      `json:"healthy"`
	Failing        int                      `json:"failing"`
	UptimePercent  float64                  `json:"uptimePercent"`
	ByStatus       map[Status]int           `json:"byStatus"`
	ByType         map[AssetType]int        `json:"byType"`
	ByRelationship map[RelationshipType]int `json:"byRelationship"`
	DanglingEdges  int                      `json:"danglingEdges"`
	// Subsystems counts islands connected by operational relationships;
	// Unlinked counts the single-asset ones among them.
	Subsystems int `json:"subsystems"`
	Unlinked   int `json:"unlinked"`
}

// Stats computes counts by status, type and relationship.
func (s *Snapshot) Stats() Stats {
	st := Stats{
		Assets:         len(s.assets),
		Relationships:  s.edgeCount,
		ByStatus:       make(map[Status]int),
		ByType:         make(map[AssetType]int),
		ByRelationship: make(map[RelationshipType]int),
		DanglingEdges:  len(s.meta.DanglingEdges),
	}
	for _, a := range s.assets {
		st.ByStatus[a.Status]++
		st.ByType[a.Type]++
		if healthyStatuses.Has(a.Status) {
			st.Healthy++
		}
		if failingStatuses.Has(a.Status) {
			st.Failing++
		}
	}
	for _, edges := range s.out {
		for _, e := range edges {
			st.ByRelationship[e.Type]++
		}
	}
	for _, island := range s.Components(OperationalTypes...) {
		st.Subsystems++
		if len(island) == 1 {
			st.Unlinked++
		}
	}
	if st.Assets > 0 {
		st.UptimePercent = round1(float64(st.Healthy) * 100 / float64(st.Assets))
	}
	return st
}

// ZoneHealth is the per-zone rollup.
type ZoneHealth struct {
	Zone          string  `json:"zone"`
	Assets        int     `json:"assets"`
	Healthy       int     `json:"healthy"`
	Failing       int     `json:"failing"`
	HealthPercent float64 `json:"healthPercent"`
}

// ZoneHealth groups assets by resolved zone, ordered by zone name. Zone
// marker assets themselves are not counted.
func (s *Snapshot) ZoneHealth() []ZoneHealth {
	byZone := make(map[string]*ZoneHealth)
	for _, a := range s.assets {
		if a.Type == TypeZone {
			continue
		}
		z := s.ZoneOf(a.ID)
		zh, ok := byZone[z]
		if !ok {
			zh = &ZoneHealth{Zone: z}
			byZone[z] = zh
		}
		zh.Assets++
		if healthyStatuses.Has(a.Status) {
			zh.Healthy++
		}
		if failingStatuses.Has(a.Status) {
			zh.Failing++
		}
	}

	res := make([]ZoneHealth, 0, len(byZone))
	for _, zh := range byZone {
		zh.HealthPercent = round1(float64(zh.Healthy) * 100 / float64(zh.Assets))
		res = append(res, *zh)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Zone < res[j].Zone })
	return res
}

func round1(v float64) float64 {
	return float64(int64(v*10+0.5)) / 10
}
