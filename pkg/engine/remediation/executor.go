package remediation

import (
	"errors"
	"fmt"

	"github.com/Kumarhq/factory-digital-twin-gitops-sub001/pkg/engine/analyzers"
	"github.com/Kumarhq/factory-digital-twin-gitops-sub001/pkg/graph"
)

// ErrPreconditionFailed is returned when the document no longer matches the
// state an action was planned against.
var ErrPreconditionFailed = errors.New("precondition failed")

// Outcome of applying one action.
type Outcome struct {
	ID      string `json:"id"`
	Applied bool   `json:"applied"`
	Reason  string `json:"reason,omitempty"`
}

// Apply executes the automated actions of m against doc in place, producing
// the state the plant reaches once the sync tooling has run. Manual actions
// are reported and left alone. A failed precondition aborts the whole plan
// before anything is written.
func Apply(doc *graph.Document, m Manifest) ([]Outcome, error) {
	index := make(map[string]int, len(doc.Assets))
	for i, a := range doc.Assets {
		index[a.ID] = i
	}

	for _, act := range m.Actions {
		if !act.Automated {
			continue
		}
		i, ok := index[act.AssetID]
		if !ok {
			return nil, fmt.Errorf("%w: %s: asset not in document", ErrPreconditionFailed, act.ID)
		}
		for _, c := range act.PreConditions {
			if got := field(&doc.Assets[i], c.Params["field"]); got != c.Params["value"] {
				return nil, fmt.Errorf("%w: %s: %s is %q, planned against %q",
					ErrPreconditionFailed, act.ID, c.Params["field"], got, c.Params["value"])
			}
		}
	}

	out := make([]Outcome, 0, len(m.Actions))
	for _, act := range m.Actions {
		if !act.Automated {
			out = append(out, Outcome{ID: act.ID, Reason: "manual action"})
			continue
		}
		rec := &doc.Assets[index[act.AssetID]]
		for _, c := range act.PostConditions {
			setField(rec, c.Params["field"], c.Params["value"])
		}
		out = append(out, Outcome{ID: act.ID, Applied: true})
	}
	return out, nil
}

func field(r *graph.AssetRecord, name string) string {
	switch name {
	case analyzers.FieldVersion:
		return r.Version
	case analyzers.FieldConfigChecksum:
		return r.ConfigChecksum
	case analyzers.FieldIPAddress:
		return r.IPAddress
	case analyzers.FieldSecurityZone:
		return r.SecurityZone
	case analyzers.FieldStatus:
		return r.Status
	}
	return ""
}

func setField(r *graph.AssetRecord, name, value string) {
	switch name {
	case analyzers.FieldVersion:
		r.Version = value
	case analyzers.FieldConfigChecksum:
		r.ConfigChecksum = value
	case analyzers.FieldIPAddress:
		r.IPAddress = value
	case analyzers.FieldSecurityZone:
		r.SecurityZone = value
	}
}
