// Package baseline holds the intended configuration of assets, as kept in
// version control, for comparison against what the plant reports.
package baseline

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	// ErrInvalidBaseline is returned when a baseline document cannot be
	// decoded or a record fails validation.
	ErrInvalidBaseline = errors.New("invalid baseline")

	// ErrDuplicateRecord is returned when two records name the same asset.
	ErrDuplicateRecord = errors.New("duplicate baseline record")
)

// Record is the intended state of one asset. Empty fields are untracked.
type Record struct {
	AssetID        string `json:"assetId" yaml:"assetId" validate:"required"`
	Version        string `json:"version,omitempty" yaml:"version,omitempty"`
	ConfigChecksum string `json:"configChecksum,omitempty" yaml:"configChecksum,omitempty"`
	IPAddress      string `json:"ipAddress,omitempty" yaml:"ipAddress,omitempty" validate:"omitempty,ip"`
	SecurityZone   string `json:"securityZone,omitempty" yaml:"securityZone,omitempty"`
	Status         string `json:"status,omitempty" yaml:"status,omitempty"`

	// Provenance of the record in the config repository.
	GitRepo    string `json:"gitRepo,omitempty" yaml:"gitRepo,omitempty"`
	GitPath    string `json:"gitPath,omitempty" yaml:"gitPath,omitempty"`
	LastCommit string `json:"lastCommit,omitempty" yaml:"lastCommit,omitempty"`
}

// Store is the read side used by the drift analyzer.
type Store interface {
	Lookup(assetID string) (Record, bool)
	IDs() []string
	Len() int
}

// MemoryStore is an immutable Store.
type MemoryStore struct {
	records map[string]Record
	ids     []string
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// NewMemoryStore validates the records and indexes them by asset id.
func NewMemoryStore(records ...Record) (*MemoryStore, error) {
	m := &MemoryStore{records: make(map[string]Record, len(records))}
	var errs []string
	for i, r := range records {
		r.AssetID = strings.TrimSpace(r.AssetID)
		if err := validate.Struct(r); err != nil {
			errs = append(errs, fmt.Sprintf("record %d (%s): %s", i, r.AssetID, fieldErrors(err)))
			continue
		}
		if _, dup := m.records[r.AssetID]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateRecord, r.AssetID)
		}
		m.records[r.AssetID] = r
		m.ids = append(m.ids, r.AssetID)
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidBaseline, strings.Join(errs, "; "))
	}
	sort.Strings(m.ids)
	return m, nil
}

// Empty returns a store without records.
func Empty() *MemoryStore {
	return &MemoryStore{records: map[string]Record{}}
}

func (m *MemoryStore) Lookup(assetID string) (Record, bool) {
	r, ok := m.records[assetID]
	return r, ok
}

// IDs returns the asset ids in sorted order.
func (m *MemoryStore) IDs() []string {
	return append([]string(nil), m.ids...)
}

func (m *MemoryStore) Len() int { return len(m.ids) }

// Records returns every record ordered by asset id.
func (m *MemoryStore) Records() []Record {
	out := make([]Record, 0, len(m.ids))
	for _, id := range m.ids {
		out = append(out, m.records[id])
	}
	return out
}

func fieldErrors(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
	}
	return strings.Join(msgs, ", ")
}
