package graph

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// AssetRecord is the ingestion shape of an asset.
type AssetRecord struct {
	ID             string `json:"id" yaml:"id" validate:"required,max=256"`
	Name           string `json:"name,omitempty" yaml:"name,omitempty"`
	Type           string `json:"type" yaml:"type" validate:"required"`
	Status         string `json:"status,omitempty" yaml:"status,omitempty" validate:"omitempty,oneof=online running warning degraded error offline failed unreachable battery unknown"`
	Zone           string `json:"zone,omitempty" yaml:"zone,omitempty"`
	IPAddress      string `json:"ipAddress,omitempty" yaml:"ipAddress,omitempty" validate:"omitempty,ip"`
	Version        string `json:"version,omitempty" yaml:"version,omitempty"`
	ConfigChecksum string `json:"configChecksum,omitempty" yaml:"configChecksum,omitempty"`
	SecurityZone   string `json:"securityZone,omitempty" yaml:"securityZone,omitempty"`
	FailureReason  string `json:"failureReason,omitempty" yaml:"failureReason,omitempty"`

	UtilizationPercent *float64 `json:"utilizationPercent,omitempty" yaml:"utilizationPercent,omitempty" validate:"omitempty,gte=0"`
	ResponseTimeMs     *float64 `json:"responseTimeMs,omitempty" yaml:"responseTimeMs,omitempty" validate:"omitempty,gte=0"`
	BatteryLevel       *float64 `json:"batteryLevel,omitempty" yaml:"batteryLevel,omitempty" validate:"omitempty,gte=0,lte=100"`

	LastSeen    *time.Time `json:"lastSeen,omitempty" yaml:"lastSeen,omitempty"`
	StatusSince *time.Time `json:"statusSince,omitempty" yaml:"statusSince,omitempty"`
	LastFailure *time.Time `json:"lastFailure,omitempty" yaml:"lastFailure,omitempty"`

	Attributes map[string]string `json:"attributes,omitempty" yaml:"attributes,omitempty"`
}

// RelationshipRecord is the ingestion shape of an edge.
type RelationshipRecord struct {
	Source string `json:"source" yaml:"source" validate:"required"`
	Target string `json:"target" yaml:"target" validate:"required"`
	Type   string `json:"type" yaml:"type" validate:"required,oneof=POWERS CONNECTS_TO FEEDS_DATA DEPENDS_ON LOCATED_IN BELONGS_TO_ZONE CONTROLS"`
}

// Document is one full ingestion refresh.
type Document struct {
	Assets        []AssetRecord        `json:"assets" yaml:"assets" validate:"dive"`
	Relationships []RelationshipRecord `json:"relationships" yaml:"relationships" validate:"dive"`
}

// Format is the serialization of a Document.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromName picks a format from a file name; anything that is not
// .json is treated as YAML.
func FormatFromName(name string) Format {
	if strings.EqualFold(filepath.Ext(name), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// DecodeDocument parses and validates a document.
func DecodeDocument(data []byte, format Format) (*Document, error) {
	var doc Document
	var err error
	switch format {
	case FormatJSON:
		err = json.Unmarshal(data, &doc)
	default:
		err = yaml.Unmarshal(data, &doc)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// LoadDocumentFile reads and decodes a document, picking the format from
// the file name.
func LoadDocumentFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read graph %s: %w", path, err)
	}
	doc, err := DecodeDocument(data, FormatFromName(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// Validate checks every record against its field rules.
func (d *Document) Validate() error {
	if err := validate.Struct(d); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidDocument, formatValidationError(err))
	}
	return nil
}

func formatValidationError(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.TrimPrefix(fe.Namespace(), "Document.")
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s failed %s=%s", field, fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s failed %s", field, fe.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}

// Build seals the document into a snapshot.
func (d *Document) Build(logger *slog.Logger) *Snapshot {
	b := NewBuilder(WithBuilderLogger(logger))
	for _, r := range d.Assets {
		b.AddAsset(r.toAsset())
	}
	for _, r := range d.Relationships {
		b.AddRelationship(r.Source, r.Target, RelationshipType(r.Type))
	}
	return b.Seal()
}

func (r AssetRecord) toAsset() Asset {
	a := Asset{
		ID:                 r.ID,
		Name:               r.Name,
		Type:               AssetType(r.Type),
		Status:             Status(r.Status),
		Zone:               r.Zone,
		IPAddress:          r.IPAddress,
		Version:            r.Version,
		ConfigChecksum:     r.ConfigChecksum,
		SecurityZone:       r.SecurityZone,
		FailureReason:      r.FailureReason,
		UtilizationPercent: r.UtilizationPercent,
		ResponseTimeMs:     r.ResponseTimeMs,
		BatteryLevel:       r.BatteryLevel,
		Attributes:         r.Attributes,
	}
	if r.LastSeen != nil {
		a.LastSeen = r.LastSeen.UTC()
	}
	if r.StatusSince != nil {
		a.StatusSince = r.StatusSince.UTC()
	}
	if r.LastFailure != nil {
		a.LastFailure = r.LastFailure.UTC()
	}
	return a
}

// DocumentFromSnapshot converts a snapshot back into its ingestion form.
func DocumentFromSnapshot(s *Snapshot) *Document {
	doc := &Document{}
	for _, a := range s.Assets() {
		r := AssetRecord{
			ID:                 a.ID,
			Name:               a.Name,
			Type:               string(a.Type),
			Status:             string(a.Status),
			Zone:               a.Zone,
			IPAddress:          a.IPAddress,
			Version:            a.Version,
			ConfigChecksum:     a.ConfigChecksum,
			SecurityZone:       a.SecurityZone,
			FailureReason:      a.FailureReason,
			UtilizationPercent: a.UtilizationPercent,
			ResponseTimeMs:     a.ResponseTimeMs,
			BatteryLevel:       a.BatteryLevel,
			Attributes:         a.Attributes,
		}
		r.LastSeen = timePtr(a.LastSeen)
		r.StatusSince = timePtr(a.StatusSince)
		r.LastFailure = timePtr(a.LastFailure)
		doc.Assets = append(doc.Assets, r)
	}
	for _, rel := range s.Relationships() {
		doc.Relationships = append(doc.Relationships, RelationshipRecord{
			Source: rel.Source,
			Target: rel.Target,
			Type:   string(rel.Type),
		})
	}
	return doc
}

// Encode serializes the document.
func (d *Document) Encode(format Format) ([]byte, error) {
	if format == FormatJSON {
		return json.MarshalIndent(d, "", "  ")
	}
	return yaml.Marshal(d)
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
