package graph

import "time"

// AssetType is the equipment class of an asset.
type AssetType string

const (
	TypePLC             AssetType = "PLC"
	TypeSensor          AssetType = "Sensor"
	TypeNetworkSwitch   AssetType = "NetworkSwitch"
	TypeRouter          AssetType = "Router"
	TypeFirewall        AssetType = "Firewall"
	TypeUPS             AssetType = "UPS"
	TypePowerSupply     AssetType = "PowerSupply"
	TypePDU             AssetType = "PDU"
	TypeServer          AssetType = "Server"
	TypeHMI             AssetType = "HMI"
	TypeIndustrialRobot AssetType = "IndustrialRobot"
	TypeGateway         AssetType = "Gateway"
	TypeEdgeGateway     AssetType = "EdgeGateway"
	TypeWorkstation     AssetType = "Workstation"
	TypeCamera          AssetType = "Camera"
	TypeConveyor        AssetType = "Conveyor"
	TypeActuator        AssetType = "Actuator"
	TypeZone            AssetType = "Zone"
)

// Status is the observed operational state of an asset.
type Status string

const (
	StatusOnline      Status = "online"
	StatusRunning     Status = "running"
	StatusWarning     Status = "warning"
	StatusDegraded    Status = "degraded"
	StatusError       Status = "error"
	StatusOffline     Status = "offline"
	StatusFailed      Status = "failed"
	StatusUnreachable Status = "unreachable"
	StatusBattery     Status = "battery"
	StatusUnknown     Status = "unknown"
)

// RelationshipType labels a directed edge.
type RelationshipType string

const (
	Powers        RelationshipType = "POWERS"
	ConnectsTo    RelationshipType = "CONNECTS_TO"
	FeedsData     RelationshipType = "FEEDS_DATA"
	DependsOn     RelationshipType = "DEPENDS_ON"
	LocatedIn     RelationshipType = "LOCATED_IN"
	BelongsToZone RelationshipType = "BELONGS_TO_ZONE"
	Controls      RelationshipType = "CONTROLS"
)

// OperationalTypes are the relationship types analytical traversals follow.
var OperationalTypes = []RelationshipType{Powers, ConnectsTo, FeedsData, DependsOn}

// KnownRelationshipTypes lists every relationship type accepted at ingestion.
var KnownRelationshipTypes = []RelationshipType{Powers, ConnectsTo, FeedsData, DependsOn, LocatedIn, BelongsToZone, Controls}

// StatusSet is a small membership set of statuses.
type StatusSet map[Status]struct{}

// NewStatusSet builds a set from the given statuses.
func NewStatusSet(statuses ...Status) StatusSet {
	s := make(StatusSet, len(statuses))
	for _, st := range statuses {
		s[st] = struct{}{}
	}
	return s
}

// StatusSetOf builds a set from raw strings, as read from configuration.
func StatusSetOf(raw []string) StatusSet {
	s := make(StatusSet, len(raw))
	for _, st := range raw {
		s[Status(st)] = struct{}{}
	}
	return s
}

// Has reports membership.
func (s StatusSet) Has(st Status) bool {
	_, ok := s[st]
	return ok
}

// Asset is a monitored factory node. Optional numeric metrics are nil when
// the ingestion record did not carry them.
type Asset struct {
	ID             string
	Name           string
	Type           AssetType
	Status         Status
	Zone           string
	IPAddress      string
	Version        string
	ConfigChecksum string
	SecurityZone   string
	FailureReason  string

	UtilizationPercent *float64
	ResponseTimeMs     *float64
	BatteryLevel       *float64

	LastSeen    time.Time
	StatusSince time.Time
	LastFailure time.Time

	Attributes map[string]string
}

// Utilization returns the utilization metric and whether it was present.
func (a *Asset) Utilization() (float64, bool) {
	if a.UtilizationPercent == nil {
		return 0, false
	}
	return *a.UtilizationPercent, true
}

// TransitionTime is when the asset entered its current status, falling back
// to the last recorded failure.
func (a *Asset) TransitionTime() (time.Time, bool) {
	if !a.StatusSince.IsZero() {
		return a.StatusSince, true
	}
	if !a.LastFailure.IsZero() {
		return a.LastFailure, true
	}
	return time.Time{}, false
}

// Healthy reports whether the asset is online or running.
func (a *Asset) Healthy() bool {
	return healthyStatuses.Has(a.Status)
}

// DisplayName prefers the human name over the id.
func (a *Asset) DisplayName() string {
	if a.Name != "" {
		return a.Name
	}
	return a.ID
}

// Relationship is a directed, typed dependency between two assets.
type Relationship struct {
	Source string
	Target string
	Type   RelationshipType
}

// Edge is the adjacency entry stored per node. Peer is the index of the node
// on the other end (target for forward lists, source for reverse lists).
type Edge struct {
	Peer uint32
	Type RelationshipType
}
