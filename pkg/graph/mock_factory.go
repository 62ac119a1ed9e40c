package graph

import (
	"log/slog"
	"time"
)

// MockEpoch anchors the timestamps of the demo factory so scenario output
// is reproducible.
var MockEpoch = time.Date(2024, time.May, 1, 8, 0, 0, 0, time.UTC)

// AssetOpt customises an asset added through MockFactory.
type AssetOpt func(*Asset)

func WithZone(z string) AssetOpt         { return func(a *Asset) { a.Zone = z } }
func WithName(n string) AssetOpt         { return func(a *Asset) { a.Name = n } }
func WithVersion(v string) AssetOpt      { return func(a *Asset) { a.Version = v } }
func WithIP(ip string) AssetOpt          { return func(a *Asset) { a.IPAddress = ip } }
func WithChecksum(c string) AssetOpt     { return func(a *Asset) { a.ConfigChecksum = c } }
func WithSecurityZone(z string) AssetOpt { return func(a *Asset) { a.SecurityZone = z } }
func WithReason(r string) AssetOpt       { return func(a *Asset) { a.FailureReason = r } }

func WithUtilization(v float64) AssetOpt {
	return func(a *Asset) { a.UtilizationPercent = &v }
}

func WithBattery(v float64) AssetOpt {
	return func(a *Asset) { a.BatteryLevel = &v }
}

// WithStatusSince sets the status transition time relative to MockEpoch.
func WithStatusSince(offset time.Duration) AssetOpt {
	return func(a *Asset) {
		a.StatusSince = MockEpoch.Add(offset)
		a.LastSeen = MockEpoch.Add(offset)
	}
}

// MockFactory constructs graph scenarios for tests and the --mock demo.
type MockFactory struct {
	Builder *Builder
}

// NewMockFactory starts an empty scenario.
func NewMockFactory() *MockFactory {
	return &MockFactory{Builder: NewBuilder()}
}

// NewMockFactoryWithLogger starts an empty scenario that reports dangling
// edges to logger.
func NewMockFactoryWithLogger(l *slog.Logger) *MockFactory {
	return &MockFactory{Builder: NewBuilder(WithBuilderLogger(l))}
}

// Add queues one asset.
func (m *MockFactory) Add(id string, t AssetType, st Status, opts ...AssetOpt) *MockFactory {
	a := Asset{ID: id, Type: t, Status: st}
	for _, opt := range opts {
		opt(&a)
	}
	m.Builder.AddAsset(a)
	return m
}

// Link queues one relationship.
func (m *MockFactory) Link(source string, t RelationshipType, target string) *MockFactory {
	m.Builder.AddRelationship(source, target, t)
	return m
}

// Build seals the scenario.
func (m *MockFactory) Build() *Snapshot {
	return m.Builder.Seal()
}

// Chain links ids in order with one relationship type.
func (m *MockFactory) Chain(t RelationshipType, ids ...string) *MockFactory {
	for i := 0; i+1 < len(ids); i++ {
		m.Link(ids[i], t, ids[i+1])
	}
	return m
}

// DemoFactory is a small plant that exercises every analyzer:
//
//   - Network outage: Router-01 -> NetworkSwitch-05 (offline) -> EdgeGateway-02
//     (offline) -> PLC-001 (offline), plus Camera-07 (unreachable) on the switch.
//   - Power chain: UPS-Main (battery) powers six assets through PDU-01 and
//     PowerSupply-02; Server-02 is degraded and Robot-01 offline.
//   - Packaging line: PLC-002 (warning) feeds Conveyor-03 (warning, 88%).
//   - One relationship references a decommissioned sensor and is dangling.
func DemoFactory() *MockFactory {
	return DemoFactoryWithLogger(slog.Default())
}

// DemoFactoryWithLogger is DemoFactory with an explicit logger.
func DemoFactoryWithLogger(l *slog.Logger) *MockFactory {
	m := NewMockFactoryWithLogger(l)

	m.Add("UPS-Main", TypeUPS, StatusBattery, WithName("Main UPS"), WithZone("Utilities"), WithBattery(38), WithStatusSince(-10*time.Minute)).
		Add("PDU-01", TypePDU, StatusOnline, WithZone("Utilities")).
		Add("PowerSupply-02", TypePowerSupply, StatusOnline, WithZone("Utilities")).
		Add("Server-01", TypeServer, StatusOnline, WithZone("Data Center"), WithUtilization(45), WithIP("10.0.3.10")).
		Add("Server-02", TypeServer, StatusDegraded, WithZone("Data Center"), WithUtilization(92), WithIP("10.0.3.11"), WithStatusSince(-5*time.Minute)).
		Add("Workstation-01", TypeWorkstation, StatusOnline, WithZone("Data Center")).
		Add("Zone-Assembly", TypeZone, StatusOnline, WithName("Assembly Line A")).
		Add("Robot-01", TypeIndustrialRobot, StatusOffline, WithStatusSince(2*time.Hour), WithReason("Servo overcurrent")).
		Add("HMI-01", TypeHMI, StatusOnline)

	m.Add("Router-01", TypeRouter, StatusOnline, WithZone("Network Core"), WithIP("10.0.0.1")).
		Add("NetworkSwitch-05", TypeNetworkSwitch, StatusOffline, WithZone("Network Core"), WithIP("10.0.1.5"),
			WithStatusSince(0), WithReason("Power supply failure")).
		Add("EdgeGateway-02", TypeEdgeGateway, StatusOffline, WithZone("Assembly Line B"), WithIP("10.0.2.2"),
			WithStatusSince(20*time.Second), WithReason("Uplink lost")).
		Add("PLC-001", TypePLC, StatusOffline, WithZone("Assembly Line B"), WithIP("10.0.2.101"),
			WithVersion("v2.2.8-dev"), WithChecksum("sha256:9f2c"), WithSecurityZone(ZoneControl),
			WithStatusSince(45*time.Second), WithReason("Communication timeout")).
		Add("Camera-07", TypeCamera, StatusUnreachable, WithZone("Assembly Line B"), WithStatusSince(50*time.Second)).
		Add("Sensor-101", TypeSensor, StatusOnline, WithZone("Assembly Line B"))

	m.Add("PLC-002", TypePLC, StatusWarning, WithZone("Packaging"), WithUtilization(71)).
		Add("Conveyor-03", TypeConveyor, StatusWarning, WithZone("Packaging"), WithUtilization(88))

	m.Chain(Powers, "UPS-Main", "PDU-01", "Server-01").
		Link("PDU-01", Powers, "Server-02").
		Chain(Powers, "UPS-Main", "PowerSupply-02", "Robot-01").
		Link("PowerSupply-02", Powers, "HMI-01").
		Link("Workstation-01", DependsOn, "Server-02").
		Link("Robot-01", BelongsToZone, "Zone-Assembly").
		Link("HMI-01", BelongsToZone, "Zone-Assembly")

	m.Chain(ConnectsTo, "Router-01", "NetworkSwitch-05", "EdgeGateway-02", "PLC-001").
		Link("NetworkSwitch-05", ConnectsTo, "Camera-07").
		Link("Sensor-101", FeedsData, "PLC-001").
		Link("PLC-002", FeedsData, "Conveyor-03").
		Link("Sensor-999", FeedsData, "PLC-002")

	return m
}
