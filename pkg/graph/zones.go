package graph

// ISA-95 levels used when an asset carries no explicit zone.
const (
	ZoneProcess     = "Level 0 - Process"
	ZoneControl     = "Level 1 - Control"
	ZoneSupervisory = "Level 2 - Supervisory"
	ZoneOperations  = "Level 3 - Operations"
	ZoneEnterprise  = "Level 4 - Enterprise"
	ZoneUnassigned  = "Unassigned"
)

var defaultZones = map[AssetType]string{
	TypeSensor:          ZoneProcess,
	TypeCamera:          ZoneProcess,
	TypeActuator:        ZoneProcess,
	TypeConveyor:        ZoneProcess,
	TypePLC:             ZoneControl,
	TypeIndustrialRobot: ZoneControl,
	TypeHMI:             ZoneControl,
	TypeGateway:         ZoneSupervisory,
	TypeEdgeGateway:     ZoneSupervisory,
	TypeNetworkSwitch:   ZoneSupervisory,
	TypeServer:          ZoneOperations,
	TypeWorkstation:     ZoneOperations,
	TypeRouter:          ZoneEnterprise,
	TypeFirewall:        ZoneEnterprise,
	TypeUPS:             ZoneEnterprise,
	TypePowerSupply:     ZoneEnterprise,
	TypePDU:             ZoneEnterprise,
}

// DefaultZone maps an asset type to its ISA-95 level.
func DefaultZone(t AssetType) string {
	if z, ok := defaultZones[t]; ok {
		return z
	}
	return ZoneUnassigned
}

// ZoneOf resolves the zone of an asset: the explicit Zone attribute, then
// the target of a BELONGS_TO_ZONE or LOCATED_IN edge, then the ISA-95
// default for its type. Unknown ids resolve to ZoneUnassigned.
func (s *Snapshot) ZoneOf(id string) string {
	idx, ok := s.idMap[id]
	if !ok {
		return ZoneUnassigned
	}
	a := s.assets[idx]
	if a.Zone != "" {
		return a.Zone
	}
	for _, t := range []RelationshipType{BelongsToZone, LocatedIn} {
		for _, e := range s.out[idx] {
			if e.Type == t {
				return s.assets[e.Peer].DisplayName()
			}
		}
	}
	return DefaultZone(a.Type)
}
