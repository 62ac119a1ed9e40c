package baseline

import "github.com/Kumarhq/factory-digital-twin-gitops-sub001/pkg/graph"

// Demo returns the intended configuration for the demo factory. Against
// graph.DemoFactory it yields one version drift (PLC-001), one status drift
// (NetworkSwitch-05) and one address drift (Server-02).
func Demo() *MemoryStore {
	s, err := NewMemoryStore(
		Record{
			AssetID:        "PLC-001",
			Version:        "v2.3.1-production",
			ConfigChecksum: "sha256:9f2c",
			IPAddress:      "10.0.2.101",
			SecurityZone:   graph.ZoneControl,
			GitRepo:        "github.com/factory/plc-configs",
			GitPath:        "plcs/assembly-line-b/plc-001.yaml",
			LastCommit:     "abc123",
		},
		Record{
			AssetID:        "NetworkSwitch-05",
			Status:         "running",
			IPAddress:      "10.0.1.5",
			ConfigChecksum: "unknown",
			GitRepo:        "github.com/factory/network-configs",
			GitPath:        "switches/core/switch-05.yaml",
			LastCommit:     "def456",
		},
		Record{
			AssetID:    "Router-01",
			IPAddress:  "10.0.0.1",
			GitRepo:    "github.com/factory/network-configs",
			GitPath:    "routers/core/router-01.yaml",
			LastCommit: "def456",
		},
		Record{
			AssetID:    "Server-02",
			IPAddress:  "10.0.3.12",
			GitRepo:    "github.com/factory/server-configs",
			GitPath:    "servers/dc/server-02.yaml",
			LastCommit: "ghi789",
		},
	)
	if err != nil {
		panic(err)
	}
	return s
}
