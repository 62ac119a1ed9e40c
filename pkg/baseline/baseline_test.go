package baseline

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadYAML(t *testing.T) {
	data := []byte(`
baselines:
  - assetId: PLC-001
    version: v2.3.1-production
    configChecksum: sha256:9f2c
    ipAddress: 10.0.2.101
    gitRepo: github.com/factory/plc-configs
  - assetId: Router-01
    ipAddress: 10.0.0.1
`)
	s, err := LoadYAML(data)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, []string{"PLC-001", "Router-01"}, s.IDs())

	r, ok := s.Lookup("PLC-001")
	require.True(t, ok)
	assert.Equal(t, "v2.3.1-production", r.Version)
	assert.Equal(t, "github.com/factory/plc-configs", r.GitRepo)

	_, ok = s.Lookup("PLC-404")
	assert.False(t, ok)
}

func TestLoadHCL(t *testing.T) {
	data := []byte(`
asset "PLC-001" {
  version         = "v2.3.1-production"
  config_checksum = "sha256:9f2c"
  ip_address      = "10.0.2.101"
  security_zone   = "Level 1 - Control"
  git_repo        = "github.com/factory/plc-configs"
  last_commit     = "abc123"
}

asset "NetworkSwitch-05" {
  status = "running"
}
`)
	s, err := Load("plant.hcl", data)
	require.NoError(t, err)
	assert.Equal(t, []string{"NetworkSwitch-05", "PLC-001"}, s.IDs())

	r, _ := s.Lookup("PLC-001")
	assert.Equal(t, Record{
		AssetID:        "PLC-001",
		Version:        "v2.3.1-production",
		ConfigChecksum: "sha256:9f2c",
		IPAddress:      "10.0.2.101",
		SecurityZone:   "Level 1 - Control",
		GitRepo:        "github.com/factory/plc-configs",
		LastCommit:     "abc123",
	}, r)
}

func TestLoadRejectsBadInput(t *testing.T) {
	cases := []struct {
		name, file, body string
	}{
		{"unknown attribute", "b.hcl", `asset "a" { colour = "red" }`},
		{"number value", "b.hcl", `asset "a" { version = 3 }`},
		{"missing label", "b.hcl", `asset { version = "1" }`},
		{"top level attribute", "b.hcl", `version = "1"`},
		{"syntax", "b.hcl", `asset "a" {`},
		{"bad ip", "b.yaml", "baselines:\n  - assetId: a\n    ipAddress: nope\n"},
		{"missing id", "b.yaml", "baselines:\n  - version: v1\n"},
		{"not yaml", "b.yaml", "baselines: [\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(tc.file, []byte(tc.body))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidBaseline), "got %v", err)
		})
	}
}

func TestDuplicateRecord(t *testing.T) {
	_, err := NewMemoryStore(Record{AssetID: "a"}, Record{AssetID: "a"})
	assert.ErrorIs(t, err, ErrDuplicateRecord)
}

func TestDemoStore(t *testing.T) {
	s := Demo()
	assert.Equal(t, 4, s.Len())
	r, ok := s.Lookup("PLC-001")
	require.True(t, ok)
	assert.Equal(t, "v2.3.1-production", r.Version)
	assert.Len(t, s.Records(), 4)
	assert.Equal(t, 0, Empty().Len())
}
