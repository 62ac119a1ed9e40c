package graph

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
assets:
  - id: UPS-Main
    type: UPS
    status: battery
    batteryLevel: 38
  - id: PDU-01
    type: PDU
    status: online
    ipAddress: 10.0.0.4
  - id: Server-01
    type: Server
    status: degraded
    utilizationPercent: 91.5
    statusSince: 2024-05-01T08:00:00Z
relationships:
  - {source: UPS-Main, target: PDU-01, type: POWERS}
  - {source: PDU-01, target: Server-01, type: POWERS}
  - {source: PDU-01, target: Server-99, type: POWERS}
`

func TestDecodeDocumentYAML(t *testing.T) {
	doc, err := DecodeDocument([]byte(sampleYAML), FormatYAML)
	require.NoError(t, err)
	require.Len(t, doc.Assets, 3)
	require.Len(t, doc.Relationships, 3)

	s := doc.Build(nil)
	assert.Equal(t, 3, s.Len())
	assert.Equal(t, 2, s.EdgeCount())
	assert.True(t, s.Metadata().Partial)

	srv, err := s.Asset("Server-01")
	require.NoError(t, err)
	util, ok := srv.Utilization()
	assert.True(t, ok)
	assert.Equal(t, 91.5, util)
	assert.Equal(t, MockEpoch, srv.StatusSince)
}

func TestDecodeDocumentRejectsBadRecords(t *testing.T) {
	cases := map[string]string{
		"missing id":      `{"assets":[{"type":"PLC"}]}`,
		"bad status":      `{"assets":[{"id":"a","type":"PLC","status":"sleepy"}]}`,
		"bad ip":          `{"assets":[{"id":"a","type":"PLC","ipAddress":"999.1.1.1"}]}`,
		"battery range":   `{"assets":[{"id":"a","type":"UPS","batteryLevel":140}]}`,
		"unknown edge":    `{"relationships":[{"source":"a","target":"b","type":"LIKES"}]}`,
		"malformed json":  `{"assets":[`,
		"negative util":   `{"assets":[{"id":"a","type":"Server","utilizationPercent":-1}]}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeDocument([]byte(body), FormatJSON)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidDocument), "got %v", err)
		})
	}
}

func TestDocumentFromSnapshot(t *testing.T) {
	s := DemoFactory().Build()
	doc := DocumentFromSnapshot(s)
	assert.Len(t, doc.Assets, s.Len())
	assert.Len(t, doc.Relationships, s.EdgeCount())

	data, err := doc.Encode(FormatJSON)
	require.NoError(t, err)
	back, err := DecodeDocument(data, FormatJSON)
	require.NoError(t, err)

	// Dangling edges are dropped at seal time, so they do not survive export.
	rebuilt := back.Build(nil)
	want := s.Stats()
	want.DanglingEdges = 0
	assert.Equal(t, want, rebuilt.Stats())
	assert.Equal(t, s.Relationships(), rebuilt.Relationships())
}

func TestFormatFromName(t *testing.T) {
	assert.Equal(t, FormatJSON, FormatFromName("plant.JSON"))
	assert.Equal(t, FormatYAML, FormatFromName("plant.yaml"))
	assert.Equal(t, FormatYAML, FormatFromName("plant"))
}

func FuzzDecodeDocument(f *testing.F) {
	f.Add([]byte(sampleYAML))
	f.Add([]byte(`assets: [{id: x, type: PLC}]`))
	f.Add([]byte(`relationships: [{source: a, target: a, type: POWERS}]`))
	f.Fuzz(func(t *testing.T, data []byte) {
		doc, err := DecodeDocument(data, FormatYAML)
		if err != nil {
			return
		}
		s := doc.Build(nil)
		for _, a := range s.Assets() {
			if _, err := Traverse(s, a.ID, TraverseOptions{MaxHops: 4}); err != nil {
				t.Fatalf("traverse from %s: %v", a.ID, err)
			}
		}
	})
}
