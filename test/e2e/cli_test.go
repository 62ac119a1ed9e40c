//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"os/exec"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// factorytwin runs the built binary with an isolated HOME and the
// LocalStack endpoint.
func factorytwin(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	full := append([]string{"--s3-endpoint", endpointURL}, args...)
	cmd := exec.Command(binPath, full...)
	cmd.Env = append(os.Environ(), "HOME="+t.TempDir())
	var out, errOut bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errOut
	err = cmd.Run()
	return out.String(), errOut.String(), err
}

func getObject(t *testing.T, key string) []byte {
	t.Helper()
	out, err := s3Client.GetObject(context.Background(), &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	require.NoError(t, err)
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	require.NoError(t, err)
	return data
}

func TestScanReportAndLedgerToS3(t *testing.T) {
	for i := 0; i < 2; i++ {
		_, stderr, err := factorytwin(t, "--mock", "scan",
			"--format", "json",
			"--output", "s3://"+bucket+"/reports/latest.json",
			"--history", "s3://"+bucket+"/ledger.jsonl")
		require.NoError(t, err, stderr)
	}

	var doc struct {
		RunID   string `json:"runId"`
		Summary struct {
			Assets    int `json:"assets"`
			Analyzers int `json:"analyzers"`
		} `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(getObject(t, "reports/latest.json"), &doc))
	assert.Equal(t, 17, doc.Summary.Assets)
	assert.Equal(t, 8, doc.Summary.Analyzers)

	lines := strings.Split(strings.TrimSpace(string(getObject(t, "ledger.jsonl"))), "\n")
	assert.Len(t, lines, 2)
	assert.Contains(t, lines[1], doc.RunID)

	stdout, stderr, err := factorytwin(t, "history", "--ledger", "s3://"+bucket+"/ledger.jsonl", "--json")
	require.NoError(t, err, stderr)
	assert.Contains(t, stdout, `"samples": 2`)
}

func TestGraphFromS3(t *testing.T) {
	graphDoc := `
assets:
  - id: Switch-A
    type: NetworkSwitch
    status: offline
  - id: PLC-A
    type: PLC
    status: offline
relationships:
  - source: Switch-A
    target: PLC-A
    type: CONNECTS_TO
`
	_, err := s3Client.PutObject(context.Background(), &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String("graphs/line.yaml"),
		Body:   strings.NewReader(graphDoc),
	})
	require.NoError(t, err)

	stdout, stderr, err := factorytwin(t, "--graph", "s3://"+bucket+"/graphs/line.yaml", "rca", "PLC-A", "--format", "json")
	require.NoError(t, err, stderr)
	assert.Contains(t, stdout, `"rootCause": "Switch-A"`)
}

func TestDriftPlanToS3(t *testing.T) {
	_, stderr, err := factorytwin(t, "--mock", "drift",
		"--plan", "s3://"+bucket+"/plans/plan.json",
		"--runbook", "s3://"+bucket+"/plans/runbook.sh")
	require.NoError(t, err, stderr)

	var plan struct {
		Automated int `json:"automated"`
		Manual    int `json:"manual"`
	}
	require.NoError(t, json.Unmarshal(getObject(t, "plans/plan.json"), &plan))
	assert.Equal(t, 2, plan.Automated)
	assert.Equal(t, 1, plan.Manual)
	assert.True(t, strings.HasPrefix(string(getObject(t, "plans/runbook.sh")), "#!/bin/sh\n"))
}

// TestMissingInputs makes sure a bare invocation fails loudly instead of
// scanning an empty plant.
func TestMissingInputs(t *testing.T) {
	_, stderr, err := factorytwin(t, "scan")
	require.Error(t, err)
	var exitErr *exec.ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 1, exitErr.ExitCode())
	assert.Contains(t, stderr, "no graph source")
}
