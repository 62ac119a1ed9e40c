// Package notifier posts run summaries and trend alerts to a Slack
// incoming webhook.
package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/Kumarhq/factory-digital-twin-gitops-sub001/pkg/engine/analyzers"
	"github.com/Kumarhq/factory-digital-twin-gitops-sub001/pkg/engine/history"
	"github.com/Kumarhq/factory-digital-twin-gitops-sub001/pkg/engine/report"
)

// maxListed caps how many findings one message spells out.
const maxListed = 5

// SlackClient handles Slack notifications.
type SlackClient struct {
	WebhookURL string
	Channel    string // Optional: Override default channel
	// MinSeverity drops run reports whose worst finding is below it.
	MinSeverity analyzers.Severity

	HTTPClient *http.Client
}

// NewSlackClient initializes the Slack integration. Reports are sent for
// high and critical runs only.
func NewSlackClient(webhookURL string, channel string) *SlackClient {
	return &SlackClient{
		WebhookURL:  webhookURL,
		Channel:     channel,
		MinSeverity: analyzers.SeverityHigh,
		HTTPClient:  &http.Client{Timeout: 10 * time.Second},
	}
}

// SendRunReport posts the summary of doc. It reports whether a message was
// sent; runs below MinSeverity are skipped.
func (s *SlackClient) SendRunReport(ctx context.Context, doc report.Document) (bool, error) {
	if s.WebhookURL == "" {
		return false, nil
	}
	worst := analyzers.MaxSeverity(doc.Findings)
	if len(doc.Findings) == 0 || worst < s.MinSeverity {
		return false, nil
	}
	return true, s.send(ctx, s.runPayload(doc, worst))
}

// runPayload builds the message blocks.
func (s *SlackClient) runPayload(doc report.Document, worst analyzers.Severity) map[string]any {
	statusIcon := "🟡"
	if worst == analyzers.SeverityCritical {
		statusIcon = "🔴"
	}
	sum := doc.Summary

	blocks := []map[string]any{
		// Header
		{
			"type": "header",
			"text": map[string]any{
				"type": "plain_text",
				"text": fmt.Sprintf("%s Factory diagnostics: %d finding(s), worst %s", statusIcon, sum.Findings, worst),
			},
		},
		{
			"type": "context",
			"elements": []map[string]any{
				{
					"type": "mrkdwn",
					"text": fmt.Sprintf("*Run:* %s | *Snapshot:* v%d | *Generated:* %s",
						doc.RunID, doc.SnapshotVersion, doc.GeneratedAt.Format(time.RFC3339)),
				},
			},
		},
		{"type": "divider"},
		{
			"type": "section",
			"fields": []map[string]any{
				{"type": "mrkdwn", "text": fmt.Sprintf("*Critical:*\n%d", sum.BySeverity["critical"])},
				{"type": "mrkdwn", "text": fmt.Sprintf("*High:*\n%d", sum.BySeverity["high"])},
				{"type": "mrkdwn", "text": fmt.Sprintf("*Assets:*\n%d", sum.Assets)},
				{"type": "mrkdwn", "text": fmt.Sprintf("*Failed analyzers:*\n%d", sum.Failed)},
			},
		},
	}

	var lines []string
	for _, f := range doc.Findings {
		if f.Severity < s.MinSeverity {
			continue
		}
		if len(lines) == maxListed {
			lines = append(lines, fmt.Sprintf("_…and %d more_", countAtLeast(doc.Findings, s.MinSeverity)-maxListed))
			break
		}
		lines = append(lines, fmt.Sprintf("• *%s* %s", strings.ToUpper(f.Severity.String()), f.Title))
	}
	blocks = append(blocks, map[string]any{
		"type": "section",
		"text": map[string]any{"type": "mrkdwn", "text": strings.Join(lines, "\n")},
	})

	if channels := ownerChannels(doc.Findings); len(channels) > 0 {
		blocks = append(blocks, map[string]any{
			"type": "context",
			"elements": []map[string]any{
				{"type": "mrkdwn", "text": "*Owners:* " + strings.Join(channels, " ")},
			},
		})
	}

	return s.withChannel(map[string]any{"blocks": blocks})
}

// SendTrendAlert posts the alerts of a ledger trend. Trends without alerts
// are not sent.
func (s *SlackClient) SendTrendAlert(ctx context.Context, t history.Trend) (bool, error) {
	if s.WebhookURL == "" || len(t.Alerts) == 0 {
		return false, nil
	}
	payload := map[string]any{
		"blocks": []map[string]any{
			{
				"type": "header",
				"text": map[string]any{
					"type": "plain_text",
					"text": "🔥 Factory trend alert: " + string(t.Pattern),
				},
			},
			{
				"type": "section",
				"text": map[string]any{
					"type": "mrkdwn",
					"text": fmt.Sprintf("%s\n*Failure velocity:* %+.1f/h\n*Drift velocity:* %+.1f pp/h",
						strings.Join(t.Alerts, "\n"), t.FailingVelocity, t.DriftVelocity),
				},
			},
		},
	}
	return true, s.send(ctx, s.withChannel(payload))
}

func (s *SlackClient) withChannel(payload map[string]any) map[string]any {
	if s.Channel != "" {
		payload["channel"] = s.Channel
	}
	return payload
}

func (s *SlackClient) send(ctx context.Context, payload map[string]any) error {
	jsonPayload, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.WebhookURL, bytes.NewReader(jsonPayload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := s.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("received non-200 status from slack: %d", resp.StatusCode)
	}
	return nil
}

func countAtLeast(fs []analyzers.Finding, min analyzers.Severity) int {
	n := 0
	for _, f := range fs {
		if f.Severity >= min {
			n++
		}
	}
	return n
}

// ownerChannels collects the team channels root cause findings route to.
func ownerChannels(fs []analyzers.Finding) []string {
	seen := map[string]bool{}
	var out []string
	for _, f := range fs {
		ch := f.Props["channel"]
		if ch == "" || seen[ch] {
			continue
		}
		seen[ch] = true
		out = append(out, ch)
	}
	sort.Strings(out)
	return out
}
