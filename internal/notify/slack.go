package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// SlackNotifier posts plain-text messages to a Slack incoming webhook.
// An empty webhook URL disables delivery: Notify then logs and returns
// nil, so a missing webhook never breaks a run.
type SlackNotifier struct {
	webhookURL string
	client     *http.Client
}

// NewSlackNotifier creates a notifier. client may be nil; a client
// with a 5-second timeout is used then.
func NewSlackNotifier(webhookURL string, client *http.Client) *SlackNotifier {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &SlackNotifier{webhookURL: webhookURL, client: client}
}

// Notify delivers one message. Failures are returned for the caller to
// log; they must never abort the surrounding run.
func (n *SlackNotifier) Notify(ctx context.Context, text string) error {
	if n.webhookURL == "" {
		log.Printf("INFO: slack webhook not configured; skipping notification")
		return nil
	}

	payload, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return fmt.Errorf("encode slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("post to slack: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("slack returned %d: %s", resp.StatusCode, body)
	}
	return nil
}
