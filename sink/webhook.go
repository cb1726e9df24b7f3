package sink

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/use-agent/profilescout/models"
)

// EventRunCompleted is the only event type the webhook sink emits.
const EventRunCompleted = "run.completed"

// SignatureHeader carries the hex HMAC-SHA256 of the body when a secret is
// configured.
const SignatureHeader = "X-Profilescout-Signature"

// Event is the payload sent to webhook endpoints.
type Event struct {
	Type      string    `json:"type"`
	Timestamp int64     `json:"timestamp"`
	Data      EventData `json:"data"`
}

// EventData bundles the run summary with the records it produced.
type EventData struct {
	Summary *models.RunSummary `json:"summary,omitempty"`
	Records []*models.Record   `json:"records"`
}

// WebhookSink posts the finished run to an HTTP endpoint.
type WebhookSink struct {
	URL     string
	Secret  string
	Summary *models.RunSummary

	client *http.Client
	// delays between attempts; the first attempt is immediate.
	delays []time.Duration
}

// NewWebhookSink returns a sink delivering to url, retrying after 1s, 5s
// and 30s.
func NewWebhookSink(url, secret string, summary *models.RunSummary) *WebhookSink {
	return &WebhookSink{
		URL:     url,
		Secret:  secret,
		Summary: summary,
		client:  &http.Client{Timeout: 10 * time.Second},
		delays:  []time.Duration{time.Second, 5 * time.Second, 30 * time.Second},
	}
}

func (s *WebhookSink) Name() string { return "webhook" }

// Write delivers the event, retrying on failure until the attempts run out
// or ctx is done.
func (s *WebhookSink) Write(ctx context.Context, records []*models.Record) error {
	if records == nil {
		records = []*models.Record{}
	}
	event := &Event{
		Type:      EventRunCompleted,
		Timestamp: time.Now().Unix(),
		Data:      EventData{Summary: s.Summary, Records: records},
	}
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("webhook: marshal event: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= len(s.delays); attempt++ {
		if attempt > 0 {
			t := time.NewTimer(s.delays[attempt-1])
			select {
			case <-ctx.Done():
				t.Stop()
				return fmt.Errorf("webhook: %w (last error: %v)", ctx.Err(), lastErr)
			case <-t.C:
			}
		}
		lastErr = s.deliver(ctx, body)
		if lastErr == nil {
			slog.Info("webhook delivered", "url", s.URL, "event", event.Type, "attempt", attempt+1)
			return nil
		}
		slog.Warn("webhook delivery failed", "url", s.URL, "event", event.Type, "attempt", attempt+1, "error", lastErr)
	}
	return fmt.Errorf("webhook: delivery exhausted all retries: %w", lastErr)
}

func (s *WebhookSink) deliver(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Profilescout-Webhook/1.0")
	if s.Secret != "" {
		req.Header.Set(SignatureHeader, "sha256="+Sign(s.Secret, body))
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: deliver: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook: endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

// Sign returns the hex HMAC-SHA256 of body under secret.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
