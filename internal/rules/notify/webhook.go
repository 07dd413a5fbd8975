package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"sensegrid-cloud/internal/observability/metrics"
	rules "sensegrid-cloud/internal/rules/domain"
)

// WebhookPublisher posts raised alerts to a webhook endpoint.
type WebhookPublisher struct {
	url    string
	client *http.Client
}

// WebhookOption configures the webhook publisher.
type WebhookOption func(*WebhookPublisher)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) WebhookOption {
	return func(p *WebhookPublisher) {
		if client != nil {
			p.client = client
		}
	}
}

// NewWebhookPublisher constructs a webhook publisher.
func NewWebhookPublisher(url string, opts ...WebhookOption) (*WebhookPublisher, error) {
	if url == "" {
		return nil, errors.New("webhook publisher: empty url")
	}
	publisher := &WebhookPublisher{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(publisher)
	}
	return publisher, nil
}

type webhookPayload struct {
	Event string      `json:"event"`
	Alert rules.Alert `json:"alert"`
}

// Publish posts the alert as JSON.
func (p *WebhookPublisher) Publish(ctx context.Context, alert rules.Alert) error {
	if p == nil || p.url == "" {
		return errors.New("webhook publisher: empty url")
	}
	body, err := json.Marshal(webhookPayload{Event: "alert_raised", Alert: alert})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := p.client.Do(req)
	if err != nil {
		metrics.IncPublish("webhook", metrics.ResultError)
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		metrics.IncPublish("webhook", metrics.ResultError)
		return fmt.Errorf("webhook publisher: non-2xx response %d", resp.StatusCode)
	}
	metrics.IncPublish("webhook", metrics.ResultSuccess)
	return nil
}
