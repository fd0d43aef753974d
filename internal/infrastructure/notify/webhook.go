package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Jennie1434/BDD-lvmh/internal/domain"
	"github.com/Jennie1434/BDD-lvmh/internal/ports"
)

// Webhook posts advisor syntheses to an HTTP endpoint as JSON.
type Webhook struct {
	endpoint string
	headers  map[string]string
	client   *http.Client
}

var _ ports.Notifier = (*Webhook)(nil)

// NewWebhook registers the delivery endpoint and optional static headers.
func NewWebhook(endpoint string, headers map[string]string, client *http.Client) *Webhook {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Webhook{endpoint: endpoint, headers: headers, client: client}
}

type webhookMessage struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Publish posts one payload. Any non-2xx response is a delivery failure.
func (w *Webhook) Publish(ctx context.Context, payload domain.NotificationPayload) error {
	if w.endpoint == "" {
		return fmt.Errorf("webhook notifier misconfigured")
	}

	body, err := json.Marshal(webhookMessage{Subject: payload.Subject, Body: payload.Body})
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for name, value := range w.headers {
		req.Header.Set(name, value)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook error: %s", resp.Status)
	}
	return nil
}
