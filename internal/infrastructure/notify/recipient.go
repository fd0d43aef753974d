package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Jennie1434/BDD-lvmh/internal/reattribution"
)

// HTTPRecipient asks a remote advisor endpoint to decide on a
// reattribution offer.
type HTTPRecipient struct {
	endpoint string
	client   *http.Client
}

var _ reattribution.Recipient = (*HTTPRecipient)(nil)

func NewHTTPRecipient(endpoint string, client *http.Client) *HTTPRecipient {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPRecipient{endpoint: endpoint, client: client}
}

type offerRequest struct {
	OfferID  string `json:"offer_id"`
	RecordID string `json:"record_id"`
	From     string `json:"from"`
	To       string `json:"to"`
	Subject  string `json:"subject"`
}

type decisionReply struct {
	Accepted bool   `json:"accepted"`
	Reason   string `json:"reason"`
}

// Decide posts the offer and waits for the decision within the context
// deadline. Only the subject crosses the wire here; the full synthesis is
// transferred separately after an accept.
func (r *HTTPRecipient) Decide(ctx context.Context, offer reattribution.Offer) (reattribution.Decision, error) {
	if r.endpoint == "" {
		return reattribution.Decision{}, fmt.Errorf("recipient endpoint not configured")
	}

	body, err := json.Marshal(offerRequest{
		OfferID:  offer.ID,
		RecordID: offer.RecordID,
		From:     offer.From,
		To:       offer.To,
		Subject:  offer.Summary.Subject,
	})
	if err != nil {
		return reattribution.Decision{}, fmt.Errorf("encode offer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return reattribution.Decision{}, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return reattribution.Decision{}, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return reattribution.Decision{}, fmt.Errorf("recipient error: %s", resp.Status)
	}

	var reply decisionReply
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return reattribution.Decision{}, fmt.Errorf("decode decision: %w", err)
	}
	return reattribution.Decision{
		OfferID:  offer.ID,
		Accepted: reply.Accepted,
		Reason:   reply.Reason,
	}, nil
}
