package reattribution

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Jennie1434/BDD-lvmh/internal/domain"
	"github.com/Jennie1434/BDD-lvmh/internal/ports"
)

// DefaultDecisionWait bounds how long an offer stays open.
const DefaultDecisionWait = 30 * time.Second

// Offer proposes transferring a client record to a specific recipient.
type Offer struct {
	ID         string
	RecordID   string
	From       string
	To         string
	Summary    domain.NotificationPayload
	ProposedAt time.Time
}

// Decision is the recipient's reply to an offer.
type Decision struct {
	OfferID  string
	Accepted bool
	Reason   string
}

// Recipient is the remote party of the handshake.
type Recipient interface {
	Decide(ctx context.Context, offer Offer) (Decision, error)
}

// Result reports how an offer concluded.
type Result struct {
	Offer       Offer
	Accepted    bool
	TimedOut    bool
	Transferred bool
}

// Handshake runs the two-phase Offer → Decision → Transfer protocol.
// The full context transfer goes out only on an explicit accept; a missing
// reply within the wait is an implicit reject.
type Handshake struct {
	recipient Recipient
	transfer  ports.Notifier
	wait      time.Duration
	logger    *slog.Logger
}

// New builds a handshake runner. wait <= 0 selects DefaultDecisionWait.
func New(recipient Recipient, transfer ports.Notifier, wait time.Duration, logger *slog.Logger) *Handshake {
	if wait <= 0 {
		wait = DefaultDecisionWait
	}
	return &Handshake{recipient: recipient, transfer: transfer, wait: wait, logger: logger}
}

// NewOffer stamps a fresh offer for a ranked record.
func NewOffer(record domain.RankedRecord, from, to string) Offer {
	return Offer{
		ID:         uuid.NewString(),
		RecordID:   record.Raw.ID,
		From:       from,
		To:         to,
		ProposedAt: time.Now().UTC(),
	}
}

// Propose executes the protocol for one offer.
func (h *Handshake) Propose(ctx context.Context, offer Offer) (Result, error) {
	result := Result{Offer: offer}
	if h.recipient == nil {
		return result, fmt.Errorf("reattribution: no recipient configured")
	}

	decideCtx, cancel := context.WithTimeout(ctx, h.wait)
	defer cancel()

	type reply struct {
		decision Decision
		err      error
	}
	replies := make(chan reply, 1)
	go func() {
		decision, err := h.recipient.Decide(decideCtx, offer)
		replies <- reply{decision: decision, err: err}
	}()

	select {
	case <-decideCtx.Done():
		// No reply within the wait: implicit reject, nothing transferred.
		result.TimedOut = true
		h.log("offer timed out, treated as reject", "offer", offer.ID, "record", offer.RecordID)
		return result, nil
	case r := <-replies:
		if r.err != nil {
			return result, fmt.Errorf("decide offer %s: %w", offer.ID, r.err)
		}
		if !r.decision.Accepted {
			h.log("offer rejected", "offer", offer.ID, "reason", r.decision.Reason)
			return result, nil
		}
	}

	result.Accepted = true
	if h.transfer == nil {
		return result, nil
	}

	// Second phase: full context transfer, same formatting as the
	// broadcast summary.
	if err := h.transfer.Publish(ctx, offer.Summary); err != nil {
		return result, fmt.Errorf("transfer record %s: %w", offer.RecordID, err)
	}
	result.Transferred = true
	h.log("record transferred", "offer", offer.ID, "record", offer.RecordID, "to", offer.To)
	return result, nil
}

func (h *Handshake) log(msg string, args ...any) {
	if h.logger != nil {
		h.logger.Info(msg, args...)
	}
}
