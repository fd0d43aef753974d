package ports

import (
	"context"
	"time"

	"github.com/Jennie1434/BDD-lvmh/internal/domain"
)

// Redaction is the strict result contract of a free-text redaction call.
// Replies missing required keys are rejected by the adapter, never defaulted.
type Redaction struct {
	CleanedText string
	Violations  []string
	Compliant   bool
}

// Redactor detects and removes personal-data spans from free text.
type Redactor interface {
	Redact(ctx context.Context, text string) (Redaction, error)
}

// PillarTags groups attributed tags by the four analysis pillars.
type PillarTags struct {
	ProductInterest []string
	PurchaseContext []string
	FeedbackBrakes  []string
	ClientProfile   []string
}

// Tagger attributes taxonomy tags to a batch of transcripts. Results are
// keyed by record ID; a missing ID means the provider skipped that record.
type Tagger interface {
	AttributeTags(ctx context.Context, batch []domain.RawRecord) (map[string]PillarTags, error)
}

// Generator is the single LLM capability every provider adapter exposes.
type Generator interface {
	Name() string
	Generate(ctx context.Context, system, user string) (string, error)
}

// Notifier pushes a formatted payload to a downstream channel. Fire-and-forget:
// no acknowledgment is expected beyond transport-level success.
type Notifier interface {
	Publish(ctx context.Context, payload domain.NotificationPayload) error
}

// OutcomeRepository persists batch outcomes for deduplication and audit.
type OutcomeRepository interface {
	AlreadyProcessed(ctx context.Context, ids []string) (map[string]bool, error)
	SaveOutcome(ctx context.Context, outcome domain.Outcome) error
}

// Source yields the raw records of one batch run.
type Source interface {
	Fetch(ctx context.Context) ([]domain.RawRecord, error)
}

// Exporter writes the outcomes of a batch run to a durable destination.
type Exporter interface {
	Export(ctx context.Context, outcomes []domain.Outcome) error
}

// Scheduler controls when recurring pipeline runs execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
