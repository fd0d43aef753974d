package domain

import "time"

// RawRecord is a single customer-interaction transcript as ingested.
// Immutable once created; every later stage produces a new value.
type RawRecord struct {
	ID         string
	Text       string
	Metadata   map[string]string
	OccurredAt time.Time // zero when the source carried no usable date
}

// AnonymizationReport captures what the redaction sub-stage found.
type AnonymizationReport struct {
	Violations []string
	Compliant  bool
}

// CleanedRecord is the output of the cleaning stage. Metadata is the
// pseudonymized copy of the raw metadata; the raw record stays untouched.
type CleanedRecord struct {
	Raw         RawRecord
	CleanedText string
	Metadata    map[string]string
	Report      AnonymizationReport

	// RedactionErr records an out-of-band redaction failure. When it is
	// non-empty the record went through the fail-open fallback: the text is
	// the filler-cleaned version and Report.Compliant is true.
	RedactionErr string
}

// ClassifiedRecord adds taxonomy results to a cleaned record.
type ClassifiedRecord struct {
	CleanedRecord
	Category string
	Tags     []string
}

// HasTag reports whether the tag set contains the given marker.
func (c ClassifiedRecord) HasTag(tag string) bool {
	for _, t := range c.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// RankedRecord is a classified record with its priority placement.
// Rank is 1-based; 1 is the highest priority in the batch.
type RankedRecord struct {
	ClassifiedRecord
	PriorityScore int
	Rank          int
}

// NotificationPayload is the human-readable projection of a ranked record.
// Write-only: it is dispatched downstream and never re-parsed.
type NotificationPayload struct {
	Subject string
	Body    string
}

// OutcomeStatus enumerates how a record left the pipeline.
type OutcomeStatus string

const (
	// StatusSuccess means every stage completed, redaction included.
	StatusSuccess OutcomeStatus = "success"
	// StatusFallback means cleaning succeeded but the redaction call
	// failed and the fail-open default was applied.
	StatusFallback OutcomeStatus = "fallback"
	// StatusError means the record could not be processed.
	StatusError OutcomeStatus = "error"
)

// Outcome is the per-record result of a batch run, keyed by normalized ID.
type Outcome struct {
	ID     string
	Status OutcomeStatus
	Record *RankedRecord
	Err    string
}
