package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/Jennie1434/BDD-lvmh/internal/cleaning"
	"github.com/Jennie1434/BDD-lvmh/internal/domain"
	"github.com/Jennie1434/BDD-lvmh/internal/ports"
	"github.com/Jennie1434/BDD-lvmh/internal/ranking"
	"github.com/Jennie1434/BDD-lvmh/internal/report"
	"github.com/Jennie1434/BDD-lvmh/internal/taxonomy"
)

const (
	// DefaultWorkers bounds concurrent record processing and tagging calls.
	DefaultWorkers = 2
	// DefaultTagBatchSize is how many transcripts share one tagging call.
	DefaultTagBatchSize = 20
)

// Pipeline runs one batch of transcripts through cleaning, classification,
// ranking and notification. Tagger, notifier and repository are optional;
// a nil dependency disables that stage.
type Pipeline struct {
	cleaner     *cleaning.Cleaner
	classifier  *taxonomy.Classifier
	prioritizer *ranking.Prioritizer
	tagger      ports.Tagger
	notifier    ports.Notifier
	repo        ports.OutcomeRepository
	logger      *slog.Logger
	workers     int
	tagBatch    int
}

// Option configures optional pipeline stages.
type Option func(*Pipeline)

func WithTagger(t ports.Tagger) Option {
	return func(p *Pipeline) { p.tagger = t }
}

func WithNotifier(n ports.Notifier) Option {
	return func(p *Pipeline) { p.notifier = n }
}

func WithRepository(r ports.OutcomeRepository) Option {
	return func(p *Pipeline) { p.repo = r }
}

func WithWorkers(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.workers = n
		}
	}
}

func WithTagBatchSize(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.tagBatch = n
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

func NewPipeline(cleaner *cleaning.Cleaner, classifier *taxonomy.Classifier, prioritizer *ranking.Prioritizer, opts ...Option) *Pipeline {
	p := &Pipeline{
		cleaner:     cleaner,
		classifier:  classifier,
		prioritizer: prioritizer,
		workers:     DefaultWorkers,
		tagBatch:    DefaultTagBatchSize,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run processes one batch. The batch must be non-empty and carry unique,
// non-blank IDs; anything else fails before any record is touched.
//
// Per-record problems never abort the batch: a record with no usable text
// becomes an error outcome, a failed redaction call becomes a fallback
// outcome, and both leave the other records untouched. Ranking happens
// only after every record is classified so Rank reflects the whole batch.
func (p *Pipeline) Run(ctx context.Context, batch []domain.RawRecord) ([]domain.Outcome, error) {
	records, err := validateBatch(batch)
	if err != nil {
		return nil, err
	}

	if p.repo != nil {
		records, err = p.dropProcessed(ctx, records)
		if err != nil {
			return nil, err
		}
		if len(records) == 0 {
			p.log("every record in the batch was already processed")
			return []domain.Outcome{}, nil
		}
	}

	pillarTags := p.attributeTags(ctx, records)

	classified := make([]domain.ClassifiedRecord, 0, len(records))
	var errOutcomes []domain.Outcome
	results := make([]*domain.ClassifiedRecord, len(records))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, raw := range records {
		i, raw := i, raw
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if strings.TrimSpace(raw.Text) == "" {
				return nil
			}
			cleaned := p.cleaner.Clean(gctx, raw)
			category, tags := p.classifier.Classify(cleaned.CleanedText)
			if extra, ok := pillarTags[strings.TrimSpace(raw.ID)]; ok {
				tags = mergeTags(tags, extra)
			}
			results[i] = &domain.ClassifiedRecord{
				CleanedRecord: cleaned,
				Category:      category,
				Tags:          tags,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("batch aborted: %w", err)
	}

	for i, rec := range results {
		if rec == nil {
			errOutcomes = append(errOutcomes, domain.Outcome{
				ID:     strings.TrimSpace(records[i].ID),
				Status: domain.StatusError,
				Err:    "empty transcript",
			})
			continue
		}
		classified = append(classified, *rec)
	}

	ranked := p.prioritizer.Rank(classified)

	outcomes := make([]domain.Outcome, 0, len(ranked)+len(errOutcomes))
	for i := range ranked {
		rec := &ranked[i]
		status := domain.StatusSuccess
		if rec.RedactionErr != "" {
			status = domain.StatusFallback
		}
		outcomes = append(outcomes, domain.Outcome{
			ID:     strings.TrimSpace(rec.Raw.ID),
			Status: status,
			Record: rec,
			Err:    rec.RedactionErr,
		})
		p.notify(ctx, *rec)
	}
	outcomes = append(outcomes, errOutcomes...)

	p.persist(ctx, outcomes)
	return outcomes, nil
}

// validateBatch trims IDs and rejects batches the pipeline cannot key.
func validateBatch(batch []domain.RawRecord) ([]domain.RawRecord, error) {
	if len(batch) == 0 {
		return nil, fmt.Errorf("batch is empty")
	}
	seen := make(map[string]struct{}, len(batch))
	records := make([]domain.RawRecord, len(batch))
	for i, raw := range batch {
		id := strings.TrimSpace(raw.ID)
		if id == "" {
			return nil, fmt.Errorf("record %d has a blank id", i)
		}
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("duplicate record id %q", id)
		}
		seen[id] = struct{}{}
		raw.ID = id
		records[i] = raw
	}
	return records, nil
}

func (p *Pipeline) dropProcessed(ctx context.Context, records []domain.RawRecord) ([]domain.RawRecord, error) {
	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.ID
	}
	done, err := p.repo.AlreadyProcessed(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("dedup lookup: %w", err)
	}
	kept := records[:0]
	skipped := 0
	for _, r := range records {
		if done[r.ID] {
			skipped++
			continue
		}
		kept = append(kept, r)
	}
	if skipped > 0 {
		p.log("skipping already processed records", "count", skipped)
	}
	return kept, nil
}

// attributeTags calls the tagger once per chunk, concurrently. A failed
// chunk only costs its records their attributed tags; rule-based tags
// from the classifier still apply.
func (p *Pipeline) attributeTags(ctx context.Context, records []domain.RawRecord) map[string]ports.PillarTags {
	if p.tagger == nil {
		return nil
	}

	var mu sync.Mutex
	out := make(map[string]ports.PillarTags, len(records))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for start := 0; start < len(records); start += p.tagBatch {
		end := min(start+p.tagBatch, len(records))
		chunk := records[start:end]
		g.Go(func() error {
			got, err := p.tagger.AttributeTags(gctx, chunk)
			if err != nil {
				p.warn("tag attribution failed", "records", len(chunk), "error", err)
				return nil
			}
			mu.Lock()
			for id, tags := range got {
				out[id] = tags
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// notify publishes the advisor synthesis. Delivery failure downgrades
// nothing: the record was processed, the channel just missed it.
func (p *Pipeline) notify(ctx context.Context, rec domain.RankedRecord) {
	if p.notifier == nil {
		return
	}
	payload := report.Format(rec)
	if err := p.notifier.Publish(ctx, payload); err != nil {
		p.warn("notification failed", "id", rec.Raw.ID, "error", err)
	}
}

func (p *Pipeline) persist(ctx context.Context, outcomes []domain.Outcome) {
	if p.repo == nil {
		return
	}
	for _, outcome := range outcomes {
		if err := p.repo.SaveOutcome(ctx, outcome); err != nil {
			p.warn("saving outcome failed", "id", outcome.ID, "error", err)
		}
	}
}

// mergeTags appends attributed pillar tags to the rule tags, dropping
// duplicates while preserving first-seen order.
func mergeTags(base []string, extra ports.PillarTags) []string {
	seen := make(map[string]struct{}, len(base))
	merged := make([]string, 0, len(base))
	add := func(tags []string) {
		for _, tag := range tags {
			tag = strings.TrimSpace(tag)
			if tag == "" {
				continue
			}
			if _, dup := seen[tag]; dup {
				continue
			}
			seen[tag] = struct{}{}
			merged = append(merged, tag)
		}
	}
	add(base)
	add(extra.ProductInterest)
	add(extra.PurchaseContext)
	add(extra.FeedbackBrakes)
	add(extra.ClientProfile)
	return merged
}

func (p *Pipeline) log(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Info(msg, args...)
	}
}

func (p *Pipeline) warn(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Warn(msg, args...)
	}
}
