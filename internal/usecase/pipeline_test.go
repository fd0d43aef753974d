package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Jennie1434/BDD-lvmh/internal/cleaning"
	"github.com/Jennie1434/BDD-lvmh/internal/domain"
	"github.com/Jennie1434/BDD-lvmh/internal/ports"
	"github.com/Jennie1434/BDD-lvmh/internal/ranking"
	"github.com/Jennie1434/BDD-lvmh/internal/taxonomy"
)

type passRedactor struct{}

func (passRedactor) Redact(_ context.Context, text string) (ports.Redaction, error) {
	return ports.Redaction{CleanedText: text, Violations: []string{}, Compliant: true}, nil
}

type downRedactor struct{}

func (downRedactor) Redact(context.Context, string) (ports.Redaction, error) {
	return ports.Redaction{}, errors.New("service unavailable")
}

type mapTagger struct {
	mu    sync.Mutex
	tags  map[string]ports.PillarTags
	err   error
	calls int
}

func (m *mapTagger) AttributeTags(_ context.Context, batch []domain.RawRecord) (map[string]ports.PillarTags, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	out := make(map[string]ports.PillarTags, len(batch))
	for _, r := range batch {
		if tags, ok := m.tags[r.ID]; ok {
			out[r.ID] = tags
		}
	}
	return out, nil
}

type captureNotifier struct {
	mu       sync.Mutex
	payloads []domain.NotificationPayload
	err      error
}

func (c *captureNotifier) Publish(_ context.Context, payload domain.NotificationPayload) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.payloads = append(c.payloads, payload)
	return nil
}

type memRepo struct {
	mu        sync.Mutex
	processed map[string]bool
	saved     []domain.Outcome
	lookupErr error
}

func (m *memRepo) AlreadyProcessed(_ context.Context, ids []string) (map[string]bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lookupErr != nil {
		return nil, m.lookupErr
	}
	out := make(map[string]bool, len(ids))
	for _, id := range ids {
		out[id] = m.processed[id]
	}
	return out, nil
}

func (m *memRepo) SaveOutcome(_ context.Context, outcome domain.Outcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, outcome)
	return nil
}

func newPipeline(t *testing.T, redactor ports.Redactor, opts ...Option) *Pipeline {
	t.Helper()
	cleaner := cleaning.New(nil, redactor, cleaning.Options{}, nil)
	classifier := taxonomy.NewClassifier(taxonomy.DefaultRules(), nil)
	return NewPipeline(cleaner, classifier, ranking.New(nil), opts...)
}

func TestRunRanksWholeBatch(t *testing.T) {
	t.Parallel()

	p := newPipeline(t, passRedactor{})
	outcomes, err := p.Run(context.Background(), []domain.RawRecord{
		{ID: "CA_001", Text: "Je voudrais un parfum pour ma femme"},
		{ID: "CA_002", Text: "Je suis très mécontent, mon collier en diamant est cassé"},
		{ID: "CA_003", Text: "Bonjour, je cherche un sac en cuir"},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(outcomes) != 3 {
		t.Fatalf("expected 3 outcomes, got %d", len(outcomes))
	}

	// Complaint plus High Jewelry outranks everything else.
	first := outcomes[0]
	if first.ID != "CA_002" || first.Record == nil || first.Record.Rank != 1 {
		t.Fatalf("unexpected top outcome: %+v", first)
	}
	for _, o := range outcomes {
		if o.Status != domain.StatusSuccess {
			t.Fatalf("outcome %s not success: %s", o.ID, o.Status)
		}
	}
}

func TestRunRedactionFailureIsFallbackNotError(t *testing.T) {
	t.Parallel()

	p := newPipeline(t, downRedactor{})
	outcomes, err := p.Run(context.Background(), []domain.RawRecord{
		{ID: "CA_001", Text: "Bonjour, je cherche un sac"},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	got := outcomes[0]
	if got.Status != domain.StatusFallback {
		t.Fatalf("expected fallback, got %s", got.Status)
	}
	if got.Err == "" || got.Record == nil {
		t.Fatalf("fallback outcome must keep the record and the failure reason: %+v", got)
	}
	if !got.Record.Report.Compliant {
		t.Fatalf("fail-open record must stay compliant")
	}
}

func TestRunEmptyTranscriptBecomesErrorOutcome(t *testing.T) {
	t.Parallel()

	p := newPipeline(t, passRedactor{})
	outcomes, err := p.Run(context.Background(), []domain.RawRecord{
		{ID: "CA_001", Text: "Je cherche un sac"},
		{ID: "CA_002", Text: "   "},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(outcomes) != 2 {
		t.Fatalf("expected 2 outcomes, got %d", len(outcomes))
	}
	var errOutcome *domain.Outcome
	for i := range outcomes {
		if outcomes[i].ID == "CA_002" {
			errOutcome = &outcomes[i]
		}
	}
	if errOutcome == nil || errOutcome.Status != domain.StatusError || errOutcome.Record != nil {
		t.Fatalf("empty transcript not isolated as error outcome: %+v", errOutcome)
	}
}

func TestRunBatchValidation(t *testing.T) {
	t.Parallel()

	p := newPipeline(t, nil)

	if _, err := p.Run(context.Background(), nil); err == nil {
		t.Fatalf("empty batch accepted")
	}
	if _, err := p.Run(context.Background(), []domain.RawRecord{
		{ID: "CA_001", Text: "a"}, {ID: " CA_001 ", Text: "b"},
	}); err == nil || !strings.Contains(err.Error(), "duplicate") {
		t.Fatalf("duplicate ids accepted: %v", err)
	}
	if _, err := p.Run(context.Background(), []domain.RawRecord{
		{ID: "  ", Text: "a"},
	}); err == nil {
		t.Fatalf("blank id accepted")
	}
}

func TestRunMergesAttributedTags(t *testing.T) {
	t.Parallel()

	tagger := &mapTagger{tags: map[string]ports.PillarTags{
		"CA_001": {
			ProductInterest: []string{"Sacs"},
			ClientProfile:   []string{"Golf", "VIP"},
		},
	}}
	p := newPipeline(t, passRedactor{}, WithTagger(tagger))

	outcomes, err := p.Run(context.Background(), []domain.RawRecord{
		{ID: "CA_001", Text: "Je suis cliente VIP et je cherche un sac en cuir"},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	rec := outcomes[0].Record
	for _, want := range []string{"Sacs", "Golf", "VIP"} {
		if !rec.HasTag(want) {
			t.Fatalf("tag %q missing from %v", want, rec.Tags)
		}
	}
	// VIP comes from both the rules and the tagger; it must appear once.
	count := 0
	for _, tag := range rec.Tags {
		if tag == "VIP" {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("VIP duplicated: %v", rec.Tags)
	}
}

func TestRunTaggerFailureIsNonFatal(t *testing.T) {
	t.Parallel()

	tagger := &mapTagger{err: errors.New("all providers down")}
	p := newPipeline(t, passRedactor{}, WithTagger(tagger))

	outcomes, err := p.Run(context.Background(), []domain.RawRecord{
		{ID: "CA_001", Text: "Je cherche un sac en cuir"},
	})
	if err != nil {
		t.Fatalf("tagger failure aborted the batch: %v", err)
	}
	if outcomes[0].Status != domain.StatusSuccess {
		t.Fatalf("unexpected status: %s", outcomes[0].Status)
	}
	if outcomes[0].Record.Category != "Leather Goods" {
		t.Fatalf("rule classification lost: %s", outcomes[0].Record.Category)
	}
}

func TestRunChunksTaggingCalls(t *testing.T) {
	t.Parallel()

	tagger := &mapTagger{}
	p := newPipeline(t, nil, WithTagger(tagger), WithTagBatchSize(2))

	records := []domain.RawRecord{
		{ID: "CA_001", Text: "sac"},
		{ID: "CA_002", Text: "montre"},
		{ID: "CA_003", Text: "parfum"},
		{ID: "CA_004", Text: "foulard"},
		{ID: "CA_005", Text: "bague"},
	}
	if _, err := p.Run(context.Background(), records); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if tagger.calls != 3 {
		t.Fatalf("expected 3 tagging calls for 5 records, got %d", tagger.calls)
	}
}

func TestRunNotifiesRankedRecords(t *testing.T) {
	t.Parallel()

	notifier := &captureNotifier{}
	p := newPipeline(t, passRedactor{}, WithNotifier(notifier))

	outcomes, err := p.Run(context.Background(), []domain.RawRecord{
		{ID: "CA_007", Text: "Je cherche un sac en cuir", Metadata: map[string]string{"client_name": "Client A"}},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(notifier.payloads) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(notifier.payloads))
	}
	subject := notifier.payloads[0].Subject
	if !strings.Contains(subject, "CA_007") {
		t.Fatalf("subject missing record id: %q", subject)
	}
	if outcomes[0].Status != domain.StatusSuccess {
		t.Fatalf("unexpected status: %s", outcomes[0].Status)
	}
}

func TestRunNotifierFailureKeepsSuccess(t *testing.T) {
	t.Parallel()

	notifier := &captureNotifier{err: errors.New("webhook 503")}
	p := newPipeline(t, passRedactor{}, WithNotifier(notifier))

	outcomes, err := p.Run(context.Background(), []domain.RawRecord{
		{ID: "CA_001", Text: "Je cherche un sac"},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if outcomes[0].Status != domain.StatusSuccess {
		t.Fatalf("delivery failure changed the outcome: %s", outcomes[0].Status)
	}
}

func TestRunSkipsAlreadyProcessed(t *testing.T) {
	t.Parallel()

	repo := &memRepo{processed: map[string]bool{"CA_001": true}}
	p := newPipeline(t, passRedactor{}, WithRepository(repo))

	outcomes, err := p.Run(context.Background(), []domain.RawRecord{
		{ID: "CA_001", Text: "déjà traité"},
		{ID: "CA_002", Text: "Je cherche un sac"},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(outcomes) != 1 || outcomes[0].ID != "CA_002" {
		t.Fatalf("dedup did not drop the processed record: %+v", outcomes)
	}
	if len(repo.saved) != 1 || repo.saved[0].ID != "CA_002" {
		t.Fatalf("outcomes not persisted: %+v", repo.saved)
	}
}

func TestRunWholeBatchAlreadyProcessed(t *testing.T) {
	t.Parallel()

	repo := &memRepo{processed: map[string]bool{"CA_001": true}}
	p := newPipeline(t, nil, WithRepository(repo))

	outcomes, err := p.Run(context.Background(), []domain.RawRecord{
		{ID: "CA_001", Text: "déjà traité"},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(outcomes) != 0 {
		t.Fatalf("expected no outcomes, got %+v", outcomes)
	}
}

func TestRunDedupLookupFailureAborts(t *testing.T) {
	t.Parallel()

	repo := &memRepo{lookupErr: errors.New("database locked")}
	p := newPipeline(t, nil, WithRepository(repo))

	_, err := p.Run(context.Background(), []domain.RawRecord{{ID: "CA_001", Text: "sac"}})
	if err == nil {
		t.Fatalf("lookup failure ignored")
	}
}

type staticSource struct {
	records []domain.RawRecord
	err     error
}

func (s staticSource) Fetch(context.Context) ([]domain.RawRecord, error) {
	return s.records, s.err
}

type captureExporter struct {
	mu       sync.Mutex
	exported [][]domain.Outcome
}

func (c *captureExporter) Export(_ context.Context, outcomes []domain.Outcome) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.exported = append(c.exported, outcomes)
	return nil
}

type tickScheduler struct {
	job  func(time.Time)
	stop bool
}

func (s *tickScheduler) Start(_ context.Context, job func(time.Time)) error {
	s.job = job
	return nil
}

func (s *tickScheduler) Stop(context.Context) error {
	s.stop = true
	return nil
}

func TestRunnerRunOnce(t *testing.T) {
	t.Parallel()

	exporter := &captureExporter{}
	runner := NewRunner(
		staticSource{records: []domain.RawRecord{{ID: "CA_001", Text: "Je cherche un sac"}}},
		newPipeline(t, passRedactor{}),
		exporter, nil, nil,
	)

	outcomes, err := runner.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if len(outcomes) != 1 {
		t.Fatalf("expected 1 outcome, got %d", len(outcomes))
	}
	if len(exporter.exported) != 1 {
		t.Fatalf("outcomes not exported")
	}
}

func TestRunnerEmptyFetchIsNotAnError(t *testing.T) {
	t.Parallel()

	exporter := &captureExporter{}
	runner := NewRunner(staticSource{}, newPipeline(t, nil), exporter, nil, nil)

	outcomes, err := runner.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if outcomes != nil || len(exporter.exported) != 0 {
		t.Fatalf("empty fetch produced output: %v", outcomes)
	}
}

func TestRunnerScheduledRun(t *testing.T) {
	t.Parallel()

	sched := &tickScheduler{}
	exporter := &captureExporter{}
	runner := NewRunner(
		staticSource{records: []domain.RawRecord{{ID: "CA_001", Text: "Je cherche un sac"}}},
		newPipeline(t, passRedactor{}),
		exporter, sched, nil,
	)

	if err := runner.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if sched.job == nil {
		t.Fatalf("job not registered")
	}
	sched.job(time.Now())
	if len(exporter.exported) != 1 {
		t.Fatalf("scheduled run did not export")
	}
	if err := runner.Stop(context.Background()); err != nil || !sched.stop {
		t.Fatalf("Stop: %v (stopped=%v)", err, sched.stop)
	}
}
