package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Jennie1434/BDD-lvmh/internal/domain"
	"github.com/Jennie1434/BDD-lvmh/internal/ports"
)

// DefaultBatchSize groups transcripts per tagging call.
const DefaultBatchSize = 20

// Tagger attributes taxonomy tags to transcript batches through an LLM.
type Tagger struct {
	gen          ports.Generator
	taxonomyJSON string
}

var _ ports.Tagger = (*Tagger)(nil)

// NewTagger wraps a generator with the taxonomy the prompt embeds.
func NewTagger(gen ports.Generator, taxonomyJSON []byte) *Tagger {
	return &Tagger{gen: gen, taxonomyJSON: string(taxonomyJSON)}
}

// taggedEntry is the strict per-record response contract: all four pillar
// keys are required, absent keys fail the batch.
type taggedEntry struct {
	ProductInterest *[]string `json:"tags_pilier_1_interet_produit"`
	PurchaseContext *[]string `json:"tags_pilier_2_contexte_achat"`
	FeedbackBrakes  *[]string `json:"tags_pilier_3_feedback_freins"`
	ClientProfile   *[]string `json:"tags_pilier_4_profil_client"`
}

// AttributeTags sends one batch for tag attribution. The result map is
// keyed by trimmed string IDs so numeric and string representations of
// the same id cannot orphan a record.
func (t *Tagger) AttributeTags(ctx context.Context, batch []domain.RawRecord) (map[string]ports.PillarTags, error) {
	if len(batch) == 0 {
		return map[string]ports.PillarTags{}, nil
	}

	var transcripts strings.Builder
	for _, record := range batch {
		fmt.Fprintf(&transcripts, "ID: %s\nTRANSCRIPT: %s\n\n", record.ID, record.Text)
	}

	system := fmt.Sprintf(`You are an expert CRM assistant. Analyze customer transcripts and attribute tags based on the provided Taxonomy.

The Taxonomy is structured as a hierarchy (Category -> Sub-Category -> ...). The Top-Level Categories correspond to the 4 Pillars of analysis.

For EACH transcript, return a JSON object keyed by its ID. Inside each ID key, provide the 4 pillar keys:

"tags_pilier_1_interet_produit": list of strings
"tags_pilier_2_contexte_achat": list of strings
"tags_pilier_3_feedback_freins": list of strings
"tags_pilier_4_profil_client": list of strings

For each category, select the most specific tags found at the deepest level of the taxonomy. Only use tags explicitly listed in the taxonomy.

Taxonomy Structure (JSON):
%s`, t.taxonomyJSON)

	user := fmt.Sprintf("Here are the transcripts to process:\n\n%s\nReturn the JSON object processing all IDs.", transcripts.String())

	raw, err := t.gen.Generate(ctx, system, user)
	if err != nil {
		return nil, fmt.Errorf("tagging call: %w", err)
	}

	var reply map[string]taggedEntry
	if err := json.Unmarshal([]byte(stripFences(raw)), &reply); err != nil {
		return nil, fmt.Errorf("tagging reply: %w", domain.ErrMalformedResponse)
	}

	result := make(map[string]ports.PillarTags, len(reply))
	for id, entry := range reply {
		if entry.ProductInterest == nil || entry.PurchaseContext == nil ||
			entry.FeedbackBrakes == nil || entry.ClientProfile == nil {
			return nil, fmt.Errorf("tagging reply for id %s missing pillar keys: %w", id, domain.ErrMalformedResponse)
		}
		result[strings.TrimSpace(id)] = ports.PillarTags{
			ProductInterest: *entry.ProductInterest,
			PurchaseContext: *entry.PurchaseContext,
			FeedbackBrakes:  *entry.FeedbackBrakes,
			ClientProfile:   *entry.ClientProfile,
		}
	}
	return result, nil
}

// Batches splits records into tagging-sized groups, preserving order.
func Batches(records []domain.RawRecord, size int) [][]domain.RawRecord {
	if size <= 0 {
		size = DefaultBatchSize
	}
	var batches [][]domain.RawRecord
	for start := 0; start < len(records); start += size {
		end := start + size
		if end > len(records) {
			end = len(records)
		}
		batches = append(batches, records[start:end])
	}
	return batches
}
