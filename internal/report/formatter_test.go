package report

import (
	"strings"
	"testing"

	"github.com/Jennie1434/BDD-lvmh/internal/domain"
)

func TestFormatFillsPlaceholders(t *testing.T) {
	t.Parallel()

	payload := Format(domain.RankedRecord{
		ClassifiedRecord: domain.ClassifiedRecord{
			CleanedRecord: domain.CleanedRecord{Raw: domain.RawRecord{ID: "CA_001"}},
		},
		PriorityScore: 0,
		Rank:          3,
	})

	if !strings.Contains(payload.Subject, "Note #CA_001") {
		t.Fatalf("subject missing note id: %q", payload.Subject)
	}
	if !strings.Contains(payload.Subject, "Client : N/A") {
		t.Fatalf("missing client name not rendered as placeholder: %q", payload.Subject)
	}
	for _, field := range []string{"Budget : N/A", "Occasion : N/A", "Lifestyle : N/A"} {
		if !strings.Contains(payload.Body, field) {
			t.Fatalf("body missing %q:\n%s", field, payload.Body)
		}
	}
	if !strings.Contains(payload.Body, "Rang : 3") {
		t.Fatalf("rank not rendered:\n%s", payload.Body)
	}
}

func TestFormatRendersKnownFields(t *testing.T) {
	t.Parallel()

	record := domain.RankedRecord{
		ClassifiedRecord: domain.ClassifiedRecord{
			CleanedRecord: domain.CleanedRecord{
				Raw: domain.RawRecord{ID: "CA_002"},
				Metadata: map[string]string{
					"client_name": "Mme Laurent",
					"budget":      "3-4K€",
					"occasion":    "Anniversaire (50 ans)",
				},
				Report: domain.AnonymizationReport{Compliant: true},
			},
			Category: "Leather Goods",
			Tags:     []string{"VIP", "Gift"},
		},
		PriorityScore: 14,
		Rank:          1,
	}

	payload := Format(record)

	if !strings.Contains(payload.Subject, "Client : Mme Laurent") {
		t.Fatalf("client name not in subject: %q", payload.Subject)
	}
	for _, field := range []string{
		"Catégorie : Leather Goods",
		"Budget : 3-4K€",
		"Occasion : Anniversaire (50 ans)",
		"Tags : VIP, Gift",
		"Score : 14",
		"Conformité RGPD : oui",
	} {
		if !strings.Contains(payload.Body, field) {
			t.Fatalf("body missing %q:\n%s", field, payload.Body)
		}
	}
}

func TestFormatIsTotal(t *testing.T) {
	t.Parallel()

	// Zero value must render without panicking.
	payload := Format(domain.RankedRecord{})
	if payload.Body == "" {
		t.Fatalf("empty body for zero record")
	}
	if !strings.Contains(payload.Subject, "Note #N/A") {
		t.Fatalf("missing id not rendered as placeholder: %q", payload.Subject)
	}
}
