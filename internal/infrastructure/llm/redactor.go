package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Jennie1434/BDD-lvmh/internal/domain"
	"github.com/Jennie1434/BDD-lvmh/internal/ports"
)

const redactionSystemPrompt = "Tu es une API RGPD qui retourne uniquement du JSON valide."

const redactionUserPrompt = `Tu es un assistant RGPD spécialisé. Analyse cette transcription et identifie les données personnelles à supprimer selon le RGPD.

REGLES :
- Supprimer les noms propres (personnes, lieux précis)
- Supprimer les numéros de téléphone, emails, adresses
- Supprimer les numéros d'identification (sécu, passeport, etc.)
- Supprimer les dates de naissance
- Supprimer les références à des conditions médicales
- Supprimer les numéros de carte bancaire / IBAN
- Garder les informations génériques (ex: "client", "magasin", etc.)

Retourne UN SEUL JSON valide :
{
    "cleaned_text": "...",
    "violations_found": ["noms", "téléphones", ...],
    "is_compliant": true/false
}

TRANSCRIPTION : `

// Redactor detects and removes personal-data spans through an LLM call.
type Redactor struct {
	gen ports.Generator
}

var _ ports.Redactor = (*Redactor)(nil)

// NewRedactor wraps a generator (usually a failover pool).
func NewRedactor(gen ports.Generator) *Redactor {
	return &Redactor{gen: gen}
}

// redactionReply is the strict response contract. Pointer fields let us
// distinguish "absent" from zero values: any missing key is a failure.
type redactionReply struct {
	CleanedText *string   `json:"cleaned_text"`
	Violations  *[]string `json:"violations_found"`
	IsCompliant *bool     `json:"is_compliant"`
}

// Redact sends one transcript for redaction and validates the reply.
func (r *Redactor) Redact(ctx context.Context, text string) (ports.Redaction, error) {
	raw, err := r.gen.Generate(ctx, redactionSystemPrompt, redactionUserPrompt+text)
	if err != nil {
		return ports.Redaction{}, fmt.Errorf("redaction call: %w", err)
	}

	var reply redactionReply
	if err := json.Unmarshal([]byte(stripFences(raw)), &reply); err != nil {
		return ports.Redaction{}, fmt.Errorf("redaction reply: %w", domain.ErrMalformedResponse)
	}
	if reply.CleanedText == nil || reply.Violations == nil || reply.IsCompliant == nil {
		return ports.Redaction{}, fmt.Errorf("redaction reply missing keys: %w", domain.ErrMalformedResponse)
	}

	return ports.Redaction{
		CleanedText: *reply.CleanedText,
		Violations:  *reply.Violations,
		Compliant:   *reply.IsCompliant,
	}, nil
}

// stripFences removes markdown code fences some models wrap around JSON.
func stripFences(raw string) string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	return strings.TrimSpace(raw)
}
