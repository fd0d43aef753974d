package report

import (
	"fmt"
	"strings"

	"github.com/Jennie1434/BDD-lvmh/internal/domain"
)

// placeholder rendered for any absent field.
const placeholder = "N/A"

// Format projects a ranked record into the advisor report layout. Pure and
// total: missing metadata renders the placeholder, never an error.
func Format(record domain.RankedRecord) domain.NotificationPayload {
	meta := record.Metadata

	subject := fmt.Sprintf("[Synthèse IA] Note #%s - Client : %s",
		orNA(record.Raw.ID), orNA(meta["client_name"]))

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\nSynthèse de l'interaction :\n\n", subject)

	fmt.Fprintf(&b, "1. INTÉRÊT PRODUIT\n\n")
	fmt.Fprintf(&b, "Catégorie : %s\n", orNA(record.Category))
	fmt.Fprintf(&b, "Recherche : %s\n", orNA(meta["search"]))
	fmt.Fprintf(&b, "Préférences : %s\n", orNA(meta["preferences"]))
	fmt.Fprintf(&b, "Budget : %s\n\n", orNA(meta["budget"]))

	fmt.Fprintf(&b, "2. CONTEXTE D'ACHAT\n\n")
	fmt.Fprintf(&b, "Occasion : %s\n", orNA(meta["occasion"]))
	fmt.Fprintf(&b, "Bénéficiaire : %s\n\n", orNA(meta["beneficiary"]))

	fmt.Fprintf(&b, "3. ANALYSE DU RESSENTI\n\n")
	fmt.Fprintf(&b, "Sentiment Global : %s\n", orNA(meta["sentiment"]))
	fmt.Fprintf(&b, "Driver d'achat : %s\n", orNA(meta["driver"]))
	fmt.Fprintf(&b, "Frein / Contrainte : %s\n\n", orNA(meta["brake"]))

	fmt.Fprintf(&b, "4. PROFIL & LIFESTYLE\n\n")
	fmt.Fprintf(&b, "Tags : %s\n", orNA(strings.Join(record.Tags, ", ")))
	fmt.Fprintf(&b, "Lifestyle : %s\n", orNA(meta["lifestyle"]))
	fmt.Fprintf(&b, "Info Mémo : %s\n\n", orNA(meta["info_memo"]))

	fmt.Fprintf(&b, "5. PRIORISATION\n\n")
	fmt.Fprintf(&b, "Score : %d\n", record.PriorityScore)
	fmt.Fprintf(&b, "Rang : %d\n", record.Rank)
	fmt.Fprintf(&b, "Conformité RGPD : %s\n", compliance(record))

	return domain.NotificationPayload{Subject: subject, Body: b.String()}
}

func compliance(record domain.RankedRecord) string {
	if record.Report.Compliant {
		return "oui"
	}
	return "non"
}

func orNA(value string) string {
	if strings.TrimSpace(value) == "" {
		return placeholder
	}
	return value
}
