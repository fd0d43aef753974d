package cleaning

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/Jennie1434/BDD-lvmh/internal/domain"
	"github.com/Jennie1434/BDD-lvmh/internal/ports"
)

type fakeRedactor struct {
	result ports.Redaction
	err    error
	calls  int
}

func (f *fakeRedactor) Redact(_ context.Context, _ string) (ports.Redaction, error) {
	f.calls++
	return f.result, f.err
}

func TestNormalizeRemovesFillers(t *testing.T) {
	t.Parallel()

	c := New(nil, nil, Options{}, nil)

	got := c.Normalize("Euh bonjour, je viens euh acheter un sac")
	if strings.Contains(got, "euh") {
		t.Fatalf("filler survived cleaning: %q", got)
	}
	if !strings.Contains(got, "sac") || !strings.Contains(got, "bonjour") {
		t.Fatalf("content words lost: %q", got)
	}
}

func TestNormalizeCaseInsensitive(t *testing.T) {
	t.Parallel()

	c := New(nil, nil, Options{}, nil)
	got := c.Normalize("EUH BEN DONC")
	if strings.TrimSpace(got) != "" {
		t.Fatalf("expected empty result for filler-only input, got %q", got)
	}
}

func TestNormalizeKeepsWordsContainingFillers(t *testing.T) {
	t.Parallel()

	c := New(nil, nil, Options{}, nil)

	// "pourquoi" contains "quoi", "beurre" contains "eu": whole-word rules
	// must leave both untouched.
	got := c.Normalize("pourquoi pas du beurre")
	if !strings.Contains(got, "pourquoi") || !strings.Contains(got, "beurre") {
		t.Fatalf("partial-word removal happened: %q", got)
	}
}

func TestNormalizeTotality(t *testing.T) {
	t.Parallel()

	c := New(nil, nil, Options{Capitalize: true}, nil)
	for _, input := range []string{"", "   ", "\t\n"} {
		if got := c.Normalize(input); got != "" {
			t.Fatalf("Normalize(%q) = %q, want empty", input, got)
		}
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	t.Parallel()

	c := New(nil, nil, Options{Capitalize: true}, nil)

	inputs := []string{
		"Euh bonjour, je viens chercher un sac !!",
		"du coup on va dire que c'est bien...",
		"Je cherche   un portefeuille , en cuir",
	}
	for _, input := range inputs {
		once := c.Normalize(input)
		twice := c.Normalize(once)
		if once != twice {
			t.Fatalf("not idempotent for %q: %q vs %q", input, once, twice)
		}
	}
}

func TestNormalizePunctuation(t *testing.T) {
	t.Parallel()

	c := New(nil, nil, Options{}, nil)

	got := c.Normalize("Bonjour , c'est @#$% bizarre !!!")
	if strings.Contains(got, "@") || strings.Contains(got, "#") {
		t.Fatalf("disallowed characters kept: %q", got)
	}
	if strings.Contains(got, "!!") {
		t.Fatalf("repeated terminal punctuation kept: %q", got)
	}
	if strings.Contains(got, " ,") || strings.Contains(got, " !") {
		t.Fatalf("space before punctuation kept: %q", got)
	}
}

func TestNormalizeCapitalization(t *testing.T) {
	t.Parallel()

	c := New(nil, nil, Options{Capitalize: true}, nil)

	got := c.Normalize("bonjour. je cherche un sac")
	if !strings.HasPrefix(got, "Bonjour.") {
		t.Fatalf("first sentence not capitalized: %q", got)
	}
	if !strings.Contains(got, "Je cherche") {
		t.Fatalf("second sentence not capitalized: %q", got)
	}
	if !strings.HasSuffix(got, ".") {
		t.Fatalf("terminal punctuation not enforced: %q", got)
	}
}

func TestNormalizeRemovesEmoji(t *testing.T) {
	t.Parallel()

	c := New(nil, nil, Options{}, nil)
	got := c.Normalize("bonjour \U0001F44B je cherche un sac \U0001F600")
	for _, r := range got {
		if r > 0x2000 && r != '’' && r != '€' {
			t.Fatalf("pictographic code point kept: %q", got)
		}
	}
}

func TestCleanRedactionSuccess(t *testing.T) {
	t.Parallel()

	redactor := &fakeRedactor{
		result: ports.Redaction{
			CleanedText: "bonjour, je suis [NOM], mon numéro c'est [TELEPHONE]",
			Violations:  []string{"noms", "téléphones"},
			Compliant:   true,
		},
	}
	c := New(nil, redactor, Options{}, nil)

	raw := domain.RawRecord{
		ID:   "CA_001",
		Text: "Euh bonjour, je suis Jean Martin, mon numéro c'est 06 12 34 56 78",
	}
	got := c.Clean(context.Background(), raw)

	if strings.Contains(got.CleanedText, "jean martin") || strings.Contains(got.CleanedText, "06 12 34 56 78") {
		t.Fatalf("personal data survived redaction: %q", got.CleanedText)
	}
	if !got.Report.Compliant {
		t.Fatalf("expected compliant report")
	}

	want := map[string]bool{"noms": false, "téléphones": false}
	for _, v := range got.Report.Violations {
		want[v] = true
	}
	for violation, seen := range want {
		if !seen {
			t.Fatalf("violation %q not reported: %v", violation, got.Report.Violations)
		}
	}
	if got.RedactionErr != "" {
		t.Fatalf("unexpected redaction error: %s", got.RedactionErr)
	}
}

func TestCleanRedactionFailureFallsOpen(t *testing.T) {
	t.Parallel()

	redactor := &fakeRedactor{err: errors.New("connection refused")}
	c := New(nil, redactor, Options{}, nil)

	raw := domain.RawRecord{ID: "CA_002", Text: "Euh bonjour, je suis Jean Martin"}
	got := c.Clean(context.Background(), raw)

	// The documented fallback: filler-cleaned text, compliant by default,
	// empty violations, failure reason recorded out-of-band.
	if want := c.Normalize(raw.Text); got.CleanedText != want {
		t.Fatalf("fallback text = %q, want filler-cleaned %q", got.CleanedText, want)
	}
	if !got.Report.Compliant {
		t.Fatalf("fallback must mark record compliant")
	}
	if len(got.Report.Violations) != 0 {
		t.Fatalf("fallback must report no violations, got %v", got.Report.Violations)
	}
	if got.RedactionErr == "" {
		t.Fatalf("redaction failure reason not recorded")
	}
}

func TestCleanSkipsRedactionForEmptyText(t *testing.T) {
	t.Parallel()

	redactor := &fakeRedactor{}
	c := New(nil, redactor, Options{}, nil)

	got := c.Clean(context.Background(), domain.RawRecord{ID: "CA_003", Text: "   "})
	if got.CleanedText != "" {
		t.Fatalf("expected empty cleaned text, got %q", got.CleanedText)
	}
	if redactor.calls != 0 {
		t.Fatalf("redactor called for empty text")
	}
}

func TestPseudonymizeDeterministic(t *testing.T) {
	t.Parallel()

	a := Pseudonymize("jean.martin@example.com")
	b := Pseudonymize("jean.martin@example.com")
	if a != b {
		t.Fatalf("hash not deterministic: %s vs %s", a, b)
	}
	if a == "jean.martin@example.com" || len(a) != 64 {
		t.Fatalf("unexpected hash: %s", a)
	}
	if Pseudonymize("other@example.com") == a {
		t.Fatalf("distinct inputs collided")
	}
}

func TestCleanPseudonymizesMetadata(t *testing.T) {
	t.Parallel()

	c := New(nil, nil, Options{}, nil)
	raw := domain.RawRecord{
		ID:   "CA_004",
		Text: "je cherche un sac",
		Metadata: map[string]string{
			"email":    "jean@example.com",
			"duration": "120",
			"language": "n/a",
		},
	}

	got := c.Clean(context.Background(), raw)

	if _, ok := got.Metadata["email"]; ok {
		t.Fatalf("cleartext PII column kept: %v", got.Metadata)
	}
	if got.Metadata["email_hash"] != Pseudonymize("jean@example.com") {
		t.Fatalf("hash column missing or wrong: %v", got.Metadata)
	}
	if got.Metadata["duration"] != "120" {
		t.Fatalf("non-PII column altered: %v", got.Metadata)
	}
	if got.Metadata["language"] != "" {
		t.Fatalf("junk placeholder not normalized: %v", got.Metadata)
	}
	if raw.Metadata["email"] != "jean@example.com" {
		t.Fatalf("raw record mutated")
	}
}

func TestLoadRulesetOrderPreserved(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := dir + "/rules.yaml"
	content := "version: test-v1\nexpressions:\n  - et euh\nfillers:\n  - e+u+h+\nsubstitutions:\n  - pattern: chuis\n    replace: je suis\n"
	if err := writeFile(path, content); err != nil {
		t.Fatalf("write ruleset: %v", err)
	}

	rs, err := LoadRuleset(path)
	if err != nil {
		t.Fatalf("LoadRuleset: %v", err)
	}
	if rs.Version != "test-v1" {
		t.Fatalf("unexpected version: %s", rs.Version)
	}

	c := New(rs, nil, Options{}, nil)
	if got := c.Normalize("et euh chuis là"); got != "je suis là" {
		t.Fatalf("custom ruleset not applied: %q", got)
	}
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o600)
}

func TestLoadRulesetBadPattern(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := dir + "/rules.yaml"
	if err := writeFile(path, "version: bad\nfillers:\n  - '['\n"); err != nil {
		t.Fatalf("write ruleset: %v", err)
	}

	if _, err := LoadRuleset(path); err == nil {
		t.Fatalf("expected compile error for invalid pattern")
	}
}
