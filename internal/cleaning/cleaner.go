package cleaning

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/Jennie1434/BDD-lvmh/internal/domain"
	"github.com/Jennie1434/BDD-lvmh/internal/ports"
)

var (
	emojiRe = regexp.MustCompile(`[\x{1F000}-\x{1FAFF}\x{2190}-\x{21FF}\x{2600}-\x{27BF}\x{2B00}-\x{2BFF}\x{FE0F}\x{200D}]`)

	repeatTerminalRe = regexp.MustCompile(`([.!?])[.!?]+`)
	repeatCommaRe    = regexp.MustCompile(`,{2,}`)
	spaceBeforeRe    = regexp.MustCompile(`\s+([.,!?])`)
	spaceAfterRe     = regexp.MustCompile(`([.,!?])(\p{L})`)
	whitespaceRe     = regexp.MustCompile(`\s+`)
)

// Options tunes the deterministic cleaning passes.
type Options struct {
	// Capitalize enables the sentence-boundary capitalization pass.
	Capitalize bool
	// PIIColumns lists metadata keys whose values are replaced by a
	// deterministic hash (pseudonymization of structured fields).
	PIIColumns []string
}

// DefaultPIIColumns are the structured fields hashed when no explicit list
// is configured.
var DefaultPIIColumns = []string{"email", "phone", "full_name", "address"}

// Cleaner normalizes and anonymizes raw transcripts. The deterministic
// passes are pure; the only suspension point is the external redaction call.
type Cleaner struct {
	rules    *Ruleset
	redactor ports.Redactor
	opts     Options
	logger   *slog.Logger
}

// New builds a cleaner bound to a ruleset and an optional redactor.
func New(rules *Ruleset, redactor ports.Redactor, opts Options, logger *slog.Logger) *Cleaner {
	if rules == nil {
		rules = DefaultRuleset()
	}
	if len(opts.PIIColumns) == 0 {
		opts.PIIColumns = DefaultPIIColumns
	}
	return &Cleaner{rules: rules, redactor: redactor, opts: opts, logger: logger}
}

// Clean runs the full cleaning stage on one record. It never fails: a
// redaction error degrades to the fail-open fallback instead of surfacing.
func (c *Cleaner) Clean(ctx context.Context, raw domain.RawRecord) domain.CleanedRecord {
	text := c.Normalize(raw.Text)

	result := domain.CleanedRecord{
		Raw:         raw,
		CleanedText: text,
		Metadata:    c.pseudonymizeMetadata(raw.Metadata),
		Report:      domain.AnonymizationReport{Violations: []string{}, Compliant: true},
	}

	if c.redactor == nil || text == "" {
		return result
	}

	redaction, err := c.redactor.Redact(ctx, text)
	if err != nil {
		// Fail-open: keep the filler-cleaned text, mark it compliant and
		// record the failure out-of-band for audit.
		result.RedactionErr = err.Error()
		c.warn("redaction failed, applying fallback", "record", raw.ID, "error", err)
		return result
	}

	result.CleanedText = redaction.CleanedText
	result.Report = domain.AnonymizationReport{
		Violations: append([]string{}, redaction.Violations...),
		Compliant:  redaction.Compliant,
	}
	return result
}

// Normalize applies the deterministic passes in fixed order: lowercase,
// emoji removal, filler removal, grammar substitutions, punctuation
// normalization, whitespace collapse and the optional capitalization pass.
// Idempotent: Normalize(Normalize(x)) == Normalize(x).
func (c *Cleaner) Normalize(text string) string {
	text = strings.ToLower(text)
	text = emojiRe.ReplaceAllString(text, " ")

	for _, re := range c.rules.removals {
		text = removeWholeWord(text, re)
	}
	for _, sub := range c.rules.subs {
		text = replaceWholeWord(text, sub.re, sub.replace)
	}

	text = normalizePunctuation(text)
	text = whitespaceRe.ReplaceAllString(text, " ")
	text = strings.TrimSpace(text)

	if c.opts.Capitalize && text != "" {
		text = capitalizeSentences(text)
	}
	return text
}

func (c *Cleaner) pseudonymizeMetadata(meta map[string]string) map[string]string {
	if meta == nil {
		return nil
	}

	out := make(map[string]string, len(meta))
	for k, v := range meta {
		if isJunkValue(v) {
			v = ""
		}
		out[k] = v
	}

	for _, col := range c.opts.PIIColumns {
		v, ok := out[col]
		if !ok {
			continue
		}
		delete(out, col)
		if v != "" {
			out[col+"_hash"] = Pseudonymize(v)
		}
	}
	return out
}

// removeWholeWord deletes matches of re that sit on word boundaries,
// replacing each with a single space. Boundaries are checked against
// Unicode letters and digits, so accented vocabulary matches correctly.
func removeWholeWord(text string, re *regexp.Regexp) string {
	return replaceWholeWord(text, re, " ")
}

func replaceWholeWord(text string, re *regexp.Regexp, replacement string) string {
	matches := re.FindAllStringIndex(text, -1)
	if len(matches) == 0 {
		return text
	}

	var b strings.Builder
	last := 0
	for _, m := range matches {
		if m[0] < last || !wordBounded(text, m[0], m[1]) {
			continue
		}
		b.WriteString(text[last:m[0]])
		b.WriteString(replacement)
		last = m[1]
	}
	b.WriteString(text[last:])
	return b.String()
}

func wordBounded(text string, start, end int) bool {
	if start > 0 {
		r, _ := utf8.DecodeLastRuneInString(text[:start])
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return false
		}
	}
	if end < len(text) {
		r, _ := utf8.DecodeRuneInString(text[end:])
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// normalizePunctuation drops characters outside the allowed set, collapses
// repeated terminal punctuation and fixes spacing around punctuation.
func normalizePunctuation(text string) string {
	text = strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r):
			return r
		case strings.ContainsRune(".,!?'’-€", r):
			return r
		default:
			return ' '
		}
	}, text)

	text = repeatTerminalRe.ReplaceAllString(text, "$1")
	text = repeatCommaRe.ReplaceAllString(text, ",")
	text = spaceBeforeRe.ReplaceAllString(text, "$1")
	text = spaceAfterRe.ReplaceAllString(text, "$1 $2")
	return text
}

// capitalizeSentences upper-cases the first letter of the text and of each
// sentence, and enforces terminal punctuation.
func capitalizeSentences(text string) string {
	runes := []rune(text)
	upper := true
	for i, r := range runes {
		if upper && unicode.IsLetter(r) {
			runes[i] = unicode.ToUpper(r)
			upper = false
		}
		if r == '.' || r == '!' || r == '?' {
			upper = true
		}
	}

	last := runes[len(runes)-1]
	if last != '.' && last != '!' && last != '?' {
		runes = append(runes, '.')
	}
	return string(runes)
}

func isJunkValue(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "null", "n/a", "undefined", "none":
		return true
	}
	return false
}

func (c *Cleaner) warn(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Warn(msg, args...)
	}
}
