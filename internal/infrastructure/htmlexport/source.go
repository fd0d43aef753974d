package htmlexport

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/oklog/ulid/v2"

	"github.com/Jennie1434/BDD-lvmh/internal/domain"
	"github.com/Jennie1434/BDD-lvmh/internal/ports"
)

// Selectors locates the note fields inside an HTML conversation export.
type Selectors struct {
	// Note selects one element per transcript.
	Note string
	// Transcript selects the free-text body inside a note.
	Transcript string
}

// DefaultSelectors match the conversation-tool export layout.
var DefaultSelectors = Selectors{
	Note:       "article.note",
	Transcript: ".transcript",
}

// Source ingests raw records from an HTML conversation export. The note
// ID comes from the data-id attribute, the timestamp from a <time>
// element, and metadata from elements carrying a data-field attribute.
type Source struct {
	path   string
	sel    Selectors
	logger *slog.Logger
}

var _ ports.Source = (*Source)(nil)

func NewSource(path string, sel Selectors, logger *slog.Logger) *Source {
	if sel.Note == "" {
		sel.Note = DefaultSelectors.Note
	}
	if sel.Transcript == "" {
		sel.Transcript = DefaultSelectors.Transcript
	}
	return &Source{path: path, sel: sel, logger: logger}
}

// Fetch parses the export file. Notes without a transcript body are
// dropped; notes without an ID get a generated one.
func (s *Source) Fetch(ctx context.Context) ([]domain.RawRecord, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open export file: %w", err)
	}
	defer f.Close()

	doc, err := goquery.NewDocumentFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.path, err)
	}

	var records []domain.RawRecord
	dropped := 0
	doc.Find(s.sel.Note).EachWithBreak(func(_ int, note *goquery.Selection) bool {
		if ctx.Err() != nil {
			return false
		}

		text := strings.TrimSpace(note.Find(s.sel.Transcript).First().Text())
		if text == "" {
			dropped++
			return true
		}

		record := domain.RawRecord{Text: text}
		record.ID = strings.TrimSpace(note.AttrOr("data-id", ""))
		if record.ID == "" {
			record.ID = ulid.Make().String()
		}

		if stamp, ok := note.Find("time").First().Attr("datetime"); ok {
			if t, err := time.Parse(time.RFC3339, strings.TrimSpace(stamp)); err == nil {
				record.OccurredAt = t
			}
		}

		meta := make(map[string]string)
		note.Find("[data-field]").Each(func(_ int, field *goquery.Selection) {
			name := field.AttrOr("data-field", "")
			value := strings.TrimSpace(field.Text())
			if name != "" && value != "" {
				meta[name] = value
			}
		})
		if len(meta) > 0 {
			record.Metadata = meta
		}

		records = append(records, record)
		return true
	})
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if dropped > 0 {
		s.log("dropped notes without a transcript", "count", dropped)
	}
	return records, nil
}

func (s *Source) log(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Info(msg, args...)
	}
}
