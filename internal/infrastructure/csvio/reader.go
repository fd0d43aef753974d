package csvio

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/Jennie1434/BDD-lvmh/internal/domain"
	"github.com/Jennie1434/BDD-lvmh/internal/ports"
)

// ReaderConfig locates the transcript columns inside an export file.
// Column matching is case-insensitive on trimmed header names.
type ReaderConfig struct {
	Path       string
	IDColumn   string // default "id"
	TextColumn string // default "transcription"
	DateColumn string // default "date"
	Comma      rune   // default ','
}

// Reader ingests raw records from a CSV export. The transcript column is
// mandatory; rows without an ID get a generated one so the batch stays
// keyable.
type Reader struct {
	cfg    ReaderConfig
	logger *slog.Logger
}

var _ ports.Source = (*Reader)(nil)

func NewReader(cfg ReaderConfig, logger *slog.Logger) *Reader {
	if cfg.IDColumn == "" {
		cfg.IDColumn = "id"
	}
	if cfg.TextColumn == "" {
		cfg.TextColumn = "transcription"
	}
	if cfg.DateColumn == "" {
		cfg.DateColumn = "date"
	}
	if cfg.Comma == 0 {
		cfg.Comma = ','
	}
	return &Reader{cfg: cfg, logger: logger}
}

// dateLayouts are tried in order when parsing the date column.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02/01/2006",
}

// Fetch reads the whole file. A missing transcript column fails the file;
// nothing is ingested partially.
func (r *Reader) Fetch(ctx context.Context) ([]domain.RawRecord, error) {
	f, err := os.Open(r.cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open transcript file: %w", err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.Comma = r.cfg.Comma
	cr.FieldsPerRecord = -1

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", r.cfg.Path, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	header := rows[0]
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}

	textCol, ok := columns[strings.ToLower(r.cfg.TextColumn)]
	if !ok {
		return nil, fmt.Errorf("%s has no %q column: %w", r.cfg.Path, r.cfg.TextColumn, domain.ErrMissingColumn)
	}
	idCol, hasID := columns[strings.ToLower(r.cfg.IDColumn)]
	dateCol, hasDate := columns[strings.ToLower(r.cfg.DateColumn)]

	records := make([]domain.RawRecord, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		record := domain.RawRecord{Text: cell(row, textCol)}

		if hasID {
			record.ID = strings.TrimSpace(cell(row, idCol))
		}
		if record.ID == "" {
			record.ID = ulid.Make().String()
			r.log("row has no id, generated one", "id", record.ID)
		}
		if hasDate {
			record.OccurredAt = parseDate(cell(row, dateCol))
		}

		meta := make(map[string]string)
		for name, col := range columns {
			if col == textCol || (hasID && col == idCol) || (hasDate && col == dateCol) {
				continue
			}
			if value := strings.TrimSpace(cell(row, col)); value != "" {
				meta[name] = value
			}
		}
		if len(meta) > 0 {
			record.Metadata = meta
		}
		records = append(records, record)
	}
	return records, nil
}

func cell(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return row[col]
}

// parseDate is best-effort: an unparseable date leaves the timestamp zero
// and only affects tie-breaking during ranking.
func parseDate(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	return time.Time{}
}

func (r *Reader) log(msg string, args ...any) {
	if r.logger != nil {
		r.logger.Info(msg, args...)
	}
}
