package csvio

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/Jennie1434/BDD-lvmh/internal/domain"
	"github.com/Jennie1434/BDD-lvmh/internal/ports"
)

// Writer exports batch outcomes to a CSV file, one row per outcome.
// Error outcomes keep their row with the record fields empty so the
// export always accounts for every ingested ID.
type Writer struct {
	path string
}

var _ ports.Exporter = (*Writer)(nil)

func NewWriter(path string) *Writer {
	return &Writer{path: path}
}

var exportHeader = []string{
	"id", "status", "rank", "priority_score", "category", "tags",
	"compliant", "violations", "cleaned_text", "error",
}

func (w *Writer) Export(ctx context.Context, outcomes []domain.Outcome) error {
	f, err := os.Create(w.path)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err := cw.Write(exportHeader); err != nil {
		return fmt.Errorf("write export header: %w", err)
	}

	for _, outcome := range outcomes {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := cw.Write(exportRow(outcome)); err != nil {
			return fmt.Errorf("write outcome %s: %w", outcome.ID, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush export: %w", err)
	}
	return f.Close()
}

func exportRow(outcome domain.Outcome) []string {
	row := make([]string, len(exportHeader))
	row[0] = outcome.ID
	row[1] = string(outcome.Status)
	row[9] = outcome.Err

	rec := outcome.Record
	if rec == nil {
		return row
	}
	row[2] = strconv.Itoa(rec.Rank)
	row[3] = strconv.Itoa(rec.PriorityScore)
	row[4] = rec.Category
	row[5] = strings.Join(rec.Tags, "|")
	row[6] = strconv.FormatBool(rec.Report.Compliant)
	row[7] = strings.Join(rec.Report.Violations, "|")
	row[8] = rec.CleanedText
	return row
}
