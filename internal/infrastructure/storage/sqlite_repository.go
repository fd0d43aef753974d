package storage

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"github.com/Jennie1434/BDD-lvmh/internal/domain"
	"github.com/Jennie1434/BDD-lvmh/internal/ports"
)

// SQLiteRepository persists batch outcomes into a local SQLite file.
// It backs both deduplication and the audit trail of fallback records.
type SQLiteRepository struct {
	db *sql.DB
	sb sq.StatementBuilderType
}

var _ ports.OutcomeRepository = (*SQLiteRepository)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS outcomes (
	id             TEXT PRIMARY KEY,
	status         TEXT NOT NULL,
	category       TEXT NOT NULL DEFAULT '',
	priority_score INTEGER NOT NULL DEFAULT 0,
	rank_position  INTEGER NOT NULL DEFAULT 0,
	compliant      INTEGER NOT NULL DEFAULT 1,
	error          TEXT NOT NULL DEFAULT '',
	processed_at   TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

// Open opens the database file and applies the schema.
func Open(path string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return NewSQLiteRepository(db), nil
}

// NewSQLiteRepository wires an existing sql.DB.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(sq.Question),
	}
}

func (r *SQLiteRepository) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

// AlreadyProcessed returns a map with the IDs that already have an outcome.
func (r *SQLiteRepository) AlreadyProcessed(ctx context.Context, ids []string) (map[string]bool, error) {
	if r.db == nil || len(ids) == 0 {
		return map[string]bool{}, nil
	}

	query, args, err := r.sb.
		Select("id").
		From("outcomes").
		Where(sq.Eq{"id": ids}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build dedup query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query outcomes: %w", err)
	}
	defer rows.Close()

	result := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan id: %w", err)
		}
		result[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return result, nil
}

// SaveOutcome upserts the outcome snapshot. Re-running a batch refreshes
// the stored row instead of duplicating it.
func (r *SQLiteRepository) SaveOutcome(ctx context.Context, outcome domain.Outcome) error {
	if r.db == nil {
		return nil
	}

	var (
		category string
		score    int
		rank     int
		comply   = true
	)
	if rec := outcome.Record; rec != nil {
		category = rec.Category
		score = rec.PriorityScore
		rank = rec.Rank
		comply = rec.Report.Compliant
	}

	query, args, err := r.sb.
		Insert("outcomes").
		Columns("id", "status", "category", "priority_score", "rank_position", "compliant", "error").
		Values(outcome.ID, string(outcome.Status), category, score, rank, comply, outcome.Err).
		Suffix(`ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			category = excluded.category,
			priority_score = excluded.priority_score,
			rank_position = excluded.rank_position,
			compliant = excluded.compliant,
			error = excluded.error,
			processed_at = CURRENT_TIMESTAMP`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert outcome: %w", err)
	}
	return nil
}
