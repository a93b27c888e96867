package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"pipeline-builder/internal/common/errors"
	"pipeline-builder/internal/pipeline"
)

// Dialect captures what differs between the SQL databases
type Dialect struct {
	Name string
	// Placeholder returns the bind marker for the n-th argument, from 1
	Placeholder func(n int) string
}

// QuestionMarks is the SQLite placeholder style
func QuestionMarks(int) string { return "?" }

// DollarNumbers is the PostgreSQL placeholder style
func DollarNumbers(n int) string { return fmt.Sprintf("$%d", n) }

// SQLStore implements Store on database/sql. updated_at is stored as Unix
// nanoseconds so ordering works the same on every database.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time
}

// NewSQLStore wraps db; call Migrate before use
func NewSQLStore(db *sql.DB, dialect Dialect) *SQLStore {
	return &SQLStore{db: db, dialect: dialect, now: time.Now}
}

// DB exposes the underlying handle
func (s *SQLStore) DB() *sql.DB {
	return s.db
}

// Migrate creates the drafts table
func (s *SQLStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS drafts (
		name TEXT PRIMARY KEY,
		pipeline TEXT NOT NULL,
		steps INTEGER NOT NULL DEFAULT 0,
		updated_at BIGINT NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("failed to migrate %s database: %w", s.dialect.Name, err)
	}
	return nil
}

// bind rewrites "?" markers into the dialect's placeholders
func (s *SQLStore) bind(query string) string {
	if s.dialect.Placeholder == nil {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString(s.dialect.Placeholder(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *SQLStore) SaveDraft(ctx context.Context, name string, p pipeline.Pipeline) error {
	if strings.TrimSpace(name) == "" {
		return errors.ValidationError("draft name is required")
	}

	payload, err := json.Marshal(p)
	if err != nil {
		return errors.InternalError("failed to encode draft", err)
	}

	_, err = s.db.ExecContext(ctx, s.bind(`INSERT INTO drafts (name, pipeline, steps, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (name) DO UPDATE SET
			pipeline = excluded.pipeline,
			steps = excluded.steps,
			updated_at = excluded.updated_at`),
		name, string(payload), len(p.Steps), s.now().UnixNano())
	if err != nil {
		return errors.InternalError("failed to save draft", err)
	}
	return nil
}

func (s *SQLStore) GetDraft(ctx context.Context, name string) (*Draft, error) {
	var (
		payload   string
		updatedAt int64
	)
	err := s.db.QueryRowContext(ctx, s.bind(`SELECT pipeline, updated_at FROM drafts WHERE name = ?`), name).
		Scan(&payload, &updatedAt)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NotFoundError("draft " + name)
	}
	if err != nil {
		return nil, errors.InternalError("failed to load draft", err)
	}

	p, err := pipeline.UnmarshalJSON([]byte(payload))
	if err != nil {
		return nil, err
	}
	return &Draft{Name: name, Pipeline: p, UpdatedAt: time.Unix(0, updatedAt).UTC()}, nil
}

func (s *SQLStore) ListDrafts(ctx context.Context) ([]DraftSummary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, steps, updated_at FROM drafts ORDER BY updated_at DESC, name`)
	if err != nil {
		return nil, errors.InternalError("failed to list drafts", err)
	}
	defer rows.Close()

	summaries := []DraftSummary{}
	for rows.Next() {
		var (
			summary   DraftSummary
			updatedAt int64
		)
		if err := rows.Scan(&summary.Name, &summary.Steps, &updatedAt); err != nil {
			return nil, errors.InternalError("failed to read draft", err)
		}
		summary.UpdatedAt = time.Unix(0, updatedAt).UTC()
		summaries = append(summaries, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.InternalError("failed to list drafts", err)
	}
	return summaries, nil
}

func (s *SQLStore) DeleteDraft(ctx context.Context, name string) error {
	result, err := s.db.ExecContext(ctx, s.bind(`DELETE FROM drafts WHERE name = ?`), name)
	if err != nil {
		return errors.InternalError("failed to delete draft", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return errors.NotFoundError("draft " + name)
	}
	return nil
}

func (s *SQLStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
