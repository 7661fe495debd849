package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"payprefs/internal/preference/models"
	"payprefs/internal/sentinel"
)

// PostgresStore persists preference records in PostgreSQL. The preferences
// table carries a uniqueness constraint on (user_id, category), so the upsert
// resolves concurrent first-insert collisions as updates instead of surfacing
// them to the caller.
//
// Snapshot semantics: ListByUser is a single SELECT, so the returned set is a
// consistent committed snapshot under PostgreSQL's statement-level read
// consistency.
type PostgresStore struct {
	db *sql.DB
	tx *sql.Tx
}

// NewPostgres constructs a PostgreSQL-backed preference store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// NewPostgresTx constructs a PostgreSQL-backed preference store bound to a
// transaction. A tx-bound Find locks the row (FOR UPDATE) so concurrent
// writers to the same key serialize on the storage layer, not in process.
func NewPostgresTx(tx *sql.Tx) *PostgresStore {
	return &PostgresStore{tx: tx}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer() dbExecutor {
	if s.tx != nil {
		return s.tx
	}
	return s.db
}

func (s *PostgresStore) Find(ctx context.Context, userID string, category models.Category) (*models.Record, error) {
	query := `
		SELECT user_id, category, opted_out, updated_at
		FROM preferences
		WHERE user_id = $1 AND category = $2
	`
	if s.tx != nil {
		// Absent rows are not locked by FOR UPDATE; first-insert races are
		// absorbed by the upsert's ON CONFLICT clause instead.
		query += " FOR UPDATE"
	}
	var record models.Record
	var category2 string
	err := s.execer().QueryRowContext(ctx, query, userID, string(category)).
		Scan(&record.UserID, &category2, &record.OptedOut, &record.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find preference: %w", err)
	}
	record.Category = models.Category(category2)
	return &record, nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID string) ([]*models.Record, error) {
	query := `
		SELECT user_id, category, opted_out, updated_at
		FROM preferences
		WHERE user_id = $1
	`
	rows, err := s.execer().QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list preferences: %w", err)
	}
	defer rows.Close()

	var records []*models.Record
	for rows.Next() {
		var record models.Record
		var category string
		if err := rows.Scan(&record.UserID, &category, &record.OptedOut, &record.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan preference: %w", err)
		}
		record.Category = models.Category(category)
		records = append(records, &record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate preferences: %w", err)
	}
	return records, nil
}

func (s *PostgresStore) Upsert(ctx context.Context, record *models.Record) error {
	if record == nil {
		return fmt.Errorf("preference record is required")
	}
	query := `
		INSERT INTO preferences (user_id, category, opted_out, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, category)
		DO UPDATE SET opted_out = EXCLUDED.opted_out, updated_at = EXCLUDED.updated_at
	`
	_, err := s.execer().ExecContext(ctx, query,
		record.UserID,
		string(record.Category),
		record.OptedOut,
		record.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert preference: %w", err)
	}
	return nil
}
