package audit

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresStore persists audit entries in PostgreSQL. The audit_log table has
// no UPDATE or DELETE path; BIGSERIAL ids give generation ordering.
type PostgresStore struct {
	db *sql.DB
	tx *sql.Tx
}

// NewPostgres constructs a PostgreSQL-backed audit store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// NewPostgresTx constructs a PostgreSQL-backed audit store bound to a transaction.
func NewPostgresTx(tx *sql.Tx) *PostgresStore {
	return &PostgresStore{tx: tx}
}

type dbExecutor interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer() dbExecutor {
	if s.tx != nil {
		return s.tx
	}
	return s.db
}

func (s *PostgresStore) Append(ctx context.Context, entry *Entry) error {
	if entry == nil {
		return fmt.Errorf("audit entry is required")
	}
	query := `
		INSERT INTO audit_log (user_id, category, old_value, new_value, changed_at, ip_address, user_agent)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	err := s.execer().QueryRowContext(ctx, query,
		entry.UserID,
		entry.Category,
		entry.OldValue,
		entry.NewValue,
		entry.ChangedAt,
		nullable(entry.IPAddress),
		nullable(entry.UserAgent),
	).Scan(&entry.ID)
	if err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID string) ([]Entry, error) {
	query := `
		SELECT id, user_id, category, old_value, new_value, changed_at, ip_address, user_agent
		FROM audit_log
		WHERE user_id = $1
		ORDER BY id
	`
	rows, err := s.execer().QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var entry Entry
		var ip, ua sql.NullString
		if err := rows.Scan(&entry.ID, &entry.UserID, &entry.Category, &entry.OldValue, &entry.NewValue, &entry.ChangedAt, &ip, &ua); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		entry.IPAddress = ip.String
		entry.UserAgent = ua.String
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", err)
	}
	return entries, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
