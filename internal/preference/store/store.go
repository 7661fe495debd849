package store

import (
	"context"

	"payprefs/internal/preference/models"
)

// Store is the persistence boundary for preference records.
//
// Error Contract:
// - Find returns sentinel.ErrNotFound when no record exists for the key
// - ListByUser returns all records for the user from a single consistent snapshot
// - Upsert creates or replaces the record for its (user, category) key
// - Infrastructure failures are returned wrapped for the service to translate
type Store interface {
	Find(ctx context.Context, userID string, category models.Category) (*models.Record, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Record, error)
	Upsert(ctx context.Context, record *models.Record) error
}
