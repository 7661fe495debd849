package service

import (
	"context"

	"payprefs/internal/audit"
	"payprefs/internal/preference/store"
)

//go:generate mockgen -destination=mocks/store.go -package=mocks payprefs/internal/preference/store Store
//go:generate mockgen -destination=mocks/audit.go -package=mocks -mock_names=Store=MockAuditStore payprefs/internal/audit Store

// Stores bundles the two collections a preference write touches. Inside a
// transaction both are bound to the same storage transaction, so a preference
// upsert and its audit entry commit together or not at all.
type Stores struct {
	Prefs store.Store
	Audit audit.Store
}

// Tx provides the transactional boundary for the preference write path.
// Implementations wrap a database transaction or, in-memory, a sharded lock
// keyed by (user, category) so writes to different keys never block each other.
type Tx interface {
	RunInTx(ctx context.Context, key string, fn func(ctx context.Context, st Stores) error) error
}
