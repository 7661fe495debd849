package audit

import "context"

// Store is the append-only persistence boundary for the audit trail.
//
// Error Contract:
// - Append assigns the generation-ordered ID on success and returns nil
// - ListByUser returns entries in ascending ID order, empty slice for unknown users
// - Infrastructure failures are returned wrapped; no update or delete is exposed
type Store interface {
	Append(ctx context.Context, entry *Entry) error
	ListByUser(ctx context.Context, userID string) ([]Entry, error)
}
