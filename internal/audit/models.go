package audit

import "time"

// Entry is one immutable record of an effective preference change. Entries are
// created exactly once per committed value change and never mutated or
// deleted. IDs are generation-ordered so the trail can be replayed in commit
// order per user and category.
type Entry struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	Category  string    `json:"category"`
	OldValue  bool      `json:"old_value"`
	NewValue  bool      `json:"new_value"`
	ChangedAt time.Time `json:"changed_at"`
	IPAddress string    `json:"ip_address,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
}
