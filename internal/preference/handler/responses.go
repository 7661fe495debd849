package handler

import (
	"time"

	"payprefs/internal/audit"
	"payprefs/internal/preference/models"
)

// PreferencesResponse is the full preference view returned by both the read
// and write endpoints: one entry per known category, fixed order.
type PreferencesResponse struct {
	Preferences []models.Preference `json:"preferences"`
}

// ChangeResponse is one audit trail entry rendered for the history endpoint.
type ChangeResponse struct {
	ID        int64  `json:"id"`
	Category  string `json:"category"`
	OldValue  bool   `json:"old_value"`
	NewValue  bool   `json:"new_value"`
	ChangedAt string `json:"changed_at"`
	IPAddress string `json:"ip_address,omitempty"`
	Client    string `json:"client,omitempty"`
}

// HistoryResponse is the user's preference change history in commit order.
type HistoryResponse struct {
	Changes []ChangeResponse `json:"changes"`
}

func formatHistory(entries []audit.Entry) HistoryResponse {
	changes := make([]ChangeResponse, 0, len(entries))
	for _, e := range entries {
		changes = append(changes, ChangeResponse{
			ID:        e.ID,
			Category:  e.Category,
			OldValue:  e.OldValue,
			NewValue:  e.NewValue,
			ChangedAt: e.ChangedAt.UTC().Format(time.RFC3339),
			IPAddress: e.IPAddress,
			Client:    e.UserAgent,
		})
	}
	return HistoryResponse{Changes: changes}
}
