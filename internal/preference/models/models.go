package models

import "time"

// Category labels a kind of payment notification tracked for opt-out.
// The set is fixed at deploy time and is not user-extensible.
type Category string

const (
	CategoryPaymentSuccess Category = "payment_success"
	CategoryPaymentFailure Category = "payment_failure"
	CategoryPaymentRefund  Category = "payment_refund"
)

// AllCategories is the single source of truth for known categories.
// Order is fixed; preference views are always returned in this order.
var AllCategories = []Category{
	CategoryPaymentSuccess,
	CategoryPaymentFailure,
	CategoryPaymentRefund,
}

// IsValid checks if the category is one of the supported enum values.
func (c Category) IsValid() bool {
	for _, known := range AllCategories {
		if c == known {
			return true
		}
	}
	return false
}

// Record captures a user's stored opt-out decision for a single category.
//
// The (UserID, Category) combination is unique: each user has at most one
// record per category. Absence of a record means the implicit default
// OptedOut=false, so users receive notifications until they explicitly opt
// out. All queries include UserID to prevent cross-user access.
type Record struct {
	UserID    string
	Category  Category
	OptedOut  bool
	UpdatedAt time.Time
}

// Preference is one entry of the full preference view returned to callers.
type Preference struct {
	Category Category `json:"category"`
	OptedOut bool     `json:"opted_out"`
}

// Origin carries optional request metadata recorded alongside audit entries.
type Origin struct {
	IPAddress string
	UserAgent string
}

// FullView merges stored records over the default view: exactly one entry per
// known category, stored value where a record exists and OptedOut=false
// otherwise. The merge lives here, not in the storage layer, so the
// defaulting rule is testable independent of the storage engine.
func FullView(records []*Record) []Preference {
	stored := make(map[Category]bool, len(records))
	for _, r := range records {
		stored[r.Category] = r.OptedOut
	}
	view := make([]Preference, 0, len(AllCategories))
	for _, c := range AllCategories {
		view = append(view, Preference{Category: c, OptedOut: stored[c]})
	}
	return view
}
