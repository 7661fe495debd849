package models

import (
	dErrors "payprefs/pkg/domain-errors"
)

// UpdateRequest is the body for a preference write. OptedOut is a pointer so
// an absent field can be told apart from an explicit false.
type UpdateRequest struct {
	OptedOut *bool `json:"opted_out"`
}

// Validate checks that the request is well-formed.
func (r *UpdateRequest) Validate() error {
	if r == nil || r.OptedOut == nil {
		return dErrors.New(dErrors.CodeInvalidInput, "opted_out is required")
	}
	return nil
}
