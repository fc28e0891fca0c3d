package auth

import (
	"fmt"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// User fields reported in violations
const (
	FieldUsername        = "username"
	FieldEmail           = "email"
	FieldJobTitle        = "jobTitle"
	FieldTimezone        = "timezone"
	FieldHomeFacilityID  = "homeFacilityId"
	FieldVerified        = "verified"
	FieldActive          = "active"
	FieldLoginRestricted = "loginRestricted"
	FieldAllowNotify     = "allowNotify"
	FieldExtraData       = "extraData"
	FieldRoleAssignments = "roleAssignments"
	FieldEnabled         = "enabled"
)

// Violation reasons. They double as message keys for clients.
const (
	ReasonFieldRequired   = "auth.error.validation.field.required"
	ReasonFieldInvariant  = "auth.error.validation.field.invariant"
	ReasonUsernameInvalid = "auth.error.validation.username.invalid"
	ReasonEmailInvalid    = "auth.error.validation.email.invalid"
	ReasonEmailDuplicated = "auth.error.validation.email.duplicated"
)

// Violation is a single rejected field
type Violation struct {
	Field  string `json:"field"`
	Reason string `json:"messageKey"`
}

func (v Violation) String() string {
	return v.Field + ": " + v.Reason
}

// ValidationResult collects violations in the order they were found.
type ValidationResult struct {
	violations []Violation
}

// Reject records a violation
func (r *ValidationResult) Reject(field, reason string) {
	r.violations = append(r.violations, Violation{Field: field, Reason: reason})
}

// Valid reports whether no violation was recorded
func (r *ValidationResult) Valid() bool {
	return r == nil || len(r.violations) == 0
}

// HasErrors is the inverse of Valid
func (r *ValidationResult) HasErrors() bool {
	return !r.Valid()
}

// Violations returns a copy of the recorded violations
func (r *ValidationResult) Violations() []Violation {
	if r == nil {
		return nil
	}
	out := make([]Violation, len(r.violations))
	copy(out, r.violations)
	return out
}

// FieldViolations returns the reasons recorded for field
func (r *ValidationResult) FieldViolations(field string) []string {
	if r == nil {
		return nil
	}
	var reasons []string
	for _, v := range r.violations {
		if v.Field == field {
			reasons = append(reasons, v.Reason)
		}
	}
	return reasons
}

// HasFieldError reports whether field was rejected
func (r *ValidationResult) HasFieldError(field string) bool {
	return len(r.FieldViolations(field)) > 0
}

// Err returns nil for a valid result, otherwise a validation error whose
// metadata carries the violations under "violations".
func (r *ValidationResult) Err() error {
	if r.Valid() {
		return nil
	}

	clone := ErrUserValidation.Clone()
	if clone == nil {
		return ErrUserValidation
	}

	parts := make([]string, 0, len(r.violations))
	for _, v := range r.violations {
		parts = append(parts, v.String())
	}

	clone.Message = fmt.Sprintf("user validation failed: %s", strings.Join(parts, ", "))
	clone.Source = ErrUserValidation
	return clone.WithMetadata(map[string]any{
		"violations": r.Violations(),
	})
}

// ViolationsFromError extracts violations from an error built by Err
func ViolationsFromError(err error) ([]Violation, bool) {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) || richErr.Metadata == nil {
		return nil, false
	}
	violations, ok := richErr.Metadata["violations"].([]Violation)
	return violations, ok
}
