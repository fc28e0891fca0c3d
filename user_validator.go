package auth

import (
	"context"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"

	"github.com/goliatone/go-logistics-auth/metrics"
)

var usernamePattern = regexp.MustCompile(`^\w+$`)

// UserValidator decides whether a user payload may be saved. Business rule
// violations are returned in the result; only lookup failures are errors.
type UserValidator struct {
	references ReferenceUserLookup
	users      LocalUserStore
	logger     Logger
}

// NewUserValidator creates a validator backed by the reference data lookup
// and the local user store.
func NewUserValidator(references ReferenceUserLookup, users LocalUserStore) *UserValidator {
	return &UserValidator{
		references: references,
		users:      users,
		logger:     defLogger{},
	}
}

// WithLogger sets the logger
func (v *UserValidator) WithLogger(logger Logger) *UserValidator {
	v.logger = normalizeLogger(logger)
	return v
}

// Validate runs every check on req on behalf of caller. A nil caller holds
// no rights.
func (v *UserValidator) Validate(ctx context.Context, caller RightLookup, req *UserRequest) (*ValidationResult, error) {
	result := &ValidationResult{}
	if req == nil {
		result.Reject(FieldUsername, ReasonFieldRequired)
		return result, nil
	}

	if validation.Validate(strings.TrimSpace(req.Username), validation.Required) != nil {
		result.Reject(FieldUsername, ReasonFieldRequired)
	}

	if req.Email != nil {
		if validation.Validate(strings.TrimSpace(*req.Email), validation.Required) != nil {
			result.Reject(FieldEmail, ReasonFieldRequired)
		}
	}

	if result.HasErrors() {
		v.record(result)
		return result, nil
	}

	id := req.UserID()
	if id != nil {
		reference, err := v.findReference(ctx, *id)
		if err != nil {
			return nil, err
		}

		rejectIfInvariantChanged(result, FieldVerified, reference.Verified == req.Verified)

		manager, err := hasRight(ctx, caller, RightUsersManage)
		if err != nil {
			return nil, err
		}

		if !manager {
			if err := v.validateInvariants(ctx, reference, req, result); err != nil {
				return nil, err
			}
		}
	}

	if validation.Validate(req.Username, validation.Match(usernamePattern)) != nil {
		result.Reject(FieldUsername, ReasonUsernameInvalid)
	}

	if req.Email != nil {
		if err := v.verifyEmail(ctx, id, *req.Email, result); err != nil {
			return nil, err
		}
	}

	v.record(result)
	return result, nil
}

func (v *UserValidator) verifyEmail(ctx context.Context, id *uuid.UUID, email string, result *ValidationResult) error {
	owner, err := v.references.FindByEmail(ctx, email)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to look up reference data user by email")
	}

	if owner != nil && (id == nil || *id != owner.ID) {
		result.Reject(FieldEmail, ReasonEmailDuplicated)
	}

	if validation.Validate(email, is.Email) != nil {
		result.Reject(FieldEmail, ReasonEmailInvalid)
	}

	return nil
}

func (v *UserValidator) validateInvariants(ctx context.Context, reference *UserMainDetails, req *UserRequest, result *ValidationResult) error {
	stored, err := v.users.FindByID(ctx, *req.ID)
	if err != nil {
		if goerrors.Is(err, ErrUserNotFound) {
			return err
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load local user")
	}

	rejectIfInvariantChanged(result, FieldEnabled, equalBoolPtr(stored.Enabled, req.Enabled))

	rejectIfInvariantChanged(result, FieldUsername, reference.Username == req.Username)
	rejectIfInvariantChanged(result, FieldJobTitle, reference.JobTitle == req.JobTitle)
	rejectIfInvariantChanged(result, FieldTimezone, reference.Timezone == req.Timezone)
	rejectIfInvariantChanged(result, FieldHomeFacilityID, equalUUIDPtr(reference.HomeFacilityID, req.HomeFacilityID))
	rejectIfInvariantChanged(result, FieldActive, reference.Active == req.Active)
	rejectIfInvariantChanged(result, FieldLoginRestricted, reference.LoginRestricted == req.LoginRestricted)
	rejectIfInvariantChanged(result, FieldAllowNotify, equalBoolPtr(reference.AllowNotify, req.AllowNotify))
	rejectIfInvariantChanged(result, FieldExtraData, equalExtraData(reference.ExtraData, req.ExtraData))
	rejectIfInvariantChanged(result, FieldRoleAssignments, reference.RoleAssignments.Equal(req.RoleAssignments))

	return nil
}

func (v *UserValidator) findReference(ctx context.Context, id uuid.UUID) (*UserMainDetails, error) {
	reference, err := v.references.FindByID(ctx, id)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryOperation, "failed to look up reference data user")
	}

	if reference == nil {
		clone := ErrReferenceUserNotFound.Clone()
		if clone == nil {
			return nil, ErrReferenceUserNotFound
		}
		clone.Source = ErrReferenceUserNotFound
		return nil, clone.WithMetadata(map[string]any{"id": id.String()})
	}

	return reference, nil
}

func (v *UserValidator) record(result *ValidationResult) {
	for _, violation := range result.Violations() {
		metrics.UserValidationViolations.WithLabelValues(violation.Field, violation.Reason).Inc()
	}
}

func rejectIfInvariantChanged(result *ValidationResult, field string, unchanged bool) {
	if !unchanged {
		result.Reject(field, ReasonFieldInvariant)
	}
}

func hasRight(ctx context.Context, caller RightLookup, right Right) (bool, error) {
	if caller == nil {
		return false, nil
	}

	ok, err := caller.HasRight(ctx, right)
	if err != nil {
		return false, goerrors.Wrap(err, goerrors.CategoryOperation, "failed to check caller right").
			WithMetadata(map[string]any{"right": right})
	}

	return ok, nil
}
