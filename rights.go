package auth

import (
	"context"
	"slices"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// Right is a named permission held by a caller
type Right = string

const (
	// RightUsersManage lets a caller change invariant user fields
	RightUsersManage Right = "USERS_MANAGE"
	// RightAuthorizedClient marks trusted service clients
	RightAuthorizedClient Right = "AUTHORIZED_CLIENT"
)

// Caller is the identity behind a request. It is resolved once at the
// request boundary and passed down explicitly.
type Caller struct {
	UserID   uuid.UUID
	Username string
	ClientID string
	Rights   []Right
	// Lookup resolves rights not listed in Rights, usually against
	// reference data. Optional.
	Lookup RightLookup
}

var _ RightLookup = (*Caller)(nil)

// HasRight reports whether the caller holds right
func (c *Caller) HasRight(ctx context.Context, right Right) (bool, error) {
	if c == nil {
		return false, nil
	}
	if slices.Contains(c.Rights, right) {
		return true, nil
	}
	if c.Lookup == nil {
		return false, nil
	}
	return c.Lookup.HasRight(ctx, right)
}

// IsClientOnly reports whether the caller is a client without a user
func (c *Caller) IsClientOnly() bool {
	return c == nil || c.UserID == uuid.Nil
}

// RightLookupFunc adapts a function into a RightLookup
type RightLookupFunc func(ctx context.Context, right Right) (bool, error)

// HasRight satisfies RightLookup
func (f RightLookupFunc) HasRight(ctx context.Context, right Right) (bool, error) {
	if f == nil {
		return false, nil
	}
	return f(ctx, right)
}

// RightChecker checks a right for a given user, it is what the reference
// data client exposes.
type RightChecker interface {
	HasRight(ctx context.Context, userID uuid.UUID, right Right) (bool, error)
}

// UserRights binds a RightChecker to a user id
func UserRights(checker RightChecker, userID uuid.UUID) RightLookup {
	return RightLookupFunc(func(ctx context.Context, right Right) (bool, error) {
		if checker == nil || userID == uuid.Nil {
			return false, nil
		}
		return checker.HasRight(ctx, userID, right)
	})
}

// RightDetails is the reference data definition of a right
type RightDetails struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Type        string    `json:"type"`
	Description string    `json:"description,omitempty"`
}

// RightFinder finds a right definition by name. A nil result with no
// error means the right is unknown.
type RightFinder interface {
	FindRight(ctx context.Context, name Right) (*RightDetails, error)
}

// GetRight returns the definition of right, or ErrRightNotFound
func GetRight(ctx context.Context, finder RightFinder, right Right) (*RightDetails, error) {
	if finder == nil {
		return nil, sentinelError(ErrRightNotFound, nil, "no right finder configured", map[string]any{"right": right})
	}

	details, err := finder.FindRight(ctx, right)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryOperation, "failed to look up right")
	}

	if details == nil {
		return nil, sentinelError(ErrRightNotFound, nil, "right not found", map[string]any{"right": right})
	}

	return details, nil
}
