package auth

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"

	"github.com/goliatone/go-logistics-auth/metrics"
)

// SaveOperation names what SaveUser did with a payload
type SaveOperation string

const (
	SaveOperationCreate SaveOperation = "create"
	SaveOperationUpdate SaveOperation = "update"
)

// UserService creates or updates local users. It assumes the payload has
// already been validated.
type UserService struct {
	users  LocalUserStore
	logger Logger
}

// NewUserService returns a UserService persisting through users
func NewUserService(users LocalUserStore) *UserService {
	return &UserService{
		users:  users,
		logger: defLogger{},
	}
}

// WithLogger sets the logger
func (s *UserService) WithLogger(logger Logger) *UserService {
	s.logger = normalizeLogger(logger)
	return s
}

// SaveUser creates a new user when req has no id or the id is unknown,
// otherwise it applies the mutable fields onto the stored record. The nil
// uuid counts as no id.
func (s *UserService) SaveUser(ctx context.Context, req *UserRequest) (*UserRequest, SaveOperation, error) {
	if req == nil {
		return nil, "", goerrors.New("user request is required", goerrors.CategoryBadInput).
			WithCode(goerrors.CodeBadRequest)
	}

	existing, err := s.find(ctx, req.UserID())
	if err != nil {
		return nil, "", err
	}

	operation := SaveOperationUpdate
	if existing == nil {
		operation = SaveOperationCreate
		existing, err = NewUserFromRequest(req)
	} else {
		err = existing.UpdateFrom(req)
	}
	if err != nil {
		return nil, "", goerrors.Wrap(err, goerrors.CategoryValidation, "invalid user payload")
	}

	saved, err := s.users.Save(ctx, existing)
	if err != nil {
		s.logger.Error("SaveUser persist failed", "operation", operation, "error", err)
		return nil, "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to save user")
	}

	metrics.UsersSaved.WithLabelValues(string(operation)).Inc()
	s.logger.Debug("SaveUser persisted user", "operation", operation, "id", saved.ID)

	return saved.Export(), operation, nil
}

func (s *UserService) find(ctx context.Context, id *uuid.UUID) (*User, error) {
	if id == nil {
		return nil, nil
	}

	user, err := s.users.FindByID(ctx, *id)
	if err != nil {
		if goerrors.Is(err, ErrUserNotFound) {
			return nil, nil
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load user")
	}

	return user, nil
}
