package auth_test

import (
	"context"
	"errors"
	"testing"

	auth "github.com/goliatone/go-logistics-auth"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestCallerHasRight(t *testing.T) {
	ctx := context.Background()

	var nobody *auth.Caller
	ok, err := nobody.HasRight(ctx, auth.RightUsersManage)
	require.NoError(t, err)
	assert.False(t, ok)

	listed := &auth.Caller{UserID: uuid.New(), Rights: []auth.Right{auth.RightUsersManage}}
	ok, err = listed.HasRight(ctx, auth.RightUsersManage)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = listed.HasRight(ctx, auth.RightAuthorizedClient)
	require.NoError(t, err)
	assert.False(t, ok, "no lookup configured")
}

func TestCallerHasRightFallsBackToLookup(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	checker := new(MockRightChecker)
	checker.On("HasRight", mock.Anything, userID, auth.RightUsersManage).Return(true, nil)
	checker.On("HasRight", mock.Anything, userID, auth.RightAuthorizedClient).Return(false, errors.New("reference data unavailable"))

	caller := &auth.Caller{UserID: userID, Lookup: auth.UserRights(checker, userID)}

	ok, err := caller.HasRight(ctx, auth.RightUsersManage)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = caller.HasRight(ctx, auth.RightAuthorizedClient)
	assert.Error(t, err)

	checker.AssertExpectations(t)
}

func TestUserRightsWithoutUser(t *testing.T) {
	checker := new(MockRightChecker)

	ok, err := auth.UserRights(checker, uuid.Nil).HasRight(context.Background(), auth.RightUsersManage)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = auth.UserRights(nil, uuid.New()).HasRight(context.Background(), auth.RightUsersManage)
	require.NoError(t, err)
	assert.False(t, ok)

	checker.AssertNotCalled(t, "HasRight", mock.Anything, mock.Anything, mock.Anything)
}

func TestCallerIsClientOnly(t *testing.T) {
	assert.True(t, (&auth.Caller{ClientID: "trusted-client"}).IsClientOnly())
	assert.False(t, (&auth.Caller{UserID: uuid.New()}).IsClientOnly())
}

type rightFinderFunc func(ctx context.Context, name auth.Right) (*auth.RightDetails, error)

func (f rightFinderFunc) FindRight(ctx context.Context, name auth.Right) (*auth.RightDetails, error) {
	return f(ctx, name)
}

func TestGetRight(t *testing.T) {
	ctx := context.Background()
	usersManage := &auth.RightDetails{ID: uuid.New(), Name: auth.RightUsersManage, Type: "GENERAL_ADMIN"}

	finder := rightFinderFunc(func(_ context.Context, name auth.Right) (*auth.RightDetails, error) {
		switch name {
		case auth.RightUsersManage:
			return usersManage, nil
		case "BROKEN":
			return nil, errors.New("reference data down")
		}
		return nil, nil
	})

	right, err := auth.GetRight(ctx, finder, auth.RightUsersManage)
	require.NoError(t, err)
	assert.Same(t, usersManage, right)

	_, err = auth.GetRight(ctx, finder, "UNKNOWN_RIGHT")
	assert.ErrorIs(t, err, auth.ErrRightNotFound)

	_, err = auth.GetRight(ctx, finder, "BROKEN")
	require.Error(t, err)
	assert.NotErrorIs(t, err, auth.ErrRightNotFound)

	_, err = auth.GetRight(ctx, nil, auth.RightUsersManage)
	assert.ErrorIs(t, err, auth.ErrRightNotFound)
}
