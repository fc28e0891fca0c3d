package auth_test

import (
	"context"
	"sync"
	"testing"

	auth "github.com/goliatone/go-logistics-auth"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu     sync.Mutex
	events []auth.ActivityEvent
}

func (s *recordingSink) Record(_ context.Context, event auth.ActivityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *recordingSink) Events() []auth.ActivityEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]auth.ActivityEvent(nil), s.events...)
}

func newSaveUserHandler(references *MockReferenceUsers, local *MockLocalUsers, sink auth.ActivitySink) *auth.SaveUserHandler {
	return auth.NewSaveUserHandler(
		auth.NewUserValidator(references, local).WithLogger(&testLogger{}),
		auth.NewUserService(local).WithLogger(&testLogger{}),
	).WithActivitySink(sink).WithLogger(&testLogger{})
}

func TestSaveUserHandlerCreatesUser(t *testing.T) {
	references := new(MockReferenceUsers)
	local := new(MockLocalUsers)
	sink := &recordingSink{}

	references.On("FindByEmail", mock.Anything, "jdoe@ex.org").Return(nil, nil)
	local.On("Save", mock.Anything, mock.AnythingOfType("*auth.User")).Return(echoUser, nil)

	caller := &auth.Caller{UserID: uuid.New(), ClientID: "user-client"}

	var resp *auth.SaveUserResponse
	err := newSaveUserHandler(references, local, sink).Execute(context.Background(), auth.SaveUserMessage{
		Caller: caller,
		User: &auth.UserRequest{
			Username: "jdoe",
			Email:    auth.String("jdoe@ex.org"),
		},
		OnResponse: func(r *auth.SaveUserResponse) {
			resp = r
		},
	})
	require.NoError(t, err)

	require.NotNil(t, resp)
	assert.True(t, resp.Created)
	require.NotNil(t, resp.User.ID)
	assert.Equal(t, "jdoe", resp.User.Username)

	events := sink.Events()
	require.Len(t, events, 1)
	assert.Equal(t, auth.ActivityEventUserSaved, events[0].EventType)
	assert.Equal(t, resp.User.ID.String(), events[0].UserID)
	assert.Equal(t, caller.UserID.String(), events[0].Actor.ID)
}

func TestSaveUserHandlerRejectsInvariantChange(t *testing.T) {
	references := new(MockReferenceUsers)
	local := new(MockLocalUsers)
	sink := &recordingSink{}

	reference := referenceUser(uuid.New())
	req := requestFrom(reference)
	req.Username = "changed"

	references.On("FindByID", mock.Anything, reference.ID).Return(reference, nil)
	references.On("FindByEmail", mock.Anything, reference.Email).Return(reference, nil)
	local.On("FindByID", mock.Anything, reference.ID).Return(&auth.User{ID: reference.ID, Enabled: auth.Bool(true)}, nil)

	caller := &auth.Caller{UserID: uuid.New()}

	err := newSaveUserHandler(references, local, sink).Execute(context.Background(), auth.SaveUserMessage{
		Caller: caller,
		User:   req,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, auth.ErrUserValidation)

	violations, ok := auth.ViolationsFromError(err)
	require.True(t, ok)
	assert.Equal(t, []auth.Violation{
		{Field: auth.FieldUsername, Reason: auth.ReasonFieldInvariant},
	}, violations)

	local.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)

	events := sink.Events()
	require.Len(t, events, 1)
	assert.Equal(t, auth.ActivityEventUserSaveRejected, events[0].EventType)
}

func TestSaveUserHandlerManagerBypassesInvariants(t *testing.T) {
	references := new(MockReferenceUsers)
	local := new(MockLocalUsers)

	reference := referenceUser(uuid.New())
	req := requestFrom(reference)
	req.JobTitle = "Driver"

	references.On("FindByID", mock.Anything, reference.ID).Return(reference, nil)
	references.On("FindByEmail", mock.Anything, reference.Email).Return(reference, nil)
	local.On("FindByID", mock.Anything, reference.ID).Return(&auth.User{ID: reference.ID, Username: "jdoe", Enabled: auth.Bool(true)}, nil)
	local.On("Save", mock.Anything, mock.AnythingOfType("*auth.User")).Return(echoUser, nil)

	caller := &auth.Caller{UserID: uuid.New(), Rights: []auth.Right{auth.RightUsersManage}}

	var resp *auth.SaveUserResponse
	err := newSaveUserHandler(references, local, nil).Execute(context.Background(), auth.SaveUserMessage{
		Caller:     caller,
		User:       req,
		OnResponse: func(r *auth.SaveUserResponse) { resp = r },
	})
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.False(t, resp.Created)
	assert.Equal(t, reference.ID, *resp.User.ID)
}

func TestSaveUserHandlerReportsCreateForUnknownLocalID(t *testing.T) {
	references := new(MockReferenceUsers)
	local := new(MockLocalUsers)
	sink := &recordingSink{}

	reference := referenceUser(uuid.New())
	req := requestFrom(reference)

	references.On("FindByID", mock.Anything, reference.ID).Return(reference, nil)
	references.On("FindByEmail", mock.Anything, reference.Email).Return(reference, nil)
	local.On("FindByID", mock.Anything, reference.ID).Return(nil, auth.ErrUserNotFound)
	local.On("Save", mock.Anything, mock.AnythingOfType("*auth.User")).Return(echoUser, nil)

	caller := &auth.Caller{UserID: uuid.New(), Rights: []auth.Right{auth.RightUsersManage}}

	var resp *auth.SaveUserResponse
	err := newSaveUserHandler(references, local, sink).Execute(context.Background(), auth.SaveUserMessage{
		Caller:     caller,
		User:       req,
		OnResponse: func(r *auth.SaveUserResponse) { resp = r },
	})
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.True(t, resp.Created)
	assert.Equal(t, reference.ID, *resp.User.ID)

	events := sink.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "create", events[0].Metadata["operation"])
}

func TestSaveUserHandlerNilUUIDCreatesUser(t *testing.T) {
	references := new(MockReferenceUsers)
	local := new(MockLocalUsers)

	references.On("FindByEmail", mock.Anything, "jdoe@ex.org").Return(nil, nil)
	local.On("Save", mock.Anything, mock.AnythingOfType("*auth.User")).Return(echoUser, nil)

	nilID := uuid.Nil

	var resp *auth.SaveUserResponse
	err := newSaveUserHandler(references, local, nil).Execute(context.Background(), auth.SaveUserMessage{
		Caller: &auth.Caller{UserID: uuid.New()},
		User: &auth.UserRequest{
			ID:       &nilID,
			Username: "jdoe",
			Email:    auth.String("jdoe@ex.org"),
		},
		OnResponse: func(r *auth.SaveUserResponse) { resp = r },
	})
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.True(t, resp.Created)
	assert.NotEqual(t, uuid.Nil, *resp.User.ID)

	references.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
	local.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
}

func TestSaveUserHandlerRequiresCaller(t *testing.T) {
	err := newSaveUserHandler(new(MockReferenceUsers), new(MockLocalUsers), nil).
		Execute(context.Background(), auth.SaveUserMessage{User: &auth.UserRequest{Username: "jdoe"}})
	assert.ErrorIs(t, err, auth.ErrMissingCaller)
}

func TestSaveUserHandlerCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	local := new(MockLocalUsers)
	err := newSaveUserHandler(new(MockReferenceUsers), local, nil).
		Execute(ctx, auth.SaveUserMessage{
			Caller: &auth.Caller{},
			User:   &auth.UserRequest{Username: "jdoe"},
		})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	local.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}
