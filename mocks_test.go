package auth_test

import (
	"context"
	"sync"

	auth "github.com/goliatone/go-logistics-auth"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockReferenceUsers implements auth.ReferenceUserLookup
type MockReferenceUsers struct {
	mock.Mock
}

func (m *MockReferenceUsers) FindByID(ctx context.Context, id uuid.UUID) (*auth.UserMainDetails, error) {
	args := m.Called(ctx, id)
	user, _ := args.Get(0).(*auth.UserMainDetails)
	return user, args.Error(1)
}

func (m *MockReferenceUsers) FindByEmail(ctx context.Context, email string) (*auth.UserMainDetails, error) {
	args := m.Called(ctx, email)
	user, _ := args.Get(0).(*auth.UserMainDetails)
	return user, args.Error(1)
}

// MockLocalUsers implements auth.LocalUserStore
type MockLocalUsers struct {
	mock.Mock
}

func (m *MockLocalUsers) FindByID(ctx context.Context, id uuid.UUID) (*auth.User, error) {
	args := m.Called(ctx, id)
	user, _ := args.Get(0).(*auth.User)
	return user, args.Error(1)
}

// Save returns the configured user, or calls the configured function with
// the user being saved.
func (m *MockLocalUsers) Save(ctx context.Context, user *auth.User) (*auth.User, error) {
	args := m.Called(ctx, user)
	if fn, ok := args.Get(0).(func(context.Context, *auth.User) *auth.User); ok {
		return fn(ctx, user), args.Error(1)
	}
	saved, _ := args.Get(0).(*auth.User)
	return saved, args.Error(1)
}

// MockRights implements auth.RightLookup
type MockRights struct {
	mock.Mock
}

func (m *MockRights) HasRight(ctx context.Context, right auth.Right) (bool, error) {
	args := m.Called(ctx, right)
	return args.Bool(0), args.Error(1)
}

// MockRightChecker implements auth.RightChecker
type MockRightChecker struct {
	mock.Mock
}

func (m *MockRightChecker) HasRight(ctx context.Context, userID uuid.UUID, right auth.Right) (bool, error) {
	args := m.Called(ctx, userID, right)
	return args.Bool(0), args.Error(1)
}

// MockTokenServices implements auth.OAuthTokenServices
type MockTokenServices struct {
	mock.Mock
}

func (m *MockTokenServices) Authenticate(ctx context.Context, req auth.TokenRequest) (*auth.AccessToken, error) {
	args := m.Called(ctx, req)
	token, _ := args.Get(0).(*auth.AccessToken)
	return token, args.Error(1)
}

func (m *MockTokenServices) ReadAccessToken(ctx context.Context, value string) (*auth.AccessToken, error) {
	args := m.Called(ctx, value)
	token, _ := args.Get(0).(*auth.AccessToken)
	return token, args.Error(1)
}

func (m *MockTokenServices) RevokeToken(ctx context.Context, value string) (bool, error) {
	args := m.Called(ctx, value)
	return args.Bool(0), args.Error(1)
}

// MockClients implements auth.ClientAuthenticator and auth.ClientDetailsLookup
type MockClients struct {
	mock.Mock
}

func (m *MockClients) Authenticate(ctx context.Context, clientID, secret string) (*auth.ClientDetails, error) {
	args := m.Called(ctx, clientID, secret)
	client, _ := args.Get(0).(*auth.ClientDetails)
	return client, args.Error(1)
}

func (m *MockClients) LoadClient(ctx context.Context, clientID string) (*auth.ClientDetails, error) {
	args := m.Called(ctx, clientID)
	client, _ := args.Get(0).(*auth.ClientDetails)
	return client, args.Error(1)
}

// MockAuthenticationManager implements auth.AuthenticationManager
type MockAuthenticationManager struct {
	mock.Mock
}

func (m *MockAuthenticationManager) Authenticate(ctx context.Context, credentials auth.Credentials) (*auth.Authentication, error) {
	args := m.Called(ctx, credentials)
	authn, _ := args.Get(0).(*auth.Authentication)
	return authn, args.Error(1)
}

func (m *MockAuthenticationManager) Reauthenticate(ctx context.Context, authn *auth.Authentication) (*auth.Authentication, error) {
	args := m.Called(ctx, authn)
	out, _ := args.Get(0).(*auth.Authentication)
	return out, args.Error(1)
}

// requestContext overrides the parts of router.MockContext the handlers
// depend on so tests can inspect the response.
type requestContext struct {
	*router.MockContext
	ctx     context.Context
	bind    func(out any) error
	status  int
	payload any
	headers map[string]string
}

func newRequestContext(ctx context.Context) *requestContext {
	if ctx == nil {
		ctx = context.Background()
	}
	return &requestContext{
		MockContext: router.NewMockContext(),
		ctx:         ctx,
		headers:     map[string]string{},
	}
}

// withAuthorization sets the Authorization request header
func (r *requestContext) withAuthorization(value string) *requestContext {
	r.MockContext.HeadersM[router.HeaderAuthorization] = value
	r.MockContext.On("GetString", router.HeaderAuthorization, "").Return(value).Maybe()
	return r
}

// withQuery sets a query parameter
func (r *requestContext) withQuery(key, value string) *requestContext {
	r.MockContext.QueriesM[key] = value
	r.MockContext.On("Query", key, "").Return(value).Maybe()
	return r
}

// withBody makes Bind decode the given value by copying it into the target
func (r *requestContext) withBody(bind func(out any) error) *requestContext {
	r.bind = bind
	return r
}

func (r *requestContext) Context() context.Context {
	return r.ctx
}

func (r *requestContext) SetContext(ctx context.Context) {
	r.ctx = ctx
}

func (r *requestContext) Bind(out any) error {
	if r.bind == nil {
		return nil
	}
	return r.bind(out)
}

func (r *requestContext) JSON(code int, val any) error {
	r.status = code
	r.payload = val
	return nil
}

func (r *requestContext) SetHeader(key, val string) router.Context {
	r.headers[key] = val
	return r
}

// testLogger records log lines
type testLogger struct {
	mu      sync.Mutex
	entries []string
}

func (l *testLogger) record(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, level+" "+msg)
}

func (l *testLogger) Debug(msg string, args ...any) { l.record("debug", msg) }
func (l *testLogger) Info(msg string, args ...any)  { l.record("info", msg) }
func (l *testLogger) Warn(msg string, args ...any)  { l.record("warn", msg) }
func (l *testLogger) Error(msg string, args ...any) { l.record("error", msg) }

func (l *testLogger) Entries() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.entries...)
}
