package auth

import (
	"context"
	"strings"
	"sync"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// AuthorityUser is granted to every authenticated user
const AuthorityUser = "USER"

// UserCredentialsStore loads local users for authentication
type UserCredentialsStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
	FindByUsername(ctx context.Context, username string) (*User, error)
}

// UserAuthenticationManager authenticates resource owners against the
// local user store using bcrypt password hashes.
type UserAuthenticationManager struct {
	users       UserCredentialsStore
	authorities []string
	logger      Logger
	dummyOnce   sync.Once
	dummyHash   string
}

var _ AuthenticationManager = (*UserAuthenticationManager)(nil)

// NewUserAuthenticationManager returns a manager reading users from users
func NewUserAuthenticationManager(users UserCredentialsStore) *UserAuthenticationManager {
	return &UserAuthenticationManager{
		users:       users,
		authorities: []string{AuthorityUser},
		logger:      defLogger{},
	}
}

// WithLogger sets the logger
func (m *UserAuthenticationManager) WithLogger(logger Logger) *UserAuthenticationManager {
	m.logger = normalizeLogger(logger)
	return m
}

// WithAuthorities replaces the authorities granted to users
func (m *UserAuthenticationManager) WithAuthorities(authorities ...string) *UserAuthenticationManager {
	m.authorities = copyStrings(authorities)
	return m
}

// Authenticate checks username and password. Unknown users, disabled users
// and wrong passwords all fail with ErrInvalidGrant.
func (m *UserAuthenticationManager) Authenticate(ctx context.Context, credentials Credentials) (*Authentication, error) {
	username := strings.TrimSpace(credentials.Username)
	if username == "" || credentials.Password == "" {
		return nil, badCredentials(username, nil)
	}

	user, err := m.users.FindByUsername(ctx, username)
	if err != nil {
		if !goerrors.Is(err, ErrUserNotFound) {
			m.logger.Error("Authenticate failed to load user", "username", username, "error", err)
			return nil, goerrors.Wrap(err, goerrors.CategoryOperation, "failed to load user")
		}
		// keep timing comparable to a known user
		_ = ComparePasswordAndHash(credentials.Password, m.randomHash())
		return nil, badCredentials(username, err)
	}

	if err := ComparePasswordAndHash(credentials.Password, user.PasswordHash); err != nil {
		m.logger.Debug("Authenticate password mismatch", "username", username)
		return nil, badCredentials(username, err)
	}

	if !user.IsEnabled() {
		m.logger.Warn("Authenticate blocked disabled user", "username", username)
		return nil, sentinelError(ErrInvalidGrant, nil, "user is disabled", map[string]any{"username": username})
	}

	return m.authentication(user, credentials.ClientID, credentials.Scope), nil
}

// Reauthenticate reloads the user behind authn. The user must still exist
// and be enabled.
func (m *UserAuthenticationManager) Reauthenticate(ctx context.Context, authn *Authentication) (*Authentication, error) {
	if authn == nil || authn.UserID == uuid.Nil {
		return nil, sentinelError(ErrInvalidGrant, nil, "refresh token has no user", nil)
	}

	user, err := m.users.FindByID(ctx, authn.UserID)
	if err != nil {
		if goerrors.Is(err, ErrUserNotFound) {
			return nil, sentinelError(ErrInvalidGrant, err, "user no longer exists", map[string]any{"user_id": authn.UserID.String()})
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryOperation, "failed to load user")
	}

	if !user.IsEnabled() {
		return nil, sentinelError(ErrInvalidGrant, nil, "user is disabled", map[string]any{"user_id": authn.UserID.String()})
	}

	return m.authentication(user, authn.ClientID, authn.Scope), nil
}

func (m *UserAuthenticationManager) authentication(user *User, clientID string, scope []string) *Authentication {
	return &Authentication{
		Principal:     user.Username,
		UserID:        user.ID,
		ClientID:      clientID,
		Scope:         copyStrings(scope),
		Authorities:   copyStrings(m.authorities),
		Authenticated: true,
	}
}

func (m *UserAuthenticationManager) randomHash() string {
	m.dummyOnce.Do(func() {
		m.dummyHash = RandomPasswordHash()
	})
	return m.dummyHash
}

func badCredentials(username string, source error) error {
	var meta map[string]any
	if username != "" {
		meta = map[string]any{"username": username}
	}
	return sentinelError(ErrInvalidGrant, source, "bad credentials", meta)
}
