package auth

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Logger is the logging surface used across the package. Arguments after the
// message are key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Config holds auth service options
type Config interface {
	GetSigningKey() string
	GetIssuer() string
	GetTokenValiditySeconds() int
	GetRefreshTokenValiditySeconds() int
}

// RightLookup answers whether the current caller holds a right.
type RightLookup interface {
	HasRight(ctx context.Context, right Right) (bool, error)
}

// ReferenceUserLookup resolves canonical user profiles from the reference
// data service. Both methods return nil, nil when no user matches.
type ReferenceUserLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*UserMainDetails, error)
	FindByEmail(ctx context.Context, email string) (*UserMainDetails, error)
}

// LocalUserStore gives access to the users persisted by this service.
// FindByID returns ErrUserNotFound when the record does not exist.
type LocalUserStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
	Save(ctx context.Context, user *User) (*User, error)
}

// AuthenticationManager makes the final decision on submitted credentials.
type AuthenticationManager interface {
	Authenticate(ctx context.Context, credentials Credentials) (*Authentication, error)
	// Reauthenticate refreshes a previously granted authentication, failing
	// when the principal is no longer allowed to hold tokens.
	Reauthenticate(ctx context.Context, authn *Authentication) (*Authentication, error)
}

// ClientDetailsLookup loads registered OAuth2 clients.
type ClientDetailsLookup interface {
	LoadClient(ctx context.Context, clientID string) (*ClientDetails, error)
}

// TokenStore persists issued tokens for introspection and revocation.
// Read methods return nil, nil for unknown or expired values.
type TokenStore interface {
	StoreAccessToken(ctx context.Context, token *AccessToken) error
	ReadAccessToken(ctx context.Context, value string) (*AccessToken, error)
	RemoveAccessToken(ctx context.Context, value string) error
	StoreRefreshToken(ctx context.Context, token *RefreshToken) error
	ReadRefreshToken(ctx context.Context, value string) (*RefreshToken, error)
	RemoveRefreshToken(ctx context.Context, value string) error
	// RemoveAccessTokenUsingRefreshToken drops the access token last issued
	// with the given refresh token.
	RemoveAccessTokenUsingRefreshToken(ctx context.Context, refreshValue string) error
}

// TokenPairStore is implemented by stores that can write the access and
// refresh token of one issuance in a single operation.
type TokenPairStore interface {
	StoreTokens(ctx context.Context, access *AccessToken, refresh *RefreshToken) error
}

type defLogger struct{}

func (d defLogger) Debug(msg string, args ...any) {
	fmt.Println(format("[DBG] AUTH", msg, args...))
}

func (d defLogger) Info(msg string, args ...any) {
	fmt.Println(format("[INF] AUTH", msg, args...))
}

func (d defLogger) Warn(msg string, args ...any) {
	fmt.Println(format("[WRN] AUTH", msg, args...))
}

func (d defLogger) Error(msg string, args ...any) {
	fmt.Println(format("[ERR] AUTH", msg, args...))
}

func format(prefix, msg string, args ...any) string {
	out := prefix + " " + msg
	for i := 0; i < len(args); i += 2 {
		if i+1 < len(args) {
			out += fmt.Sprintf(" %v=%v", args[i], args[i+1])
		} else {
			out += fmt.Sprintf(" %v", args[i])
		}
	}
	return out
}

func normalizeLogger(l Logger) Logger {
	if l == nil {
		return defLogger{}
	}
	return l
}
