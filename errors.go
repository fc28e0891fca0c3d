package auth

import (
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeAuthenticationFailed = "AUTHENTICATION_FAILED"
	TextCodeInvalidGrant         = "INVALID_GRANT"
	TextCodeUnsupportedGrant     = "UNSUPPORTED_GRANT_TYPE"
	TextCodeInvalidScope         = "INVALID_SCOPE"
	TextCodeClientNotFound       = "CLIENT_NOT_FOUND"
	TextCodeInvalidToken         = "INVALID_TOKEN"
	TextCodeTokenExpired         = "TOKEN_EXPIRED"
	TextCodeUserNotFound         = "USER_NOT_FOUND"
	TextCodeReferenceNotFound    = "REFERENCE_USER_NOT_FOUND"
	TextCodeUserValidation       = "USER_VALIDATION_FAILED"
	TextCodeImmutableClaim       = "IMMUTABLE_TOKEN_ATTRIBUTE"
	TextCodeMissingCaller        = "MISSING_CALLER"
	TextCodeInvalidRequest       = "INVALID_REQUEST"
	TextCodeRightNotFound        = "RIGHT_NOT_FOUND"
)

// ErrAuthenticationFailed is returned when no token can be issued for the
// submitted authentication.
var ErrAuthenticationFailed = goerrors.New("authentication failed", goerrors.CategoryAuth).
	WithTextCode(TextCodeAuthenticationFailed).
	WithCode(goerrors.CodeUnauthorized)

// ErrInvalidGrant is returned for bad credentials or unusable refresh tokens
var ErrInvalidGrant = goerrors.New("invalid grant", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidGrant).
	WithCode(goerrors.CodeUnauthorized)

// ErrUnsupportedGrantType is returned for grant types the service does not issue
var ErrUnsupportedGrantType = goerrors.New("unsupported grant type", goerrors.CategoryBadInput).
	WithTextCode(TextCodeUnsupportedGrant).
	WithCode(goerrors.CodeBadRequest)

// ErrInvalidScope is returned when a requested scope is not granted to the client
var ErrInvalidScope = goerrors.New("invalid scope", goerrors.CategoryBadInput).
	WithTextCode(TextCodeInvalidScope).
	WithCode(goerrors.CodeBadRequest)

// ErrClientNotFound is returned when the client id is unknown
var ErrClientNotFound = goerrors.New("client not found", goerrors.CategoryAuth).
	WithTextCode(TextCodeClientNotFound).
	WithCode(goerrors.CodeUnauthorized)

// ErrInvalidToken is returned when an access token cannot be read
var ErrInvalidToken = goerrors.New("invalid access token", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidToken).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenExpired is returned for expired access tokens
var ErrTokenExpired = goerrors.New("access token expired", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(goerrors.CodeUnauthorized)

// ErrUserNotFound is returned when the local user store has no record
var ErrUserNotFound = goerrors.New("user not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodeUserNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrReferenceUserNotFound is returned when reference data has no profile
// for a user that is being updated
var ErrReferenceUserNotFound = goerrors.New("reference data user not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodeReferenceNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrRightNotFound is returned when reference data does not know a right
var ErrRightNotFound = goerrors.New("right not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodeRightNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrUserValidation is the base error for rejected user payloads
var ErrUserValidation = goerrors.New("user validation failed", goerrors.CategoryValidation).
	WithTextCode(TextCodeUserValidation).
	WithCode(goerrors.CodeBadRequest)

// ErrImmutableTokenAttribute is returned when an enhancer changes validity,
// scope or refresh association of a token
var ErrImmutableTokenAttribute = goerrors.New("token enhancer mutated an immutable attribute", goerrors.CategoryInternal).
	WithTextCode(TextCodeImmutableClaim).
	WithCode(goerrors.CodeInternal)

// ErrMissingCaller is returned when a protected operation runs without caller
var ErrMissingCaller = goerrors.New("missing caller", goerrors.CategoryAuth).
	WithTextCode(TextCodeMissingCaller).
	WithCode(goerrors.CodeUnauthorized)

// ErrNoEmptyString is returned when hashing an empty password
var ErrNoEmptyString = goerrors.New("password can't be an empty string", goerrors.CategoryBadInput).
	WithCode(goerrors.CodeBadRequest)

// ErrMismatchedHashAndPassword is returned when a password does not match
var ErrMismatchedHashAndPassword = goerrors.New("incorrect password", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized)

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	if goerrors.Is(err, ErrTokenExpired) {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsAuthenticationError reports whether err belongs to the auth category
func IsAuthenticationError(err error) bool {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr.Category == goerrors.CategoryAuth
	}
	return false
}

// sentinelError clones base so callers can still match it with errors.Is.
// A non nil source replaces base in the error chain and is matched too.
func sentinelError(base *goerrors.Error, source error, message string, meta map[string]any) error {
	clone := base.Clone()
	if clone == nil {
		return base
	}

	clone.Source = base
	if source != nil {
		clone.Source = goerrors.Join(base, source)
	}

	if message != "" {
		clone.Message = message
	}

	if len(meta) > 0 {
		clone.WithMetadata(meta)
	}

	return clone
}
