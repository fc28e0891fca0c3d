package auth_test

import (
	"errors"
	"fmt"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	auth "github.com/goliatone/go-logistics-auth"
	"github.com/stretchr/testify/assert"
)

func TestIsTokenExpiredError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "structured token expired error",
			err:      auth.ErrTokenExpired,
			expected: true,
		},
		{
			name:     "wrapped token expired error",
			err:      fmt.Errorf("read failed: %w", auth.ErrTokenExpired),
			expected: true,
		},
		{
			name:     "jwt library message",
			err:      errors.New("some wrapper: token is expired"),
			expected: true,
		},
		{
			name:     "different structured error",
			err:      auth.ErrInvalidToken,
			expected: false,
		},
		{
			name:     "nil error",
			err:      nil,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, auth.IsTokenExpiredError(tt.err))
		})
	}
}

func TestIsAuthenticationError(t *testing.T) {
	assert.True(t, auth.IsAuthenticationError(auth.ErrInvalidGrant))
	assert.True(t, auth.IsAuthenticationError(auth.ErrClientNotFound))
	assert.False(t, auth.IsAuthenticationError(auth.ErrInvalidScope))
	assert.False(t, auth.IsAuthenticationError(errors.New("plain")))
	assert.False(t, auth.IsAuthenticationError(nil))
}

func TestSentinelErrorsCarryHTTPCodes(t *testing.T) {
	tests := []struct {
		err  *goerrors.Error
		code int
		text string
	}{
		{auth.ErrAuthenticationFailed, goerrors.CodeUnauthorized, auth.TextCodeAuthenticationFailed},
		{auth.ErrInvalidGrant, goerrors.CodeUnauthorized, auth.TextCodeInvalidGrant},
		{auth.ErrUnsupportedGrantType, goerrors.CodeBadRequest, auth.TextCodeUnsupportedGrant},
		{auth.ErrInvalidScope, goerrors.CodeBadRequest, auth.TextCodeInvalidScope},
		{auth.ErrUserNotFound, goerrors.CodeNotFound, auth.TextCodeUserNotFound},
		{auth.ErrUserValidation, goerrors.CodeBadRequest, auth.TextCodeUserValidation},
		{auth.ErrImmutableTokenAttribute, goerrors.CodeInternal, auth.TextCodeImmutableClaim},
		{auth.ErrRightNotFound, goerrors.CodeNotFound, auth.TextCodeRightNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.text, tt.err.TextCode)
		})
	}
}
