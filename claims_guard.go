package auth

import (
	"fmt"
	"slices"
	"time"
)

type immutableTokenSnapshot struct {
	id        string
	tokenType string
	issuedAt  time.Time
	expiresAt time.Time
	scope     []string
	principal string
	clientID  string
	refresh   string
	refreshAt time.Time
}

func captureImmutableToken(token *AccessToken) immutableTokenSnapshot {
	snap := immutableTokenSnapshot{
		id:        token.ID,
		tokenType: token.TokenType,
		issuedAt:  token.IssuedAt,
		expiresAt: token.ExpiresAt,
		scope:     slices.Clone(token.Scope),
		refresh:   token.RefreshValue(),
	}

	if token.RefreshToken != nil {
		snap.refreshAt = token.RefreshToken.ExpiresAt
	}

	if token.Authentication != nil {
		snap.principal = token.Authentication.Principal
		snap.clientID = token.Authentication.ClientID
	}

	return snap
}

func (snap immutableTokenSnapshot) validate(token *AccessToken) error {
	if token == nil {
		return immutableAttributeViolation("token")
	}

	if token.ID != snap.id {
		return immutableAttributeViolation("jti")
	}

	if token.TokenType != snap.tokenType {
		return immutableAttributeViolation("token_type")
	}

	if !token.IssuedAt.Equal(snap.issuedAt) {
		return immutableAttributeViolation("iat")
	}

	if !token.ExpiresAt.Equal(snap.expiresAt) {
		return immutableAttributeViolation("exp")
	}

	if !slices.Equal(token.Scope, snap.scope) {
		return immutableAttributeViolation("scope")
	}

	if token.RefreshValue() != snap.refresh {
		return immutableAttributeViolation("refresh_token")
	}

	if token.RefreshToken != nil && !token.RefreshToken.ExpiresAt.Equal(snap.refreshAt) {
		return immutableAttributeViolation("refresh_token_exp")
	}

	var principal, clientID string
	if token.Authentication != nil {
		principal = token.Authentication.Principal
		clientID = token.Authentication.ClientID
	}

	if principal != snap.principal {
		return immutableAttributeViolation("sub")
	}

	if clientID != snap.clientID {
		return immutableAttributeViolation("client_id")
	}

	return nil
}

func immutableAttributeViolation(field string) error {
	clone := ErrImmutableTokenAttribute.Clone()
	if clone == nil {
		return ErrImmutableTokenAttribute
	}
	clone.Message = fmt.Sprintf("immutable token attribute mutated: %s", field)
	clone.Source = ErrImmutableTokenAttribute
	return clone.WithMetadata(map[string]any{"attribute": field})
}
