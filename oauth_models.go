package auth

import (
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Grant types understood by the token endpoint
const (
	GrantTypePassword     = "password"
	GrantTypeRefreshToken = "refresh_token"
)

// TokenTypeBearer is the only token type issued
const TokenTypeBearer = "bearer"

// ReferenceDataUserIDKey is the additional information key the enhancer adds
const ReferenceDataUserIDKey = "referenceDataUserId"

// Credentials are the resource owner credentials of a password grant
type Credentials struct {
	Username string
	Password string
	ClientID string
	Scope    []string
}

// Authentication is the outcome of a successful authentication.
type Authentication struct {
	Principal     string    `json:"principal"`
	UserID        uuid.UUID `json:"user_id"`
	ClientID      string    `json:"client_id"`
	GrantType     string    `json:"grant_type,omitempty"`
	Scope         []string  `json:"scope,omitempty"`
	Authorities   []string  `json:"authorities,omitempty"`
	Authenticated bool      `json:"authenticated"`
}

// IsClientOnly reports whether there is no user principal behind the request
func (a *Authentication) IsClientOnly() bool {
	return a == nil || a.UserID == uuid.Nil
}

// RefreshToken is an opaque refresh token
type RefreshToken struct {
	Value          string          `json:"value"`
	ExpiresAt      time.Time       `json:"expires_at"`
	Authentication *Authentication `json:"authentication,omitempty"`
}

// IsExpired reports whether the refresh token is past its expiry
func (r *RefreshToken) IsExpired(now time.Time) bool {
	return r == nil || (!r.ExpiresAt.IsZero() && !now.Before(r.ExpiresAt))
}

// AccessToken is an issued access token. Value holds the signed JWT once
// the token has gone through the issuance pipeline.
type AccessToken struct {
	ID                    string          `json:"jti"`
	Value                 string          `json:"value"`
	TokenType             string          `json:"token_type"`
	IssuedAt              time.Time       `json:"issued_at"`
	ExpiresAt             time.Time       `json:"expires_at"`
	Scope                 []string        `json:"scope,omitempty"`
	RefreshToken          *RefreshToken   `json:"refresh_token,omitempty"`
	AdditionalInformation map[string]any  `json:"additional_information,omitempty"`
	Authentication        *Authentication `json:"authentication,omitempty"`
}

// ExpiresIn returns the remaining validity in seconds
func (t *AccessToken) ExpiresIn(now time.Time) int {
	if t == nil || t.ExpiresAt.IsZero() {
		return 0
	}
	left := int(t.ExpiresAt.Sub(now).Seconds())
	if left < 0 {
		return 0
	}
	return left
}

// IsExpired reports whether the access token is past its expiry
func (t *AccessToken) IsExpired(now time.Time) bool {
	return t == nil || !now.Before(t.ExpiresAt)
}

// RefreshValue returns the associated refresh token value, if any
func (t *AccessToken) RefreshValue() string {
	if t == nil || t.RefreshToken == nil {
		return ""
	}
	return t.RefreshToken.Value
}

// ClientDetails is a registered OAuth2 client.
type ClientDetails struct {
	bun.BaseModel               `bun:"table:auth_clients,alias:cli"`
	ID                          uuid.UUID `bun:"id,pk,type:uuid" json:"id,omitempty"`
	ClientID                    string    `bun:"client_id,notnull,unique" json:"client_id"`
	ClientSecretHash            string    `bun:"client_secret_hash" json:"-"`
	Scopes                      []string  `bun:"scopes" json:"scopes,omitempty"`
	AuthorizedGrantTypes        []string  `bun:"authorized_grant_types" json:"authorized_grant_types,omitempty"`
	Authorities                 []string  `bun:"authorities" json:"authorities,omitempty"`
	AccessTokenValiditySeconds  int       `bun:"access_token_validity_seconds" json:"access_token_validity_seconds,omitempty"`
	RefreshTokenValiditySeconds int       `bun:"refresh_token_validity_seconds" json:"refresh_token_validity_seconds,omitempty"`
}

// SupportsGrant reports whether the client may use the given grant type.
// A client with no configured grant types accepts all supported grants.
func (c *ClientDetails) SupportsGrant(grantType string) bool {
	if c == nil {
		return false
	}
	if len(c.AuthorizedGrantTypes) == 0 {
		return true
	}
	return slices.Contains(c.AuthorizedGrantTypes, grantType)
}
