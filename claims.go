package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenClaims is the JWT payload of an issued access token
type AccessTokenClaims struct {
	jwt.RegisteredClaims
	ClientID            string         `json:"client_id"`
	Username            string         `json:"user_name,omitempty"`
	UID                 string         `json:"uid,omitempty"`
	GrantType           string         `json:"grant_type,omitempty"`
	Scope               []string       `json:"scope,omitempty"`
	Authorities         []string       `json:"authorities,omitempty"`
	ReferenceDataUserID string         `json:"referenceDataUserId,omitempty"`
	Extensions          map[string]any `json:"ext,omitempty"`
}

// Expires returns the expiration time
func (c *AccessTokenClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// IssuedAt returns the issued at time
func (c *AccessTokenClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}

// newAccessTokenClaims projects token onto JWT claims. Additional
// information other than the reference data user id goes under "ext".
func newAccessTokenClaims(token *AccessToken, issuer string) *AccessTokenClaims {
	claims := &AccessTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        token.ID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(token.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(token.ExpiresAt),
		},
	}

	if a := token.Authentication; a != nil {
		claims.Subject = a.Principal
		claims.Username = a.Principal
		claims.ClientID = a.ClientID
		claims.GrantType = a.GrantType
		claims.Authorities = copyStrings(a.Authorities)
		if a.UserID != uuid.Nil {
			claims.UID = a.UserID.String()
		}
		if claims.Subject == "" {
			claims.Subject = a.ClientID
		}
	}

	claims.Scope = copyStrings(token.Scope)

	for key, value := range token.AdditionalInformation {
		if key == ReferenceDataUserIDKey {
			if id, ok := value.(string); ok {
				claims.ReferenceDataUserID = id
				continue
			}
		}
		if claims.Extensions == nil {
			claims.Extensions = map[string]any{}
		}
		claims.Extensions[key] = value
	}

	return claims
}

func copyStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
