package auth

import (
	"context"

	"github.com/google/uuid"
)

// TokenEnhancer adds information to an access token before it is signed.
// Implementations may only touch AdditionalInformation; validity, scope,
// principal and refresh association are checked after enhancement.
type TokenEnhancer interface {
	Enhance(ctx context.Context, token *AccessToken, authn *Authentication) (*AccessToken, error)
}

// TokenEnhancerFunc adapts a function into a TokenEnhancer.
type TokenEnhancerFunc func(ctx context.Context, token *AccessToken, authn *Authentication) (*AccessToken, error)

// Enhance satisfies the TokenEnhancer interface.
func (f TokenEnhancerFunc) Enhance(ctx context.Context, token *AccessToken, authn *Authentication) (*AccessToken, error) {
	if f == nil {
		return token, nil
	}
	return f(ctx, token, authn)
}

// AccessTokenEnhancer adds the reference data user id of the authenticated
// user under ReferenceDataUserIDKey. Client only tokens are left untouched.
type AccessTokenEnhancer struct{}

var _ TokenEnhancer = AccessTokenEnhancer{}

func (AccessTokenEnhancer) Enhance(_ context.Context, token *AccessToken, authn *Authentication) (*AccessToken, error) {
	if token == nil || authn == nil || authn.UserID == uuid.Nil {
		return token, nil
	}

	if token.AdditionalInformation == nil {
		token.AdditionalInformation = map[string]any{}
	}
	token.AdditionalInformation[ReferenceDataUserIDKey] = authn.UserID.String()

	return token, nil
}

// TokenEnhancerChain runs enhancers in order, each one receiving the token
// returned by the previous.
type TokenEnhancerChain []TokenEnhancer

func (c TokenEnhancerChain) Enhance(ctx context.Context, token *AccessToken, authn *Authentication) (*AccessToken, error) {
	var err error
	for _, enhancer := range c {
		if enhancer == nil {
			continue
		}
		if token, err = enhancer.Enhance(ctx, token, authn); err != nil {
			return nil, err
		}
	}
	return token, nil
}

type noopTokenEnhancer struct{}

func (noopTokenEnhancer) Enhance(_ context.Context, token *AccessToken, _ *Authentication) (*AccessToken, error) {
	return token, nil
}

func normalizeTokenEnhancer(e TokenEnhancer) TokenEnhancer {
	if e == nil {
		return noopTokenEnhancer{}
	}
	return e
}
