package auth

import (
	"context"
)

var callerCtxKey = &contextKey{"caller"}
var tokenCtxKey = &contextKey{"access_token"}

type contextKey struct {
	name string
}

// WithCaller sets the Caller in the given context
func WithCaller(ctx context.Context, caller *Caller) context.Context {
	return context.WithValue(ctx, callerCtxKey, caller)
}

// CallerFromContext finds the caller in the context
func CallerFromContext(ctx context.Context) (*Caller, bool) {
	raw, ok := ctx.Value(callerCtxKey).(*Caller)
	return raw, ok && raw != nil
}

// WithAccessToken sets the AccessToken the request was authorized with
func WithAccessToken(ctx context.Context, token *AccessToken) context.Context {
	return context.WithValue(ctx, tokenCtxKey, token)
}

// AccessTokenFromContext extracts the AccessToken from the context
func AccessTokenFromContext(ctx context.Context) (*AccessToken, bool) {
	raw, ok := ctx.Value(tokenCtxKey).(*AccessToken)
	return raw, ok && raw != nil
}
