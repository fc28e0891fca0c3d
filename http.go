package auth

import (
	"context"
	"encoding/base64"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// AccessTokenReader reads active access tokens, TokenServices implements it
type AccessTokenReader interface {
	ReadAccessToken(ctx context.Context, value string) (*AccessToken, error)
}

// RouteAuthenticator resolves the bearer token of a request into a Caller
// and puts both in the request context.
type RouteAuthenticator struct {
	tokens       AccessTokenReader
	rights       RightChecker
	Logger       Logger
	ErrorHandler func(c router.Context, err error) error
}

// NewRouteAuthenticator returns a RouteAuthenticator. rights resolves
// rights of the token owner and may be nil.
func NewRouteAuthenticator(tokens AccessTokenReader, rights RightChecker) *RouteAuthenticator {
	a := &RouteAuthenticator{
		tokens: tokens,
		rights: rights,
		Logger: defLogger{},
	}
	a.ErrorHandler = a.defaultErrHandler
	return a
}

// ProtectedRoute rejects requests without an active bearer token
func (a *RouteAuthenticator) ProtectedRoute() router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			ctx, err := a.AuthenticateRequest(c.Context(), c.GetString(router.HeaderAuthorization, ""))
			if err != nil {
				return a.ErrorHandler(c, err)
			}

			c.SetContext(ctx)

			return next(c)
		}
	}
}

// AuthenticateRequest reads the bearer token in header and returns ctx
// carrying the Caller and the AccessToken.
func (a *RouteAuthenticator) AuthenticateRequest(ctx context.Context, header string) (context.Context, error) {
	value, ok := BearerToken(header)
	if !ok {
		return ctx, sentinelError(ErrInvalidToken, nil, "missing or malformed bearer token", nil)
	}

	token, err := a.tokens.ReadAccessToken(ctx, value)
	if err != nil {
		return ctx, err
	}

	caller := CallerFromAccessToken(token, a.rights)
	return WithAccessToken(WithCaller(ctx, caller), token), nil
}

// CallerFromAccessToken builds the Caller of a request authorized with token
func CallerFromAccessToken(token *AccessToken, rights RightChecker) *Caller {
	caller := &Caller{}
	if token == nil || token.Authentication == nil {
		return caller
	}

	authn := token.Authentication
	caller.UserID = authn.UserID
	caller.Username = authn.Principal
	caller.ClientID = authn.ClientID

	if rights != nil && !authn.IsClientOnly() {
		caller.Lookup = UserRights(rights, authn.UserID)
	}

	return caller
}

// BearerToken extracts the token of an "Authorization: Bearer" header
func BearerToken(header string) (string, bool) {
	scheme, value, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	value = strings.TrimSpace(value)
	return value, value != ""
}

// BasicCredentials decodes an "Authorization: Basic" header
func BasicCredentials(header string) (string, string, bool) {
	scheme, value, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "basic") {
		return "", "", false
	}

	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(value))
	if err != nil {
		return "", "", false
	}

	username, password, ok := strings.Cut(string(decoded), ":")
	return username, password, ok
}

func (a *RouteAuthenticator) defaultErrHandler(c router.Context, err error) error {
	richErr := asRichError(err)

	a.Logger.Info(
		"Bearer authentication rejected",
		"error", richErr.Message,
		"text_code", richErr.TextCode,
		"details", print.MaybePrettyJSON(richErr.Metadata),
	)

	return c.JSON(statusCode(richErr), map[string]string{
		"error":             oauthErrorCode(richErr),
		"error_description": richErr.Message,
	})
}

// asRichError returns err as a go-errors Error, wrapping foreign errors as
// internal ones.
func asRichError(err error) *goerrors.Error {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr
	}
	return goerrors.Wrap(err, goerrors.CategoryInternal, "An unexpected server error occurred").
		WithCode(goerrors.CodeInternal)
}

// statusCode picks the HTTP status for richErr
func statusCode(richErr *goerrors.Error) int {
	if richErr.Code != 0 {
		return richErr.Code
	}

	switch richErr.Category {
	case goerrors.CategoryAuth:
		return goerrors.CodeUnauthorized
	case goerrors.CategoryAuthz:
		return goerrors.CodeForbidden
	case goerrors.CategoryValidation, goerrors.CategoryBadInput:
		return goerrors.CodeBadRequest
	case goerrors.CategoryNotFound:
		return goerrors.CodeNotFound
	case goerrors.CategoryConflict:
		return goerrors.CodeConflict
	default:
		return goerrors.CodeInternal
	}
}

// oauthErrorCode maps text codes onto the OAuth2 error vocabulary
func oauthErrorCode(richErr *goerrors.Error) string {
	switch richErr.TextCode {
	case TextCodeInvalidGrant:
		return "invalid_grant"
	case TextCodeUnsupportedGrant:
		return "unsupported_grant_type"
	case TextCodeInvalidScope:
		return "invalid_scope"
	case TextCodeAuthenticationFailed, TextCodeClientNotFound:
		return "invalid_client"
	case TextCodeInvalidToken, TextCodeTokenExpired:
		return "invalid_token"
	case "":
		if richErr.Category == goerrors.CategoryAuth {
			return "unauthorized"
		}
		return "server_error"
	default:
		return strings.ToLower(richErr.TextCode)
	}
}
