package auth

import (
	"context"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// OAuthTokenServices is what the token endpoints need from TokenServices
type OAuthTokenServices interface {
	AccessTokenReader
	Authenticate(ctx context.Context, req TokenRequest) (*AccessToken, error)
	RevokeToken(ctx context.Context, value string) (bool, error)
}

// ClientAuthenticator verifies client credentials
type ClientAuthenticator interface {
	Authenticate(ctx context.Context, clientID, secret string) (*ClientDetails, error)
}

// OAuthControllerRoutes holds the endpoint paths
type OAuthControllerRoutes struct {
	Token       string
	CheckToken  string
	Revoke      string
	SaveUser    string
	CurrentUser string
}

// OAuthController serves the token endpoints and the user save endpoint
type OAuthController struct {
	Debug        bool
	Logger       Logger
	Routes       *OAuthControllerRoutes
	Tokens       OAuthTokenServices
	Clients      ClientAuthenticator
	Users        *SaveUserHandler
	References   ReferenceUserLookup
	Auther       *RouteAuthenticator
	ErrorHandler func(c router.Context, err error) error
}

// OAuthControllerOption configures the controller
type OAuthControllerOption func(*OAuthController) *OAuthController

// WithControllerLogger sets the logger
func WithControllerLogger(logger Logger) OAuthControllerOption {
	return func(c *OAuthController) *OAuthController {
		c.Logger = normalizeLogger(logger)
		return c
	}
}

// WithControllerDebug dumps payloads and errors
func WithControllerDebug(debug bool) OAuthControllerOption {
	return func(c *OAuthController) *OAuthController {
		c.Debug = debug
		return c
	}
}

// WithTokenServices sets the token services
func WithTokenServices(tokens OAuthTokenServices) OAuthControllerOption {
	return func(c *OAuthController) *OAuthController {
		c.Tokens = tokens
		return c
	}
}

// WithClientAuthenticator sets the client registry used for client
// authentication
func WithClientAuthenticator(clients ClientAuthenticator) OAuthControllerOption {
	return func(c *OAuthController) *OAuthController {
		c.Clients = clients
		return c
	}
}

// WithSaveUserHandler sets the handler behind the user save endpoint
func WithSaveUserHandler(h *SaveUserHandler) OAuthControllerOption {
	return func(c *OAuthController) *OAuthController {
		c.Users = h
		return c
	}
}

// WithReferenceUsers enables the current user endpoint
func WithReferenceUsers(references ReferenceUserLookup) OAuthControllerOption {
	return func(c *OAuthController) *OAuthController {
		c.References = references
		return c
	}
}

// WithRouteAuthenticator sets the bearer authenticator of protected routes
func WithRouteAuthenticator(auther *RouteAuthenticator) OAuthControllerOption {
	return func(c *OAuthController) *OAuthController {
		c.Auther = auther
		return c
	}
}

// WithControllerRoutes overrides the endpoint paths
func WithControllerRoutes(routes *OAuthControllerRoutes) OAuthControllerOption {
	return func(c *OAuthController) *OAuthController {
		if routes != nil {
			c.Routes = routes
		}
		return c
	}
}

// NewOAuthController creates the controller. Token services, clients and
// a route authenticator are required.
func NewOAuthController(opts ...OAuthControllerOption) *OAuthController {
	c := &OAuthController{
		Logger: defLogger{},
		Routes: &OAuthControllerRoutes{
			Token:       "/api/oauth/token",
			CheckToken:  "/api/oauth/check_token",
			Revoke:      "/api/oauth/revoke",
			SaveUser:    "/api/users/auth",
			CurrentUser: "/api/users/auth/current",
		},
	}
	c.ErrorHandler = c.jsonErrorHandler

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Tokens == nil {
		panic("Missing OAuthTokenServices in oauth controller...")
	}

	if c.Clients == nil {
		panic("Missing ClientAuthenticator in oauth controller...")
	}

	if c.Auther == nil {
		panic("Missing RouteAuthenticator in oauth controller...")
	}

	return c
}

// RegisterOAuthRoutes mounts the controller routes on app
func RegisterOAuthRoutes[T any](app router.Router[T], controller *OAuthController) {
	protected := controller.Auther.ProtectedRoute()

	app.Post(controller.Routes.Token, controller.Token).
		SetName("oauth.token")

	app.Get(controller.Routes.CheckToken, controller.CheckToken).
		SetName("oauth.check_token")

	app.Post(controller.Routes.Revoke, protected(controller.Revoke)).
		SetName("oauth.revoke")

	if controller.Users != nil {
		app.Put(controller.Routes.SaveUser, protected(controller.SaveUser)).
			SetName("users.auth.save")
	}

	if controller.References != nil {
		app.Get(controller.Routes.CurrentUser, protected(controller.CurrentUser)).
			SetName("users.auth.current")
	}
}

// TokenPayload is the token endpoint request body
type TokenPayload struct {
	GrantType    string `form:"grant_type" json:"grant_type"`
	Username     string `form:"username" json:"username"`
	Password     string `form:"password" json:"password"`
	RefreshToken string `form:"refresh_token" json:"refresh_token"`
	Scope        string `form:"scope" json:"scope"`
	ClientID     string `form:"client_id" json:"client_id"`
	ClientSecret string `form:"client_secret" json:"client_secret"`
}

// Validate will run validation rules
func (r TokenPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.GrantType,
			validation.Required,
		),
	)
}

// Scopes splits the space delimited scope parameter
func (r TokenPayload) Scopes() []string {
	return strings.Fields(r.Scope)
}

// Token grants an access token. The client authenticates with HTTP Basic
// or with client_id and client_secret in the body.
func (a *OAuthController) Token(ctx router.Context) error {
	payload := new(TokenPayload)
	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, invalidRequest(err, "invalid token request"))
	}

	if err := payload.Validate(); err != nil {
		return a.ErrorHandler(ctx, invalidRequest(err, "invalid token request"))
	}

	client, err := a.authenticateClient(ctx, payload)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	token, err := a.Tokens.Authenticate(ctx.Context(), TokenRequest{
		GrantType:    payload.GrantType,
		ClientID:     client.ClientID,
		Username:     payload.Username,
		Password:     payload.Password,
		RefreshToken: payload.RefreshToken,
		Scope:        payload.Scopes(),
	})
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	ctx.SetHeader("Cache-Control", "no-store")
	ctx.SetHeader("Pragma", "no-cache")

	return ctx.JSON(router.StatusOK, TokenResponse(token))
}

// CheckToken introspects the token query parameter. Tokens that cannot be
// read are reported as inactive.
func (a *OAuthController) CheckToken(ctx router.Context) error {
	if _, err := a.authenticateClient(ctx, &TokenPayload{}); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	value := ctx.Query("token", "")
	if value == "" {
		return a.ErrorHandler(ctx, sentinelError(ErrInvalidToken, nil, "token parameter is required", nil))
	}

	token, err := a.Tokens.ReadAccessToken(ctx.Context(), value)
	if err != nil {
		if !IsAuthenticationError(err) {
			return a.ErrorHandler(ctx, err)
		}
		if a.Debug {
			a.Logger.Debug("check token rejected", "error", err)
		}
		return ctx.JSON(router.StatusOK, map[string]any{"active": false})
	}

	return ctx.JSON(router.StatusOK, IntrospectionResponse(token))
}

// Revoke removes the bearer token the request was authorized with
func (a *OAuthController) Revoke(ctx router.Context) error {
	token, ok := AccessTokenFromContext(ctx.Context())
	if !ok {
		return a.ErrorHandler(ctx, ErrMissingCaller)
	}

	revoked, err := a.Tokens.RevokeToken(ctx.Context(), token.Value)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{"revoked": revoked})
}

// SaveUser validates and stores the user in the body on behalf of the
// bearer of the request.
func (a *OAuthController) SaveUser(ctx router.Context) error {
	caller, ok := CallerFromContext(ctx.Context())
	if !ok {
		return a.ErrorHandler(ctx, ErrMissingCaller)
	}

	payload := new(UserRequest)
	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, invalidRequest(err, "invalid user payload"))
	}

	if a.Debug {
		a.Logger.Debug("save user payload", "payload", print.MaybePrettyJSON(payload))
	}

	var saved *SaveUserResponse
	err := a.Users.Execute(ctx.Context(), SaveUserMessage{
		Caller: caller,
		User:   payload,
		OnResponse: func(resp *SaveUserResponse) {
			saved = resp
		},
	})

	if violations, ok := ViolationsFromError(err); ok {
		return ctx.JSON(router.StatusBadRequest, map[string]any{
			"errors": violations,
		})
	}

	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	if saved == nil {
		return a.ErrorHandler(ctx, goerrors.New("user save returned no result", goerrors.CategoryInternal))
	}

	return ctx.JSON(router.StatusOK, saved.User)
}

// CurrentUser returns the reference data profile of the bearer
func (a *OAuthController) CurrentUser(ctx router.Context) error {
	caller, ok := CallerFromContext(ctx.Context())
	if !ok || caller.IsClientOnly() {
		return a.ErrorHandler(ctx, ErrMissingCaller)
	}

	user, err := CurrentUser(ctx.Context(), caller, a.References)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, user)
}

// CurrentUser resolves the reference data profile of caller
func CurrentUser(ctx context.Context, caller *Caller, references ReferenceUserLookup) (*UserMainDetails, error) {
	if caller.IsClientOnly() {
		return nil, ErrMissingCaller
	}

	user, err := references.FindByID(ctx, caller.UserID)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryExternal, "failed to load reference data user")
	}

	if user == nil {
		return nil, sentinelError(ErrReferenceUserNotFound, nil, "", map[string]any{
			"user_id": caller.UserID.String(),
		})
	}

	return user, nil
}

// TokenResponse renders token the way the token endpoint returns it.
// Additional information is merged at the top level.
func TokenResponse(token *AccessToken) map[string]any {
	out := map[string]any{}
	for key, value := range token.AdditionalInformation {
		out[key] = value
	}

	out["access_token"] = token.Value
	out["token_type"] = token.TokenType
	out["expires_in"] = token.ExpiresIn(token.IssuedAt)
	out["scope"] = strings.Join(token.Scope, " ")
	out["jti"] = token.ID

	if refresh := token.RefreshValue(); refresh != "" {
		out["refresh_token"] = refresh
	}

	return out
}

// IntrospectionResponse renders an active token for check_token
func IntrospectionResponse(token *AccessToken) map[string]any {
	out := map[string]any{
		"active": true,
		"exp":    token.ExpiresAt.Unix(),
		"iat":    token.IssuedAt.Unix(),
		"jti":    token.ID,
		"scope":  strings.Join(token.Scope, " "),
	}

	if id, ok := token.AdditionalInformation[ReferenceDataUserIDKey]; ok {
		out[ReferenceDataUserIDKey] = id
	}

	if authn := token.Authentication; authn != nil {
		out["client_id"] = authn.ClientID
		if !authn.IsClientOnly() {
			out["user_name"] = authn.Principal
		}
		if len(authn.Authorities) > 0 {
			out["authorities"] = authn.Authorities
		}
	}

	return out
}

func (a *OAuthController) authenticateClient(ctx router.Context, payload *TokenPayload) (*ClientDetails, error) {
	clientID, secret, ok := BasicCredentials(ctx.GetString(router.HeaderAuthorization, ""))
	if !ok {
		clientID, secret = payload.ClientID, payload.ClientSecret
	}

	if clientID == "" {
		return nil, sentinelError(ErrAuthenticationFailed, nil, "client authentication required", nil)
	}

	client, err := a.Clients.Authenticate(ctx.Context(), clientID, secret)
	if err != nil {
		if goerrors.Is(err, ErrClientNotFound) || goerrors.Is(err, ErrAuthenticationFailed) {
			return nil, sentinelError(ErrAuthenticationFailed, err, "bad client credentials", map[string]any{
				"client_id": clientID,
			})
		}
		return nil, err
	}

	return client, nil
}

func invalidRequest(err error, message string) error {
	return goerrors.Wrap(err, goerrors.CategoryBadInput, message).
		WithTextCode(TextCodeInvalidRequest).
		WithCode(goerrors.CodeBadRequest)
}

func (a *OAuthController) jsonErrorHandler(c router.Context, err error) error {
	richErr := asRichError(err)
	status := statusCode(richErr)

	if a.Debug {
		fmt.Println("======= OAUTH ERROR ======")
		fmt.Println(print.MaybePrettyJSON(richErr))
		fmt.Println("==========================")
	}

	if status >= goerrors.CodeInternal {
		a.Logger.Error("request failed", "error", err, "text_code", richErr.TextCode)
	} else {
		a.Logger.Info("request rejected", "error", richErr.Message, "text_code", richErr.TextCode)
	}

	body := map[string]any{
		"error":             oauthErrorCode(richErr),
		"error_description": richErr.Message,
	}

	if richErr.TextCode != "" {
		body["text_code"] = richErr.TextCode
	}

	return c.JSON(status, body)
}
