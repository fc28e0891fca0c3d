package auth

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"

	"github.com/goliatone/go-logistics-auth/metrics"
)

const (
	// DefaultAccessTokenValiditySeconds applies when no validity is configured
	DefaultAccessTokenValiditySeconds = 60 * 60 * 12
	// DefaultRefreshTokenValiditySeconds is thirty days
	DefaultRefreshTokenValiditySeconds = 60 * 60 * 24 * 30
)

// TokenRequest is a token endpoint request after client authentication
type TokenRequest struct {
	GrantType    string
	ClientID     string
	Username     string
	Password     string
	RefreshToken string
	Scope        []string
}

// TokenServicesConfig holds the token issuance settings
type TokenServicesConfig struct {
	SigningKey                  string
	Issuer                      string
	AccessTokenValiditySeconds  int
	RefreshTokenValiditySeconds int
}

// TokenServicesConfigFrom reads the token settings from cfg
func TokenServicesConfigFrom(cfg Config) TokenServicesConfig {
	return TokenServicesConfig{
		SigningKey:                  cfg.GetSigningKey(),
		Issuer:                      cfg.GetIssuer(),
		AccessTokenValiditySeconds:  cfg.GetTokenValiditySeconds(),
		RefreshTokenValiditySeconds: cfg.GetRefreshTokenValiditySeconds(),
	}
}

// TokenServicesOption configures TokenServices
type TokenServicesOption func(*TokenServices)

// WithAuthenticationManager sets the manager used for password grants and
// refresh re-authentication
func WithAuthenticationManager(m AuthenticationManager) TokenServicesOption {
	return func(s *TokenServices) {
		s.authManager = m
	}
}

// WithClientDetailsLookup sets the client registry
func WithClientDetailsLookup(c ClientDetailsLookup) TokenServicesOption {
	return func(s *TokenServices) {
		s.clients = c
	}
}

// WithTokenStore sets the store tokens are persisted to
func WithTokenStore(store TokenStore) TokenServicesOption {
	return func(s *TokenServices) {
		s.store = store
	}
}

// WithTokenEnhancer sets the enhancer run before signing
func WithTokenEnhancer(e TokenEnhancer) TokenServicesOption {
	return func(s *TokenServices) {
		s.enhancer = normalizeTokenEnhancer(e)
	}
}

// WithTokenLogger sets the logger
func WithTokenLogger(l Logger) TokenServicesOption {
	return func(s *TokenServices) {
		s.logger = normalizeLogger(l)
	}
}

// WithTokenActivitySink sets the sink for token events
func WithTokenActivitySink(sink ActivitySink) TokenServicesOption {
	return func(s *TokenServices) {
		s.activity = normalizeActivitySink(sink)
	}
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) TokenServicesOption {
	return func(s *TokenServices) {
		if now != nil {
			s.now = now
		}
	}
}

// TokenServices issues, refreshes, reads and revokes access tokens.
// Tokens are enhanced, signed as HS256 JWTs and stored before they are
// handed out. Refresh tokens are always supported.
type TokenServices struct {
	signingKey          []byte
	issuer              string
	accessValidity      int
	refreshValidity     int
	supportRefreshToken bool
	authManager         AuthenticationManager
	clients             ClientDetailsLookup
	store               TokenStore
	enhancer            TokenEnhancer
	logger              Logger
	activity            ActivitySink
	now                 func() time.Time
}

// NewTokenServices creates the token services. A token store and a client
// lookup are required.
func NewTokenServices(cfg TokenServicesConfig, opts ...TokenServicesOption) (*TokenServices, error) {
	s := &TokenServices{
		signingKey:          []byte(cfg.SigningKey),
		issuer:              cfg.Issuer,
		accessValidity:      cfg.AccessTokenValiditySeconds,
		refreshValidity:     cfg.RefreshTokenValiditySeconds,
		supportRefreshToken: true,
		enhancer:            noopTokenEnhancer{},
		logger:              defLogger{},
		activity:            noopActivitySink{},
		now:                 time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	if len(s.signingKey) == 0 {
		return nil, goerrors.New("token signing key is required", goerrors.CategoryBadInput)
	}

	if s.store == nil {
		return nil, goerrors.New("token store is required", goerrors.CategoryBadInput)
	}

	if s.clients == nil {
		return nil, goerrors.New("client details lookup is required", goerrors.CategoryBadInput)
	}

	if s.accessValidity <= 0 {
		s.accessValidity = DefaultAccessTokenValiditySeconds
	}

	if s.refreshValidity <= 0 {
		s.refreshValidity = DefaultRefreshTokenValiditySeconds
	}

	s.logger.Debug("Using token validity time", "seconds", s.accessValidity)

	return s, nil
}

// AccessTokenValiditySeconds returns the configured access token validity
func (s *TokenServices) AccessTokenValiditySeconds() int {
	return s.accessValidity
}

// SupportsRefreshToken reports whether refresh tokens are issued
func (s *TokenServices) SupportsRefreshToken() bool {
	return s.supportRefreshToken
}

// Authenticate grants a token for req. The client is expected to be
// authenticated by the caller.
func (s *TokenServices) Authenticate(ctx context.Context, req TokenRequest) (*AccessToken, error) {
	switch req.GrantType {
	case GrantTypePassword, GrantTypeRefreshToken:
	default:
		s.fail("unsupported_grant")
		return nil, sentinelError(ErrUnsupportedGrantType, nil, "", map[string]any{"grant_type": req.GrantType})
	}

	client, err := s.loadClient(ctx, req.ClientID)
	if err != nil {
		s.fail("invalid_client")
		return nil, err
	}

	if !client.SupportsGrant(req.GrantType) {
		s.fail("invalid_grant")
		return nil, sentinelError(ErrInvalidGrant, nil, "unauthorized grant type", map[string]any{
			"grant_type": req.GrantType,
			"client_id":  client.ClientID,
		})
	}

	if req.GrantType == GrantTypeRefreshToken {
		return s.RefreshAccessToken(ctx, req.RefreshToken, client.ClientID)
	}

	scope, err := resolveScope(client, req.Scope)
	if err != nil {
		s.fail("invalid_scope")
		return nil, err
	}

	if s.authManager == nil {
		s.fail("invalid_grant")
		return nil, sentinelError(ErrUnsupportedGrantType, nil, "password grant requires an authentication manager", nil)
	}

	authn, err := s.authManager.Authenticate(ctx, Credentials{
		Username: req.Username,
		Password: req.Password,
		ClientID: client.ClientID,
		Scope:    scope,
	})
	if err != nil {
		s.fail("bad_credentials")
		recordActivity(ctx, s.activity, s.logger, ActivityEvent{
			EventType: ActivityEventLoginFailure,
			Actor:     ActorRef{Type: "unknown"},
			ClientID:  client.ClientID,
			Metadata: map[string]any{
				"username": req.Username,
				"error":    err.Error(),
			},
		})
		return nil, err
	}

	authn.ClientID = client.ClientID
	authn.GrantType = GrantTypePassword
	authn.Scope = scope

	return s.CreateAccessToken(ctx, authn)
}

// CreateAccessToken issues a new access token for an authenticated
// principal. A refresh token is added when the client may refresh and a
// user is behind the authentication.
func (s *TokenServices) CreateAccessToken(ctx context.Context, authn *Authentication) (*AccessToken, error) {
	if authn == nil || !authn.Authenticated {
		s.fail("unauthenticated")
		return nil, ErrAuthenticationFailed
	}

	client, err := s.loadClient(ctx, authn.ClientID)
	if err != nil {
		s.fail("invalid_client")
		return nil, err
	}

	now := s.now().Truncate(time.Second)

	var refresh *RefreshToken
	if s.supportRefreshToken && client.SupportsGrant(GrantTypeRefreshToken) && !authn.IsClientOnly() {
		refresh = &RefreshToken{
			Value:          uuid.NewString(),
			ExpiresAt:      now.Add(time.Duration(s.refreshValiditySeconds(client)) * time.Second),
			Authentication: authn,
		}
	}

	token := s.newAccessToken(now, client, authn, refresh)
	if err := s.issue(ctx, token, refresh != nil); err != nil {
		return nil, err
	}

	metrics.TokensIssued.WithLabelValues(grantLabel(authn.GrantType)).Inc()
	recordActivity(ctx, s.activity, s.logger, ActivityEvent{
		EventType: ActivityEventTokenIssued,
		Actor:     actorFromAuthentication(authn),
		UserID:    userIDString(authn),
		ClientID:  authn.ClientID,
		Metadata:  map[string]any{"jti": token.ID},
	})

	return token, nil
}

// RefreshAccessToken issues a new access token from a refresh token. The
// refresh token is reused and the access token previously issued with it
// is removed.
func (s *TokenServices) RefreshAccessToken(ctx context.Context, refreshValue, clientID string) (*AccessToken, error) {
	if !s.supportRefreshToken || refreshValue == "" {
		s.fail("invalid_grant")
		return nil, sentinelError(ErrInvalidGrant, nil, "invalid refresh token", nil)
	}

	refresh, err := s.store.ReadRefreshToken(ctx, refreshValue)
	if err != nil {
		s.fail("store")
		return nil, goerrors.Wrap(err, goerrors.CategoryOperation, "failed to read refresh token")
	}

	if refresh == nil || refresh.Authentication == nil {
		s.fail("invalid_grant")
		return nil, sentinelError(ErrInvalidGrant, nil, "invalid refresh token", nil)
	}

	if clientID != "" && refresh.Authentication.ClientID != clientID {
		s.fail("invalid_grant")
		return nil, sentinelError(ErrInvalidGrant, nil, "refresh token was issued to another client", map[string]any{
			"client_id": clientID,
		})
	}

	if err := s.store.RemoveAccessTokenUsingRefreshToken(ctx, refreshValue); err != nil {
		s.logger.Warn("RefreshAccessToken failed to remove previous access token", "error", err)
	}

	now := s.now().Truncate(time.Second)
	if refresh.IsExpired(now) {
		if err := s.store.RemoveRefreshToken(ctx, refreshValue); err != nil {
			s.logger.Warn("RefreshAccessToken failed to remove expired refresh token", "error", err)
		}
		s.fail("invalid_grant")
		return nil, sentinelError(ErrInvalidGrant, nil, "refresh token expired", nil)
	}

	authn := refresh.Authentication
	if s.authManager != nil && !authn.IsClientOnly() {
		authn, err = s.authManager.Reauthenticate(ctx, refresh.Authentication)
		if err != nil {
			s.fail("bad_credentials")
			return nil, err
		}
	}

	client, err := s.loadClient(ctx, authn.ClientID)
	if err != nil {
		s.fail("invalid_client")
		return nil, err
	}

	refreshed := *authn
	refreshed.GrantType = GrantTypeRefreshToken

	token := s.newAccessToken(now, client, &refreshed, refresh)
	if err := s.issue(ctx, token, false); err != nil {
		return nil, err
	}

	metrics.TokensIssued.WithLabelValues(GrantTypeRefreshToken).Inc()
	recordActivity(ctx, s.activity, s.logger, ActivityEvent{
		EventType: ActivityEventTokenRefreshed,
		Actor:     actorFromAuthentication(&refreshed),
		UserID:    userIDString(&refreshed),
		ClientID:  refreshed.ClientID,
		Metadata:  map[string]any{"jti": token.ID},
	})

	return token, nil
}

// ReadAccessToken verifies value and returns the stored token. Tokens that
// are not in the store have been revoked.
func (s *TokenServices) ReadAccessToken(ctx context.Context, value string) (*AccessToken, error) {
	if _, err := s.parse(value); err != nil {
		return nil, err
	}

	token, err := s.store.ReadAccessToken(ctx, value)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryOperation, "failed to read access token")
	}

	if token == nil {
		return nil, sentinelError(ErrInvalidToken, nil, "access token is not active", nil)
	}

	if token.IsExpired(s.now()) {
		if err := s.store.RemoveAccessToken(ctx, value); err != nil {
			s.logger.Warn("ReadAccessToken failed to remove expired token", "error", err)
		}
		return nil, ErrTokenExpired
	}

	return token, nil
}

// LoadAuthentication returns the authentication behind an access token
func (s *TokenServices) LoadAuthentication(ctx context.Context, value string) (*Authentication, error) {
	token, err := s.ReadAccessToken(ctx, value)
	if err != nil {
		return nil, err
	}

	if token.Authentication == nil {
		return nil, sentinelError(ErrInvalidToken, nil, "access token has no authentication", nil)
	}

	return token.Authentication, nil
}

// RevokeToken removes an access token and its refresh token. It returns
// false when the token was not active.
func (s *TokenServices) RevokeToken(ctx context.Context, value string) (bool, error) {
	token, err := s.store.ReadAccessToken(ctx, value)
	if err != nil {
		return false, goerrors.Wrap(err, goerrors.CategoryOperation, "failed to read access token")
	}

	if token == nil {
		return false, nil
	}

	if refresh := token.RefreshValue(); refresh != "" {
		if err := s.store.RemoveRefreshToken(ctx, refresh); err != nil {
			return false, goerrors.Wrap(err, goerrors.CategoryOperation, "failed to remove refresh token")
		}
	}

	if err := s.store.RemoveAccessToken(ctx, value); err != nil {
		return false, goerrors.Wrap(err, goerrors.CategoryOperation, "failed to remove access token")
	}

	metrics.TokensRevoked.Inc()
	recordActivity(ctx, s.activity, s.logger, ActivityEvent{
		EventType: ActivityEventTokenRevoked,
		Actor:     actorFromAuthentication(token.Authentication),
		UserID:    userIDString(token.Authentication),
		ClientID:  clientIDOf(token.Authentication),
		Metadata:  map[string]any{"jti": token.ID},
	})

	return true, nil
}

func (s *TokenServices) newAccessToken(now time.Time, client *ClientDetails, authn *Authentication, refresh *RefreshToken) *AccessToken {
	scope := slices.Clone(authn.Scope)
	if len(scope) == 0 {
		scope = slices.Clone(client.Scopes)
	}

	return &AccessToken{
		ID:             uuid.NewString(),
		TokenType:      TokenTypeBearer,
		IssuedAt:       now,
		ExpiresAt:      now.Add(time.Duration(s.accessValiditySeconds(client)) * time.Second),
		Scope:          scope,
		RefreshToken:   refresh,
		Authentication: authn,
	}
}

// issue runs the enhancer, signs and stores token. Value is set on token
// only once it has been stored.
func (s *TokenServices) issue(ctx context.Context, token *AccessToken, storeRefresh bool) error {
	snapshot := captureImmutableToken(token)

	enhanced, err := s.enhancer.Enhance(ctx, token, token.Authentication)
	if err != nil {
		s.fail("enhancer")
		s.logger.Error("token enhancer failed", "error", err)
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to enhance access token")
	}

	if err := snapshot.validate(enhanced); err != nil {
		s.fail("enhancer")
		s.logger.Error("token enhancer mutated immutable attributes", "error", err)
		return err
	}

	if enhanced != token {
		*token = *enhanced
	}

	value, err := s.sign(newAccessTokenClaims(token, s.issuer))
	if err != nil {
		s.fail("sign")
		return err
	}

	stored := *token
	stored.Value = value

	if err := s.storeTokens(ctx, &stored, storeRefresh); err != nil {
		return err
	}

	token.Value = value
	return nil
}

// storeTokens writes the access token and, when storeRefresh is set, its
// refresh token. Either both are stored or neither is.
func (s *TokenServices) storeTokens(ctx context.Context, token *AccessToken, storeRefresh bool) error {
	refresh := token.RefreshToken
	if !storeRefresh {
		refresh = nil
	}

	if pair, ok := s.store.(TokenPairStore); ok && refresh != nil {
		if err := pair.StoreTokens(ctx, token, refresh); err != nil {
			s.fail("store")
			s.logger.Error("failed to store tokens", "error", err)
			return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to store access token")
		}
		return nil
	}

	if refresh != nil {
		if err := s.store.StoreRefreshToken(ctx, refresh); err != nil {
			s.fail("store")
			s.logger.Error("failed to store refresh token", "error", err)
			return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to store refresh token")
		}
	}

	if err := s.store.StoreAccessToken(ctx, token); err != nil {
		s.fail("store")
		s.logger.Error("failed to store access token", "error", err)
		if refresh != nil {
			if rerr := s.store.RemoveRefreshToken(ctx, refresh.Value); rerr != nil {
				s.logger.Error("failed to remove orphaned refresh token", "error", rerr)
			}
		}
		return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to store access token")
	}

	return nil
}

func (s *TokenServices) sign(claims *AccessTokenClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign JWT")
	}

	return signed, nil
}

func (s *TokenServices) parse(value string) (*AccessTokenClaims, error) {
	parserOptions := []jwt.ParserOption{
		jwt.WithTimeFunc(s.now),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	}
	if s.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(s.issuer))
	}

	token, err := jwt.ParseWithClaims(value, &AccessTokenClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			s.logger.Error("TokenServices parse encountered unexpected signing method", "alg", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.signingKey, nil
	}, parserOptions...)

	if err != nil {
		if goerrors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, sentinelError(ErrInvalidToken, err, "", nil)
	}

	claims, ok := token.Claims.(*AccessTokenClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

func (s *TokenServices) loadClient(ctx context.Context, clientID string) (*ClientDetails, error) {
	client, err := s.clients.LoadClient(ctx, clientID)
	if err != nil {
		if goerrors.Is(err, ErrClientNotFound) {
			return nil, sentinelError(ErrAuthenticationFailed, err, "unknown client", map[string]any{"client_id": clientID})
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryOperation, "failed to load client")
	}

	if client == nil {
		return nil, sentinelError(ErrAuthenticationFailed, ErrClientNotFound, "unknown client", map[string]any{"client_id": clientID})
	}

	return client, nil
}

func (s *TokenServices) accessValiditySeconds(client *ClientDetails) int {
	if client != nil && client.AccessTokenValiditySeconds > 0 {
		return client.AccessTokenValiditySeconds
	}
	return s.accessValidity
}

func (s *TokenServices) refreshValiditySeconds(client *ClientDetails) int {
	if client != nil && client.RefreshTokenValiditySeconds > 0 {
		return client.RefreshTokenValiditySeconds
	}
	return s.refreshValidity
}

func (s *TokenServices) fail(reason string) {
	metrics.TokenFailures.WithLabelValues(reason).Inc()
}

// resolveScope returns requested, or the client scopes when nothing was
// requested. Clients without scopes accept any request.
func resolveScope(client *ClientDetails, requested []string) ([]string, error) {
	if len(requested) == 0 {
		return slices.Clone(client.Scopes), nil
	}

	if len(client.Scopes) == 0 {
		return slices.Clone(requested), nil
	}

	for _, scope := range requested {
		if !slices.Contains(client.Scopes, scope) {
			return nil, sentinelError(ErrInvalidScope, nil, "", map[string]any{"scope": scope})
		}
	}

	return slices.Clone(requested), nil
}

func grantLabel(grantType string) string {
	if grantType == "" {
		return "unknown"
	}
	return grantType
}

func userIDString(a *Authentication) string {
	if a == nil || a.UserID == uuid.Nil {
		return ""
	}
	return a.UserID.String()
}

func clientIDOf(a *Authentication) string {
	if a == nil {
		return ""
	}
	return a.ClientID
}
