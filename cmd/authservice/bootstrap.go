package main

import (
	"context"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"

	auth "github.com/goliatone/go-logistics-auth"
)

// serviceTokenRenewal is how long before expiry the cached token is replaced
const serviceTokenRenewal = 30 * time.Second

// WithBootstrap seeds the configured client and administrator. Both are
// upserted so restarts pick up changed secrets.
func WithBootstrap(ctx context.Context, app *App) error {
	boot := app.config.Bootstrap
	logger := app.GetLogger("bootstrap")

	if boot.ClientID != "" {
		client, err := app.repo.Clients().Register(ctx, &auth.ClientDetails{
			ClientID:             boot.ClientID,
			Scopes:               []string{"read", "write"},
			AuthorizedGrantTypes: []string{auth.GrantTypePassword, auth.GrantTypeRefreshToken},
			Authorities:          []string{auth.RightAuthorizedClient},
		}, boot.ClientSecret)
		if err != nil {
			return err
		}
		logger.Info("client registered", "client_id", client.ClientID)
	}

	if boot.AdminUsername == "" {
		return nil
	}

	if boot.AdminPassword == "" {
		return goerrors.New("bootstrap admin password is required", goerrors.CategoryBadInput)
	}

	id, err := hashid.NewUUID(boot.AdminUsername)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to derive admin id")
	}

	hash, err := auth.HashPassword(boot.AdminPassword)
	if err != nil {
		return err
	}

	admin, err := app.repo.Users().Save(ctx, &auth.User{
		ID:           id,
		Username:     boot.AdminUsername,
		PasswordHash: hash,
		Enabled:      auth.Bool(true),
	})
	if err != nil {
		return err
	}

	logger.Info("administrator ready", "username", admin.Username, "id", admin.ID)
	return nil
}

// serviceTokenSource issues client only tokens for calls to reference
// data, reusing the last one until it is about to expire.
type serviceTokenSource struct {
	app *App

	mu    sync.Mutex
	token *auth.AccessToken
}

func (s *serviceTokenSource) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != nil && time.Now().Add(serviceTokenRenewal).Before(s.token.ExpiresAt) {
		return s.token.Value, nil
	}

	clientID := s.app.config.Bootstrap.ClientID
	if clientID == "" || s.app.tokens == nil {
		return "", nil
	}

	token, err := s.app.tokens.CreateAccessToken(ctx, &auth.Authentication{
		Principal:     clientID,
		ClientID:      clientID,
		GrantType:     "client_credentials",
		Authorities:   []string{auth.RightAuthorizedClient},
		Authenticated: true,
	})
	if err != nil {
		return "", err
	}

	s.token = token
	return token.Value, nil
}
