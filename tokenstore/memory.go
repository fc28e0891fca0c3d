package tokenstore

import (
	"context"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"

	auth "github.com/goliatone/go-logistics-auth"
)

// MemoryStore keeps tokens in process. It is meant for tests and single
// instance development setups.
type MemoryStore struct {
	mu              sync.RWMutex
	access          map[string]*auth.AccessToken
	refresh         map[string]*auth.RefreshToken
	refreshToAccess map[string]string
	now             func() time.Time
}

var (
	_ auth.TokenStore     = (*MemoryStore)(nil)
	_ auth.TokenPairStore = (*MemoryStore)(nil)
)

// NewMemoryStore returns an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		access:          map[string]*auth.AccessToken{},
		refresh:         map[string]*auth.RefreshToken{},
		refreshToAccess: map[string]string{},
		now:             time.Now,
	}
}

func (s *MemoryStore) StoreAccessToken(_ context.Context, token *auth.AccessToken) error {
	if token == nil || token.Value == "" {
		return goerrors.New("access token value is required", goerrors.CategoryBadInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.access[token.Value] = token
	if refresh := token.RefreshValue(); refresh != "" {
		s.refreshToAccess[refresh] = token.Value
	}
	return nil
}

func (s *MemoryStore) StoreTokens(_ context.Context, access *auth.AccessToken, refresh *auth.RefreshToken) error {
	if access == nil || access.Value == "" {
		return goerrors.New("access token value is required", goerrors.CategoryBadInput)
	}
	if refresh == nil || refresh.Value == "" {
		return goerrors.New("refresh token value is required", goerrors.CategoryBadInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.refresh[refresh.Value] = refresh
	s.access[access.Value] = access
	s.refreshToAccess[refresh.Value] = access.Value
	return nil
}

func (s *MemoryStore) ReadAccessToken(_ context.Context, value string) (*auth.AccessToken, error) {
	s.mu.RLock()
	token, ok := s.access[value]
	s.mu.RUnlock()

	if !ok || token.IsExpired(s.now()) {
		return nil, nil
	}
	return token, nil
}

func (s *MemoryStore) RemoveAccessToken(_ context.Context, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.access, value)
	return nil
}

func (s *MemoryStore) StoreRefreshToken(_ context.Context, token *auth.RefreshToken) error {
	if token == nil || token.Value == "" {
		return goerrors.New("refresh token value is required", goerrors.CategoryBadInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.refresh[token.Value] = token
	return nil
}

func (s *MemoryStore) ReadRefreshToken(_ context.Context, value string) (*auth.RefreshToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	token, ok := s.refresh[value]
	if !ok {
		return nil, nil
	}
	return token, nil
}

func (s *MemoryStore) RemoveRefreshToken(_ context.Context, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.refresh, value)
	delete(s.refreshToAccess, value)
	return nil
}

func (s *MemoryStore) RemoveAccessTokenUsingRefreshToken(_ context.Context, refreshValue string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if access, ok := s.refreshToAccess[refreshValue]; ok {
		delete(s.access, access)
		delete(s.refreshToAccess, refreshValue)
	}
	return nil
}
