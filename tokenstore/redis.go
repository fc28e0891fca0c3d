// Package tokenstore holds auth.TokenStore implementations.
package tokenstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/redis/go-redis/v9"

	auth "github.com/goliatone/go-logistics-auth"
)

const defaultPrefix = "auth:"

// RedisStore keeps tokens as JSON documents that expire together with the
// token they hold. Keys:
//
//	<prefix>access:<value>
//	<prefix>refresh:<value>
//	<prefix>refresh_to_access:<refresh value>
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	now    func() time.Time
}

var (
	_ auth.TokenStore     = (*RedisStore)(nil)
	_ auth.TokenPairStore = (*RedisStore)(nil)
)

// NewRedisStore returns a store using client. Prefix may be empty.
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &RedisStore{client: client, prefix: prefix, now: time.Now}
}

func (s *RedisStore) accessKey(value string) string {
	return s.prefix + "access:" + value
}

func (s *RedisStore) refreshKey(value string) string {
	return s.prefix + "refresh:" + value
}

func (s *RedisStore) refreshToAccessKey(value string) string {
	return s.prefix + "refresh_to_access:" + value
}

func (s *RedisStore) StoreAccessToken(ctx context.Context, token *auth.AccessToken) error {
	if token == nil || token.Value == "" {
		return goerrors.New("access token value is required", goerrors.CategoryBadInput)
	}

	b, err := json.Marshal(token)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to encode access token")
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.accessKey(token.Value), b, s.ttl(token.ExpiresAt))
		if refresh := token.RefreshToken; refresh != nil && refresh.Value != "" {
			pipe.Set(ctx, s.refreshToAccessKey(refresh.Value), token.Value, s.ttl(refresh.ExpiresAt))
		}
		return nil
	})
	return err
}

// StoreTokens writes both tokens of one issuance in a single transaction
func (s *RedisStore) StoreTokens(ctx context.Context, access *auth.AccessToken, refresh *auth.RefreshToken) error {
	if access == nil || access.Value == "" {
		return goerrors.New("access token value is required", goerrors.CategoryBadInput)
	}
	if refresh == nil || refresh.Value == "" {
		return goerrors.New("refresh token value is required", goerrors.CategoryBadInput)
	}

	accessJSON, err := json.Marshal(access)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to encode access token")
	}

	refreshJSON, err := json.Marshal(refresh)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to encode refresh token")
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.refreshKey(refresh.Value), refreshJSON, s.ttl(refresh.ExpiresAt))
		pipe.Set(ctx, s.accessKey(access.Value), accessJSON, s.ttl(access.ExpiresAt))
		pipe.Set(ctx, s.refreshToAccessKey(refresh.Value), access.Value, s.ttl(refresh.ExpiresAt))
		return nil
	})
	return err
}

func (s *RedisStore) ReadAccessToken(ctx context.Context, value string) (*auth.AccessToken, error) {
	token := &auth.AccessToken{}
	found, err := s.read(ctx, s.accessKey(value), token)
	if err != nil || !found {
		return nil, err
	}

	if token.IsExpired(s.now()) {
		_ = s.client.Del(ctx, s.accessKey(value)).Err()
		return nil, nil
	}

	return token, nil
}

func (s *RedisStore) RemoveAccessToken(ctx context.Context, value string) error {
	return s.client.Del(ctx, s.accessKey(value)).Err()
}

func (s *RedisStore) StoreRefreshToken(ctx context.Context, token *auth.RefreshToken) error {
	if token == nil || token.Value == "" {
		return goerrors.New("refresh token value is required", goerrors.CategoryBadInput)
	}

	b, err := json.Marshal(token)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to encode refresh token")
	}

	return s.client.Set(ctx, s.refreshKey(token.Value), b, s.ttl(token.ExpiresAt)).Err()
}

func (s *RedisStore) ReadRefreshToken(ctx context.Context, value string) (*auth.RefreshToken, error) {
	token := &auth.RefreshToken{}
	found, err := s.read(ctx, s.refreshKey(value), token)
	if err != nil || !found {
		return nil, err
	}
	return token, nil
}

func (s *RedisStore) RemoveRefreshToken(ctx context.Context, value string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.refreshKey(value))
		pipe.Del(ctx, s.refreshToAccessKey(value))
		return nil
	})
	return err
}

func (s *RedisStore) RemoveAccessTokenUsingRefreshToken(ctx context.Context, refreshValue string) error {
	access, err := s.client.GetDel(ctx, s.refreshToAccessKey(refreshValue)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return err
	}
	return s.client.Del(ctx, s.accessKey(access)).Err()
}

func (s *RedisStore) read(ctx context.Context, key string, out any) (bool, error) {
	b, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}

	if err := json.Unmarshal(b, out); err != nil {
		return false, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to decode stored token")
	}

	return true, nil
}

// ttl keeps a minimal expiry so redis never stores a token forever
func (s *RedisStore) ttl(expiresAt time.Time) time.Duration {
	if expiresAt.IsZero() {
		return 0
	}
	exp := expiresAt.Sub(s.now())
	if exp <= 0 {
		exp = time.Second
	}
	return exp
}
