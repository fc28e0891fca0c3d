package auth_test

import (
	"context"
	"testing"

	auth "github.com/goliatone/go-logistics-auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashPasswordUsesConfiguredCost(t *testing.T) {
	previous := auth.PasswordHashCost
	t.Cleanup(func() { auth.PasswordHashCost = previous })

	for _, cost := range []int{bcrypt.MinCost, bcrypt.MinCost + 1} {
		auth.PasswordHashCost = cost

		hash, err := auth.HashPassword("changeme")
		require.NoError(t, err)

		got, err := bcrypt.Cost([]byte(hash))
		require.NoError(t, err)
		assert.Equal(t, cost, got)
		assert.NoError(t, auth.ComparePasswordAndHash("changeme", hash))
	}
}

func TestHashPasswordRejectsEmptyPassword(t *testing.T) {
	hash, err := auth.HashPassword("")
	assert.ErrorIs(t, err, auth.ErrNoEmptyString)
	assert.Empty(t, hash)
}

func TestComparePasswordAndHash(t *testing.T) {
	hash, err := auth.HashPassword("changeme")
	require.NoError(t, err)

	assert.ErrorIs(t, auth.ComparePasswordAndHash("wrong", hash), auth.ErrMismatchedHashAndPassword)

	err = auth.ComparePasswordAndHash("changeme", "not-a-hash")
	require.Error(t, err)
	assert.NotErrorIs(t, err, auth.ErrMismatchedHashAndPassword)
}

func TestClientSecretIsStoredHashed(t *testing.T) {
	manager, _ := setupRepositoryManager(t)
	ctx := context.Background()

	client, err := manager.Clients().Register(ctx, &auth.ClientDetails{
		ClientID:             "user-client",
		AuthorizedGrantTypes: []string{auth.GrantTypePassword},
	}, "changeme")
	require.NoError(t, err)

	assert.NotEqual(t, "changeme", client.ClientSecretHash)
	cost, err := bcrypt.Cost([]byte(client.ClientSecretHash))
	require.NoError(t, err)
	assert.Equal(t, auth.PasswordHashCost, cost)

	loaded, err := manager.Clients().Authenticate(ctx, "user-client", "changeme")
	require.NoError(t, err)
	assert.Equal(t, client.ID, loaded.ID)

	_, err = manager.Clients().Authenticate(ctx, "user-client", "wrong")
	assert.ErrorIs(t, err, auth.ErrAuthenticationFailed)
}

func TestUserCreatedWithoutPasswordCannotLogIn(t *testing.T) {
	user, err := auth.NewUserFromRequest(&auth.UserRequest{Username: "jdoe"})
	require.NoError(t, err)

	require.NotEmpty(t, user.PasswordHash)
	_, err = bcrypt.Cost([]byte(user.PasswordHash))
	require.NoError(t, err, "placeholder is a real bcrypt hash")

	other, err := auth.NewUserFromRequest(&auth.UserRequest{Username: "jdoe"})
	require.NoError(t, err)
	assert.NotEqual(t, user.PasswordHash, other.PasswordHash)

	store := new(MockCredentialsStore)
	store.On("FindByUsername", mock.Anything, "jdoe").Return(user, nil)

	manager := auth.NewUserAuthenticationManager(store).WithLogger(&testLogger{})

	for _, password := range []string{"", "jdoe", "password"} {
		_, err := manager.Authenticate(context.Background(), auth.Credentials{
			Username: "jdoe",
			Password: password,
			ClientID: "user-client",
		})
		assert.ErrorIs(t, err, auth.ErrInvalidGrant, "password %q", password)
	}
}
