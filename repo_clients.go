package auth

import (
	"context"
	"database/sql"
	"errors"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/uptrace/bun"
)

// Clients stores registered OAuth2 clients
type Clients interface {
	ClientDetailsLookup

	Register(ctx context.Context, client *ClientDetails, secret string) (*ClientDetails, error)
	Authenticate(ctx context.Context, clientID, secret string) (*ClientDetails, error)
}

type clients struct {
	db *bun.DB
}

var _ Clients = (*clients)(nil)

// NewClientsRepository returns the Clients store for db
func NewClientsRepository(db *bun.DB) Clients {
	return &clients{db: db}
}

func (c *clients) LoadClient(ctx context.Context, clientID string) (*ClientDetails, error) {
	record := &ClientDetails{}
	err := c.db.NewSelect().
		Model(record).
		Where("?TableAlias.client_id = ?", clientID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, clientNotFound(clientID)
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load client")
	}
	return record, nil
}

// Register creates or replaces a client. The primary key is derived from
// the client id so re-registering keeps the same row.
func (c *clients) Register(ctx context.Context, client *ClientDetails, secret string) (*ClientDetails, error) {
	if client == nil || client.ClientID == "" {
		return nil, goerrors.New("client id is required", goerrors.CategoryBadInput).
			WithCode(goerrors.CodeBadRequest)
	}

	id, err := hashid.NewUUID(client.ClientID)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to derive client key")
	}
	client.ID = id

	if secret != "" {
		hash, err := HashPassword(secret)
		if err != nil {
			return nil, err
		}
		client.ClientSecretHash = hash
	}

	_, err = c.db.NewInsert().
		Model(client).
		On("CONFLICT (client_id) DO UPDATE").
		Set("client_secret_hash = EXCLUDED.client_secret_hash").
		Set("scopes = EXCLUDED.scopes").
		Set("authorized_grant_types = EXCLUDED.authorized_grant_types").
		Set("authorities = EXCLUDED.authorities").
		Set("access_token_validity_seconds = EXCLUDED.access_token_validity_seconds").
		Set("refresh_token_validity_seconds = EXCLUDED.refresh_token_validity_seconds").
		Exec(ctx)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to register client")
	}

	return client, nil
}

// Authenticate loads the client and checks its secret
func (c *clients) Authenticate(ctx context.Context, clientID, secret string) (*ClientDetails, error) {
	client, err := c.LoadClient(ctx, clientID)
	if err != nil {
		return nil, err
	}

	if err := ComparePasswordAndHash(secret, client.ClientSecretHash); err != nil {
		return nil, ErrAuthenticationFailed
	}

	return client, nil
}

func clientNotFound(clientID string) error {
	clone := ErrClientNotFound.Clone()
	if clone == nil {
		return ErrClientNotFound
	}
	clone.Source = ErrClientNotFound
	return clone.WithMetadata(map[string]any{"client_id": clientID})
}
