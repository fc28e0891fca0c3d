package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Users is the bun backed LocalUserStore
type Users interface {
	LocalUserStore

	FindByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*User, error)
	FindByUsername(ctx context.Context, username string) (*User, error)
	SaveTx(ctx context.Context, tx bun.IDB, user *User) (*User, error)
}

type users struct {
	repo repository.Repository[*User]
	db   *bun.DB
	now  func() time.Time
}

var _ Users = (*users)(nil)

// NewUsersRepository returns the Users store for db
func NewUsersRepository(db *bun.DB) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
		GetIdentifier: func() string {
			return "username"
		},
	})

	return &users{
		repo: repo,
		db:   db,
		now:  time.Now,
	}
}

func (a *users) FindByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return a.FindByIDTx(ctx, a.db, id)
}

func (a *users) FindByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*User, error) {
	user, err := a.findByColumnTx(ctx, tx, "id", id.String())
	if err != nil {
		return nil, userLookupError(err, "id", id.String())
	}
	return user, nil
}

func (a *users) FindByUsername(ctx context.Context, username string) (*User, error) {
	user, err := a.findByColumnTx(ctx, a.db, "username", strings.TrimSpace(username))
	if err != nil {
		return nil, userLookupError(err, "username", username)
	}
	return user, nil
}

func (a *users) findByColumnTx(ctx context.Context, tx bun.IDB, column, value string) (*User, error) {
	record := &User{}
	err := tx.NewSelect().
		Model(record).
		Where(fmt.Sprintf("?TableAlias.%s = ?", column), value).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.NewRecordNotFound().WithMetadata(map[string]any{
				column: value,
			})
		}
		return nil, err
	}
	return record, nil
}

// Save creates or updates user keyed by its id, in its own transaction
func (a *users) Save(ctx context.Context, user *User) (*User, error) {
	var saved *User
	err := a.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		saved, err = a.SaveTx(ctx, tx, user)
		return err
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

func (a *users) SaveTx(ctx context.Context, tx bun.IDB, user *User) (*User, error) {
	if user == nil {
		return nil, goerrors.New("user is required", goerrors.CategoryBadInput)
	}

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}

	now := a.now()
	user.UpdatedAt = &now

	_, err := a.findByColumnTx(ctx, tx, "id", user.ID.String())
	if err == nil {
		return a.repo.UpdateTx(ctx, tx, user, repository.UpdateByID(user.ID.String()))
	}

	if !repository.IsRecordNotFound(err) {
		return nil, err
	}

	if user.CreatedAt == nil {
		user.CreatedAt = &now
	}

	return a.repo.CreateTx(ctx, tx, user)
}

func userLookupError(err error, key, value string) error {
	if !repository.IsRecordNotFound(err) {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load user")
	}

	clone := ErrUserNotFound.Clone()
	if clone == nil {
		return ErrUserNotFound
	}
	clone.Source = ErrUserNotFound
	return clone.WithMetadata(map[string]any{key: value})
}
