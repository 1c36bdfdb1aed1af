package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/jwalitptl/identity-admin/internal/model"
)

var (
	ErrNotFound = errors.New("record not found")
	ErrConflict = errors.New("record already exists")
)

// All repository interfaces in one file
type (
	// UserRepository stores users and their role links.
	UserRepository interface {
		// Create stores the user and links it to roleIDs in one transaction.
		Create(ctx context.Context, user *model.User, roleIDs []uuid.UUID) error
		Get(ctx context.Context, id uuid.UUID) (*model.User, error)
		GetByNormalizedUserName(ctx context.Context, name string) (*model.User, error)
		GetByNormalizedEmail(ctx context.Context, email string) (*model.User, error)
		Update(ctx context.Context, user *model.User) error
		List(ctx context.Context, query *model.UserQuery) ([]*model.User, int, error)
		Roles(ctx context.Context, userID uuid.UUID) ([]*model.Role, error)
		RoleNames(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID][]string, error)
		AddToRole(ctx context.Context, userID, roleID uuid.UUID) error
		RemoveFromRole(ctx context.Context, userID, roleID uuid.UUID) error
	}

	RoleRepository interface {
		Create(ctx context.Context, role *model.Role) error
		GetByNormalizedName(ctx context.Context, name string) (*model.Role, error)
		List(ctx context.Context) ([]*model.Role, error)
		// Delete removes the role and every user link to it.
		Delete(ctx context.Context, id uuid.UUID) error
	}

	// Store is a storage driver.
	Store interface {
		Users() UserRepository
		Roles() RoleRepository
		Ping(ctx context.Context) error
		Close() error
	}
)
