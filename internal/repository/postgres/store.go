package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/identity-admin/internal/repository"
)

type Store struct {
	base  BaseRepository
	users repository.UserRepository
	roles repository.RoleRepository
}

func NewStore(db *sqlx.DB) *Store {
	base := NewBaseRepository(db)
	return &Store{
		base:  base,
		users: NewUserRepository(base),
		roles: NewRoleRepository(base),
	}
}

func (s *Store) Users() repository.UserRepository { return s.users }

func (s *Store) Roles() repository.RoleRepository { return s.roles }

func (s *Store) Ping(ctx context.Context) error { return s.base.db.PingContext(ctx) }

func (s *Store) Close() error { return s.base.db.Close() }

var _ repository.Store = (*Store)(nil)
