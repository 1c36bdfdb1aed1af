package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/jwalitptl/identity-admin/internal/model"
	"github.com/jwalitptl/identity-admin/internal/repository"
)

const allRolesKey = "roles:all"

// RoleManager manages roles. Reads are served from a go-cache that every
// mutation flushes.
type RoleManager struct {
	roles repository.RoleRepository
	cache *cache.Cache
}

func NewRoleManager(roles repository.RoleRepository, ttl, cleanup time.Duration) *RoleManager {
	return &RoleManager{
		roles: roles,
		cache: cache.New(ttl, cleanup),
	}
}

// List returns copies of the cached roles.
func (m *RoleManager) List(ctx context.Context) ([]*model.Role, error) {
	if cached, ok := m.cache.Get(allRolesKey); ok {
		return copyRoles(cached.([]*model.Role)), nil
	}

	roles, err := m.roles.List(ctx)
	if err != nil {
		return nil, err
	}
	m.cache.Set(allRolesKey, roles, cache.DefaultExpiration)
	return copyRoles(roles), nil
}

func copyRoles(roles []*model.Role) []*model.Role {
	out := make([]*model.Role, len(roles))
	for i, r := range roles {
		role := *r
		out[i] = &role
	}
	return out
}

// Invalidate drops every cached role.
func (m *RoleManager) Invalidate() {
	m.cache.Flush()
}

// FindByName looks a role up by its normalized name.
func (m *RoleManager) FindByName(ctx context.Context, name string) (*model.Role, error) {
	key := "role:" + model.NormalizeKey(name)
	if cached, ok := m.cache.Get(key); ok {
		role := *cached.(*model.Role)
		return &role, nil
	}

	role, err := m.roles.GetByNormalizedName(ctx, model.NormalizeKey(name))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrRoleNotFound, name)
	}
	if err != nil {
		return nil, err
	}
	m.cache.Set(key, role, cache.DefaultExpiration)

	found := *role
	return &found, nil
}

func (m *RoleManager) Create(ctx context.Context, role *model.Role) error {
	role.Name = strings.TrimSpace(role.Name)
	if role.Name == "" {
		return failed(failure(CodeInvalidRoleName, "Role name '%s' is invalid.", role.Name))
	}
	role.NormalizedName = model.NormalizeKey(role.Name)

	err := m.roles.Create(ctx, role)
	if errors.Is(err, repository.ErrConflict) {
		return failed(failure(CodeDuplicateRoleName, "Role name '%s' is already taken.", role.Name))
	}
	if err != nil {
		return err
	}
	m.cache.Flush()
	return nil
}

// Delete removes the role and its user links.
func (m *RoleManager) Delete(ctx context.Context, name string) (*model.Role, error) {
	role, err := m.FindByName(ctx, name)
	if err != nil {
		return nil, err
	}

	err = m.roles.Delete(ctx, role.ID)
	m.cache.Flush()
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrRoleNotFound, name)
	}
	if err != nil {
		return nil, err
	}
	return role, nil
}

// EnsureRoles creates the named roles that do not exist yet.
func (m *RoleManager) EnsureRoles(ctx context.Context, names ...string) error {
	for _, name := range names {
		err := m.Create(ctx, &model.Role{Name: name})
		if err != nil && !HasCode(err, CodeDuplicateRoleName) {
			return fmt.Errorf("failed to ensure role %q: %w", name, err)
		}
	}
	return nil
}
