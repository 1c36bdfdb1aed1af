// Package memory is an in-process storage driver.
package memory

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/identity-admin/internal/model"
	"github.com/jwalitptl/identity-admin/internal/repository"
)

type Store struct {
	mu        sync.RWMutex
	users     map[uuid.UUID]model.User
	roles     map[uuid.UUID]model.Role
	userRoles map[uuid.UUID]map[uuid.UUID]struct{}
	now       func() time.Time
}

func NewStore() *Store {
	return &Store{
		users:     make(map[uuid.UUID]model.User),
		roles:     make(map[uuid.UUID]model.Role),
		userRoles: make(map[uuid.UUID]map[uuid.UUID]struct{}),
		now:       time.Now,
	}
}

func (s *Store) Users() repository.UserRepository { return &userRepository{s} }

func (s *Store) Roles() repository.RoleRepository { return &roleRepository{s} }

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

type userRepository struct {
	s *Store
}

func (r *userRepository) Create(_ context.Context, user *model.User, roleIDs []uuid.UUID) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.NormalizedUserName == user.NormalizedUserName {
			return repository.ErrConflict
		}
	}
	for _, id := range roleIDs {
		if _, ok := s.roles[id]; !ok {
			return repository.ErrNotFound
		}
	}

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	now := s.now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	s.users[user.ID] = *user
	links := make(map[uuid.UUID]struct{}, len(roleIDs))
	for _, id := range roleIDs {
		links[id] = struct{}{}
	}
	s.userRoles[user.ID] = links
	return nil
}

func (r *userRepository) Get(_ context.Context, id uuid.UUID) (*model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (r *userRepository) find(match func(*model.User) bool) (*model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, u := range r.s.users {
		if match(&u) {
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *userRepository) GetByNormalizedUserName(_ context.Context, name string) (*model.User, error) {
	return r.find(func(u *model.User) bool { return u.NormalizedUserName == name })
}

func (r *userRepository) GetByNormalizedEmail(_ context.Context, email string) (*model.User, error) {
	return r.find(func(u *model.User) bool { return u.NormalizedEmail == email })
}

func (r *userRepository) Update(_ context.Context, user *model.User) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.users[user.ID]
	if !ok {
		return repository.ErrNotFound
	}
	for id, u := range s.users {
		if id != user.ID && u.NormalizedUserName == user.NormalizedUserName {
			return repository.ErrConflict
		}
	}

	user.CreatedAt = existing.CreatedAt
	user.UpdatedAt = s.now().UTC()
	s.users[user.ID] = *user
	return nil
}

func (r *userRepository) List(_ context.Context, q *model.UserQuery) ([]*model.User, int, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	search := strings.ToLower(strings.TrimSpace(q.Search))

	matched := make([]*model.User, 0, len(s.users))
	for _, u := range s.users {
		if search != "" &&
			!strings.Contains(strings.ToLower(u.UserName), search) &&
			!strings.Contains(strings.ToLower(u.Email), search) &&
			!strings.Contains(strings.ToLower(u.FullName), search) {
			continue
		}
		if q.Locked != nil && u.IsLockedOut(now) != *q.Locked {
			continue
		}
		u := u
		matched = append(matched, &u)
	}

	field, desc := q.SortField()
	slices.SortFunc(matched, func(a, b *model.User) int {
		var c int
		switch field {
		case model.SortEmail:
			c = cmp.Compare(a.NormalizedEmail, b.NormalizedEmail)
		case model.SortCreatedAt:
			c = a.CreatedAt.Compare(b.CreatedAt)
		default:
			c = cmp.Compare(a.NormalizedUserName, b.NormalizedUserName)
		}
		if desc {
			c = -c
		}
		if c == 0 {
			c = cmp.Compare(a.ID.String(), b.ID.String())
		}
		return c
	})

	total := len(matched)
	start := min(q.Offset(), total)
	end := min(start+q.PageSize, total)
	return matched[start:end], total, nil
}

func (r *userRepository) Roles(_ context.Context, userID uuid.UUID) ([]*model.Role, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.users[userID]; !ok {
		return nil, repository.ErrNotFound
	}

	roles := make([]*model.Role, 0, len(s.userRoles[userID]))
	for id := range s.userRoles[userID] {
		role := s.roles[id]
		roles = append(roles, &role)
	}
	slices.SortFunc(roles, func(a, b *model.Role) int {
		return cmp.Compare(a.NormalizedName, b.NormalizedName)
	})
	return roles, nil
}

func (r *userRepository) RoleNames(_ context.Context, userIDs []uuid.UUID) (map[uuid.UUID][]string, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make(map[uuid.UUID][]string, len(userIDs))
	for _, userID := range userIDs {
		for id := range s.userRoles[userID] {
			names[userID] = append(names[userID], s.roles[id].Name)
		}
		slices.Sort(names[userID])
	}
	return names, nil
}

func (r *userRepository) AddToRole(_ context.Context, userID, roleID uuid.UUID) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[userID]; !ok {
		return repository.ErrNotFound
	}
	if _, ok := s.roles[roleID]; !ok {
		return repository.ErrNotFound
	}
	links := s.userRoles[userID]
	if links == nil {
		links = make(map[uuid.UUID]struct{})
		s.userRoles[userID] = links
	}
	if _, ok := links[roleID]; ok {
		return repository.ErrConflict
	}
	links[roleID] = struct{}{}
	return nil
}

func (r *userRepository) RemoveFromRole(_ context.Context, userID, roleID uuid.UUID) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.userRoles[userID][roleID]; !ok {
		return repository.ErrNotFound
	}
	delete(s.userRoles[userID], roleID)
	return nil
}

type roleRepository struct {
	s *Store
}

func (r *roleRepository) Create(_ context.Context, role *model.Role) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.roles {
		if existing.NormalizedName == role.NormalizedName {
			return repository.ErrConflict
		}
	}
	if role.ID == uuid.Nil {
		role.ID = uuid.New()
	}
	role.CreatedAt = s.now().UTC()
	s.roles[role.ID] = *role
	return nil
}

func (r *roleRepository) GetByNormalizedName(_ context.Context, name string) (*model.Role, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, role := range r.s.roles {
		if role.NormalizedName == name {
			return &role, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *roleRepository) List(_ context.Context) ([]*model.Role, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	roles := make([]*model.Role, 0, len(r.s.roles))
	for _, role := range r.s.roles {
		role := role
		roles = append(roles, &role)
	}
	slices.SortFunc(roles, func(a, b *model.Role) int {
		return cmp.Compare(a.NormalizedName, b.NormalizedName)
	})
	return roles, nil
}

func (r *roleRepository) Delete(_ context.Context, id uuid.UUID) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.roles[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.roles, id)
	for _, links := range s.userRoles {
		delete(links, id)
	}
	return nil
}

var _ repository.Store = (*Store)(nil)
