package identity

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/identity-admin/internal/model"
	"github.com/jwalitptl/identity-admin/internal/repository"
	"github.com/jwalitptl/identity-admin/pkg/password"
	"github.com/jwalitptl/identity-admin/pkg/security"
	"github.com/jwalitptl/identity-admin/pkg/validator"
)

// Options configures user validation.
type Options struct {
	Password           password.Policy
	RequireUniqueEmail bool
	// AllowedUserNameCharacters restricts user names when non-empty.
	AllowedUserNameCharacters string
}

// Manager implements the user operations of the identity store.
type Manager struct {
	users  repository.UserRepository
	roles  *RoleManager
	hasher security.PasswordHasher
	opts   Options
	now    func() time.Time
}

func NewManager(users repository.UserRepository, roles *RoleManager, hasher security.PasswordHasher, opts Options) *Manager {
	return &Manager{
		users:  users,
		roles:  roles,
		hasher: hasher,
		opts:   opts,
		now:    time.Now,
	}
}

// PasswordOptions returns the configured password policy.
func (m *Manager) PasswordOptions() password.Policy {
	return m.opts.Password
}

func (m *Manager) Now() time.Time {
	return m.now().UTC()
}

func (m *Manager) validateUser(ctx context.Context, user *model.User) error {
	var failures []Failure

	name := user.UserName
	invalidName := strings.TrimSpace(name) == ""
	if !invalidName && m.opts.AllowedUserNameCharacters != "" {
		invalidName = strings.IndexFunc(name, func(r rune) bool {
			return !strings.ContainsRune(m.opts.AllowedUserNameCharacters, r)
		}) >= 0
	}
	if invalidName {
		failures = append(failures, failure(CodeInvalidUserName,
			"Username '%s' is invalid, can only contain letters or digits.", name))
	} else {
		existing, err := m.users.GetByNormalizedUserName(ctx, model.NormalizeKey(name))
		switch {
		case err == nil && existing.ID != user.ID:
			failures = append(failures, failure(CodeDuplicateUserName, "Username '%s' is already taken.", name))
		case err != nil && !errors.Is(err, repository.ErrNotFound):
			return err
		}
	}

	if m.opts.RequireUniqueEmail {
		if !validator.IsEmail(user.Email) {
			failures = append(failures, failure(CodeInvalidEmail, "Email '%s' is invalid.", user.Email))
		} else {
			existing, err := m.users.GetByNormalizedEmail(ctx, model.NormalizeKey(user.Email))
			switch {
			case err == nil && existing.ID != user.ID:
				failures = append(failures, failure(CodeDuplicateEmail, "Email '%s' is already taken.", user.Email))
			case err != nil && !errors.Is(err, repository.ErrNotFound):
				return err
			}
		}
	}

	if len(failures) > 0 {
		return failed(failures...)
	}
	return nil
}

func (m *Manager) validatePassword(pw string) error {
	violations := password.Validate(&m.opts.Password, pw)
	if len(violations) == 0 {
		return nil
	}
	failures := make([]Failure, len(violations))
	for i, v := range violations {
		failures[i] = Failure{Code: v.Code, Description: v.Description}
	}
	return failed(failures...)
}

func (m *Manager) setPassword(user *model.User, pw string) error {
	if err := m.validatePassword(pw); err != nil {
		return err
	}
	hash, err := m.hasher.Hash(pw)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	user.SecurityStamp = uuid.NewString()
	return nil
}

// Create validates and stores a new user with the given password and roles.
// Nothing is stored when any check fails.
func (m *Manager) Create(ctx context.Context, user *model.User, pw string, roles []string) error {
	if err := m.validateUser(ctx, user); err != nil {
		return err
	}
	if err := m.setPassword(user, pw); err != nil {
		return err
	}

	var (
		roleIDs  []uuid.UUID
		failures []Failure
	)
	seen := make(map[string]struct{}, len(roles))
	for _, name := range roles {
		key := model.NormalizeKey(name)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		role, err := m.roles.FindByName(ctx, name)
		if errors.Is(err, ErrRoleNotFound) {
			failures = append(failures, failure(CodeInvalidRoleName, "Role name '%s' is invalid.", name))
			continue
		}
		if err != nil {
			return err
		}
		roleIDs = append(roleIDs, role.ID)
	}
	if len(failures) > 0 {
		return failed(failures...)
	}

	user.Normalize()
	err := m.users.Create(ctx, user, roleIDs)
	if errors.Is(err, repository.ErrConflict) {
		return failed(failure(CodeDuplicateUserName, "Username '%s' is already taken.", user.UserName))
	}
	return err
}

func (m *Manager) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	user, err := m.users.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrUserNotFound, id)
	}
	return user, err
}

func (m *Manager) List(ctx context.Context, q *model.UserQuery) ([]*model.User, int, error) {
	q.Normalize()
	return m.users.List(ctx, q)
}

// Update validates and stores changes to user.
func (m *Manager) Update(ctx context.Context, user *model.User) error {
	if err := m.validateUser(ctx, user); err != nil {
		return err
	}
	user.Normalize()
	err := m.users.Update(ctx, user)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return fmt.Errorf("%w: %s", ErrUserNotFound, user.ID)
	case errors.Is(err, repository.ErrConflict):
		return failed(failure(CodeDuplicateUserName, "Username '%s' is already taken.", user.UserName))
	}
	return err
}

func (m *Manager) Roles(ctx context.Context, user *model.User) ([]*model.Role, error) {
	roles, err := m.users.Roles(ctx, user.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrUserNotFound, user.ID)
	}
	return roles, err
}

func (m *Manager) RoleNames(ctx context.Context, user *model.User) ([]string, error) {
	roles, err := m.Roles(ctx, user)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = r.Name
	}
	return names, nil
}

// RoleNamesFor returns role names keyed by user id.
func (m *Manager) RoleNamesFor(ctx context.Context, users []*model.User) (map[uuid.UUID][]string, error) {
	ids := make([]uuid.UUID, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}
	return m.users.RoleNames(ctx, ids)
}

func (m *Manager) IsInRole(ctx context.Context, user *model.User, role string) (bool, error) {
	names, err := m.RoleNames(ctx, user)
	if err != nil {
		return false, err
	}
	key := model.NormalizeKey(role)
	return slices.ContainsFunc(names, func(n string) bool { return model.NormalizeKey(n) == key }), nil
}

func (m *Manager) SetLockoutEnabled(ctx context.Context, user *model.User, enabled bool) error {
	user.LockoutEnabled = enabled
	return m.Update(ctx, user)
}

// SetLockoutEnd fails with UserLockoutNotEnabled when lockout is off for user.
func (m *Manager) SetLockoutEnd(ctx context.Context, user *model.User, end *time.Time) error {
	if !user.LockoutEnabled {
		return failed(failure(CodeUserLockoutNotEnabled, "Lockout is not enabled for this user."))
	}
	if end != nil {
		utc := end.UTC()
		end = &utc
	}
	user.LockoutEnd = end
	return m.Update(ctx, user)
}

// ResetPassword replaces the password without checking the old one.
func (m *Manager) ResetPassword(ctx context.Context, user *model.User, pw string) error {
	if err := m.setPassword(user, pw); err != nil {
		return err
	}
	return m.Update(ctx, user)
}

func (m *Manager) CheckPassword(user *model.User, pw string) bool {
	return user.PasswordHash != "" && m.hasher.Compare(user.PasswordHash, pw) == nil
}

func (m *Manager) ChangePassword(ctx context.Context, user *model.User, oldPassword, newPassword string) error {
	if !m.CheckPassword(user, oldPassword) {
		return failed(failure(CodePasswordMismatch, "Incorrect password."))
	}
	return m.ResetPassword(ctx, user, newPassword)
}

func (m *Manager) AddToRole(ctx context.Context, user *model.User, roleName string) (*model.Role, error) {
	role, err := m.roles.FindByName(ctx, roleName)
	if errors.Is(err, ErrRoleNotFound) {
		return nil, failed(failure(CodeInvalidRoleName, "Role name '%s' is invalid.", roleName))
	}
	if err != nil {
		return nil, err
	}

	err = m.users.AddToRole(ctx, user.ID, role.ID)
	switch {
	case errors.Is(err, repository.ErrConflict):
		return nil, failed(failure(CodeUserAlreadyInRole, "User already in role '%s'.", role.Name))
	case errors.Is(err, repository.ErrNotFound):
		// Either side of the link may be gone; the cached role may be stale.
		m.roles.Invalidate()
		if _, ferr := m.roles.FindByName(ctx, roleName); errors.Is(ferr, ErrRoleNotFound) {
			return nil, failed(failure(CodeInvalidRoleName, "Role name '%s' is invalid.", roleName))
		}
		return nil, fmt.Errorf("%w: %s", ErrUserNotFound, user.ID)
	case err != nil:
		return nil, err
	}
	return role, nil
}

func (m *Manager) RemoveFromRole(ctx context.Context, user *model.User, roleName string) (*model.Role, error) {
	role, err := m.roles.FindByName(ctx, roleName)
	if errors.Is(err, ErrRoleNotFound) {
		return nil, failed(failure(CodeInvalidRoleName, "Role name '%s' is invalid.", roleName))
	}
	if err != nil {
		return nil, err
	}

	err = m.users.RemoveFromRole(ctx, user.ID, role.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, failed(failure(CodeUserNotInRole, "User is not in role '%s'.", role.Name))
	}
	if err != nil {
		return nil, err
	}
	return role, nil
}
