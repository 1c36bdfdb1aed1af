package admin

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/identity-admin/internal/email"
	"github.com/jwalitptl/identity-admin/internal/identity"
	"github.com/jwalitptl/identity-admin/internal/model"
	"github.com/jwalitptl/identity-admin/internal/service/audit"
	"github.com/jwalitptl/identity-admin/internal/service/event"
	"github.com/jwalitptl/identity-admin/pkg/metrics"
	"github.com/jwalitptl/identity-admin/pkg/password"
)

type Servicer interface {
	ListUsers(ctx context.Context, q *model.UserQuery) (*model.ListResponse[*model.UserResponse], error)
	CreateUser(ctx context.Context, actor model.Actor, req *model.CreateUserRequest) (*model.UserResponse, error)
	GetUser(ctx context.Context, id uuid.UUID) (*model.UserResponse, error)
	UpdateUser(ctx context.Context, actor model.Actor, id uuid.UUID, req *model.UpdateUserRequest) (*model.UserResponse, error)
	LockUser(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.UserResponse, error)
	UnlockUser(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.UserResponse, error)
	ResetPassword(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.ResetPasswordResponse, error)
	UserRoles(ctx context.Context, id uuid.UUID) ([]*model.Role, error)
	Roles(ctx context.Context) ([]*model.Role, error)
	CreateRole(ctx context.Context, actor model.Actor, req *model.CreateRoleRequest) (*model.Role, error)
	DeleteRole(ctx context.Context, actor model.Actor, name string) error
	GrantRole(ctx context.Context, actor model.Actor, id uuid.UUID, role string) (*model.UserResponse, error)
	RevokeRole(ctx context.Context, actor model.Actor, id uuid.UUID, role string) (*model.UserResponse, error)
}

type Service struct {
	users     *identity.Manager
	roles     *identity.RoleManager
	generator *password.Generator
	events    event.Publisher
	auditor   *audit.Service
	mailer    email.Service
	metrics   *metrics.Metrics
}

func NewService(
	users *identity.Manager,
	roles *identity.RoleManager,
	generator *password.Generator,
	events event.Publisher,
	auditor *audit.Service,
	mailer email.Service,
	m *metrics.Metrics,
) *Service {
	return &Service{
		users:     users,
		roles:     roles,
		generator: generator,
		events:    events,
		auditor:   auditor,
		mailer:    mailer,
		metrics:   m,
	}
}

func (s *Service) observe(op string, err error) {
	if s.metrics != nil {
		s.metrics.ObserveIdentity(op, err)
	}
}

func (s *Service) userEvent(ctx context.Context, eventType string, actor model.Actor, user *model.User, role string) {
	s.events.Emit(ctx, eventType, model.UserEvent{
		UserID:   user.ID.String(),
		UserName: user.UserName,
		Role:     role,
		ActorID:  actor.ID.String(),
	})
}

func (s *Service) respond(ctx context.Context, user *model.User) (*model.UserResponse, error) {
	roles, err := s.users.RoleNames(ctx, user)
	if err != nil {
		return nil, err
	}
	return model.NewUserResponse(user, roles, s.users.Now()), nil
}

func (s *Service) ListUsers(ctx context.Context, q *model.UserQuery) (*model.ListResponse[*model.UserResponse], error) {
	users, total, err := s.users.List(ctx, q)
	if err != nil {
		return nil, err
	}

	roles, err := s.users.RoleNamesFor(ctx, users)
	if err != nil {
		return nil, err
	}

	now := s.users.Now()
	items := make([]*model.UserResponse, len(users))
	for i, u := range users {
		items[i] = model.NewUserResponse(u, roles[u.ID], now)
	}

	return &model.ListResponse[*model.UserResponse]{
		Items:    items,
		Total:    total,
		Page:     q.Page,
		PageSize: q.PageSize,
	}, nil
}

func (s *Service) CreateUser(ctx context.Context, actor model.Actor, req *model.CreateUserRequest) (*model.UserResponse, error) {
	user := &model.User{
		UserName:       req.UserName,
		Email:          req.Email,
		LockoutEnabled: req.LockoutEnabled,
	}
	if req.LockoutEnd != nil {
		end := req.LockoutEnd.UTC()
		user.LockoutEnd = &end
	}

	err := s.users.Create(ctx, user, req.Password, req.Roles)
	s.observe("create_user", err)
	target := user.ID.String()
	if user.ID == uuid.Nil {
		target = req.UserName
	}
	s.auditor.Record(ctx, actor, model.AuditActionCreate, model.AuditEntityUser, target, err)
	if err != nil {
		return nil, err
	}

	s.userEvent(ctx, model.EventUserCreated, actor, user, "")
	return s.respond(ctx, user)
}

func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (*model.UserResponse, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.respond(ctx, user)
}

func (s *Service) UpdateUser(ctx context.Context, actor model.Actor, id uuid.UUID, req *model.UpdateUserRequest) (*model.UserResponse, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Email != nil {
		user.Email = *req.Email
	}
	if req.LockoutEnabled != nil {
		user.LockoutEnabled = *req.LockoutEnabled
	}
	if req.LockoutEnd != nil {
		end := req.LockoutEnd.UTC()
		user.LockoutEnd = &end
	}
	if req.Image != nil {
		user.Image = *req.Image
	}
	if req.Phone != nil {
		user.Phone = *req.Phone
	}
	if req.FullName != nil {
		user.FullName = *req.FullName
	}
	if req.NickName != nil {
		user.NickName = *req.NickName
	}

	err = s.users.Update(ctx, user)
	s.observe("update_user", err)
	s.auditor.Record(ctx, actor, model.AuditActionUpdate, model.AuditEntityUser, id.String(), err)
	if err != nil {
		return nil, err
	}

	s.userEvent(ctx, model.EventUserUpdated, actor, user, "")
	return s.respond(ctx, user)
}

// LockUser enables lockout and locks the user until model.LockoutForever.
func (s *Service) LockUser(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.UserResponse, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	user.LockoutEnabled = true
	end := model.LockoutForever
	err = s.users.SetLockoutEnd(ctx, user, &end)
	s.observe("lock_user", err)
	s.auditor.Record(ctx, actor, model.AuditActionLock, model.AuditEntityUser, id.String(), err)
	if err != nil {
		return nil, err
	}

	s.userEvent(ctx, model.EventUserLocked, actor, user, "")
	if err := s.mailer.SendAccountLocked(ctx, user.Email, user.UserName); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("user_id", id.String()).Msg("failed to send lock notice")
	}
	return s.respond(ctx, user)
}

// UnlockUser ends the lockout now.
func (s *Service) UnlockUser(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.UserResponse, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.users.Now()
	err = s.users.SetLockoutEnd(ctx, user, &now)
	s.observe("unlock_user", err)
	s.auditor.Record(ctx, actor, model.AuditActionUnlock, model.AuditEntityUser, id.String(), err)
	if err != nil {
		return nil, err
	}

	s.userEvent(ctx, model.EventUserUnlocked, actor, user, "")
	return s.respond(ctx, user)
}

// ResetPassword sets a generated password that satisfies the configured
// policy and returns it. The password is returned once and never logged.
func (s *Service) ResetPassword(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.ResetPasswordResponse, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	policy := s.users.PasswordOptions()
	start := time.Now()
	pw, err := s.generator.Generate(&policy)
	if s.metrics != nil {
		s.metrics.PasswordGenDuration.Observe(time.Since(start).Seconds())
		if errors.Is(err, password.ErrPolicyUnsatisfiable) {
			s.metrics.PasswordGenFailures.Inc()
		} else if err == nil {
			s.metrics.PasswordsGenerated.Inc()
		}
	}
	if err != nil {
		s.auditor.Record(ctx, actor, model.AuditActionResetPassword, model.AuditEntityUser, id.String(), err)
		return nil, err
	}

	err = s.users.ResetPassword(ctx, user, pw)
	s.observe("reset_password", err)
	s.auditor.Record(ctx, actor, model.AuditActionResetPassword, model.AuditEntityUser, id.String(), err)
	if err != nil {
		return nil, err
	}

	s.userEvent(ctx, model.EventUserPasswordReset, actor, user, "")
	if err := s.mailer.SendPasswordReset(ctx, user.Email, user.UserName); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("user_id", id.String()).Msg("failed to send reset notice")
	}
	return &model.ResetPasswordResponse{Password: pw}, nil
}

func (s *Service) UserRoles(ctx context.Context, id uuid.UUID) ([]*model.Role, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.users.Roles(ctx, user)
}

func (s *Service) Roles(ctx context.Context) ([]*model.Role, error) {
	return s.roles.List(ctx)
}

func (s *Service) CreateRole(ctx context.Context, actor model.Actor, req *model.CreateRoleRequest) (*model.Role, error) {
	role := &model.Role{Name: req.Name, Description: req.Description}
	err := s.roles.Create(ctx, role)
	s.observe("create_role", err)
	s.auditor.Record(ctx, actor, model.AuditActionCreate, model.AuditEntityRole, req.Name, err)
	if err != nil {
		return nil, err
	}

	s.events.Emit(ctx, model.EventRoleCreated, model.RoleEvent{Name: role.Name, ActorID: actor.ID.String()})
	return role, nil
}

func (s *Service) DeleteRole(ctx context.Context, actor model.Actor, name string) error {
	role, err := s.roles.Delete(ctx, name)
	s.observe("delete_role", err)
	s.auditor.Record(ctx, actor, model.AuditActionDelete, model.AuditEntityRole, name, err)
	if err != nil {
		return err
	}

	s.events.Emit(ctx, model.EventRoleDeleted, model.RoleEvent{Name: role.Name, ActorID: actor.ID.String()})
	return nil
}

func (s *Service) GrantRole(ctx context.Context, actor model.Actor, id uuid.UUID, roleName string) (*model.UserResponse, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	role, err := s.users.AddToRole(ctx, user, roleName)
	s.observe("grant_role", err)
	s.auditor.Record(ctx, actor, model.AuditActionGrantRole, model.AuditEntityUser, id.String(), err)
	if err != nil {
		return nil, err
	}

	s.userEvent(ctx, model.EventUserRoleGranted, actor, user, role.Name)
	return s.respond(ctx, user)
}

func (s *Service) RevokeRole(ctx context.Context, actor model.Actor, id uuid.UUID, roleName string) (*model.UserResponse, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	role, err := s.users.RemoveFromRole(ctx, user, roleName)
	s.observe("revoke_role", err)
	s.auditor.Record(ctx, actor, model.AuditActionRevokeRole, model.AuditEntityUser, id.String(), err)
	if err != nil {
		return nil, err
	}

	s.userEvent(ctx, model.EventUserRoleRevoked, actor, user, role.Name)
	return s.respond(ctx, user)
}

var _ Servicer = (*Service)(nil)
