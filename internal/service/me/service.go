package me

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/identity-admin/internal/identity"
	"github.com/jwalitptl/identity-admin/internal/model"
	"github.com/jwalitptl/identity-admin/internal/service/audit"
	"github.com/jwalitptl/identity-admin/internal/service/event"
	"github.com/jwalitptl/identity-admin/pkg/auth"
	"github.com/jwalitptl/identity-admin/pkg/metrics"
)

// Claim is one token claim as it appears in the change-password log.
type Claim struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// ClaimList flattens claims into type/value pairs.
func ClaimList(c *auth.Claims) []Claim {
	var out []Claim
	add := func(typ, value string) {
		if value != "" {
			out = append(out, Claim{Type: typ, Value: value})
		}
	}

	add("sub", c.Subject)
	add("name", c.Name)
	add("email", c.Email)
	for _, role := range c.Roles {
		add("role", role)
	}
	add("iss", c.Issuer)
	for _, aud := range c.Audience {
		add("aud", aud)
	}
	if c.ExpiresAt != nil {
		add("exp", c.ExpiresAt.UTC().Format("2006-01-02T15:04:05Z"))
	}
	return out
}

type Servicer interface {
	Get(ctx context.Context, id uuid.UUID) (*model.UserResponse, error)
	ChangePassword(ctx context.Context, actor model.Actor, claims *auth.Claims, req *model.ChangePasswordRequest) error
}

type Service struct {
	users   *identity.Manager
	auditor *audit.Service
	events  event.Publisher
	metrics *metrics.Metrics
}

func NewService(users *identity.Manager, auditor *audit.Service, events event.Publisher, m *metrics.Metrics) *Service {
	return &Service{
		users:   users,
		auditor: auditor,
		events:  events,
		metrics: m,
	}
}

// Get returns the user identified by the token subject.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.UserResponse, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	roles, err := s.users.RoleNames(ctx, user)
	if err != nil {
		return nil, err
	}
	return model.NewUserResponse(user, roles, s.users.Now()), nil
}

func (s *Service) ChangePassword(ctx context.Context, actor model.Actor, claims *auth.Claims, req *model.ChangePasswordRequest) error {
	log.Ctx(ctx).Info().
		Interface("claims", ClaimList(claims)).
		Msg("change password requested")

	user, err := s.users.FindByID(ctx, actor.ID)
	if err != nil {
		return err
	}

	err = s.users.ChangePassword(ctx, user, req.OldPassword, req.NewPassword)
	if s.metrics != nil {
		s.metrics.ObserveIdentity("change_password", err)
	}
	s.auditor.Record(ctx, actor, model.AuditActionChangePassword, model.AuditEntityUser, actor.ID.String(), err)
	if err != nil {
		return err
	}

	s.events.Emit(ctx, model.EventUserPasswordChanged, model.UserEvent{
		UserID:   user.ID.String(),
		UserName: user.UserName,
		ActorID:  actor.ID.String(),
	})
	return nil
}
