package audit

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jwalitptl/identity-admin/internal/model"
)

type Config struct {
	Enabled     bool
	OutputPaths []string
}

// Service writes the audit trail as structured zap records.
type Service struct {
	logger *zap.Logger
}

func NewService(cfg Config) (*Service, error) {
	if !cfg.Enabled {
		return NewNop(), nil
	}

	zcfg := zap.NewProductionConfig()
	zcfg.Sampling = nil
	zcfg.DisableCaller = true
	zcfg.DisableStacktrace = true
	if len(cfg.OutputPaths) > 0 {
		zcfg.OutputPaths = cfg.OutputPaths
	}

	logger, err := zcfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build audit logger: %w", err)
	}
	return NewWithLogger(logger), nil
}

func NewWithLogger(logger *zap.Logger) *Service {
	return &Service{logger: logger.Named("audit")}
}

func NewNop() *Service {
	return &Service{logger: zap.NewNop()}
}

// Log records entry. A zero CreatedAt is set to now.
func (s *Service) Log(_ context.Context, entry *model.AuditEntry) {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	fields := []zap.Field{
		zap.String("actor_id", entry.ActorID.String()),
		zap.String("actor_name", entry.ActorName),
		zap.String("action", entry.Action),
		zap.String("entity_type", entry.EntityType),
		zap.String("entity_id", entry.EntityID),
		zap.String("outcome", entry.Outcome),
		zap.Time("at", entry.CreatedAt),
	}
	if entry.RequestID != "" {
		fields = append(fields, zap.String("request_id", entry.RequestID))
	}
	if entry.IPAddress != "" {
		fields = append(fields, zap.String("ip_address", entry.IPAddress))
	}
	if entry.Error != "" {
		fields = append(fields, zap.String("error", entry.Error))
	}

	if entry.Outcome == model.AuditOutcomeFailure {
		s.logger.Warn("audit", fields...)
		return
	}
	s.logger.Info("audit", fields...)
}

// Record builds an entry for actor and logs it. err decides the outcome.
func (s *Service) Record(ctx context.Context, actor model.Actor, action, entityType, entityID string, err error) {
	entry := &model.AuditEntry{
		ActorID:    actor.ID,
		ActorName:  actor.Name,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Outcome:    model.AuditOutcomeSuccess,
		RequestID:  actor.RequestID,
		IPAddress:  actor.IPAddress,
	}
	if err != nil {
		entry.Outcome = model.AuditOutcomeFailure
		entry.Error = err.Error()
	}
	s.Log(ctx, entry)
}

func (s *Service) Sync() error {
	return s.logger.Sync()
}
