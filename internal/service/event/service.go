package event

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/identity-admin/pkg/messaging"
	"github.com/jwalitptl/identity-admin/pkg/metrics"
)

// Publisher emits identity events to the broker.
type Publisher interface {
	Emit(ctx context.Context, eventType string, payload interface{})
}

type Service struct {
	broker  messaging.Broker
	channel string
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewService(broker messaging.Broker, channel string, m *metrics.Metrics) *Service {
	return &Service{
		broker:  broker,
		channel: channel,
		metrics: m,
		now:     time.Now,
	}
}

// Emit publishes the event. Failures are logged and counted, never returned.
func (s *Service) Emit(ctx context.Context, eventType string, payload interface{}) {
	msg := messaging.Message{
		Type:       eventType,
		OccurredAt: s.now().UTC(),
		Payload:    payload,
	}

	outcome := "success"
	if err := s.broker.Publish(ctx, s.channel, msg); err != nil {
		outcome = "error"
		log.Ctx(ctx).Warn().
			Err(err).
			Str("event_type", eventType).
			Str("channel", s.channel).
			Msg("failed to publish identity event")
	}
	if s.metrics != nil {
		s.metrics.BrokerPublishes.WithLabelValues(outcome).Inc()
	}
}
