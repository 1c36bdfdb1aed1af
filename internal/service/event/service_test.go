package event

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/identity-admin/pkg/messaging"
	"github.com/jwalitptl/identity-admin/pkg/metrics"
)

type fakeBroker struct {
	channels []string
	messages []messaging.Message
	err      error
}

func (f *fakeBroker) Publish(_ context.Context, channel string, message interface{}) error {
	f.channels = append(f.channels, channel)
	f.messages = append(f.messages, message.(messaging.Message))
	return f.err
}

func (f *fakeBroker) Close() error { return nil }

func TestService_Emit(t *testing.T) {
	broker := &fakeBroker{}
	m := metrics.New("test", prometheus.NewRegistry())
	svc := NewService(broker, "identity.events", m)

	svc.Emit(context.Background(), "user.locked", map[string]string{"user_id": "1"})

	require.Len(t, broker.messages, 1)
	assert.Equal(t, "identity.events", broker.channels[0])
	assert.Equal(t, "user.locked", broker.messages[0].Type)
	assert.False(t, broker.messages[0].OccurredAt.IsZero())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BrokerPublishes.WithLabelValues("success")))
}

func TestService_EmitSwallowsBrokerErrors(t *testing.T) {
	broker := &fakeBroker{err: errors.New("redis down")}
	m := metrics.New("test", prometheus.NewRegistry())
	svc := NewService(broker, "identity.events", m)

	svc.Emit(context.Background(), "role.created", nil)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BrokerPublishes.WithLabelValues("error")))
}
