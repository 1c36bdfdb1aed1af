package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveIdentity(t *testing.T) {
	m := New("test", prometheus.NewRegistry())

	m.ObserveIdentity("create_user", nil)
	m.ObserveIdentity("create_user", nil)
	m.ObserveIdentity("create_user", errors.New("boom"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.IdentityOperations.WithLabelValues("create_user", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.IdentityOperations.WithLabelValues("create_user", "error")))
}

func TestNew_RegistersWithNamespace(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New("identity", reg)
	m.PasswordsGenerated.Inc()
	m.BrokerPublishes.WithLabelValues("success").Inc()

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "identity_passwords_generated_total")
	assert.Contains(t, names, "identity_broker_publishes_total")

	// A second set on the same registry collides.
	assert.Panics(t, func() { New("identity", reg) })
}
