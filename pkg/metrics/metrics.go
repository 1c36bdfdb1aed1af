package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// HTTP metrics
	RequestDuration *prometheus.HistogramVec
	RequestTotal    *prometheus.CounterVec
	ErrorTotal      *prometheus.CounterVec

	// Identity metrics
	IdentityOperations  *prometheus.CounterVec
	PasswordsGenerated  prometheus.Counter
	PasswordGenFailures prometheus.Counter
	PasswordGenDuration prometheus.Histogram

	// Broker metrics
	BrokerPublishes *prometheus.CounterVec
}

// New creates all application metrics and registers them with reg.
func New(namespace string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"method", "path", "status"}),
		RequestTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		ErrorTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_errors_total",
			Help:      "Total number of HTTP errors",
		}, []string{"method", "path", "type"}),

		IdentityOperations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "identity_operations_total",
			Help:      "Identity store operations by outcome",
		}, []string{"operation", "outcome"}),
		PasswordsGenerated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "passwords_generated_total",
			Help:      "Total number of generated passwords",
		}),
		PasswordGenFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "password_generation_failures_total",
			Help:      "Password generations rejected because the policy could not be satisfied",
		}),
		PasswordGenDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "password_generation_duration_seconds",
			Help:      "Time spent generating passwords",
			Buckets:   []float64{.00001, .00005, .0001, .0005, .001, .005, .01},
		}),

		BrokerPublishes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broker_publishes_total",
			Help:      "Identity events published to the broker by outcome",
		}, []string{"outcome"}),
	}
}

// ObserveIdentity counts an identity operation.
func (m *Metrics) ObserveIdentity(operation string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.IdentityOperations.WithLabelValues(operation, outcome).Inc()
}
