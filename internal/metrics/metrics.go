// Package metrics exposes authentication outcome counters.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	OpSignup         = "signup"
	OpLogin          = "login"
	OpRefresh        = "refresh"
	OpLogout         = "logout"
	OpFederatedLogin = "federated_login"

	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

type Metrics struct {
	AuthAttempts *prometheus.CounterVec
	registry     *prometheus.Registry
}

// New builds counters on a private registry that also carries the Go and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		AuthAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "user_management",
			Name:      "auth_attempts_total",
			Help:      "Authentication operations by outcome.",
		}, []string{"operation", "outcome"}),
		registry: reg,
	}
	reg.MustRegister(m.AuthAttempts)
	return m
}

// Observe records one attempt. A nil receiver is a no-op so services can run
// without metrics in tests.
func (m *Metrics) Observe(operation string, err error) {
	if m == nil {
		return
	}
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
	}
	m.AuthAttempts.WithLabelValues(operation, outcome).Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
