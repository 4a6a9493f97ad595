// Package metrics exposes Prometheus counters for the authentication gate.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "sitegate"

var (
	// LoginAttemptsTotal counts login attempts by outcome: success,
	// invalid_password, too_many_attempts, email_required, invalid_email,
	// misconfigured, error.
	LoginAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "login_attempts_total",
			Help:      "Total number of login attempts by outcome.",
		},
		[]string{"outcome"},
	)

	// UnauthorizedRequestsTotal counts protected requests denied by the session guard.
	UnauthorizedRequestsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unauthorized_requests_total",
			Help:      "Total number of protected requests rejected for a missing or invalid session.",
		},
	)

	// AuditStoreErrorsTotal counts failed audit store calls by operation.
	AuditStoreErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_store_errors_total",
			Help:      "Total number of audit store errors by operation.",
		},
		[]string{"op"},
	)

	// SecurityAlertsTotal counts alert notifications by result.
	SecurityAlertsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "security_alerts_total",
			Help:      "Total number of security alerts sent, by result.",
		},
		[]string{"result"},
	)
)
