// Package metrics holds the prometheus collectors of the auth service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "auth"

var (
	TokensIssued = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "tokens_issued_total", Help: "Number of access tokens issued by grant type."},
		[]string{"grant_type"},
	)
	TokenFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "token_failures_total", Help: "Number of rejected token requests by reason."},
		[]string{"reason"},
	)
	TokensRevoked = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: namespace, Name: "tokens_revoked_total", Help: "Number of revoked access tokens."},
	)
	UserValidationViolations = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "user_validation_violations_total", Help: "Number of user validation violations by field and reason."},
		[]string{"field", "reason"},
	)
	UsersSaved = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "users_saved_total", Help: "Number of saved users by operation."},
		[]string{"operation"},
	)
)

// RegisterCollectors registers every collector with reg
func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(TokensIssued)
	reg.MustRegister(TokenFailures)
	reg.MustRegister(TokensRevoked)
	reg.MustRegister(UserValidationViolations)
	reg.MustRegister(UsersSaved)
}
