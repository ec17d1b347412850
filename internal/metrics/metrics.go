// Package metrics holds the Prometheus collectors for token issuance and validation.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Renewal outcomes.
const (
	RenewOK       = "ok"
	RenewMissing  = "missing"
	RenewInvalid  = "invalid"
	RenewMismatch = "mismatch"
)

var (
	TokensIssued = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "ev_auth",
		Name:      "token_pairs_issued_total",
		Help:      "Access/refresh token pairs minted and persisted.",
	})

	Renewals = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ev_auth",
		Name:      "session_renewals_total",
		Help:      "Refresh-token renewals by outcome.",
	}, []string{"outcome"})

	AuthFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ev_auth",
		Name:      "authentication_failures_total",
		Help:      "Rejected access tokens and logins by reason.",
	}, []string{"reason"})

	RateLimited = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "ev_auth",
		Name:      "rate_limited_requests_total",
		Help:      "Requests rejected by the credential endpoint rate limiter.",
	})
)

func init() {
	prometheus.MustRegister(TokensIssued, Renewals, AuthFailures, RateLimited)
}

func Handler() http.Handler {
	return promhttp.Handler()
}
