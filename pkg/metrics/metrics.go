package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// LoginAttempts counts authentication attempts by outcome
// (success, failure, rate_limited, error)
var LoginAttempts = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "authgate_login_attempts_total",
		Help: "Total number of authentication attempts by outcome",
	},
	[]string{"outcome"},
)

// Registrations counts account registrations by outcome (success, rejected, error)
var Registrations = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "authgate_registrations_total",
		Help: "Total number of registration requests by outcome",
	},
	[]string{"outcome"},
)

// PasswordHashDuration records latency distribution for credential hashing
var PasswordHashDuration = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "authgate_password_hash_seconds",
		Help:    "Latency in seconds to hash a credential",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 8),
	},
)

// Rate limiter store metrics
var (
	RateLimitEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "authgate_ratelimit_entries",
			Help: "Number of origin entries currently tracked by the rate limiter",
		},
	)

	RateLimitEvictions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "authgate_ratelimit_evictions_total",
			Help: "Total number of rate limiter entries removed by periodic cleanup",
		},
	)
)

// Database connection pool metrics
var (
	DBOpenConns = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "authgate_db_open_connections",
			Help: "Number of open connections in the DB pool",
		},
		[]string{"db"},
	)

	DBIdleConns = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "authgate_db_idle_connections",
			Help: "Number of idle connections in the DB pool",
		},
		[]string{"db"},
	)

	DBInUseConns = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "authgate_db_in_use_connections",
			Help: "Number of in-use connections in the DB pool",
		},
		[]string{"db"},
	)
)

func init() {
	prometheus.MustRegister(LoginAttempts, Registrations, PasswordHashDuration)
	prometheus.MustRegister(RateLimitEntries, RateLimitEvictions)
	prometheus.MustRegister(DBOpenConns, DBIdleConns, DBInUseConns)

	// Pre-create known label combinations so every series is exposed
	// from startup rather than appearing on first increment.
	for _, outcome := range []string{"success", "failure", "rate_limited", "error"} {
		LoginAttempts.WithLabelValues(outcome)
	}
	for _, outcome := range []string{"success", "rejected", "error"} {
		Registrations.WithLabelValues(outcome)
	}
}
