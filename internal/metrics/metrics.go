// Package metrics defines the Prometheus metrics exported by the cookbook
// server. All metrics are registered with the default registry on import and
// served by the /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "cookbook"

// AuthAttemptsTotal counts register/login/logout outcomes.
// Labels:
//   - action: "register", "login" or "logout"
//   - result: "success" or a short failure reason (e.g. "invalid_credentials")
var AuthAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_attempts_total",
		Help:      "Total number of authentication attempts by action and result.",
	},
	[]string{"action", "result"},
)

// SessionsOpenedTotal counts sessions handed out by register and login.
var SessionsOpenedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sessions_opened_total",
		Help:      "Total number of sessions created.",
	},
)

// SessionsRevokedTotal counts explicit logouts.
var SessionsRevokedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sessions_revoked_total",
		Help:      "Total number of sessions revoked by logout.",
	},
)

// RecipeMutationsTotal counts write operations on recipes and their children.
// Label:
//   - action: "create", "update", "delete", "comment", "comment_delete", "rate", "like"
var RecipeMutationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "recipe_mutations_total",
		Help:      "Total number of recipe mutations by action.",
	},
	[]string{"action"},
)

// UploadsStoredTotal counts image files written to the upload backend.
// Label:
//   - kind: "recipes" or "avatars"
var UploadsStoredTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "uploads_stored_total",
		Help:      "Total number of uploaded images stored, by kind.",
	},
	[]string{"kind"},
)

// UploadsSweptTotal counts orphaned uploads removed by the sweeper.
var UploadsSweptTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "uploads_swept_total",
		Help:      "Total number of orphaned uploads deleted by the sweeper.",
	},
)

// HTTPRequestDuration measures request latency per route template.
var HTTPRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests by method, route and status code.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"method", "route", "status"},
)
