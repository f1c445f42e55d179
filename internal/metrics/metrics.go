// Package metrics declares the Prometheus collectors exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LoginAttempts counts login outcomes: success, invalid, locked, error.
	LoginAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "parlour",
		Name:      "login_attempts_total",
		Help:      "Login attempts by outcome.",
	}, []string{"outcome"})

	// Lockouts counts accounts locked after repeated failures.
	Lockouts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "parlour",
		Name:      "account_lockouts_total",
		Help:      "Accounts locked after too many failed logins.",
	})

	// Punches counts recorded attendance entries by action.
	Punches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "parlour",
		Name:      "attendance_punches_total",
		Help:      "Attendance punches recorded by action.",
	}, []string{"action"})

	// Notifications counts notification publishes and local deliveries by result.
	Notifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "parlour",
		Name:      "notifications_total",
		Help:      "Notification channel events by stage and result.",
	}, []string{"stage", "result"})

	// SocketConnections is the number of open socket connections.
	SocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "parlour",
		Name:      "socket_connections",
		Help:      "Open socket channel connections.",
	})

	// HTTPDuration observes request latency by route and status.
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "parlour",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)
