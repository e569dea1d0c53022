package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lifecycle_deliveries_total",
			Help: "Total number of handled deliveries by queue and outcome",
		},
		[]string{"queue", "outcome"},
	)

	DeliveriesInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "lifecycle_deliveries_in_flight",
			Help: "Number of deliveries currently being handled",
		},
	)

	DeliveryDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lifecycle_delivery_duration_seconds",
			Help:    "Duration of delivery handling in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"queue"},
	)

	DuplicateAccountsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lifecycle_duplicate_accounts_total",
			Help: "Total number of create commands that hit an existing account",
		},
	)

	AccountsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lifecycle_accounts_created_total",
			Help: "Total number of accounts inserted",
		},
	)

	CompensationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lifecycle_compensations_total",
			Help: "Total number of account creation rollbacks by result",
		},
		[]string{"result"},
	)

	VerificationTokensIssued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "verification_tokens_issued_total",
			Help: "Total number of verification tokens issued",
		},
	)

	VerificationTokensConsumed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "verification_tokens_consumed_total",
			Help: "Total number of verification tokens consumed by a password change",
		},
	)

	VerificationTokensSwept = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "verification_tokens_swept_total",
			Help: "Total number of expired tokens removed from the in-memory store",
		},
	)

	NotificationFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notification_failures_total",
			Help: "Total number of failed verification notifications",
		},
	)

	PasswordChangesApplied = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lifecycle_password_changes_total",
			Help: "Total number of password changes applied",
		},
	)

	CommandsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lifecycle_commands_published_total",
			Help: "Total number of lifecycle commands published by routing key",
		},
		[]string{"routing_key"},
	)
)
