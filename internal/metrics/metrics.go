package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "speechgen"

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status_code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"method", "route"},
	)
)

// Webhook metrics
var (
	WebhookEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_events_total",
			Help:      "Total number of payment webhooks by event and outcome",
		},
		[]string{"event_name", "outcome"},
	)

	WebhookDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "webhook_processing_seconds",
			Help:      "Webhook processing time, including correlation waits",
			Buckets:   []float64{.01, .05, .1, .5, 1, 5, 10, 20, 30, 60},
		},
		[]string{"event_name"},
	)

	SignatureFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_signature_failures_total",
			Help:      "Total number of rejected webhook signatures",
		},
		[]string{"code"},
	)
)

// Lifecycle metrics
var (
	PackageTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "package_transitions_total",
			Help:      "Total number of package status writes by product kind and status",
		},
		[]string{"kind", "status"},
	)

	CorrelationPollsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "correlation_polls_total",
			Help:      "Total number of temp context reads by result",
		},
		[]string{"result"}, // "hit", "miss" or "error"
	)

	CorrelationTimeoutsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "correlation_timeouts_total",
			Help:      "Total number of correlations that exhausted the poll budget",
		},
	)

	SagaCompensationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "saga_compensations_total",
			Help:      "Total number of compensating deletes by step and result",
		},
		[]string{"step", "result"},
	)

	DeferredUpdatesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deferred_profile_updates_total",
			Help:      "Total number of status updates parked until the profile exists",
		},
	)
)

// Account metrics
var (
	SpeechesConsumedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "speeches_consumed_total",
			Help:      "Total number of allowance decrements by result",
		},
		[]string{"result"},
	)

	CheckoutsStartedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkouts_started_total",
			Help:      "Total number of checkouts started by product",
		},
		[]string{"product"},
	)

	AlertsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_published_total",
			Help:      "Total number of operator alerts by result",
		},
		[]string{"result"},
	)
)
