package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal counts total requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"service", "method", "path", "status"},
	)

	// RequestDuration measures request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"service", "method", "path"},
	)

	// AdmissionDecisions counts gate outcomes per tenant.
	AdmissionDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admission_decisions_total",
			Help: "Admission gateway decisions by outcome",
		},
		[]string{"tenant_id", "decision", "reason"},
	)

	// LLMCostTotal counts total LLM cost.
	LLMCostTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_cost_dollars_total",
			Help: "Total LLM cost in dollars",
		},
		[]string{"model", "provider", "tenant_id"},
	)

	// LLMTokensTotal counts total tokens routed through the gate.
	LLMTokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_tokens_total",
			Help: "Total LLM tokens by direction",
		},
		[]string{"model", "tenant_id", "direction"},
	)

	// AlertsTriggered counts committed alert events.
	AlertsTriggered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alert_events_triggered_total",
			Help: "Alert events committed after cooldown/dedup",
		},
		[]string{"tenant_id", "rule_type", "severity"},
	)

	// AlertsSuppressed counts candidates dropped by cooldown or dedup.
	AlertsSuppressed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alert_events_suppressed_total",
			Help: "Alert candidates suppressed before commit",
		},
		[]string{"tenant_id", "rule_type", "cause"},
	)

	// DeliveryAttempts counts notification delivery attempts by result.
	DeliveryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_delivery_attempts_total",
			Help: "Notification delivery attempts by channel and result",
		},
		[]string{"channel", "result"},
	)

	// OutboxLag measures pending outbox rows.
	OutboxLag = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "event_outbox_pending",
			Help: "Unpublished event outbox rows",
		},
		[]string{"service"},
	)
)
