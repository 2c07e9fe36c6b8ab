// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TicketsCreated counts ticket channels created, by flow path.
	TicketsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketbot_tickets_created_total",
			Help: "Ticket channels created",
		},
		[]string{"path"},
	)

	// TicketsClosed counts archived tickets, by what triggered the close.
	TicketsClosed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketbot_tickets_closed_total",
			Help: "Ticket channels closed and archived",
		},
		[]string{"trigger"},
	)

	// FlowTransitions counts accepted state machine transitions.
	FlowTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketbot_flow_transitions_total",
			Help: "Accepted flow transitions",
		},
		[]string{"from", "to"},
	)

	// FlowUnrecognized counts actions rejected by the state machine.
	FlowUnrecognized = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ticketbot_flow_unrecognized_total",
			Help: "Flow actions the current step did not accept",
		},
	)

	// InteractionsTotal counts handled interactions.
	InteractionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketbot_interactions_total",
			Help: "Inbound interactions handled",
		},
		[]string{"kind", "outcome"},
	)

	// InteractionDuration tracks end-to-end handling time.
	InteractionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ticketbot_interaction_duration_seconds",
			Help:    "Interaction handling duration in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"kind"},
	)

	// ArchiveStepFailures counts failed archive steps.
	ArchiveStepFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketbot_archive_step_failures_total",
			Help: "Transcript archive steps that failed",
		},
		[]string{"step"},
	)

	// SessionsActive tracks live flow sessions.
	SessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ticketbot_flow_sessions_active",
			Help: "Number of live flow sessions",
		},
	)
)

// RecordInteraction records the outcome and duration of one interaction.
func RecordInteraction(kind, outcome string, d time.Duration) {
	InteractionsTotal.WithLabelValues(kind, outcome).Inc()
	InteractionDuration.WithLabelValues(kind).Observe(d.Seconds())
}

// RecordTransition records an accepted flow transition.
func RecordTransition(from, to string) {
	FlowTransitions.WithLabelValues(from, to).Inc()
}
