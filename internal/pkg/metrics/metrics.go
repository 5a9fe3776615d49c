// Package metrics defines the custom Prometheus metrics of the tracker.
// It is the single source of truth for metric names, labels and help
// strings. HTTP request metrics come from the echoprometheus middleware.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "tracker"

// ── Ticket metrics ────────────────────────────────────────────────────────────

// TicketOperationsTotal counts ticket operations that completed.
// Label:
//   - operation: create, replay, update, assign, delete
var TicketOperationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ticket_operations_total",
		Help:      "Total number of successful ticket mutations, by operation.",
	},
	[]string{"operation"},
)

// TicketsCreatedTotal counts newly opened tickets.
// Label:
//   - priority: low, medium, high, critical
var TicketsCreatedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tickets_created_total",
		Help:      "Total number of tickets created, by priority.",
	},
	[]string{"priority"},
)

// ── Auth metrics ──────────────────────────────────────────────────────────────

// AuthAttemptsTotal counts credential checks.
// Labels:
//   - kind: login, register, token
//   - outcome: success, failure, throttled
var AuthAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_attempts_total",
		Help:      "Total number of authentication attempts, by kind and outcome.",
	},
	[]string{"kind", "outcome"},
)

// ── Activity metrics ──────────────────────────────────────────────────────────

// ActivityQueueDepth tracks records waiting in each dispatcher worker channel.
// Label:
//   - worker_id: numeric worker index
var ActivityQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "activity_queue_depth",
		Help:      "Current number of activity records pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)

// ActivityDroppedTotal counts records discarded because a worker queue was
// full or the dispatcher had stopped.
var ActivityDroppedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "activity_dropped_total",
		Help:      "Total number of activity records dropped before reaching storage.",
	},
)

// ActivityWriteDuration measures how long storing one record takes.
// Label:
//   - result: ok or error
var ActivityWriteDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "activity_write_duration_seconds",
		Help:      "Duration of activity record writes.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"result"},
)
