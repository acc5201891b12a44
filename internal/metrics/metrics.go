// Package metrics exposes Prometheus counters for the scheduling API
// and the delivery sweep.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SchedulesCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "push_schedules_created_total",
		Help: "Schedules created or replaced via the API.",
	})

	SchedulesRemoved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "push_schedules_removed_total",
		Help: "Schedules removed via explicit unsubscribe.",
	})

	DeliveryAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "push_delivery_attempts_total",
		Help: "Delivery attempts by outcome (delivered, rejected, unreachable).",
	}, []string{"outcome"})

	SweepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "push_sweep_duration_seconds",
		Help:    "Wall time of one dispatcher sweep.",
		Buckets: prometheus.DefBuckets,
	})
)
