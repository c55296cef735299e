// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TaskMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "taskhub_task_mutations_total",
		Help: "Task mutations by operation and outcome",
	}, []string{"op", "outcome"})

	NotificationsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "taskhub_notifications_created_total",
		Help: "Persisted notifications by type",
	}, []string{"type"})

	ActivityLogFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "taskhub_activity_log_failures_total",
		Help: "Audit writes that failed and were dropped",
	})

	DispatchErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "taskhub_dispatch_errors_total",
		Help: "Failed side-effect jobs by job name",
	}, []string{"job"})

	DispatchQueueFull = promauto.NewCounter(prometheus.CounterOpts{
		Name: "taskhub_dispatch_queue_full_total",
		Help: "Side-effect jobs dropped because the queue was full",
	})

	RealtimeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "taskhub_realtime_sessions",
		Help: "Connected realtime sessions",
	})

	RealtimeEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "taskhub_realtime_events_total",
		Help: "Realtime events per session by outcome",
	}, []string{"outcome"})

	JobRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "taskhub_job_runs_total",
		Help: "Scheduled job runs by job and outcome",
	}, []string{"job", "outcome"})

	JobDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "taskhub_job_duration_seconds",
		Help:    "Scheduled job duration",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
)
