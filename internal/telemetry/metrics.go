package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Reminder pipeline counters. Registered on the default registry and
// exposed on /metrics by both the scheduler and the worker.
var (
	RemindersEnqueued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "habit_reminders_enqueued_total",
		Help: "Reminder jobs enqueued by the tick scheduler.",
	})
	RemindersSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "habit_reminders_sent_total",
		Help: "Reminder messages delivered to Telegram.",
	})
	RemindersFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "habit_reminders_failed_total",
		Help: "Reminder dispatches that failed, by reason.",
	}, []string{"reason"})
	ScheduledJobsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "habit_scheduled_jobs_active",
		Help: "Scheduled jobs currently registered with the tick scheduler.",
	})
)
