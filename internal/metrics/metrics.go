package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "expensetracker"

var (
	once sync.Once

	reminderScheduled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminder_scheduled_total",
			Help:      "Count of reminder registrations by precision class.",
		},
		[]string{"precision"},
	)

	reminderFallback = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminder_fallback_total",
			Help:      "Count of registrations that fell back to inexact timing after a permission fault.",
		},
	)

	reminderCancelled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminder_cancelled_total",
			Help:      "Count of reminder cancellations.",
		},
	)

	alarmFired = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alarm_fired_total",
			Help:      "Count of reminder firings by notification outcome.",
		},
		[]string{"outcome"},
	)

	alarmHandleDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "alarm_handle_duration_seconds",
			Help:      "Time spent handling a reminder firing.",
			Buckets:   []float64{.01, .05, .1, .5, 1, 2, 5, 10},
		},
	)

	expenseOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "expense_operations_total",
			Help:      "Count of expense store operations by kind and status.",
		},
		[]string{"op", "status"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(reminderScheduled, reminderFallback, reminderCancelled,
			alarmFired, alarmHandleDuration, expenseOps)
	})
}

func IncReminderScheduled(precision string) {
	reminderScheduled.WithLabelValues(precision).Inc()
}

func IncReminderFallback() {
	reminderFallback.Inc()
}

func IncReminderCancelled() {
	reminderCancelled.Inc()
}

// IncAlarmFired records a firing; outcome is "notified" or "notify_failed".
func IncAlarmFired(outcome string) {
	alarmFired.WithLabelValues(outcome).Inc()
}

func ObserveAlarmHandleDuration(seconds float64) {
	alarmHandleDuration.Observe(seconds)
}

// IncExpenseOp records an expense store operation; err decides the status label.
func IncExpenseOp(op string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	expenseOps.WithLabelValues(op, status).Inc()
}
