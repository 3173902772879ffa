package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PlatformMetrics records the domain counters exposed on /metrics.
// All methods are nil-safe so unwired callers degrade to no-ops.
type PlatformMetrics struct {
	importDuration *prometheus.HistogramVec
	importSuccess  *prometheus.CounterVec
	importFailure  *prometheus.CounterVec
	importedRows   *prometheus.CounterVec

	ordersPlaced prometheus.Counter

	outboxPublished  *prometheus.CounterVec
	outboxDeadLetter prometheus.Counter

	emailSent   *prometheus.CounterVec
	emailFailed *prometheus.CounterVec

	cronRuns     *prometheus.CounterVec
	cronDuration *prometheus.HistogramVec
}

// New registers the platform metrics on the provided registerer.
func New(reg prometheus.Registerer) *PlatformMetrics {
	if reg == nil {
		return &PlatformMetrics{}
	}
	importDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "feed_import_duration_seconds",
		Help:    "Duration of price feed imports in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"trigger"})
	importSuccess := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "feed_import_success",
		Help: "Successful price feed imports.",
	}, []string{"trigger"})
	importFailure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "feed_import_failure",
		Help: "Failed price feed imports.",
	}, []string{"trigger"})
	importedRows := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "feed_import_rows",
		Help: "Catalog rows written by feed imports.",
	}, []string{"entity"})
	ordersPlaced := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orders_placed_total",
		Help: "Baskets converted into orders.",
	})
	outboxPublished := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_published_total",
		Help: "Outbox events published to Pub/Sub.",
	}, []string{"event_type"})
	outboxDeadLetter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "outbox_dead_letter_total",
		Help: "Outbox events moved to the dead letter table.",
	})
	emailSent := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notification_emails_sent_total",
		Help: "Notification emails delivered to the SMTP relay.",
	}, []string{"event_type"})
	emailFailed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notification_emails_failed_total",
		Help: "Notification emails dropped after exhausting retries.",
	}, []string{"event_type"})
	cronRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cron_job_runs_total",
		Help: "Cron job executions by result.",
	}, []string{"job", "result"})
	cronDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cron_job_duration_seconds",
		Help:    "Duration of cron job executions in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
	reg.MustRegister(importDuration, importSuccess, importFailure, importedRows, ordersPlaced, outboxPublished, outboxDeadLetter, emailSent, emailFailed, cronRuns, cronDuration)
	return &PlatformMetrics{
		importDuration:   importDuration,
		importSuccess:    importSuccess,
		importFailure:    importFailure,
		importedRows:     importedRows,
		ordersPlaced:     ordersPlaced,
		outboxPublished:  outboxPublished,
		outboxDeadLetter: outboxDeadLetter,
		emailSent:        emailSent,
		emailFailed:      emailFailed,
		cronRuns:         cronRuns,
		cronDuration:     cronDuration,
	}
}

// ObserveImportDuration records how long a feed import took.
func (m *PlatformMetrics) ObserveImportDuration(trigger string, duration time.Duration) {
	if m == nil || m.importDuration == nil {
		return
	}
	m.importDuration.WithLabelValues(normalizeLabel(trigger)).Observe(duration.Seconds())
}

// IncImportSuccess increments the success counter for the trigger.
func (m *PlatformMetrics) IncImportSuccess(trigger string) {
	if m == nil || m.importSuccess == nil {
		return
	}
	m.importSuccess.WithLabelValues(normalizeLabel(trigger)).Inc()
}

// IncImportFailure increments the failure counter for the trigger.
func (m *PlatformMetrics) IncImportFailure(trigger string) {
	if m == nil || m.importFailure == nil {
		return
	}
	m.importFailure.WithLabelValues(normalizeLabel(trigger)).Inc()
}

// AddImportedRows counts catalog rows written for the entity kind.
func (m *PlatformMetrics) AddImportedRows(entity string, count int) {
	if m == nil || m.importedRows == nil || count <= 0 {
		return
	}
	m.importedRows.WithLabelValues(normalizeLabel(entity)).Add(float64(count))
}

// IncOrdersPlaced counts a basket turned into an order.
func (m *PlatformMetrics) IncOrdersPlaced() {
	if m == nil || m.ordersPlaced == nil {
		return
	}
	m.ordersPlaced.Inc()
}

// IncOutboxPublished counts a published outbox event.
func (m *PlatformMetrics) IncOutboxPublished(eventType string) {
	if m == nil || m.outboxPublished == nil {
		return
	}
	m.outboxPublished.WithLabelValues(normalizeLabel(eventType)).Inc()
}

// IncOutboxDeadLetter counts an event moved to the dead letter table.
func (m *PlatformMetrics) IncOutboxDeadLetter() {
	if m == nil || m.outboxDeadLetter == nil {
		return
	}
	m.outboxDeadLetter.Inc()
}

// IncEmailSent counts a delivered notification email.
func (m *PlatformMetrics) IncEmailSent(eventType string) {
	if m == nil || m.emailSent == nil {
		return
	}
	m.emailSent.WithLabelValues(normalizeLabel(eventType)).Inc()
}

// IncEmailFailed counts an email dropped after its retry budget.
func (m *PlatformMetrics) IncEmailFailed(eventType string) {
	if m == nil || m.emailFailed == nil {
		return
	}
	m.emailFailed.WithLabelValues(normalizeLabel(eventType)).Inc()
}

// IncCronRun counts a cron job execution with its result label.
func (m *PlatformMetrics) IncCronRun(job, result string) {
	if m == nil || m.cronRuns == nil {
		return
	}
	m.cronRuns.WithLabelValues(normalizeLabel(job), normalizeLabel(result)).Inc()
}

// ObserveCronDuration records how long a cron job ran.
func (m *PlatformMetrics) ObserveCronDuration(job string, duration time.Duration) {
	if m == nil || m.cronDuration == nil {
		return
	}
	m.cronDuration.WithLabelValues(normalizeLabel(job)).Observe(duration.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
