package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "salonbook"

var (
	once sync.Once

	bookingsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bookings_created_total",
			Help:      "Count of committed booking rows by status.",
		},
		[]string{"status"},
	)

	cleanupRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cleanup_runs_total",
			Help:      "Cleanup attempts by outcome.",
		},
		[]string{"outcome"},
	)

	bookingsArchived = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bookings_archived_total",
			Help:      "Live bookings archived and deleted by retention.",
		},
	)

	archivesPurged = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "archived_records_purged_total",
			Help:      "Archived records deleted after the retention period.",
		},
	)

	cleanupDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cleanup_duration_seconds",
			Help:      "Wall time of cleanup runs.",
			Buckets:   []float64{.05, .1, .5, 1, 2, 5, 15, 30, 60},
		},
	)

	confirmationReplies = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "confirmation_replies_total",
			Help:      "Inbound confirmation replies by outcome.",
		},
		[]string{"outcome"},
	)

	rateLimitDenied = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_denied_total",
			Help:      "Requests denied by the rate limiter, by scope.",
		},
		[]string{"scope"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			bookingsCreated,
			cleanupRuns,
			bookingsArchived,
			archivesPurged,
			cleanupDuration,
			confirmationReplies,
			rateLimitDenied,
		)
	})
}

func IncBookingCreated(status string) {
	bookingsCreated.WithLabelValues(status).Inc()
}

func IncCleanupRun(outcome string) {
	cleanupRuns.WithLabelValues(outcome).Inc()
}

func AddBookingsArchived(n int) {
	bookingsArchived.Add(float64(n))
}

func AddArchivesPurged(n int) {
	archivesPurged.Add(float64(n))
}

func ObserveCleanupDuration(d time.Duration) {
	cleanupDuration.Observe(d.Seconds())
}

func IncConfirmationReply(outcome string) {
	confirmationReplies.WithLabelValues(outcome).Inc()
}

func IncRateLimitDenied(scope string) {
	rateLimitDenied.WithLabelValues(scope).Inc()
}
