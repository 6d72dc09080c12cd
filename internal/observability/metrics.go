// Package observability holds the Prometheus collectors for sync outcomes and gamification results.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Item outcomes recorded by RecordSyncItem.
const (
	OutcomeSynced  = "synced"
	OutcomeFlagged = "flagged"
	OutcomeFailed  = "failed"
)

var (
	syncItemsCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fitproof",
		Subsystem: "sync",
		Name:      "items_total",
		Help:      "Number of synced session items grouped by outcome.",
	}, []string{"outcome"})

	batchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "fitproof",
		Subsystem: "sync",
		Name:      "batch_duration_seconds",
		Help:      "Time spent processing a bulk sync batch.",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
	})

	conflictCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fitproof",
		Subsystem: "sync",
		Name:      "conflicts_total",
		Help:      "Number of detected session conflicts grouped by resolution strategy.",
	}, []string{"strategy"})

	pointsAwardedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "fitproof",
		Subsystem: "points",
		Name:      "awarded_total",
		Help:      "Points awarded on completed sessions.",
	})

	streakTransitionsCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fitproof",
		Subsystem: "streak",
		Name:      "transitions_total",
		Help:      "Streak transitions grouped by kind (increased, broken, rest_day, milestone).",
	}, []string{"kind"})

	lastSyncGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "fitproof",
		Subsystem: "sync",
		Name:      "last_session_synced_timestamp_seconds",
		Help:      "Unix timestamp of the most recent session persisted by a sync.",
	})
)

func init() {
	prometheus.MustRegister(syncItemsCounter, batchDuration, conflictCounter, pointsAwardedCounter, streakTransitionsCounter, lastSyncGauge)
}

// RecordSyncItem counts one processed item.
func RecordSyncItem(outcome string) {
	syncItemsCounter.WithLabelValues(outcome).Inc()
}

// ObserveBatch records how long a batch took.
func ObserveBatch(d time.Duration) {
	batchDuration.Observe(d.Seconds())
}

// RecordConflict counts a detected conflict.
func RecordConflict(strategy string) {
	conflictCounter.WithLabelValues(strategy).Inc()
}

// RecordPointsAwarded adds awarded points; non-positive values are ignored.
func RecordPointsAwarded(points int) {
	if points <= 0 {
		return
	}
	pointsAwardedCounter.Add(float64(points))
}

// RecordStreakTransition counts a streak transition of the given kind.
func RecordStreakTransition(kind string) {
	streakTransitionsCounter.WithLabelValues(kind).Inc()
}

// RecordSessionSynced updates the sync watermark gauge.
func RecordSessionSynced(ts time.Time) {
	if ts.IsZero() {
		return
	}
	lastSyncGauge.Set(float64(ts.Unix()))
}
