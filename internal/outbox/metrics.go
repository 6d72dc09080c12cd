package outbox

import "github.com/prometheus/client_golang/prometheus"

const (
	resultDelivered = "delivered"
	resultReleased  = "released"
)

var (
	eventsCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fitproof",
		Subsystem: "outbox",
		Name:      "events_total",
		Help:      "Outbox events handled per topic, by result (delivered or released for retry).",
	}, []string{"topic", "result"})

	claimSize = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "fitproof",
		Subsystem: "outbox",
		Name:      "claim_size",
		Help:      "Number of events claimed per non-empty poll.",
		Buckets:   []float64{1, 5, 10, 25, 50, 100},
	})

	batchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "fitproof",
		Subsystem: "outbox",
		Name:      "batch_duration_seconds",
		Help:      "Time from claim to publish or release of one outbox batch.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
	})
)

func init() {
	prometheus.MustRegister(eventsCounter, claimSize, batchDuration)
}

func recordEvents(messages []Message, result string) {
	for _, msg := range messages {
		eventsCounter.WithLabelValues(msg.Topic, result).Inc()
	}
}
