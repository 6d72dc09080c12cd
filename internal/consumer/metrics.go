package consumer

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	outcomeProcessed    = "processed"
	outcomeHandlerError = "handler_error"
	outcomeDecodeError  = "decode_error"
)

var (
	messagesCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fitproof",
		Subsystem: "consumer",
		Name:      "messages_total",
		Help:      "Kafka messages seen by the consumer, by topic and outcome.",
	}, []string{"topic", "outcome"})

	messageAge = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "fitproof",
		Subsystem: "consumer",
		Name:      "message_age_seconds",
		Help:      "Delay between a message being produced and its successful handling.",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
	}, []string{"topic"})
)

func init() {
	prometheus.MustRegister(messagesCounter, messageAge)
}

func recordProcessed(msg Message) {
	messagesCounter.WithLabelValues(msg.Topic, outcomeProcessed).Inc()
	if !msg.Timestamp.IsZero() {
		messageAge.WithLabelValues(msg.Topic).Observe(time.Since(msg.Timestamp).Seconds())
	}
}

func recordHandlerError(msg Message) {
	messagesCounter.WithLabelValues(msg.Topic, outcomeHandlerError).Inc()
}

func recordDecodeError(topic string) {
	messagesCounter.WithLabelValues(topic, outcomeDecodeError).Inc()
}
