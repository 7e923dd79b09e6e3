package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	turns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "quizbot",
		Name:      "turns_total",
		Help:      "Inbound messages handled, by outcome.",
	}, []string{"outcome"})

	turnDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "quizbot",
		Name:      "turn_duration_seconds",
		Help:      "Time to handle one inbound message.",
		Buckets:   prometheus.DefBuckets,
	})

	deliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "quizbot",
		Name:      "deliveries_total",
		Help:      "Outbound Telegram messages, by result.",
	}, []string{"result"})
)

// ObserveTurn records one handled message.
func ObserveTurn(outcome string, took time.Duration) {
	turns.WithLabelValues(outcome).Inc()
	turnDuration.Observe(took.Seconds())
}

// ObserveDelivery records one outbound message.
func ObserveDelivery(err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}

	deliveries.WithLabelValues(result).Inc()
}
