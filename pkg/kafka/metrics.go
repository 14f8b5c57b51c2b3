package kafka

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "storefront"

// Event traffic, labelled by topic.
var (
	ProducerMessagesPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "events",
		Name:      "published_total",
		Help:      "Events acknowledged by the brokers.",
	}, []string{"topic"})

	ProducerPublishErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "events",
		Name:      "publish_errors_total",
		Help:      "Events the brokers did not accept.",
	}, []string{"topic"})

	ProducerPublishDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Subsystem: "events",
		Name:      "publish_duration_seconds",
		Help:      "Time spent writing one event, acknowledgement included.",
		Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	}, []string{"topic"})

	WatcherEventsReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "events",
		Name:      "received_total",
		Help:      "Events read back by the events watch command.",
	}, []string{"topic"})
)
