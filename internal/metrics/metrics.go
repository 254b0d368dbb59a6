package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Pipeline metrics
	IngestOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inbox_ingest_outcomes_total",
			Help: "Processed message and status items by outcome",
		},
		[]string{"item", "outcome"}, // item: "message" or "status"
	)

	UnsupportedKinds = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inbox_unsupported_kinds_total",
			Help: "Messages stored with a kind that has no payload mapping",
		},
		[]string{"kind"},
	)

	WebhookDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inbox_webhook_deliveries_total",
			Help: "Webhook payloads received",
		},
		[]string{"result"}, // "ok" or "failed"
	)

	// Fan-out metrics
	ActiveSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "inbox_active_subscribers",
			Help: "Currently registered conversation subscribers",
		},
	)

	EventsDelivered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inbox_events_delivered_total",
			Help: "Events handed to subscribers",
		},
		[]string{"type"},
	)

	SubscribersDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "inbox_subscribers_dropped_total",
			Help: "Subscribers dropped because their buffer was full",
		},
	)

	// Infrastructure metrics
	StoreLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "inbox_store_latency_seconds",
			Help:    "Message store operation latency",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"op"},
	)
)
