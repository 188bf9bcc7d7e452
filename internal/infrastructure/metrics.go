package infrastructure

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MessagesProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intake_messages_processed_total",
			Help: "Incoming messages by processing outcome",
		},
		[]string{"outcome"},
	)

	FormsStored = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "intake_forms_stored_total",
			Help: "Intake forms persisted",
		},
	)

	FormConfidence = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "intake_form_confidence",
			Help:    "Field coverage of messages classified as forms",
			Buckets: prometheus.LinearBuckets(0.1, 0.1, 10),
		},
	)

	RepliesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intake_replies_total",
			Help: "Replies to senders by trigger and result",
		},
		[]string{"trigger", "result"},
	)

	MessageDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "intake_message_duration_seconds",
			Help: "Time spent handling one incoming message",
		},
	)
)
