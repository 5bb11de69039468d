package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	outboundMessagesCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docchase",
			Subsystem: "messaging",
			Name:      "outbound_messages_total",
			Help:      "Outbound WhatsApp messages by provider and outcome.",
		},
		[]string{"provider", "outcome"},
	)
	providerRequestDurationHist = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docchase",
			Subsystem: "messaging",
			Name:      "provider_request_duration_seconds",
			Help:      "Duration of transport provider send calls.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"provider"},
	)
)
