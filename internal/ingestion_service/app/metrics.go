package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	inboundEventsCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docchase",
			Subsystem: "ingestion",
			Name:      "inbound_events_total",
			Help:      "Inbound transport events by outcome.",
		},
		[]string{"outcome"},
	)
	statusCallbacksCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docchase",
			Subsystem: "ingestion",
			Name:      "status_callbacks_total",
			Help:      "Delivery status callbacks by outcome.",
		},
		[]string{"outcome"},
	)
)
