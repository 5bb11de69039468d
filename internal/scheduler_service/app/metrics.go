package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	remindersCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docchase",
			Subsystem: "scheduler",
			Name:      "reminders_total",
			Help:      "Reminder actions attempted by the scheduling engine.",
		},
		[]string{"tier", "outcome"}, // outcome: sent, failed, skipped_window, flagged
	)
	passDurationHist = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docchase",
			Subsystem: "scheduler",
			Name:      "pass_duration_seconds",
			Help:      "Duration of one scheduling step over its cohort.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"step"},
	)
)
