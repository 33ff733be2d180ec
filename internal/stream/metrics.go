package stream

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sessionsActive = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ledgerstream_stream_sessions_active",
		Help: "Subscription streams currently running",
	}, []string{"kind"})

	sessionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledgerstream_stream_sessions_total",
		Help: "Finished subscription streams, labeled by terminal state",
	}, []string{"kind", "state"})

	eventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledgerstream_stream_events_total",
		Help: "SSE events written, labeled by event type",
	}, []string{"kind", "event"})

	writeFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledgerstream_stream_write_failures_total",
		Help: "Event writes that failed and cancelled their session",
	}, []string{"kind"})

	ledgerMutationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledgerstream_stream_ledger_mutations_total",
		Help: "Ledger balance changes made by subscription streams",
	}, []string{"kind"})

	sessionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ledgerstream_stream_session_duration_seconds",
		Help:    "Lifetime of subscription streams",
		Buckets: []float64{0.01, 0.1, 1, 5, 30, 60, 300, 900},
	}, []string{"kind"})
)
