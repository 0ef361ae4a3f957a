package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DuplicateDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quiz_duplicate_decisions_total",
		Help: "Ingestion gate outcomes by action and code",
	}, []string{"action", "code"})

	DuplicateCandidatesScanned = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "quiz_duplicate_bucket_candidates",
		Help:    "Number of same-bucket candidates compared per evaluation",
		Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 200, 500},
	})

	PickRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quiz_pick_requests_total",
		Help: "Pick requests by outcome",
	}, []string{"outcome"})

	PickReturned = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "quiz_pick_returned_questions",
		Help:    "Questions returned per pick request",
		Buckets: []float64{0, 1, 2, 5, 10, 20, 50},
	})

	PickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "quiz_pick_duration_seconds",
		Help:    "Duration of pick requests",
		Buckets: prometheus.DefBuckets,
	})

	ServeLockContention = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quiz_serve_lock_contention_total",
		Help: "Candidates skipped because a serve lock was already held",
	})

	AntiRepeatFailOpen = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quiz_antirepeat_fail_open_total",
		Help: "Anti-repeat checks that failed and were treated as passing",
	}, []string{"check"})

	ServeEventsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quiz_serve_events_dropped_total",
		Help: "Serve events dropped because the recorder queue was full",
	})

	ServeRecordErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quiz_serve_record_errors_total",
		Help: "Serve events whose fan-out writes partially failed",
	})

	IngestOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quiz_ingest_outcomes_total",
		Help: "Question ingestion outcomes by source and code",
	}, []string{"source", "code"})
)
