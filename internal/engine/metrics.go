package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MeetingsIngested counts ingestion attempts.
	// Labels: result (success, malformed)
	MeetingsIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "insightd",
			Subsystem: "engine",
			Name:      "meetings_ingested_total",
			Help:      "Total number of meeting ingestion attempts",
		},
		[]string{"result"},
	)

	// SignalsExtracted counts extracted signals.
	// Labels: kind (challenge, behavioral, emotional)
	SignalsExtracted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "insightd",
			Subsystem: "engine",
			Name:      "signals_extracted_total",
			Help:      "Total number of signals extracted from meeting records",
		},
		[]string{"kind"},
	)

	// PatternsActive tracks the number of detected patterns by severity.
	// Labels: severity (low, medium, high, critical)
	PatternsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "insightd",
			Subsystem: "engine",
			Name:      "patterns_active",
			Help:      "Number of detected patterns by severity",
		},
		[]string{"severity"},
	)

	// IngestDuration tracks how long end-to-end ingestion takes.
	IngestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "insightd",
			Subsystem: "engine",
			Name:      "ingest_duration_seconds",
			Help:      "Duration of meeting ingestion in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)

	// ForecastRequests counts forecast queries.
	// Labels: result (success, insufficient_data, error)
	ForecastRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "insightd",
			Subsystem: "engine",
			Name:      "forecast_requests_total",
			Help:      "Total number of forecast requests",
		},
		[]string{"result"},
	)
)
