// Package metrics provides Prometheus metrics for the interview feed pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "interviewfeed"

type Metrics struct {
	SegmentsIngested prometheus.Counter
	SegmentsDropped  *prometheus.CounterVec

	TranslationsTotal   *prometheus.CounterVec
	TranslationLatency  prometheus.Histogram
	TurnsPublished      *prometheus.CounterVec
	StaleTurnsDiscarded prometheus.Counter

	StoreWrites      prometheus.Counter
	StoreStaleWrites prometheus.Counter
	StoreReadErrors  *prometheus.CounterVec

	FeedSubscribers prometheus.Gauge
	SessionsActive  prometheus.Gauge

	EventPublishTotal *prometheus.CounterVec
}

// DefaultMetrics is the process-wide instance registered with the default registry.
var DefaultMetrics = NewMetrics()

func NewMetrics() *Metrics {
	return &Metrics{
		SegmentsIngested: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "segments_ingested_total",
			Help:      "Segments accepted into the transcript buffer",
		}),
		SegmentsDropped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "segments_dropped_total",
			Help:      "Segments dropped before buffering",
		}, []string{"reason"}),
		TranslationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "translations_total",
			Help:      "Translation attempts by outcome",
		}, []string{"outcome"}),
		TranslationLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "translation_latency_seconds",
			Help:      "Latency of translation collaborator calls",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		}),
		TurnsPublished: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_published_total",
			Help:      "Turns appended to the conversation store",
		}, []string{"role"}),
		StaleTurnsDiscarded: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stale_turns_discarded_total",
			Help:      "Turns discarded because a reset happened while they were in flight",
		}),
		StoreWrites: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_writes_total",
			Help:      "Conversation store record writes",
		}),
		StoreStaleWrites: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_stale_writes_total",
			Help:      "Conversation store writes rejected for an old generation",
		}),
		StoreReadErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_read_errors_total",
			Help:      "Conversation store reads that fell back to an empty record",
		}, []string{"reason"}),
		FeedSubscribers: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "feed_subscribers",
			Help:      "Currently connected feed viewers",
		}),
		SessionsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Interview sessions currently held in memory",
		}),
		EventPublishTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "event_publish_total",
			Help:      "Turn events published downstream by status",
		}, []string{"status"}),
	}
}

func (m *Metrics) RecordTranslation(outcome string, seconds float64) {
	m.TranslationsTotal.WithLabelValues(outcome).Inc()
	m.TranslationLatency.Observe(seconds)
}

func (m *Metrics) RecordEventPublish(err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.EventPublishTotal.WithLabelValues(status).Inc()
}
