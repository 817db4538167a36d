package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "unrest"

// Metrics holds the Prometheus counters, histograms, and gauges for the service.
type Metrics struct {
	Evaluations        *prometheus.CounterVec // labels: band={Low,Moderate,High}
	ProbabilityScores  prometheus.Histogram
	SessionsActive     prometheus.Gauge
	HistoryAppends     prometheus.Counter
	UnknownPresetCalls prometheus.Counter

	// Publishing metrics.
	AssessmentsPublished prometheus.Counter
	AssessmentsDropped   prometheus.Counter
	PublishErrors        prometheus.Counter
	PublisherRunning     prometheus.Gauge
	PublishBatchSize     prometheus.Histogram
	PublishDuration      prometheus.Histogram

	// Headline feed metrics.
	FeedRequests    *prometheus.CounterVec // labels: outcome={success,error,empty}
	FeedCache       *prometheus.CounterVec // labels: result={hit,miss}
	FeedAPIDuration prometheus.Histogram
	FeedEnabled     prometheus.Gauge

	// Model file metrics.
	ModelReloads *prometheus.CounterVec // labels: outcome={success,error}
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewUnregisteredMetrics creates Metrics that are never exported. One-shot
// tools use it so the scoring code can record without a /metrics endpoint.
func NewUnregisteredMetrics() *Metrics {
	return newMetrics()
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		Evaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evaluations_total",
			Help:      "Risk evaluations by resulting band.",
		}, []string{"band"}),
		ProbabilityScores: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "probability",
			Help:      "Distribution of evaluated unrest probabilities.",
			Buckets:   []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.75, 0.8, 0.9, 1},
		}),
		SessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Sessions currently held in memory.",
		}),
		HistoryAppends: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "history_appends_total",
			Help:      "Entries appended to session histories.",
		}),
		UnknownPresetCalls: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unknown_preset_total",
			Help:      "Submissions naming a preset that does not exist.",
		}),
		AssessmentsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "assessments_published_total",
			Help:      "Assessments written to the sink topic.",
		}),
		AssessmentsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "assessments_dropped_total",
			Help:      "Assessments dropped because the publish queue was full.",
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_errors_total",
			Help:      "Failed publish batch attempts.",
		}),
		PublisherRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "publisher_running",
			Help:      "1 when the publisher loop is active, 0 when shut down.",
		}),
		PublishBatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "publish_batch_size",
			Help:      "Number of assessments per published batch.",
			Buckets:   []float64{1, 5, 10, 20, 30, 40, 50, 75, 100},
		}),
		PublishDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "publish_duration_seconds",
			Help:      "Duration of a publish batch write.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		FeedRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_requests_total",
			Help:      "Headline feed fetches by outcome.",
		}, []string{"outcome"}),
		FeedCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_cache_total",
			Help:      "Headline cache lookups by result.",
		}, []string{"result"}),
		FeedAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "feed_request_duration_seconds",
			Help:      "Headline feed request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		FeedEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "feed_enabled",
			Help:      "1 when a headline feed is configured, 0 otherwise.",
		}),
		ModelReloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_reloads_total",
			Help:      "Model file reload attempts by outcome.",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.Evaluations,
		m.ProbabilityScores,
		m.SessionsActive,
		m.HistoryAppends,
		m.UnknownPresetCalls,
		m.AssessmentsPublished,
		m.AssessmentsDropped,
		m.PublishErrors,
		m.PublisherRunning,
		m.PublishBatchSize,
		m.PublishDuration,
		m.FeedRequests,
		m.FeedCache,
		m.FeedAPIDuration,
		m.FeedEnabled,
		m.ModelReloads,
	}
}
