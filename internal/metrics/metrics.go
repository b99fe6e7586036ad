package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	OutcomeCompleted     = "completed"
	OutcomeSkippedFresh  = "skipped_fresh"
	OutcomeSkippedLocked = "skipped_locked"
	OutcomeFailed        = "failed"
)

var (
	EmbeddingCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "internmatch_embedding_cache_hits_total",
			Help: "Embedding lookups served from the cache",
		},
	)

	EmbeddingCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "internmatch_embedding_cache_misses_total",
			Help: "Embedding lookups that required encoding",
		},
	)

	EncodeFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "internmatch_encode_failures_total",
			Help: "Encoder calls that failed and degraded to a zero vector",
		},
		[]string{"encoder"},
	)

	EncoderBatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "internmatch_encoder_batch_duration_seconds",
			Help:    "Latency of one encoder batch call",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"encoder"},
	)

	MatchingRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "internmatch_matching_runs_total",
			Help: "Matching runs by outcome",
		},
		[]string{"outcome"},
	)

	MatchingRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "internmatch_matching_run_duration_seconds",
			Help:    "Duration of matching runs that performed work",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	Taps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "internmatch_recommendation_taps_total",
			Help: "Applicant taps by resulting status",
		},
		[]string{"status"},
	)

	AdsServed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "internmatch_advertisements_served_total",
			Help: "Queue reads answered with an advertisement",
		},
	)

	CachePurged = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "internmatch_embedding_cache_purged_total",
			Help: "Expired embedding cache rows removed by the janitor",
		},
	)
)

func RecordCacheLookup(hits, misses int) {
	if hits > 0 {
		EmbeddingCacheHits.Add(float64(hits))
	}
	if misses > 0 {
		EmbeddingCacheMisses.Add(float64(misses))
	}
}

func RecordEncoderBatch(encoder string, d time.Duration, err error) {
	EncoderBatchDuration.WithLabelValues(encoder).Observe(d.Seconds())
	if err != nil {
		EncodeFailures.WithLabelValues(encoder).Inc()
	}
}

// RecordMatchingRun counts a run; d is observed only for runs that did work.
func RecordMatchingRun(outcome string, d time.Duration) {
	MatchingRuns.WithLabelValues(outcome).Inc()
	if outcome == OutcomeCompleted || outcome == OutcomeFailed {
		MatchingRunDuration.Observe(d.Seconds())
	}
}
