package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Telemetry exposes the pipeline's Prometheus metrics.
type Telemetry struct {
	enabled bool

	requests        *prometheus.CounterVec
	answerLatency   prometheus.Histogram
	confidence      prometheus.Histogram
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	llmCalls        *prometheus.CounterVec
	llmLatency      prometheus.Histogram
	retrievalCounts prometheus.Histogram
}

// Request outcomes recorded on the chat counter.
const (
	OutcomeAnswered = "answered"
	OutcomeRefused  = "refused"
	OutcomeNoDocs   = "no_documents"
	OutcomeError    = "error"
)

func New(enabled bool) *Telemetry {
	t := &Telemetry{enabled: enabled}
	if !enabled {
		return t
	}
	t.requests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "askcampus_chat_requests_total",
		Help: "Chat requests by outcome.",
	}, []string{"outcome"})
	t.answerLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "askcampus_answer_duration_seconds",
		Help:    "End-to-end answer latency.",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	})
	t.confidence = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "askcampus_answer_confidence",
		Help:    "Confidence score distribution.",
		Buckets: prometheus.LinearBuckets(0, 0.1, 11),
	})
	t.cacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "askcampus_embedding_cache_hits_total",
		Help: "Embedding cache hits.",
	})
	t.cacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "askcampus_embedding_cache_misses_total",
		Help: "Embedding cache misses.",
	})
	t.llmCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "askcampus_llm_calls_total",
		Help: "LLM calls by operation and status.",
	}, []string{"operation", "status"})
	t.llmLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "askcampus_llm_call_duration_seconds",
		Help:    "Latency of individual LLM calls.",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
	})
	t.retrievalCounts = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "askcampus_retrieval_results",
		Help:    "Number of documents surviving dedup and rerank.",
		Buckets: prometheus.LinearBuckets(0, 1, 11),
	})
	return t
}

func (t *Telemetry) RecordRequest(outcome string, elapsed time.Duration, conf float64) {
	if !t.enabled {
		return
	}
	t.requests.WithLabelValues(outcome).Inc()
	t.answerLatency.Observe(elapsed.Seconds())
	t.confidence.Observe(conf)
}

func (t *Telemetry) RecordCacheHit() {
	if t.enabled {
		t.cacheHits.Inc()
	}
}

func (t *Telemetry) RecordCacheMiss() {
	if t.enabled {
		t.cacheMisses.Inc()
	}
}

func (t *Telemetry) RecordLLMCall(operation string, err error, elapsed time.Duration) {
	if !t.enabled {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	t.llmCalls.WithLabelValues(operation, status).Inc()
	t.llmLatency.Observe(elapsed.Seconds())
}

func (t *Telemetry) RecordRetrieval(resultCount int) {
	if t.enabled {
		t.retrievalCounts.Observe(float64(resultCount))
	}
}
