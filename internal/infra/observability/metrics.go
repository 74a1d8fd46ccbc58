package observability

import (
	"time"

	"github.com/fialo-ai/fialo-bfa-go/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for the BFA.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	externalErrors  *prometheus.CounterVec
	cacheHits       *prometheus.CounterVec
	cacheMisses     *prometheus.CounterVec
	analyses        *prometheus.CounterVec
	storeMutations  *prometheus.CounterVec
	persistErrors   *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fialo_request_duration_seconds",
				Help:    "Duration of requests by operation.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fialo_external_errors_total",
				Help: "Total errors from external services.",
			},
			[]string{"service"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fialo_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fialo_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		analyses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fialo_analyses_total",
				Help: "Analyses served, by source (simulation or fallback).",
			},
			[]string{"source"},
		),
		storeMutations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fialo_store_mutations_total",
				Help: "State store mutations by store and operation.",
			},
			[]string{"store", "op"},
		),
		persistErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fialo_persistence_errors_total",
				Help: "Snapshot read/write failures by store and direction.",
			},
			[]string{"store", "direction"},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrExternalError increments the external error counter.
func (m *Metrics) IncrExternalError(service string) {
	m.externalErrors.WithLabelValues(service).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// IncrAnalysis counts one analysis by source.
func (m *Metrics) IncrAnalysis(source domain.AnalysisSource) {
	m.analyses.WithLabelValues(string(source)).Inc()
}

// IncrStoreMutation counts a store mutation.
func (m *Metrics) IncrStoreMutation(store, op string) {
	m.storeMutations.WithLabelValues(store, op).Inc()
}

// IncrPersistError counts a snapshot failure; direction is "read" or "write".
func (m *Metrics) IncrPersistError(store, direction string) {
	m.persistErrors.WithLabelValues(store, direction).Inc()
}

// GetAnalysisSnapshot returns a snapshot of analysis-related metrics suitable
// for the GET /v1/metrics/analysis endpoint.
func (m *Metrics) GetAnalysisSnapshot() *domain.AnalysisMetrics {
	// Prometheus counters expose cumulative values.
	live := getCounterValue(m.analyses, string(domain.SourceSimulation))
	fallback := getCounterValue(m.analyses, string(domain.SourceFallback))
	hits := getCounterValue(m.cacheHits, "analysis")
	misses := getCounterValue(m.cacheMisses, "analysis")

	var persistErrs float64
	for _, store := range []string{"auth", "profile", "waste"} {
		persistErrs += getCounterValue(m.persistErrors, store, "read")
		persistErrs += getCounterValue(m.persistErrors, store, "write")
	}

	total := live + fallback
	fallbackRate := float64(0)
	cacheHitRate := float64(0)
	if total > 0 {
		fallbackRate = fallback / total
	}
	if hits+misses > 0 {
		cacheHitRate = hits / (hits + misses)
	}

	return &domain.AnalysisMetrics{
		TotalAnalyses:     int64(total),
		LiveAnalyses:      int64(live),
		FallbackAnalyses:  int64(fallback),
		FallbackRate:      fallbackRate,
		CacheHitRate:      cacheHitRate,
		PersistenceErrors: int64(persistErrs),
		Period:            "all_time",
	}
}

// getCounterValue extracts the current float64 value from a CounterVec for the given labels.
func getCounterValue(cv *prometheus.CounterVec, labels ...string) float64 {
	counter := cv.WithLabelValues(labels...)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
