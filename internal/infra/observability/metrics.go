package observability

import (
	"time"

	"github.com/boddenberg/supervisor-bfa-go/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for the supervisor backend.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration   *prometheus.HistogramVec
	externalErrors    *prometheus.CounterVec
	cacheHits         *prometheus.CounterVec
	cacheMisses       *prometheus.CounterVec
	tokensUsed        *prometheus.CounterVec
	generations       *prometheus.CounterVec
	riskFindings      *prometheus.CounterVec
	wizardTransitions *prometheus.CounterVec
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
				Name:    "supervisor_operation_duration_seconds",
				Help:    "Duration of service operations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "supervisor_external_errors_total",
				Help: "Total errors from external services.",
			},
			[]string{"service"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "supervisor_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "supervisor_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		tokensUsed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "supervisor_llm_tokens_total",
				Help: "Total LLM tokens consumed.",
			},
			[]string{"type"},
		),
		generations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "supervisor_generations_total",
				Help: "Text-generation calls by outcome (success, error, stale).",
			},
			[]string{"status"},
		),
		riskFindings: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "supervisor_risk_findings_total",
				Help: "Risks reported by the detection engine, by kind.",
			},
			[]string{"kind"},
		),
		wizardTransitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "supervisor_wizard_transitions_total",
				Help: "Investigation wizard transitions by action and resulting step.",
			},
			[]string{"action", "step"},
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

// RecordTokens records prompt and completion token usage.
func (m *Metrics) RecordTokens(prompt, completion int) {
	m.tokensUsed.WithLabelValues("prompt").Add(float64(prompt))
	m.tokensUsed.WithLabelValues("completion").Add(float64(completion))
}

// IncrGeneration counts a text-generation call by outcome.
func (m *Metrics) IncrGeneration(status string) {
	m.generations.WithLabelValues(status).Inc()
}

// RecordRisks adds one detection run's findings, keyed by risk kind.
func (m *Metrics) RecordRisks(byKind map[string]int) {
	for kind, n := range byKind {
		m.riskFindings.WithLabelValues(kind).Add(float64(n))
	}
}

// IncrWizardTransition counts one wizard navigation.
func (m *Metrics) IncrWizardTransition(action, step string) {
	m.wizardTransitions.WithLabelValues(action, step).Inc()
}

// GetAISnapshot returns a snapshot of text-generation metrics suitable for
// the GET /v1/metrics/ai endpoint.
func (m *Metrics) GetAISnapshot() *domain.AIMetrics {
	promptTokens := getCounterValue(m.tokensUsed, "prompt")
	completionTokens := getCounterValue(m.tokensUsed, "completion")
	success := getCounterValue(m.generations, "success")
	errorCount := getCounterValue(m.generations, "error")
	stale := getCounterValue(m.generations, "stale")
	cacheHits := getCounterValue(m.cacheHits, "dashboard")
	cacheMisses := getCounterValue(m.cacheMisses, "dashboard")

	totalRequests := success + errorCount + stale
	totalTokens := promptTokens + completionTokens

	snap := &domain.AIMetrics{
		TotalRequests:    int64(totalRequests),
		StaleDiscarded:   int64(stale),
		PromptTokens:     int64(promptTokens),
		CompletionTokens: int64(completionTokens),
		Period:           "all_time",
	}
	if totalRequests > 0 {
		snap.AvgTokensPerRequest = totalTokens / totalRequests
		snap.ErrorRate = errorCount / totalRequests
	}
	if cacheHits+cacheMisses > 0 {
		snap.DashboardCacheHitRate = cacheHits / (cacheHits + cacheMisses)
	}
	return snap
}

// getCounterValue extracts the current float64 value from a CounterVec for a given label.
func getCounterValue(cv *prometheus.CounterVec, label string) float64 {
	counter := cv.WithLabelValues(label)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
