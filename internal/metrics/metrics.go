// Package metrics exposes Prometheus collectors for the translation path.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for translation requests.
const (
	OutcomeOK          = "ok"
	OutcomeValidation  = "validation"
	OutcomeQuota       = "quota"
	OutcomeProvider    = "provider"
	OutcomeUnreachable = "unreachable"
)

var (
	translationRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codetran_translation_requests_total",
			Help: "Total number of translation requests by outcome",
		},
		[]string{"outcome"},
	)

	translationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "codetran_translation_duration_seconds",
			Help:    "Time spent handling a translation request, including the model call",
			Buckets: []float64{0.01, 0.1, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0, 60.0, 120.0},
		},
		[]string{"outcome"},
	)

	inputLines = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "codetran_input_lines",
			Help:    "Line count of accepted translation inputs",
			Buckets: []float64{1, 10, 50, 100, 250, 500, 1000, 1500},
		},
	)

	maxTokens = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "codetran_max_tokens",
			Help:    "Completion token budget requested from the model",
			Buckets: prometheus.LinearBuckets(2048, 125, 9),
		},
	)

	promptTokens = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "codetran_prompt_tokens",
			Help:    "Estimated prompt tokens sent to the model",
			Buckets: []float64{50, 100, 500, 1000, 2500, 5000, 10000, 25000, 50000},
		},
	)

	rateLimitRejections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "codetran_ratelimit_rejections_total",
			Help: "Requests rejected by the per-IP rate limiter",
		},
	)
)

// RecordTranslation counts one finished request.
func RecordTranslation(outcome string, elapsed time.Duration) {
	translationRequestsTotal.WithLabelValues(outcome).Inc()
	translationDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

// RecordInput records the size of an accepted input and its token budget.
func RecordInput(lines, budget, prompt int) {
	inputLines.Observe(float64(lines))
	maxTokens.Observe(float64(budget))
	if prompt > 0 {
		promptTokens.Observe(float64(prompt))
	}
}

// RecordRateLimited counts a request rejected by the rate limiter.
func RecordRateLimited() {
	rateLimitRejections.Inc()
}
