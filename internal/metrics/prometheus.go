// Package metrics exposes Prometheus instrumentation for the
// assistant.
package metrics

import (
	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	QuestionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lawbot_questions_total",
			Help: "Questions processed, by outcome",
		},
		[]string{"outcome"},
	)

	QuestionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "lawbot_question_duration_seconds",
			Help:    "End-to-end question handling latency",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	SearchMatches = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "lawbot_search_matches",
			Help:    "Matches returned per successful search",
			Buckets: []float64{0, 1, 2, 3, 4, 5},
		},
	)

	LLMTokensTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "lawbot_llm_tokens_total",
			Help: "Completion tokens consumed",
		},
	)

	AnswerCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lawbot_answer_cache_total",
			Help: "Answer cache lookups, by result",
		},
		[]string{"result"},
	)

	FeedbackTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lawbot_feedback_total",
			Help: "Visitor feedback events, by kind",
		},
		[]string{"kind"},
	)

	IndexEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "lawbot_index_entries",
			Help: "PDF titles currently indexed",
		},
	)
)

// Question outcomes.
const (
	OutcomeMatched = "matched"
	OutcomeMissing = "missing"
	OutcomeLimited = "limited"
	OutcomeError   = "error"
)

// Init registers all collectors with the default registry.
func Init() {
	prometheus.MustRegister(
		QuestionsTotal,
		QuestionDuration,
		SearchMatches,
		LLMTokensTotal,
		AnswerCacheTotal,
		FeedbackTotal,
		IndexEntries,
	)
}

// MetricsHandler serves the Prometheus scrape endpoint through fiber.
func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
