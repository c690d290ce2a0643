// Package observability exposes Prometheus metrics for the service.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	queriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "janobot_queries_total",
		Help: "Agent queries processed, by outcome.",
	}, []string{"status"})

	queryDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "janobot_query_duration_seconds",
		Help:    "Agent query latency.",
		Buckets: prometheus.DefBuckets,
	})

	toolExecutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "janobot_tool_executions_total",
		Help: "Tool executions, by tool and outcome.",
	}, []string{"tool", "status"})

	toolDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "janobot_tool_duration_seconds",
		Help:    "Tool execution latency, by tool.",
		Buckets: prometheus.DefBuckets,
	}, []string{"tool"})

	documentsIngestedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "janobot_documents_ingested_total",
		Help: "Documents added to the vector store via ingestion.",
	})

	retrievalsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "janobot_retrievals_total",
		Help: "RAG retrievals performed.",
	})

	llmTokensTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "janobot_llm_tokens_total",
		Help: "Tokens consumed by LLM calls.",
	})
)

func statusLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// RecordQuery counts one agent query and its latency.
func RecordQuery(duration time.Duration, tokens int, err error) {
	queriesTotal.WithLabelValues(statusLabel(err)).Inc()
	queryDuration.Observe(duration.Seconds())
	if tokens > 0 {
		llmTokensTotal.Add(float64(tokens))
	}
}

// RecordToolExecution counts one tool execution and its latency.
func RecordToolExecution(tool string, duration time.Duration, err error) {
	toolExecutionsTotal.WithLabelValues(tool, statusLabel(err)).Inc()
	toolDuration.WithLabelValues(tool).Observe(duration.Seconds())
}

// RecordIngestion counts documents added by an ingestion.
func RecordIngestion(documents int) {
	documentsIngestedTotal.Add(float64(documents))
}

// RecordRetrieval counts one RAG retrieval.
func RecordRetrieval() {
	retrievalsTotal.Inc()
}
