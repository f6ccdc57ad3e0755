package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for the chat pipeline.
type Metrics struct {
	// Completion gateway
	CompletionsTotal   *prometheus.CounterVec
	CompletionDuration prometheus.Histogram

	// Persisted messages by role
	MessagesTotal *prometheus.CounterVec

	// Summarizer
	SummariesTotal     *prometheus.CounterVec
	SummaryQueueLength prometheus.Gauge

	// Server
	ServerStartTime time.Time
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg registers nothing, which keeps tests independent.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	m := &Metrics{
		ServerStartTime: time.Now(),
	}

	m.CompletionsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "confidant_completions_total",
			Help: "Total number of completion calls by outcome code",
		},
		[]string{"code"},
	)

	m.CompletionDuration = factory.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "confidant_completion_duration_seconds",
			Help:    "Duration of completion calls in seconds",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 60},
		},
	)

	m.MessagesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "confidant_messages_total",
			Help: "Total number of persisted messages",
		},
		[]string{"role"},
	)

	m.SummariesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "confidant_summaries_total",
			Help: "Total number of summarization attempts by result",
		},
		[]string{"result"},
	)

	m.SummaryQueueLength = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "confidant_summary_queue_length",
			Help: "Number of summarization jobs waiting for a worker",
		},
	)

	return m
}

// ObserveCompletion records one completion call. code is "OK" on success.
func (m *Metrics) ObserveCompletion(code string, duration time.Duration) {
	m.CompletionsTotal.WithLabelValues(code).Inc()
	m.CompletionDuration.Observe(duration.Seconds())
}

// Uptime returns the time since the metrics were created.
func (m *Metrics) Uptime() time.Duration {
	return time.Since(m.ServerStartTime)
}
