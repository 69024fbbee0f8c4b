// Package metrics exposes Prometheus instrumentation for document processing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PipelineMetrics records document, page and LLM call outcomes.
// All methods are safe on a nil receiver.
type PipelineMetrics struct {
	registry *prometheus.Registry

	documentsTotal   *prometheus.CounterVec
	documentDuration *prometheus.HistogramVec
	documentsFlight  prometheus.Gauge
	pagesTotal       *prometheus.CounterVec
	llmCallsTotal    *prometheus.CounterVec
	queueOutcomes    *prometheus.CounterVec
}

// NewPipelineMetrics creates metrics on a private registry.
func NewPipelineMetrics() *PipelineMetrics {
	registry := prometheus.NewRegistry()

	documentsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "actflow",
			Subsystem: "pipeline",
			Name:      "documents_total",
			Help:      "Processed documents by mode and status.",
		},
		[]string{"mode", "status"},
	)
	documentDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "actflow",
			Subsystem: "pipeline",
			Name:      "document_duration_seconds",
			Help:      "Document processing duration in seconds by mode.",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"mode"},
	)
	documentsFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "actflow",
			Subsystem: "pipeline",
			Name:      "documents_in_flight",
			Help:      "Documents currently being processed.",
		},
	)
	pagesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "actflow",
			Subsystem: "pipeline",
			Name:      "pages_total",
			Help:      "Processed pages by status.",
		},
		[]string{"status"},
	)
	llmCallsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "actflow",
			Subsystem: "llm",
			Name:      "calls_total",
			Help:      "LLM completion calls by provider and status.",
		},
		[]string{"provider", "status"},
	)

	queueOutcomes := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "actflow",
			Subsystem: "queue",
			Name:      "files_total",
			Help:      "Queued files handled by the worker, by outcome.",
		},
		[]string{"outcome"},
	)

	registry.MustRegister(documentsTotal, documentDuration, documentsFlight, pagesTotal, llmCallsTotal, queueOutcomes)

	return &PipelineMetrics{
		registry:         registry,
		documentsTotal:   documentsTotal,
		documentDuration: documentDuration,
		documentsFlight:  documentsFlight,
		pagesTotal:       pagesTotal,
		llmCallsTotal:    llmCallsTotal,
		queueOutcomes:    queueOutcomes,
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *PipelineMetrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry.
func (m *PipelineMetrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *PipelineMetrics) StartDocument() {
	if m == nil {
		return
	}
	m.documentsFlight.Inc()
}

func (m *PipelineMetrics) FinishDocument(mode string, duration time.Duration, failed bool) {
	if m == nil {
		return
	}
	m.documentsFlight.Dec()
	m.documentsTotal.WithLabelValues(mode, statusLabel(failed)).Inc()
	m.documentDuration.WithLabelValues(mode).Observe(duration.Seconds())
}

func (m *PipelineMetrics) ObservePage(failed bool) {
	if m == nil {
		return
	}
	m.pagesTotal.WithLabelValues(statusLabel(failed)).Inc()
}

func (m *PipelineMetrics) ObserveLLMCall(provider string, err error) {
	if m == nil {
		return
	}
	m.llmCallsTotal.WithLabelValues(provider, statusLabel(err != nil)).Inc()
}

// ObserveQueueOutcome counts a worker outcome: completed, failed or requeued.
func (m *PipelineMetrics) ObserveQueueOutcome(outcome string) {
	if m == nil {
		return
	}
	m.queueOutcomes.WithLabelValues(outcome).Inc()
}

func statusLabel(failed bool) string {
	if failed {
		return "error"
	}
	return "success"
}
