// Copyright (C) 2026 NestReady Labs (oss@nestready.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package observability provides Prometheus metrics for the advisor service.
//
// # Description
//
// Metrics cover the two request surfaces (analysis streaming and advisor
// chat) plus the layers behind them:
//   - Request counters by endpoint and status
//   - Stream duration histograms
//   - Guardrail denials by reason
//   - Tool executions by tool and outcome, plus tool cache hits
//   - Loop iterations per chat turn
//
// Exposed via the /metrics endpoint. Use with Prometheus + Grafana.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal locking.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Metric Definitions
// =============================================================================

// Namespace for all metrics
const metricsNamespace = "nestready"

// Subsystem for advisor metrics
const advisorSubsystem = "advisor"

// AdvisorMetrics holds all Prometheus metrics for the advisor service.
//
// # Description
//
// Initialize once at startup via InitMetrics(). All fields are safe for
// concurrent use.
type AdvisorMetrics struct {
	// RequestsTotal counts requests by endpoint and status.
	// Labels: endpoint (analysis_stream, advisor_chat, advisor_ws),
	// status (success, error)
	RequestsTotal *prometheus.CounterVec

	// StreamDurationSeconds measures analysis stream duration.
	// Labels: endpoint, status
	StreamDurationSeconds *prometheus.HistogramVec

	// ActiveStreams tracks currently open streaming connections.
	// Labels: endpoint
	ActiveStreams *prometheus.GaugeVec

	// GuardrailDenialsTotal counts refused chat messages.
	// Labels: reason (too_long, injection, off_topic)
	GuardrailDenialsTotal *prometheus.CounterVec

	// ToolExecutionsTotal counts advisor tool calls.
	// Labels: tool, outcome (success, cache_hit, rejected, error)
	ToolExecutionsTotal *prometheus.CounterVec

	// ToolCacheHitsTotal counts tool results served from cache.
	ToolCacheHitsTotal prometheus.Counter

	// LoopIterations measures model calls per chat turn.
	LoopIterations prometheus.Histogram

	// SummaryFallbacksTotal counts summaries served from the template
	// instead of the model.
	SummaryFallbacksTotal prometheus.Counter

	// MarketFallbacksTotal counts snapshot fields that degraded to
	// default values.
	// Labels: field (rates, inflation, area, listing)
	MarketFallbacksTotal *prometheus.CounterVec
}

// DefaultMetrics is the singleton instance of AdvisorMetrics.
// Initialized by InitMetrics(); nil when metrics are disabled.
var DefaultMetrics *AdvisorMetrics

// InitMetrics initializes the default metrics instance.
//
// # Description
//
// Creates and registers all Prometheus metrics. Call once at startup.
//
// # Limitations
//
//   - Panics if called twice (duplicate registration).
func InitMetrics() *AdvisorMetrics {
	DefaultMetrics = &AdvisorMetrics{
		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: advisorSubsystem,
				Name:      "requests_total",
				Help:      "Total requests by endpoint and status",
			},
			[]string{"endpoint", "status"},
		),

		StreamDurationSeconds: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: advisorSubsystem,
				Name:      "stream_duration_seconds",
				Help:      "Analysis stream duration in seconds",
				Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"endpoint", "status"},
		),

		ActiveStreams: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: advisorSubsystem,
				Name:      "active_streams",
				Help:      "Number of currently open streaming connections",
			},
			[]string{"endpoint"},
		),

		GuardrailDenialsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: advisorSubsystem,
				Name:      "guardrail_denials_total",
				Help:      "Chat messages refused by the input guard, by reason",
			},
			[]string{"reason"},
		),

		ToolExecutionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: advisorSubsystem,
				Name:      "tool_executions_total",
				Help:      "Advisor tool calls by tool and outcome",
			},
			[]string{"tool", "outcome"},
		),

		ToolCacheHitsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: advisorSubsystem,
				Name:      "tool_cache_hits_total",
				Help:      "Tool results served from the shared cache",
			},
		),

		LoopIterations: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: advisorSubsystem,
				Name:      "loop_iterations",
				Help:      "Model calls per advisor chat turn",
				Buckets:   []float64{1, 2, 3, 4, 5},
			},
		),

		SummaryFallbacksTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: advisorSubsystem,
				Name:      "summary_fallbacks_total",
				Help:      "Narrative summaries served from the template",
			},
		),

		MarketFallbacksTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: advisorSubsystem,
				Name:      "market_fallbacks_total",
				Help:      "Market snapshot fields that degraded to defaults",
			},
			[]string{"field"},
		),
	}

	return DefaultMetrics
}

// =============================================================================
// Endpoint Names
// =============================================================================

// Endpoint labels a request surface for metrics.
type Endpoint string

const (
	// EndpointAnalysisStream is the NDJSON analysis endpoint.
	EndpointAnalysisStream Endpoint = "analysis_stream"

	// EndpointAdvisorChat is the request/response chat endpoint.
	EndpointAdvisorChat Endpoint = "advisor_chat"

	// EndpointAdvisorWS is the WebSocket chat endpoint.
	EndpointAdvisorWS Endpoint = "advisor_ws"
)

// =============================================================================
// Helper Methods
// =============================================================================

// RecordRequest records a completed request.
func (m *AdvisorMetrics) RecordRequest(endpoint Endpoint, success bool) {
	if m == nil {
		return
	}
	status := "success"
	if !success {
		status = "error"
	}
	m.RequestsTotal.WithLabelValues(string(endpoint), status).Inc()
}

// RecordStreamDuration records the total stream duration.
func (m *AdvisorMetrics) RecordStreamDuration(endpoint Endpoint, seconds float64, success bool) {
	if m == nil {
		return
	}
	status := "success"
	if !success {
		status = "error"
	}
	m.StreamDurationSeconds.WithLabelValues(string(endpoint), status).Observe(seconds)
}

// StreamStarted increments the active streams gauge.
func (m *AdvisorMetrics) StreamStarted(endpoint Endpoint) {
	if m == nil {
		return
	}
	m.ActiveStreams.WithLabelValues(string(endpoint)).Inc()
}

// StreamEnded decrements the active streams gauge.
func (m *AdvisorMetrics) StreamEnded(endpoint Endpoint) {
	if m == nil {
		return
	}
	m.ActiveStreams.WithLabelValues(string(endpoint)).Dec()
}

// RecordGuardrailDenial records a refused chat message.
func (m *AdvisorMetrics) RecordGuardrailDenial(reason string) {
	if m == nil {
		return
	}
	m.GuardrailDenialsTotal.WithLabelValues(reason).Inc()
}

// RecordToolExecution records one tool call.
func (m *AdvisorMetrics) RecordToolExecution(tool, outcome string) {
	if m == nil {
		return
	}
	m.ToolExecutionsTotal.WithLabelValues(tool, outcome).Inc()
	if outcome == "cache_hit" {
		m.ToolCacheHitsTotal.Inc()
	}
}

// RecordLoopIterations records the model calls one chat turn took.
func (m *AdvisorMetrics) RecordLoopIterations(n int) {
	if m == nil {
		return
	}
	m.LoopIterations.Observe(float64(n))
}

// RecordSummaryFallback records a template-served summary.
func (m *AdvisorMetrics) RecordSummaryFallback() {
	if m == nil {
		return
	}
	m.SummaryFallbacksTotal.Inc()
}

// RecordMarketFallback records a degraded snapshot field.
func (m *AdvisorMetrics) RecordMarketFallback(field string) {
	if m == nil {
		return
	}
	m.MarketFallbacksTotal.WithLabelValues(field).Inc()
}
