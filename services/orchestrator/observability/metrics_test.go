// Copyright (C) 2026 NestReady Labs (oss@nestready.dev)
// Tests for advisor Prometheus metrics

package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_RecordersAndNilGuards(t *testing.T) {
	// A nil receiver must be a no-op so disabled metrics never panic.
	var disabled *AdvisorMetrics
	disabled.RecordRequest(EndpointAdvisorChat, true)
	disabled.RecordGuardrailDenial("injection")
	disabled.RecordToolExecution("get_current_rates", "success")
	disabled.RecordLoopIterations(2)
	disabled.RecordSummaryFallback()
	disabled.RecordMarketFallback("rates")
	disabled.StreamStarted(EndpointAnalysisStream)
	disabled.StreamEnded(EndpointAnalysisStream)
	disabled.RecordStreamDuration(EndpointAnalysisStream, 1.2, true)

	// Registration happens once per process.
	m := InitMetrics()
	require.NotNil(t, m)
	assert.Same(t, m, DefaultMetrics)

	m.RecordRequest(EndpointAnalysisStream, true)
	m.RecordRequest(EndpointAnalysisStream, false)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("analysis_stream", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("analysis_stream", "error")))

	m.RecordGuardrailDenial("too_long")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GuardrailDenialsTotal.WithLabelValues("too_long")))

	m.RecordToolExecution("calculate_payment", "cache_hit")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ToolExecutionsTotal.WithLabelValues("calculate_payment", "cache_hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ToolCacheHitsTotal))

	m.StreamStarted(EndpointAnalysisStream)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ActiveStreams.WithLabelValues("analysis_stream")))
	m.StreamEnded(EndpointAnalysisStream)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.ActiveStreams.WithLabelValues("analysis_stream")))

	m.RecordMarketFallback("area")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MarketFallbacksTotal.WithLabelValues("area")))
}
