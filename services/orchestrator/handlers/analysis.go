// Copyright (C) 2026 NestReady Labs (oss@nestready.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/nestready/nestready/pkg/logging"
	"github.com/nestready/nestready/services/advisor/pipeline"
	"github.com/nestready/nestready/services/orchestrator/datatypes"
	"github.com/nestready/nestready/services/orchestrator/observability"
)

var analysisTracer = otel.Tracer("nestready.orchestrator.handlers")

// AnalysisStreamRequest is the body of POST /v1/analysis/stream.
type AnalysisStreamRequest struct {
	Profile datatypes.Profile `json:"profile"`
}

// HandleAnalysisStream streams the phased affordability analysis as NDJSON.
//
// # Description
//
// The response is written incrementally: market_data as soon as the
// snapshot lands, analysis when the report is computed, summary after
// synthesis, then the terminal complete event. A malformed profile yields
// a single error event on an HTTP 200 stream; HTTP errors are reserved
// for bodies that don't parse at all.
func HandleAnalysisStream(p *pipeline.Pipeline, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := analysisTracer.Start(c.Request.Context(), "HandleAnalysisStream")
		defer span.End()

		var req AnalysisStreamRequest
		if err := c.BindJSON(&req); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			logger.Warn("failed to parse analysis request", "error", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		SetStreamHeaders(c.Writer)
		writer, err := NewStreamWriter(c.Writer)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming not supported"})
			return
		}

		metrics := observability.DefaultMetrics
		metrics.StreamStarted(observability.EndpointAnalysisStream)
		defer metrics.StreamEnded(observability.EndpointAnalysisStream)

		start := time.Now()
		traceID := span.SpanContext().TraceID().String()

		emit := func(ev datatypes.StreamEvent) error {
			if ev.Market != nil {
				for _, field := range ev.Market.Fallbacks {
					metrics.RecordMarketFallback(field)
				}
			}
			if ev.Phase == datatypes.PhaseSummary && ev.SummaryFallback {
				metrics.RecordSummaryFallback()
			}
			return writer.WriteEvent(ev)
		}

		_, runErr := p.Run(ctx, &req.Profile, traceID, emit)
		success := runErr == nil

		metrics.RecordRequest(observability.EndpointAnalysisStream, success)
		metrics.RecordStreamDuration(observability.EndpointAnalysisStream, time.Since(start).Seconds(), success)

		if runErr != nil {
			span.RecordError(runErr)
			span.SetStatus(codes.Error, runErr.Error())
			logger.Warn("analysis stream ended early", "error", runErr)
		}
	}
}
