// Copyright (C) 2026 NestReady Labs (oss@nestready.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/nestready/nestready/pkg/logging"
	"github.com/nestready/nestready/services/advisor/loop"
	"github.com/nestready/nestready/services/orchestrator/datatypes"
	"github.com/nestready/nestready/services/orchestrator/observability"
)

var chatTracer = otel.Tracer("nestready.orchestrator.handlers")

// resolveState loads or creates the conversation state for a chat request.
//
// Session state wins over request-carried history. When the client sent no
// session id a fresh one is minted so the response can hand it back for
// the next turn.
func resolveState(store *loop.SessionStore, req *datatypes.AdvisorChatRequest) *loop.ConversationState {
	if state, ok := store.Get(req.SessionID); ok {
		return state
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.New().String()
	}
	state := loop.NewConversationState(sessionID)
	state.Report = req.Report
	state.History = req.History
	return state
}

// HandleAdvisorChat answers one advisor chat turn.
//
// # Description
//
// Binds and validates the request, resolves session state, runs the
// guarded tool-use loop, and persists the updated state. Guardrail
// refusals are HTTP 200 with Refused set; the refusal text is the answer.
func HandleAdvisorChat(advisor *loop.Advisor, store *loop.SessionStore, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := chatTracer.Start(c.Request.Context(), "HandleAdvisorChat")
		defer span.End()

		var req datatypes.AdvisorChatRequest
		if err := c.BindJSON(&req); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			logger.Warn("failed to parse chat request", "error", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		if err := req.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		req.EnsureDefaults()

		metrics := observability.DefaultMetrics
		state := resolveState(store, &req)

		resp, err := advisor.Answer(ctx, state, &req, func(ev loop.ToolEvent) {
			metrics.RecordToolExecution(ev.Tool, string(ev.Outcome))
		})
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			logger.Error("advisor turn failed", "error", err, "session", state.SessionID)
			metrics.RecordRequest(observability.EndpointAdvisorChat, false)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "advisor is unavailable right now"})
			return
		}

		if resp.Refused {
			metrics.RecordGuardrailDenial(resp.RefusalReason)
		} else {
			store.Put(state)
			metrics.RecordLoopIterations(1 + len(resp.ToolsUsed))
		}
		metrics.RecordRequest(observability.EndpointAdvisorChat, true)

		c.JSON(http.StatusOK, resp)
	}
}
