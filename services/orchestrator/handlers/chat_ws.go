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
	"github.com/gorilla/websocket"

	"github.com/nestready/nestready/pkg/logging"
	"github.com/nestready/nestready/services/advisor/loop"
	"github.com/nestready/nestready/services/orchestrator/datatypes"
	"github.com/nestready/nestready/services/orchestrator/observability"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  64 * 1024,
	WriteBufferSize: 64 * 1024,
}

// WSFrame is one server-to-client message on the advisor socket.
//
// Type is "session_created", "tool", or "answer". Tool frames stream
// progress while the advisor works; the answer frame closes the turn.
type WSFrame struct {
	Type     string                         `json:"type"`
	Session  string                         `json:"session_id,omitempty"`
	Tool     string                         `json:"tool,omitempty"`
	Outcome  string                         `json:"outcome,omitempty"`
	Response *datatypes.AdvisorChatResponse `json:"response,omitempty"`
	Error    string                         `json:"error,omitempty"`
}

func sendFrame(ws *websocket.Conn, logger *logging.Logger, frame WSFrame) error {
	if err := ws.WriteJSON(frame); err != nil {
		logger.Warn("failed to write websocket frame", "error", err)
		return err
	}
	return nil
}

// HandleAdvisorWebSocket runs advisor chat turns over a WebSocket.
//
// # Description
//
// On connect the handler mints a session, announces it, then answers each
// incoming AdvisorChatRequest. Tool executions stream back as progress
// frames while the turn runs, so clients can show what the advisor is
// doing before the answer arrives. The socket session persists across
// turns until disconnect or TTL expiry.
func HandleAdvisorWebSocket(advisor *loop.Advisor, store *loop.SessionStore, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Error("failed to upgrade the websocket", "error", err)
			return
		}
		defer ws.Close()

		metrics := observability.DefaultMetrics
		metrics.StreamStarted(observability.EndpointAdvisorWS)
		defer metrics.StreamEnded(observability.EndpointAdvisorWS)

		sessionID := uuid.New().String()
		logger.Info("websocket session started", "session", sessionID)

		if err := sendFrame(ws, logger, WSFrame{Type: "session_created", Session: sessionID}); err != nil {
			return
		}

		for {
			var req datatypes.AdvisorChatRequest
			if err := ws.ReadJSON(&req); err != nil {
				logger.Info("websocket client disconnected", "session", sessionID)
				return
			}
			req.SessionID = sessionID
			if err := req.Validate(); err != nil {
				if sendFrame(ws, logger, WSFrame{Type: "answer", Error: err.Error()}) != nil {
					return
				}
				continue
			}
			req.EnsureDefaults()

			state, ok := store.Get(sessionID)
			if !ok {
				state = loop.NewConversationState(sessionID)
				state.Report = req.Report
				state.History = req.History
			}

			resp, err := advisor.Answer(c.Request.Context(), state, &req, func(ev loop.ToolEvent) {
				metrics.RecordToolExecution(ev.Tool, string(ev.Outcome))
				_ = sendFrame(ws, logger, WSFrame{Type: "tool", Tool: ev.Tool, Outcome: string(ev.Outcome)})
			})
			if err != nil {
				logger.Error("advisor turn failed on websocket", "error", err, "session", sessionID)
				metrics.RecordRequest(observability.EndpointAdvisorWS, false)
				if sendFrame(ws, logger, WSFrame{Type: "answer", Error: "advisor is unavailable right now"}) != nil {
					return
				}
				continue
			}

			if resp.Refused {
				metrics.RecordGuardrailDenial(resp.RefusalReason)
			} else {
				store.Put(state)
			}
			metrics.RecordRequest(observability.EndpointAdvisorWS, true)

			if sendFrame(ws, logger, WSFrame{Type: "answer", Response: resp}) != nil {
				return
			}
		}
	}
}
