// Copyright (C) 2026 NestReady Labs (oss@nestready.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

import (
	"fmt"
	"time"
)

// =============================================================================
// Advisor Chat Request
// =============================================================================

// AdvisorChatRequest is a follow-up question about a completed analysis.
//
// # Description
//
// The client sends the user's message plus either a session ID referencing
// server-side conversation state, or an inline report and history for
// stateless operation. When both are present the session state wins.
//
// # Inputs
//
//   - RequestID: Optional. Generated server-side when absent (UUID v4).
//   - SessionID: Optional. Continues an existing advisor conversation.
//   - Message: Required. The user's question, at most 2000 characters after
//     guardrail screening.
//   - Report: Optional. The computed report the conversation is anchored to.
//   - History: Optional. Prior turns for stateless clients, capped at 100.
type AdvisorChatRequest struct {
	RequestID string          `json:"request_id,omitempty" validate:"omitempty,uuid4"`
	SessionID string          `json:"session_id,omitempty" validate:"omitempty,uuid4"`
	Message   string          `json:"message" validate:"required,max=8000"`
	Report    *ComputedReport `json:"report,omitempty"`
	History   []Message       `json:"history,omitempty" validate:"max=100,dive"`
}

// Validate checks structural constraints before guardrails run.
func (r *AdvisorChatRequest) Validate() error {
	if err := profileValidate.Struct(r); err != nil {
		return fmt.Errorf("chat request schema: %w", err)
	}
	return nil
}

// EnsureDefaults populates RequestID when the client omitted it.
func (r *AdvisorChatRequest) EnsureDefaults() {
	if r.RequestID == "" {
		r.RequestID = generateUUID()
	}
}

// =============================================================================
// Advisor Chat Response
// =============================================================================

// AdvisorChatResponse is the advisor's answer to a chat turn.
type AdvisorChatResponse struct {
	RequestID string `json:"request_id"`
	SessionID string `json:"session_id,omitempty"`
	Answer    string `json:"answer"`

	// ToolsUsed lists tools the advisor executed this turn, in order.
	ToolsUsed []string `json:"tools_used,omitempty"`

	// Corrected is true when the fact-check layer replaced a numeric claim.
	Corrected bool `json:"corrected,omitempty"`

	// Refused is true when a guardrail declined the message. Answer then
	// carries the refusal text and RefusalReason the denial category.
	Refused       bool   `json:"refused,omitempty"`
	RefusalReason string `json:"refusal_reason,omitempty"`

	CreatedAt int64 `json:"created_at"`
}

// NewAdvisorChatResponse builds a response with correlation metadata set.
func NewAdvisorChatResponse(requestID, sessionID, answer string) *AdvisorChatResponse {
	return &AdvisorChatResponse{
		RequestID: requestID,
		SessionID: sessionID,
		Answer:    answer,
		CreatedAt: time.Now().UnixMilli(),
	}
}
