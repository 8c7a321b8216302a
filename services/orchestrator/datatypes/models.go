// Copyright (C) 2026 NestReady Labs (oss@nestready.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package datatypes provides the shared data structures for the advisor
// orchestrator: user profiles, market snapshots, computed reports, stream
// events, and chat message types.
//
// This package is a leaf dependency. It must not import any other
// nestready service package.
package datatypes

import (
	"github.com/google/uuid"
)

// Message is a single conversation turn exchanged with the model.
//
// # Description
//
// Message carries one entry of conversation history. Ordinary turns have
// Role "user", "assistant", or "system" and a text Content. When the model
// requests tool execution, the assistant message carries ToolCalls; the
// corresponding results are appended as Role "tool" messages whose
// ToolCallID links them back to the request.
//
// # Thread Safety
//
// Message is a value type; copies are safe for concurrent reads.
type Message struct {
	Role    string `json:"role" validate:"required,oneof=system user assistant tool"`
	Content string `json:"content" validate:"maxbytes"`

	// ToolCalls is populated on assistant messages that request tool use.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`

	// ToolCallID links a Role "tool" message to the assistant request it
	// answers. Empty for all other roles.
	ToolCallID string `json:"tool_call_id,omitempty"`

	// Name is the tool name on Role "tool" messages.
	Name string `json:"name,omitempty"`
}

// ToolCall is a model-issued request to execute a named tool.
//
// Tool calls are stateless given their input: identical (Name, Input)
// pairs are cache-eligible and must produce identical results within a
// cache TTL window.
type ToolCall struct {
	// ID identifies the call within the turn (provider-assigned).
	ID string `json:"id"`

	// Name is the tool to invoke. Must match a registered tool.
	Name string `json:"name"`

	// Input is the structured tool input as decoded JSON.
	Input map[string]any `json:"input"`
}

// generateUUID returns a new UUID v4 string for request/response/event ids.
func generateUUID() string {
	return uuid.New().String()
}
