// Copyright (C) 2026 NestReady Labs (oss@nestready.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package chatcontext shapes what the advisor model sees each turn: token
// budgeting, history truncation, rolling summaries, persona hints, session
// facts, and tool-result cache keys.
package chatcontext

import "github.com/nestready/nestready/services/orchestrator/datatypes"

// MinRetainedMessages is the truncation floor: the most recent messages
// are always kept regardless of budget.
const MinRetainedMessages = 6

// messageOverheadTokens approximates per-message framing cost.
const messageOverheadTokens = 4

// EstimateTokens approximates the token count of a message list using the
// 4-chars-per-token heuristic plus a fixed per-message overhead.
func EstimateTokens(messages []datatypes.Message) int {
	total := 0
	for _, msg := range messages {
		total += (len(msg.Content)+3)/4 + messageOverheadTokens
	}
	return total
}

// TruncateHistory drops the oldest messages until the estimate fits the
// budget.
//
// # Description
//
// Messages are removed from the front in pairs where possible so a user
// turn and its reply leave together. The last MinRetainedMessages are
// never dropped, even when still over budget; the caller reserves budget
// for the system prompt, tool definitions, and output headroom before
// calling.
func TruncateHistory(history []datatypes.Message, budget int) []datatypes.Message {
	if len(history) <= MinRetainedMessages {
		return history
	}

	trimmed := history
	for EstimateTokens(trimmed) > budget && len(trimmed) > MinRetainedMessages {
		drop := 1
		// Drop a user/assistant pair together when the window allows.
		if len(trimmed)-2 >= MinRetainedMessages &&
			trimmed[0].Role == "user" && trimmed[1].Role == "assistant" {
			drop = 2
		}
		trimmed = trimmed[drop:]
	}
	return trimmed
}
