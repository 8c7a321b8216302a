// Copyright (C) 2026 NestReady Labs (oss@nestready.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package chatcontext

import (
	"context"
	"fmt"
	"strings"

	"github.com/nestready/nestready/pkg/logging"
	"github.com/nestready/nestready/services/llm"
	"github.com/nestready/nestready/services/orchestrator/datatypes"
)

// Summarization thresholds.
const (
	// SummarizeAtMessages triggers a rolling summary once the history
	// reaches this length.
	SummarizeAtMessages = 8

	// SummaryKeepRecent messages stay verbatim after summarization.
	SummaryKeepRecent = 8

	// summaryWordCap bounds the rolling summary length.
	summaryWordCap = 200
)

// Summarizer maintains a rolling conversation summary via a cheap model.
//
// # Thread Safety
//
// Safe for concurrent use; all state lives in the caller's arguments.
type Summarizer struct {
	client llm.LLMClient
	logger *logging.Logger
}

// NewSummarizer wires a summarizer over the given model client.
func NewSummarizer(client llm.LLMClient, logger *logging.Logger) *Summarizer {
	if logger == nil {
		logger = logging.Default()
	}
	return &Summarizer{client: client, logger: logger}
}

// MaybeSummarize folds older history into the rolling summary.
//
// # Description
//
// Below the threshold this is a no-op. At or above it, everything except
// the last SummaryKeepRecent messages is summarized together with the
// prior summary and replaced by the merged text. On model failure the
// previous summary and full history are returned unchanged; summarization
// is an optimization, never a correctness requirement.
//
// # Outputs
//
//   - string: the (possibly unchanged) rolling summary.
//   - []datatypes.Message: the history to keep verbatim.
func (s *Summarizer) MaybeSummarize(ctx context.Context, priorSummary string, history []datatypes.Message) (string, []datatypes.Message) {
	if len(history) < SummarizeAtMessages {
		return priorSummary, history
	}

	older := history[:len(history)-SummaryKeepRecent]
	recent := history[len(history)-SummaryKeepRecent:]
	if len(older) == 0 {
		return priorSummary, history
	}

	var transcript strings.Builder
	for _, msg := range older {
		if msg.Role != "user" && msg.Role != "assistant" {
			continue
		}
		transcript.WriteString(msg.Role)
		transcript.WriteString(": ")
		transcript.WriteString(msg.Content)
		transcript.WriteString("\n")
	}

	prompt := fmt.Sprintf(`Merge the existing summary and the new conversation turns into one summary of at most %d words. Keep concrete numbers (prices, payments, rates) and the user's stated goals. Reply with the summary only.

Existing summary:
%s

New turns:
%s`, summaryWordCap, priorSummary, transcript.String())

	maxTokens := 400
	var temperature float32 = 0
	merged, err := s.client.Generate(ctx, prompt, llm.GenerationParams{
		MaxTokens:   &maxTokens,
		Temperature: &temperature,
	})
	if err != nil {
		s.logger.Warn("summarization failed, keeping previous summary", "error", err)
		return priorSummary, history
	}

	merged = strings.TrimSpace(merged)
	if merged == "" {
		return priorSummary, history
	}
	merged = capWords(merged, summaryWordCap)

	s.logger.Debug("history summarized", "folded_messages", len(older), "kept", len(recent))
	return merged, recent
}

// capWords truncates text to at most n words.
func capWords(text string, n int) string {
	words := strings.Fields(text)
	if len(words) <= n {
		return text
	}
	return strings.Join(words[:n], " ")
}
