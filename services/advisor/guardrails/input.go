// Copyright (C) 2026 NestReady Labs (oss@nestready.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package guardrails

import (
	"context"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/nestready/nestready/pkg/logging"
	"github.com/nestready/nestready/services/llm"
)

// =============================================================================
// Configuration
// =============================================================================

// InputGuardConfig tunes the input screening layer. Zero values take the
// documented defaults.
type InputGuardConfig struct {
	// MaxMessageChars denies anything longer. Default 2000.
	MaxMessageChars int

	// ClassifierBypassChars skips the topic classifier for messages
	// shorter than this ("yes", "ok", "thanks"). Default 12.
	ClassifierBypassChars int

	// InjectionPatterns override the built-in injection regex set.
	InjectionPatterns []*regexp.Regexp

	// Classifier is the cheap model used for on/off-topic screening.
	// Nil disables classification (everything not injected is allowed).
	Classifier llm.LLMClient

	Logger *logging.Logger
}

func applyInputGuardDefaults(config InputGuardConfig) InputGuardConfig {
	if config.MaxMessageChars == 0 {
		config.MaxMessageChars = 2000
	}
	if config.ClassifierBypassChars == 0 {
		config.ClassifierBypassChars = 12
	}
	if config.InjectionPatterns == nil {
		config.InjectionPatterns = defaultInjectionPatterns
	}
	if config.Logger == nil {
		config.Logger = logging.Default()
	}
	return config
}

var defaultInjectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)ignore\s+(all\s+|any\s+)?(previous|prior|above)\s+(instructions|prompts|rules)`),
	regexp.MustCompile(`(?i)(reveal|show|print|repeat|display)\s+(your\s+|the\s+)?(system\s+prompt|instructions|initial\s+prompt)`),
	regexp.MustCompile(`(?i)\bjailbreak\b`),
	regexp.MustCompile(`(?i)\bDAN\s+mode\b`),
	regexp.MustCompile(`(?i)\bdo\s+anything\s+now\b`),
	regexp.MustCompile(`(?i)you\s+are\s+now\s+(a|an|the)\b`),
	regexp.MustCompile(`(?i)pretend\s+(that\s+)?you\s+are\b`),
	regexp.MustCompile(`(?i)disregard\s+(all\s+)?(previous|your)\s+(instructions|guidelines|training)`),
	regexp.MustCompile(`(?i)act\s+as\s+if\s+you\s+(have\s+no|had\s+no)\s+(restrictions|rules|guidelines)`),
}

const (
	tooLongResponse = "That message is too long for me to take in at once. Could you trim it down to the key question about your home affordability analysis?"

	injectionResponse = "I can only help with questions about your home affordability analysis. What would you like to know about your numbers?"

	offTopicResponse = "I'm your home affordability advisor, so I'll stick to questions about buying a home, your budget, and your analysis. Is there anything about those I can help with?"
)

// classifierPrompt asks for a single token so the cheap model cannot
// ramble its way into ambiguity.
const classifierPrompt = `You are a topic classifier for a home affordability advisor. The advisor answers questions about home buying, mortgages, budgets, rent vs buy decisions, housing programs, and a user's affordability analysis.

Classify the following user message as ON or OFF topic. Reply with exactly one word: ON or OFF.

Message: %s`

// =============================================================================
// Input Guard
// =============================================================================

// InputGuard is the first guardrail layer: length, injection patterns,
// then on/off-topic classification.
//
// # Description
//
// Checks run cheapest-first. The classifier is only consulted for
// messages long enough to carry intent, and its failure is treated as
// ON topic so a dead classifier never locks users out.
//
// # Thread Safety
//
// Safe for concurrent use.
type InputGuard struct {
	config InputGuardConfig
}

// NewInputGuard builds the guard with defaults applied.
func NewInputGuard(config InputGuardConfig) *InputGuard {
	return &InputGuard{config: applyInputGuardDefaults(config)}
}

// Check screens a user message before any model sees it.
//
// # Inputs
//
//   - ctx: bounds the optional classifier call.
//   - message: raw user message.
//
// # Outputs
//
//   - Verdict: Allowed or a denial with reason and canned response.
func (g *InputGuard) Check(ctx context.Context, message string) Verdict {
	chars := utf8.RuneCountInString(message)
	if chars > g.config.MaxMessageChars {
		g.config.Logger.Info("input denied", "reason", ReasonTooLong, "chars", chars)
		return Verdict{Allowed: false, Reason: ReasonTooLong, Response: tooLongResponse}
	}

	for _, pattern := range g.config.InjectionPatterns {
		if pattern.MatchString(message) {
			g.config.Logger.Warn("input denied", "reason", ReasonInjection, "pattern", pattern.String())
			return Verdict{Allowed: false, Reason: ReasonInjection, Response: injectionResponse}
		}
	}

	// Short acknowledgements skip classification.
	if chars < g.config.ClassifierBypassChars {
		return Verdict{Allowed: true}
	}

	if g.config.Classifier == nil {
		return Verdict{Allowed: true}
	}

	label, err := g.classify(ctx, message)
	if err != nil {
		// Fail open: a broken classifier must not block users.
		g.config.Logger.Warn("topic classifier failed, allowing message", "error", err)
		return Verdict{Allowed: true}
	}
	if label == "OFF" {
		g.config.Logger.Info("input denied", "reason", ReasonOffTopic)
		return Verdict{Allowed: false, Reason: ReasonOffTopic, Response: offTopicResponse}
	}
	return Verdict{Allowed: true}
}

func (g *InputGuard) classify(ctx context.Context, message string) (string, error) {
	maxTokens := 4
	var temperature float32 = 0
	raw, err := g.config.Classifier.Generate(ctx, strings.Replace(classifierPrompt, "%s", message, 1), llm.GenerationParams{
		MaxTokens:   &maxTokens,
		Temperature: &temperature,
	})
	if err != nil {
		return "", err
	}

	label := strings.ToUpper(strings.TrimSpace(raw))
	if strings.HasPrefix(label, "OFF") {
		return "OFF", nil
	}
	// Anything else, including malformed output, counts as ON.
	return "ON", nil
}
