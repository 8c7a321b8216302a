// Copyright (C) 2026 NestReady Labs (oss@nestready.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package loop runs the advisor's tool-use conversation: guarded input,
// bounded tool iterations, fact-checked output.
package loop

import (
	"context"
	"fmt"
	"strings"

	"github.com/nestready/nestready/pkg/logging"
	"github.com/nestready/nestready/services/advisor/chatcontext"
	"github.com/nestready/nestready/services/advisor/guardrails"
	"github.com/nestready/nestready/services/advisor/tools"
	"github.com/nestready/nestready/services/llm"
	"github.com/nestready/nestready/services/marketdata"
	"github.com/nestready/nestready/services/orchestrator/datatypes"
)

// MaxIterations caps model calls per turn. A turn that still wants tools
// after the last call gets the exhaustion answer instead.
const MaxIterations = 5

// historyTokenBudget is the estimate the truncated history must fit in,
// leaving headroom for the system prompt, tool schemas, and the reply.
const historyTokenBudget = 6000

const exhaustionAnswer = "I wasn't able to finish working through that with the tools " +
	"available. Here's what I can say so far based on your analysis; could you " +
	"narrow the question down?"

const advisorPersona = `You are a careful home affordability advisor. Ground every number
you state in the analysis report or in a tool result from this conversation.
Use the tools to recalculate rather than estimating in your head. Keep
answers short and concrete.`

// ToolEvent reports one tool execution to an observer, in call order.
type ToolEvent struct {
	Tool    string            `json:"tool"`
	Outcome tools.ExecOutcome `json:"outcome"`
}

// Observer receives tool progress during a turn. May be nil.
type Observer func(ToolEvent)

// Config holds the advisor's collaborators.
type Config struct {
	Model       llm.LLMClient
	Executor    *tools.Executor
	InputGuard  *guardrails.InputGuard
	FactChecker *guardrails.FactChecker
	Summarizer  *chatcontext.Summarizer
	Logger      *logging.Logger
}

func applyAdvisorDefaults(config Config) Config {
	if config.Logger == nil {
		config.Logger = logging.New(logging.Config{Quiet: true})
	}
	if config.InputGuard == nil {
		config.InputGuard = guardrails.NewInputGuard(guardrails.InputGuardConfig{Logger: config.Logger})
	}
	if config.FactChecker == nil {
		config.FactChecker = guardrails.NewFactChecker(guardrails.DefaultDeviationThreshold)
	}
	return config
}

// Advisor answers chat turns with bounded tool use.
//
// # Thread Safety
//
// Immutable after construction. Per-turn state lives in the
// ConversationState the caller passes in.
type Advisor struct {
	model       llm.LLMClient
	executor    *tools.Executor
	guard       *guardrails.InputGuard
	factChecker *guardrails.FactChecker
	summarizer  *chatcontext.Summarizer
	logger      *logging.Logger
}

// New constructs an Advisor.
func New(config Config) (*Advisor, error) {
	config = applyAdvisorDefaults(config)
	if config.Model == nil {
		return nil, fmt.Errorf("advisor requires a model client")
	}
	if config.Executor == nil {
		return nil, fmt.Errorf("advisor requires a tool executor")
	}
	return &Advisor{
		model:       config.Model,
		executor:    config.Executor,
		guard:       config.InputGuard,
		factChecker: config.FactChecker,
		summarizer:  config.Summarizer,
		logger:      config.Logger,
	}, nil
}

// Answer runs one conversation turn.
//
// # Description
//
// The message passes the input guard first; a denial returns immediately
// with Refused set and the canned refusal as the answer. Otherwise the
// history may be folded into the rolling summary, the model is called with
// the tool schemas, and each requested tool call is validated, executed,
// and fed back until the model answers in text or the iteration cap is
// reached. The final text is fact-checked against the anchored report and
// a correction footnote is appended when numbers drift.
//
// State is updated in place: the user message and final answer join the
// history, and tool facts merge into session memory. The caller persists
// the state afterwards.
func (a *Advisor) Answer(ctx context.Context, state *ConversationState, req *datatypes.AdvisorChatRequest, observe Observer) (*datatypes.AdvisorChatResponse, error) {
	if state.Memory == nil {
		state.Memory = chatcontext.NewSessionMemory()
	}

	verdict := a.guard.Check(ctx, req.Message)
	if !verdict.Allowed {
		a.logger.Info("chat message refused", "reason", verdict.Reason, "session", state.SessionID)
		resp := datatypes.NewAdvisorChatResponse(req.RequestID, state.SessionID, verdict.Response)
		resp.Refused = true
		resp.RefusalReason = verdict.Reason
		return resp, nil
	}

	if a.summarizer != nil {
		state.Summary, state.History = a.summarizer.MaybeSummarize(ctx, state.Summary, state.History)
	}

	binding := a.binding(state)
	messages := a.buildMessages(state, req.Message)
	params := llm.GenerationParams{ToolDefinitions: tools.Definitions()}

	var toolsUsed []string
	var answer string

	for iteration := 0; iteration < MaxIterations; iteration++ {
		result, err := a.model.Chat(ctx, messages, params)
		if err != nil {
			return nil, fmt.Errorf("advisor model call: %w", err)
		}

		if len(result.ToolCalls) == 0 {
			answer = strings.TrimSpace(result.Text)
			break
		}

		messages = append(messages, datatypes.Message{
			Role:      "assistant",
			Content:   result.Text,
			ToolCalls: result.ToolCalls,
		})

		for _, call := range result.ToolCalls {
			output, outcome, err := a.executor.Execute(ctx, binding, call.Name, call.Input)
			if err != nil {
				output = fmt.Sprintf("tool failed: %v", err)
			}
			if observe != nil {
				observe(ToolEvent{Tool: call.Name, Outcome: outcome})
			}
			if outcome == tools.OutcomeSuccess || outcome == tools.OutcomeCacheHit {
				state.Memory.Merge(call.Name, output)
				toolsUsed = append(toolsUsed, call.Name)
			}
			messages = append(messages, datatypes.Message{
				Role:       "tool",
				Content:    output,
				ToolCallID: call.ID,
				Name:       call.Name,
			})
		}
	}

	if answer == "" {
		a.logger.Warn("tool iterations exhausted", "session", state.SessionID, "tools", len(toolsUsed))
		answer = exhaustionAnswer
	}

	corrected := false
	if check := a.factChecker.Check(answer, state.Report); check.CorrectionNote != "" {
		answer = answer + "\n\n" + check.CorrectionNote
		corrected = true
	}

	state.History = append(state.History,
		datatypes.Message{Role: "user", Content: req.Message},
		datatypes.Message{Role: "assistant", Content: answer},
	)

	resp := datatypes.NewAdvisorChatResponse(req.RequestID, state.SessionID, answer)
	resp.ToolsUsed = toolsUsed
	resp.Corrected = corrected
	return resp, nil
}

// binding fixes the profile and market the turn's tool calls run against.
// Missing pieces fall back to defaults so a stateless chat still has a
// consistent market to calculate in.
func (a *Advisor) binding(state *ConversationState) *tools.Binding {
	profile := state.Profile
	if profile == nil {
		profile = &datatypes.Profile{}
	}
	market := state.Market
	if market == nil {
		market = &datatypes.MarketSnapshot{
			Rates: datatypes.RateTable{
				ThirtyYearFixed:  marketdata.FallbackThirtyYearRate,
				FifteenYearFixed: marketdata.FallbackFifteenYearRate,
				FiveOneARM:       marketdata.FallbackFiveOneARMRate,
			},
			Inflation: datatypes.InflationSeries{AnnualRate: marketdata.FallbackInflationRate},
			Area: datatypes.AreaInfo{
				MedianPrice:     marketdata.FallbackMedianPrice,
				PropertyTaxRate: marketdata.FallbackPropertyTaxRate,
				AnnualInsurance: marketdata.FallbackAnnualInsurance,
			},
			Fallbacks: []string{"rates", "inflation", "area"},
		}
	}
	return &tools.Binding{Profile: profile, Market: market}
}

// buildMessages assembles the system prompt and the truncated history.
func (a *Advisor) buildMessages(state *ConversationState, userMessage string) []datatypes.Message {
	var b strings.Builder
	b.WriteString(advisorPersona)

	if hints := chatcontext.PersonaHints(state.Report); len(hints) > 0 {
		b.WriteString("\n\nGuidance for this buyer:\n")
		for _, hint := range hints {
			b.WriteString("- ")
			b.WriteString(hint)
			b.WriteString("\n")
		}
	}

	if state.Report != nil {
		afford := state.Report.Affordability
		fmt.Fprintf(&b, "\nAnalysis anchor: max purchase price $%.0f, recommended price $%.0f, monthly payment $%.2f, risk level %s, 30-year rate %.3f.\n",
			afford.MaxPurchasePrice, afford.RecommendedPrice, afford.MonthlyPayment,
			state.Report.Risk.Level, state.Report.ThirtyYearRate)
	}

	if facts := state.Memory.Render(); facts != "" {
		b.WriteString("\nEstablished in this conversation:\n")
		b.WriteString(facts)
	}

	if state.Summary != "" {
		b.WriteString("\nEarlier conversation summary: ")
		b.WriteString(state.Summary)
		b.WriteString("\n")
	}

	system := guardrails.Harden(b.String())

	history := chatcontext.TruncateHistory(state.History, historyTokenBudget)
	messages := make([]datatypes.Message, 0, len(history)+2)
	messages = append(messages, datatypes.Message{Role: "system", Content: system})
	messages = append(messages, history...)
	messages = append(messages, datatypes.Message{Role: "user", Content: userMessage})
	return messages
}
