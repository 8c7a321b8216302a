// Copyright (C) 2026 NestReady Labs (oss@nestready.dev)
// Tests for advisor context shaping

package chatcontext

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nestready/nestready/pkg/logging"
	"github.com/nestready/nestready/services/llm"
	"github.com/nestready/nestready/services/orchestrator/datatypes"
)

type MockLLMClient struct {
	GenerateFunc func(ctx context.Context, prompt string, params llm.GenerationParams) (string, error)
}

func (m *MockLLMClient) Generate(ctx context.Context, prompt string, params llm.GenerationParams) (string, error) {
	return m.GenerateFunc(ctx, prompt, params)
}

func (m *MockLLMClient) Chat(ctx context.Context, messages []datatypes.Message, params llm.GenerationParams) (*llm.ChatResult, error) {
	return nil, errors.New("not implemented")
}

func quietLogger() *logging.Logger {
	return logging.New(logging.Config{Quiet: true})
}

// --- Token budget ---

func TestEstimateTokens(t *testing.T) {
	msgs := []datatypes.Message{
		{Role: "user", Content: "12345678"},       // ceil(8/4)=2 +4
		{Role: "assistant", Content: "123456789"}, // ceil(9/4)=3 +4
	}
	assert.Equal(t, 13, EstimateTokens(msgs))
}

func TestEstimateTokens_Empty(t *testing.T) {
	assert.Zero(t, EstimateTokens(nil))
	assert.Equal(t, 4, EstimateTokens([]datatypes.Message{{Role: "user"}}))
}

func makeHistory(n int) []datatypes.Message {
	msgs := make([]datatypes.Message, 0, n)
	for i := 0; i < n; i++ {
		role := "user"
		if i%2 == 1 {
			role = "assistant"
		}
		msgs = append(msgs, datatypes.Message{Role: role, Content: fmt.Sprintf("message number %d with some padding text", i)})
	}
	return msgs
}

func TestTruncateHistory_UnderBudgetUntouched(t *testing.T) {
	history := makeHistory(10)
	kept := TruncateHistory(history, 100000)
	assert.Len(t, kept, 10)
}

func TestTruncateHistory_DropsOldestFirst(t *testing.T) {
	history := makeHistory(20)
	kept := TruncateHistory(history, EstimateTokens(history)/2)

	require.Less(t, len(kept), 20)
	assert.Equal(t, history[len(history)-1].Content, kept[len(kept)-1].Content, "newest retained")
	assert.NotEqual(t, history[0].Content, kept[0].Content, "oldest dropped")
}

func TestTruncateHistory_FloorSixMessages(t *testing.T) {
	history := makeHistory(12)
	kept := TruncateHistory(history, 1)
	assert.Len(t, kept, MinRetainedMessages)
}

func TestTruncateHistory_ShortHistoryIgnoresBudget(t *testing.T) {
	history := makeHistory(4)
	kept := TruncateHistory(history, 1)
	assert.Len(t, kept, 4)
}

// --- Summarizer ---

func TestMaybeSummarize_BelowThresholdNoop(t *testing.T) {
	s := NewSummarizer(&MockLLMClient{GenerateFunc: func(ctx context.Context, prompt string, params llm.GenerationParams) (string, error) {
		t.Fatal("model must not be called below threshold")
		return "", nil
	}}, quietLogger())

	summary, history := s.MaybeSummarize(context.Background(), "prior", makeHistory(7))
	assert.Equal(t, "prior", summary)
	assert.Len(t, history, 7)
}

func TestMaybeSummarize_FoldsOlderMessages(t *testing.T) {
	var gotPrompt string
	s := NewSummarizer(&MockLLMClient{GenerateFunc: func(ctx context.Context, prompt string, params llm.GenerationParams) (string, error) {
		gotPrompt = prompt
		return "User is exploring a $365,000 purchase in Austin.", nil
	}}, quietLogger())

	summary, history := s.MaybeSummarize(context.Background(), "earlier summary", makeHistory(12))

	assert.Equal(t, "User is exploring a $365,000 purchase in Austin.", summary)
	assert.Len(t, history, SummaryKeepRecent)
	assert.Contains(t, gotPrompt, "earlier summary")
	assert.Contains(t, gotPrompt, "message number 0")
}

func TestMaybeSummarize_FailureKeepsPrevious(t *testing.T) {
	s := NewSummarizer(&MockLLMClient{GenerateFunc: func(ctx context.Context, prompt string, params llm.GenerationParams) (string, error) {
		return "", errors.New("model down")
	}}, quietLogger())

	summary, history := s.MaybeSummarize(context.Background(), "prior summary", makeHistory(12))
	assert.Equal(t, "prior summary", summary)
	assert.Len(t, history, 12)
}

func TestMaybeSummarize_CapsWordCount(t *testing.T) {
	long := strings.Repeat("word ", 400)
	s := NewSummarizer(&MockLLMClient{GenerateFunc: func(ctx context.Context, prompt string, params llm.GenerationParams) (string, error) {
		return long, nil
	}}, quietLogger())

	summary, _ := s.MaybeSummarize(context.Background(), "", makeHistory(12))
	assert.LessOrEqual(t, len(strings.Fields(summary)), 200)
}

// --- Persona hints ---

func TestPersonaHints_VAEligible(t *testing.T) {
	report := &datatypes.ComputedReport{
		Affordability: datatypes.AffordabilityReport{VAEligible: true, FHAEligible: true},
	}
	hints := PersonaHints(report)

	joined := strings.Join(hints, " ")
	assert.Contains(t, joined, "VA loan benefits")
	assert.NotContains(t, joined, "FHA financing", "VA supersedes the FHA hint")
}

func TestPersonaHints_DebtReductionFraming(t *testing.T) {
	report := &datatypes.ComputedReport{
		Affordability: datatypes.AffordabilityReport{BackEndDTI: 0.41},
	}
	hints := PersonaHints(report)
	assert.Contains(t, strings.Join(hints, " "), "reducing monthly debt")
}

func TestPersonaHints_Additive(t *testing.T) {
	report := &datatypes.ComputedReport{
		Affordability: datatypes.AffordabilityReport{VAEligible: true, BackEndDTI: 0.41},
		Risk:          datatypes.RiskReport{Level: datatypes.RiskHigh},
		Listing:       &datatypes.Listing{Address: "123 Oak St"},
	}
	hints := PersonaHints(report)
	assert.Len(t, hints, 4)
}

func TestPersonaHints_NilReport(t *testing.T) {
	assert.Empty(t, PersonaHints(nil))
}

// --- Session memory ---

func TestExtractFacts_Recalculation(t *testing.T) {
	facts := ExtractFacts("recalculate_affordability", `{"affordability":{"max_purchase_price":420000,"recommended_price":378000}}`)
	require.NotNil(t, facts)
	assert.Equal(t, "$420000", facts["max_price"])
	assert.Equal(t, "$378000", facts["recommended_price"])
}

func TestExtractFacts_PaymentKeyedByPrice(t *testing.T) {
	facts := ExtractFacts("calculate_payment", `{"home_price":400000,"monthly_payment":2210.55}`)
	require.NotNil(t, facts)
	assert.Equal(t, "$2210.55", facts["payment_400000"])
}

func TestExtractFacts_UnknownToolContributesNothing(t *testing.T) {
	assert.Nil(t, ExtractFacts("lookup_housing_programs", `{"programs":["FHA"]}`))
	assert.Nil(t, ExtractFacts("mystery_tool", `{"x":1}`))
}

func TestExtractFacts_MalformedJSON(t *testing.T) {
	assert.Nil(t, ExtractFacts("rent_vs_buy", `not json`))
}

func TestSessionMemory_LaterFactsOverwrite(t *testing.T) {
	m := NewSessionMemory()
	m.Merge("get_current_rates", `{"thirty_year_fixed":0.069}`)
	m.Merge("get_current_rates", `{"thirty_year_fixed":0.071}`)

	assert.Equal(t, "7.100%", m.Facts["rate_30y"])
	assert.Equal(t, []string{"get_current_rates", "get_current_rates"}, m.ToolsUsed)
}

func TestSessionMemory_Render(t *testing.T) {
	m := NewSessionMemory()
	m.Merge("rent_vs_buy", `{"verdict":"buy"}`)

	rendered := m.Render()
	assert.Contains(t, rendered, "rent_vs_buy_verdict: buy")
	assert.Empty(t, NewSessionMemory().Render())
}

// --- Tool cache keys ---

func TestToolCacheKey_Canonical(t *testing.T) {
	a := ToolCacheKey("s1", "calculate_payment", map[string]any{"homePrice": 400000.0, "rate": 0.069})
	b := ToolCacheKey("s1", "calculate_payment", map[string]any{"rate": 0.069, "homePrice": 400000.0})
	assert.Equal(t, a, b, "key order must not matter")
	assert.True(t, strings.HasPrefix(a, "tool:s1:calculate_payment:"))
}

func TestToolCacheKey_DistinctInputsDistinctKeys(t *testing.T) {
	a := ToolCacheKey("s1", "calculate_payment", map[string]any{"homePrice": 400000.0})
	b := ToolCacheKey("s1", "calculate_payment", map[string]any{"homePrice": 410000.0})
	assert.NotEqual(t, a, b)
}

func TestToolCacheKey_DistinctScopesDistinctKeys(t *testing.T) {
	input := map[string]any{"homePrice": 400000.0}
	a := ToolCacheKey("s1", "calculate_payment", input)
	b := ToolCacheKey("s2", "calculate_payment", input)
	assert.NotEqual(t, a, b, "identical inputs in different scopes must not collide")
}

func TestToolTTL_PerClass(t *testing.T) {
	assert.Equal(t, finmathToolTTL, ToolTTL("stress_test"))
	assert.Equal(t, liveToolTTL, ToolTTL("get_current_rates"))
	assert.Equal(t, areaToolTTL, ToolTTL("search_area_info"))
	assert.Equal(t, liveToolTTL, ToolTTL("unknown_tool"))
}
