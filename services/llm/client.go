package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/nestready/nestready/services/orchestrator/datatypes"
)

type GenerationParams struct {
	Temperature *float32 `json:"temperature"`
	TopK        *int     `json:"top_k"`
	TopP        *float32 `json:"top_p"`
	MaxTokens   *int     `json:"max_tokens"`
	Stop        []string `json:"stop"`

	// ToolDefinitions exposes callable tools on Chat requests. Backends
	// that cannot express tools ignore it.
	ToolDefinitions []ToolDefinition `json:"tool_definitions,omitempty"`
}

// ToolDefinition describes one callable tool in provider-neutral form.
// InputSchema is a JSON Schema object.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

// ChatResult is a single assistant turn. When the model requested tool
// calls, ToolCalls is non-empty and Text may be empty.
type ChatResult struct {
	Text       string               `json:"text"`
	ToolCalls  []datatypes.ToolCall `json:"tool_calls,omitempty"`
	StopReason string               `json:"stop_reason"`
}

// LLMClient defines the standard interface for any LLM backend.
type LLMClient interface {
	Generate(ctx context.Context, prompt string, params GenerationParams) (string, error)
	Chat(ctx context.Context, messages []datatypes.Message, params GenerationParams) (*ChatResult, error)
}

// NewClient builds a client for the named backend: "openai", "anthropic",
// or "local" (any OpenAI-compatible server such as llama.cpp).
func NewClient(backend string) (LLMClient, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "openai":
		return NewOpenAIClient()
	case "anthropic":
		return NewAnthropicClient()
	case "local", "":
		return NewLocalClient()
	default:
		return nil, fmt.Errorf("unknown LLM backend %q", backend)
	}
}
