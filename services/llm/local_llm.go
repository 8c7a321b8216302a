package llm

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/nestready/nestready/services/orchestrator/datatypes"
)

// LocalClient talks to any OpenAI-compatible inference server (llama.cpp,
// vLLM, Ollama's compat endpoint) through the go-openai client.
type LocalClient struct {
	inner *OpenAIClient
}

func NewLocalClient() (*LocalClient, error) {
	baseURL := os.Getenv("LLM_SERVICE_URL_BASE")
	if baseURL == "" {
		return nil, fmt.Errorf("LLM_SERVICE_URL_BASE environment variable not set")
	}
	baseURL = strings.TrimSuffix(baseURL, "/")

	model := os.Getenv("LOCAL_MODEL")
	if model == "" {
		// llama.cpp serves a single model and ignores the name, but the
		// field must be non-empty.
		model = "local"
	}

	config := openai.DefaultConfig(os.Getenv("LLM_SERVICE_API_KEY"))
	config.BaseURL = baseURL + "/v1"

	slog.Info("Initializing local LLM client", "base_url", config.BaseURL, "model", model)
	return &LocalClient{
		inner: &OpenAIClient{
			client: openai.NewClientWithConfig(config),
			model:  model,
		},
	}, nil
}

// Generate implements the LLMClient interface
func (l *LocalClient) Generate(ctx context.Context, prompt string, params GenerationParams) (string, error) {
	return l.inner.Generate(ctx, prompt, params)
}

// Chat implements the LLMClient interface
func (l *LocalClient) Chat(ctx context.Context, messages []datatypes.Message, params GenerationParams) (*ChatResult, error) {
	return l.inner.Chat(ctx, messages, params)
}
