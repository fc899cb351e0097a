package narrative

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/ashita-ai/kenko/internal/model"
)

// DefaultOpenAIModel is used when no model is configured.
const DefaultOpenAIModel = "gpt-4o-mini"

// OpenAINarrator enriches briefs through an OpenAI-compatible chat
// completions endpoint. Ollama is served through its /v1 compatibility API.
type OpenAINarrator struct {
	client *openai.Client
	model  string
}

// NewOpenAINarrator calls the hosted OpenAI API.
func NewOpenAINarrator(apiKey, model string) *OpenAINarrator {
	return newNarrator(openai.DefaultConfig(apiKey), model, DefaultOpenAIModel)
}

// NewOllamaNarrator calls a local Ollama server. The model should be a chat
// model such as qwen2.5:3b.
func NewOllamaNarrator(baseURL, model string) *OpenAINarrator {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	cfg := openai.DefaultConfig("ollama")
	cfg.BaseURL = strings.TrimRight(baseURL, "/") + "/v1"
	return newNarrator(cfg, model, "qwen2.5:3b")
}

// NewCompatibleNarrator calls any OpenAI-compatible endpoint at baseURL.
func NewCompatibleNarrator(baseURL, apiKey, model string) *OpenAINarrator {
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = baseURL
	return newNarrator(cfg, model, DefaultOpenAIModel)
}

func newNarrator(cfg openai.ClientConfig, model, fallback string) *OpenAINarrator {
	if model == "" {
		model = fallback
	}
	return &OpenAINarrator{client: openai.NewClientWithConfig(cfg), model: model}
}

// Model is the configured model name.
func (n *OpenAINarrator) Model() string { return n.model }

func (n *OpenAINarrator) Enrich(ctx context.Context, b Brief) (model.Narrative, error) {
	callCtx, cancel := context.WithTimeout(ctx, perCallTimeout)
	defer cancel()

	resp, err := n.client.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
		Model: n.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: formatPrompt(b)},
		},
		Temperature: 0.2,
	})
	if err != nil {
		return model.Narrative{}, fmt.Errorf("narrative: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return model.Narrative{}, fmt.Errorf("narrative: no choices in response")
	}

	out, err := ParseResponse(resp.Choices[0].Message.Content)
	if err != nil {
		return model.Narrative{}, err
	}
	out.Model = n.model
	return out, nil
}
