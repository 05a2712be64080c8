package openai

import (
	"context"
	"fmt"

	"github.com/newthinker/momentum/internal/llm"
	"github.com/sashabaranov/go-openai"
)

// DefaultModel is used when config leaves the model empty
const DefaultModel = "gpt-4o-mini"

// Provider completes prompts with the OpenAI chat completions API.
type Provider struct {
	client *openai.Client
	model  string
}

// New creates an OpenAI provider against the public API.
func New(apiKey, model string) (*Provider, error) {
	return NewWithBaseURL(apiKey, model, "")
}

// NewWithBaseURL targets an OpenAI-compatible endpoint such as a proxy.
func NewWithBaseURL(apiKey, model, baseURL string) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai: api key required")
	}
	if model == "" {
		model = DefaultModel
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &Provider{client: openai.NewClientWithConfig(cfg), model: model}, nil
}

func (p *Provider) Name() string {
	return "openai"
}

func (p *Provider) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       p.model,
		Messages:    messages,
		MaxTokens:   req.Tokens(),
		Temperature: float32(req.Temperature),
	})
	if err != nil {
		return nil, llm.Failed(p.Name(), err)
	}
	if len(resp.Choices) == 0 {
		return nil, llm.Failed(p.Name(), fmt.Errorf("response has no choices"))
	}

	choice := resp.Choices[0]
	return &llm.Response{
		Text:         llm.Clean(choice.Message.Content),
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
		StopReason:   string(choice.FinishReason),
	}, nil
}
