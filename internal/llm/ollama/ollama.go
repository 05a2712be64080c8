package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/newthinker/momentum/internal/llm"
)

const (
	DefaultEndpoint = "http://localhost:11434"
	DefaultModel    = "llama3.1:8b"
)

// Provider completes prompts against a local Ollama server's generate API.
type Provider struct {
	endpoint string
	model    string
	client   *http.Client
}

// New creates an Ollama provider. Empty values fall back to the defaults.
func New(endpoint, model string) (*Provider, error) {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if model == "" {
		model = DefaultModel
	}
	return &Provider{
		endpoint: strings.TrimRight(endpoint, "/"),
		model:    model,
		// local inference on CPU can take minutes
		client: &http.Client{Timeout: 3 * time.Minute},
	}, nil
}

func (p *Provider) Name() string {
	return "ollama"
}

type generateRequest struct {
	Model   string          `json:"model"`
	System  string          `json:"system,omitempty"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

type generateOptions struct {
	NumPredict  int     `json:"num_predict,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
}

type generateResponse struct {
	Response        string `json:"response"`
	Done            bool   `json:"done"`
	DoneReason      string `json:"done_reason"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
}

func (p *Provider) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	body, err := json.Marshal(generateRequest{
		Model:  p.model,
		System: req.System,
		Prompt: req.Prompt,
		Options: generateOptions{
			NumPredict:  req.Tokens(),
			Temperature: req.Temperature,
		},
	})
	if err != nil {
		return nil, llm.Failed(p.Name(), err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return nil, llm.Failed(p.Name(), err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, llm.Failed(p.Name(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, llm.Failed(p.Name(), fmt.Errorf("status %d", resp.StatusCode))
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, llm.Failed(p.Name(), fmt.Errorf("decoding response: %w", err))
	}

	return &llm.Response{
		Text:         llm.Clean(out.Response),
		InputTokens:  out.PromptEvalCount,
		OutputTokens: out.EvalCount,
		StopReason:   out.DoneReason,
	}, nil
}
