// Package llm is the thin provider layer behind setup commentary.
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/newthinker/momentum/internal/core"
)

// DefaultMaxTokens caps a completion when the request leaves it unset.
const DefaultMaxTokens = 512

// Provider completes a single prompt
type Provider interface {
	Name() string
	Complete(ctx context.Context, req Request) (*Response, error)
}

// Request is one system + user prompt pair
type Request struct {
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float64
}

// Tokens returns the effective token cap
func (r Request) Tokens() int {
	if r.MaxTokens <= 0 {
		return DefaultMaxTokens
	}
	return r.MaxTokens
}

// Response is the provider's answer
type Response struct {
	Text         string
	InputTokens  int
	OutputTokens int
	StopReason   string
}

// Failed wraps a provider error as core.ErrLLMFailed
func Failed(provider string, err error) error {
	return core.WrapError(core.ErrLLMFailed, fmt.Errorf("%s: %w", provider, err))
}

// Clean trims whitespace and surrounding code fences some models add.
func Clean(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		if i := strings.IndexByte(s, '\n'); i >= 0 {
			s = s[i+1:]
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}
