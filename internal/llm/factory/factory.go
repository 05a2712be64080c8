// Package factory builds the configured LLM provider.
package factory

import (
	"fmt"

	"github.com/newthinker/momentum/internal/config"
	"github.com/newthinker/momentum/internal/core"
	"github.com/newthinker/momentum/internal/llm"
	"github.com/newthinker/momentum/internal/llm/claude"
	"github.com/newthinker/momentum/internal/llm/ollama"
	"github.com/newthinker/momentum/internal/llm/openai"
)

// New returns the provider named by cfg.Provider, or nil when commentary
// is disabled (empty provider).
func New(cfg config.LLMConfig) (llm.Provider, error) {
	var (
		p   llm.Provider
		err error
	)
	switch cfg.Provider {
	case "":
		return nil, nil
	case "claude":
		p, err = claude.New(cfg.Claude.APIKey, cfg.Claude.Model)
	case "openai":
		p, err = openai.New(cfg.OpenAI.APIKey, cfg.OpenAI.Model)
	case "ollama":
		p, err = ollama.New(cfg.Ollama.Endpoint, cfg.Ollama.Model)
	default:
		return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown llm provider %q", cfg.Provider))
	}
	if err != nil {
		return nil, core.WrapError(core.ErrConfigMissing, err)
	}
	return p, nil
}
