// Package commentary asks an LLM for a short read on the top setup of a
// scan. It is strictly optional: failures are logged and never surface to
// the scan.
package commentary

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/newthinker/momentum/internal/core"
	"github.com/newthinker/momentum/internal/llm"
	"go.uber.org/zap"
)

const systemPrompt = `You are a day-trading assistant reviewing a single momentum setup.
The entry zone, stop and targets are fixed by a rules engine; do not change them.
In at most three sentences, say what the move and volume suggest and what would invalidate the setup.
Plain text only. No financial advice disclaimers.`

// DefaultTimeout bounds a single commentary request
const DefaultTimeout = 20 * time.Second

// Commentator writes commentary with an llm.Provider
type Commentator struct {
	provider llm.Provider
	logger   *zap.Logger
	timeout  time.Duration
}

// New creates a commentator. A nil provider yields a commentator that
// does nothing.
func New(provider llm.Provider, logger *zap.Logger, timeout time.Duration) *Commentator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Commentator{provider: provider, logger: logger, timeout: timeout}
}

// Enabled reports whether a provider is configured
func (c *Commentator) Enabled() bool {
	return c != nil && c.provider != nil
}

// Describe returns commentary for one assessment.
func (c *Commentator) Describe(ctx context.Context, a core.TradeAssessment) (string, error) {
	if !c.Enabled() {
		return "", nil
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.provider.Complete(ctx, llm.Request{
		System:      systemPrompt,
		Prompt:      BuildPrompt(a),
		MaxTokens:   256,
		Temperature: 0.3,
	})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

// Annotate fills r.Commentary from the report's top setup. Errors are
// logged and leave the report untouched.
func (c *Commentator) Annotate(ctx context.Context, r *core.ScanReport) {
	if !c.Enabled() || r == nil {
		return
	}
	top, ok := r.Top()
	if !ok {
		return
	}

	text, err := c.Describe(ctx, top)
	if err != nil {
		c.logger.Warn("commentary unavailable",
			zap.String("provider", c.provider.Name()),
			zap.String("ticker", top.Ticker),
			zap.Error(err))
		return
	}
	r.Commentary = text
}

// BuildPrompt lays out the setup the way it is shown to the user.
func BuildPrompt(a core.TradeAssessment) string {
	var sb strings.Builder

	name := a.Ticker
	if a.Name != "" {
		name = fmt.Sprintf("%s (%s)", a.Ticker, a.Name)
	}
	sb.WriteString(fmt.Sprintf("## Setup: %s\n", name))
	sb.WriteString(fmt.Sprintf("- Signal: %s (confidence %s)\n", a.Signal, core.FormatConfidence(a.Confidence)))
	sb.WriteString(fmt.Sprintf("- Price: %s, change %s, volume %d\n",
		core.FormatPrice(a.Price), core.FormatChange(a.PercentChange), a.Volume))
	sb.WriteString(fmt.Sprintf("- Entry zone: %s - %s\n", core.FormatPrice(a.EntryLow), core.FormatPrice(a.EntryHigh)))
	sb.WriteString(fmt.Sprintf("- Stop loss: %s\n", core.FormatPrice(a.StopLoss)))
	sb.WriteString(fmt.Sprintf("- Targets: %s / %s\n", core.FormatPrice(a.Target1), core.FormatPrice(a.Target2)))
	sb.WriteString(fmt.Sprintf("- Risk/reward: %s\n", core.FormatRiskReward(a.RiskReward)))

	return sb.String()
}
