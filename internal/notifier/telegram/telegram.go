package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/newthinker/momentum/internal/core"
)

const defaultAPIBase = "https://api.telegram.org"

// Telegram implements the Notifier interface for Telegram Bot API
type Telegram struct {
	botToken string
	chatID   string
	apiBase  string
	client   *http.Client
}

// New creates a new Telegram notifier
func New(botToken, chatID string) (*Telegram, error) {
	if botToken == "" {
		return nil, fmt.Errorf("telegram: bot_token is required")
	}
	if chatID == "" {
		return nil, fmt.Errorf("telegram: chat_id is required")
	}
	return &Telegram{
		botToken: botToken,
		chatID:   chatID,
		apiBase:  defaultAPIBase,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

// WithAPIBase points the notifier at another Bot API host
func (t *Telegram) WithAPIBase(base string) *Telegram {
	t.apiBase = strings.TrimRight(base, "/")
	return t
}

func (t *Telegram) Name() string {
	return "telegram"
}

func (t *Telegram) Send(ctx context.Context, a core.TradeAssessment) error {
	return t.sendMessage(ctx, formatAssessment(a))
}

func (t *Telegram) SendBatch(ctx context.Context, as []core.TradeAssessment) error {
	if len(as) == 0 {
		return nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "📊 *%d Momentum Setups*\n\n", len(as))
	for i, a := range as {
		sb.WriteString(formatAssessment(a))
		if i < len(as)-1 {
			sb.WriteString("\n---\n\n")
		}
	}
	return t.sendMessage(ctx, sb.String())
}

// Notify sends a plain operational alert
func (t *Telegram) Notify(ctx context.Context, msg string) error {
	return t.sendMessage(ctx, "⚠️ "+msg)
}

func signalEmoji(s core.Signal) string {
	switch s {
	case core.SignalLong:
		return "🚀"
	case core.SignalShort:
		return "📉"
	case core.SignalAvoid:
		return "⛔"
	default:
		return "❔"
	}
}

func formatAssessment(a core.TradeAssessment) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "%s *%s* - %s\n", signalEmoji(a.Signal), a.Ticker, a.Signal)
	if a.Name != "" {
		fmt.Fprintf(&sb, "🏷 %s\n", a.Name)
	}
	fmt.Fprintf(&sb, "💰 Price: %s (%s)\n", core.FormatPrice(a.Price), core.FormatChange(a.PercentChange))
	fmt.Fprintf(&sb, "📦 Volume: %d\n", a.Volume)
	fmt.Fprintf(&sb, "🎯 Entry: %s - %s\n", core.FormatPrice(a.EntryLow), core.FormatPrice(a.EntryHigh))
	fmt.Fprintf(&sb, "🛑 Stop: %s\n", core.FormatPrice(a.StopLoss))
	fmt.Fprintf(&sb, "✅ Targets: %s / %s\n", core.FormatPrice(a.Target1), core.FormatPrice(a.Target2))
	fmt.Fprintf(&sb, "⚖️ R/R: %s | Confidence: %s\n", core.FormatRiskReward(a.RiskReward), core.FormatConfidence(a.Confidence))
	if a.SharesAffordable > 0 {
		fmt.Fprintf(&sb, "🛒 Shares affordable: %d\n", a.SharesAffordable)
	}
	if !a.AssessedAt.IsZero() {
		fmt.Fprintf(&sb, "⏰ %s", a.AssessedAt.Format("2006-01-02 15:04:05"))
	}

	return strings.TrimRight(sb.String(), "\n")
}

func (t *Telegram) sendMessage(ctx context.Context, text string) error {
	url := fmt.Sprintf("%s/bot%s/sendMessage", t.apiBase, t.botToken)

	payload := map[string]any{
		"chat_id":    t.chatID,
		"text":       text,
		"parse_mode": "Markdown",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("telegram: failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telegram: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: failed to send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var result map[string]any
		json.NewDecoder(resp.Body).Decode(&result)
		return fmt.Errorf("telegram: API error (status %d): %v", resp.StatusCode, result)
	}

	return nil
}
