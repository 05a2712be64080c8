// Package email implements an SMTP-based email notifier
package email

import (
	"context"
	"fmt"
	"html"
	"net/smtp"
	"strings"
	"time"

	"github.com/newthinker/momentum/internal/core"
)

// SendFunc matches smtp.SendMail
type SendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Config holds SMTP settings
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       []string
}

// Email implements notifier.Notifier over SMTP
type Email struct {
	cfg  Config
	send SendFunc
	now  func() time.Time
}

// New creates an Email notifier. Port defaults to 587.
func New(cfg Config) (*Email, error) {
	if cfg.Host == "" || cfg.From == "" || len(cfg.To) == 0 {
		return nil, fmt.Errorf("email: host, from, and to are required")
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	return &Email{cfg: cfg, send: smtp.SendMail, now: time.Now}, nil
}

// WithSender replaces the SMTP transport
func (e *Email) WithSender(fn SendFunc) *Email {
	e.send = fn
	return e
}

func (e *Email) Name() string { return "email" }

func (e *Email) Send(ctx context.Context, a core.TradeAssessment) error {
	subject := fmt.Sprintf("Momentum: %s %s at %s", a.Signal, a.Ticker, core.FormatPrice(a.Price))
	return e.sendEmail(ctx, subject, "text/plain", formatText(a))
}

func (e *Email) SendBatch(ctx context.Context, as []core.TradeAssessment) error {
	if len(as) == 0 {
		return nil
	}

	subject := fmt.Sprintf("Momentum Digest: %d setups", len(as))

	var sb strings.Builder
	sb.WriteString("<html><body>")
	sb.WriteString("<h2>Momentum Setups</h2>")
	fmt.Fprintf(&sb, "<p>Generated at: %s</p><hr>", e.now().Format("2006-01-02 15:04:05"))
	for _, a := range as {
		sb.WriteString(formatHTML(a))
		sb.WriteString("<hr>")
	}
	sb.WriteString("</body></html>")

	return e.sendEmail(ctx, subject, "text/html", sb.String())
}

// Notify sends a plain operational alert
func (e *Email) Notify(ctx context.Context, msg string) error {
	return e.sendEmail(ctx, "Momentum alert", "text/plain", msg+"\n")
}

func formatText(a core.TradeAssessment) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s\n\n", a.Ticker, a.Signal)
	if a.Name != "" {
		fmt.Fprintf(&sb, "Name: %s\n", a.Name)
	}
	fmt.Fprintf(&sb, "Price: %s (%s)\n", core.FormatPrice(a.Price), core.FormatChange(a.PercentChange))
	fmt.Fprintf(&sb, "Volume: %d\n", a.Volume)
	fmt.Fprintf(&sb, "Entry: %s - %s\n", core.FormatPrice(a.EntryLow), core.FormatPrice(a.EntryHigh))
	fmt.Fprintf(&sb, "Stop: %s\n", core.FormatPrice(a.StopLoss))
	fmt.Fprintf(&sb, "Targets: %s / %s\n", core.FormatPrice(a.Target1), core.FormatPrice(a.Target2))
	fmt.Fprintf(&sb, "Risk/Reward: %s\n", core.FormatRiskReward(a.RiskReward))
	fmt.Fprintf(&sb, "Confidence: %s\n", core.FormatConfidence(a.Confidence))
	fmt.Fprintf(&sb, "Shares affordable: %d\n", a.SharesAffordable)
	return sb.String()
}

func formatHTML(a core.TradeAssessment) string {
	color := "#777777"
	switch a.Signal {
	case core.SignalLong:
		color = "#28a745"
	case core.SignalShort:
		color = "#dc3545"
	}

	return fmt.Sprintf(`
<div style="margin: 10px 0;">
  <h3 style="color: %s;">%s - %s</h3>
  <p><strong>Price:</strong> %s (%s)</p>
  <p><strong>Entry:</strong> %s - %s &middot; <strong>Stop:</strong> %s</p>
  <p><strong>Targets:</strong> %s / %s &middot; <strong>R/R:</strong> %s</p>
  <p><strong>Confidence:</strong> %s &middot; <strong>Shares:</strong> %d</p>
</div>
`,
		color,
		html.EscapeString(a.Ticker),
		a.Signal,
		core.FormatPrice(a.Price), core.FormatChange(a.PercentChange),
		core.FormatPrice(a.EntryLow), core.FormatPrice(a.EntryHigh), core.FormatPrice(a.StopLoss),
		core.FormatPrice(a.Target1), core.FormatPrice(a.Target2), core.FormatRiskReward(a.RiskReward),
		core.FormatConfidence(a.Confidence), a.SharesAffordable,
	)
}

func (e *Email) sendEmail(ctx context.Context, subject, contentType, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	addr := fmt.Sprintf("%s:%d", e.cfg.Host, e.cfg.Port)

	var auth smtp.Auth
	if e.cfg.Username != "" {
		auth = smtp.PlainAuth("", e.cfg.Username, e.cfg.Password, e.cfg.Host)
	}

	msg := fmt.Sprintf("From: %s\r\n"+
		"To: %s\r\n"+
		"Subject: %s\r\n"+
		"MIME-Version: 1.0\r\n"+
		"Content-Type: %s; charset=UTF-8\r\n"+
		"\r\n"+
		"%s",
		e.cfg.From,
		strings.Join(e.cfg.To, ","),
		subject,
		contentType,
		body,
	)

	if err := e.send(addr, auth, e.cfg.From, e.cfg.To, []byte(msg)); err != nil {
		return fmt.Errorf("email: %w", err)
	}
	return nil
}
