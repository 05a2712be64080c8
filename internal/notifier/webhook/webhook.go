// Package webhook posts assessments and alerts as JSON to an HTTP endpoint.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/newthinker/momentum/internal/core"
)

const defaultTimeout = 30 * time.Second

// Event is the body posted for a single assessment.
type Event struct {
	Type       string               `json:"type"`
	SentAt     time.Time            `json:"sent_at"`
	Assessment core.TradeAssessment `json:"assessment"`
}

type BatchEvent struct {
	Type        string                 `json:"type"`
	SentAt      time.Time              `json:"sent_at"`
	Count       int                    `json:"count"`
	Assessments []core.TradeAssessment `json:"assessments"`
}

// AlertEvent carries an operational alert rather than a trade.
type AlertEvent struct {
	Type    string    `json:"type"`
	SentAt  time.Time `json:"sent_at"`
	Message string    `json:"message"`
}

type Webhook struct {
	url     string
	headers map[string]string
	client  *http.Client
	now     func() time.Time
}

type Option func(*Webhook)

// WithClient replaces the default client, which times out after 30s.
func WithClient(c *http.Client) Option {
	return func(w *Webhook) { w.client = c }
}

func New(url string, headers map[string]string, opts ...Option) (*Webhook, error) {
	if strings.TrimSpace(url) == "" {
		return nil, fmt.Errorf("webhook: url is required")
	}
	w := &Webhook{
		url:     url,
		headers: headers,
		client:  &http.Client{Timeout: defaultTimeout},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

func (w *Webhook) Name() string { return "webhook" }

func (w *Webhook) Send(ctx context.Context, a core.TradeAssessment) error {
	return w.post(ctx, Event{Type: "assessment", SentAt: w.now().UTC(), Assessment: a})
}

func (w *Webhook) SendBatch(ctx context.Context, as []core.TradeAssessment) error {
	if len(as) == 0 {
		return nil
	}
	return w.post(ctx, BatchEvent{Type: "batch", SentAt: w.now().UTC(), Count: len(as), Assessments: as})
}

// Notify posts an operational alert.
func (w *Webhook) Notify(ctx context.Context, msg string) error {
	return w.post(ctx, AlertEvent{Type: "alert", SentAt: w.now().UTC(), Message: msg})
}

func (w *Webhook) post(ctx context.Context, payload any) error {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return fmt.Errorf("webhook: encode: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, &buf)
	if err != nil {
		return fmt.Errorf("webhook: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range w.headers {
		req.Header.Set(k, v)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 300 {
		return nil
	}
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
	if s := strings.TrimSpace(string(snippet)); s != "" {
		return fmt.Errorf("webhook: status %d: %s", resp.StatusCode, s)
	}
	return fmt.Errorf("webhook: status %d", resp.StatusCode)
}
