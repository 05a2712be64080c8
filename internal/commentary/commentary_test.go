package commentary

import (
	"context"
	"errors"
	"testing"

	"github.com/newthinker/momentum/internal/core"
	"github.com/newthinker/momentum/internal/llm"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockLLM struct {
	text string
	err  error
	last llm.Request
}

func (m *mockLLM) Name() string { return "mock" }

func (m *mockLLM) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	m.last = req
	if m.err != nil {
		return nil, m.err
	}
	return &llm.Response{Text: m.text}, nil
}

func setup() core.TradeAssessment {
	d := decimal.RequireFromString
	return core.TradeAssessment{
		Ticker:        "RELI",
		Name:          "Reliance Global",
		Price:         d("1.23"),
		PercentChange: decimal.NewNullDecimal(d("7.5")),
		Volume:        650000,
		Signal:        core.SignalLong,
		Confidence:    0.85,
		EntryLow:      d("1.2054"),
		EntryHigh:     d("1.2423"),
		StopLoss:      d("1.1685"),
		Target1:       d("1.353"),
		Target2:       d("1.476"),
		RiskReward:    decimal.NewNullDecimal(decimal.NewFromInt(2)),
	}
}

func TestBuildPrompt(t *testing.T) {
	p := BuildPrompt(setup())

	assert.Contains(t, p, "## Setup: RELI (Reliance Global)")
	assert.Contains(t, p, "Signal: LONG (confidence 85%)")
	assert.Contains(t, p, "Price: $1.23, change +7.50%, volume 650000")
	assert.Contains(t, p, "Entry zone: $1.21 - $1.24")
	assert.Contains(t, p, "Risk/reward: 1:2.0")
}

func TestAnnotate(t *testing.T) {
	m := &mockLLM{text: "Strong open on 6x average volume."}
	c := New(m, nil, 0)

	r := &core.ScanReport{Assessments: []core.TradeAssessment{setup()}}
	c.Annotate(context.Background(), r)

	assert.Equal(t, "Strong open on 6x average volume.", r.Commentary)
	assert.Equal(t, systemPrompt, m.last.System)
	assert.Contains(t, m.last.Prompt, "RELI")
}

func TestAnnotate_FailureLeavesReport(t *testing.T) {
	c := New(&mockLLM{err: errors.New("rate limited")}, nil, 0)

	r := &core.ScanReport{Assessments: []core.TradeAssessment{setup()}}
	c.Annotate(context.Background(), r)

	assert.Empty(t, r.Commentary)
}

func TestAnnotate_EmptyReport(t *testing.T) {
	m := &mockLLM{text: "unused"}
	c := New(m, nil, 0)

	r := &core.ScanReport{}
	c.Annotate(context.Background(), r)

	assert.Empty(t, r.Commentary)
	assert.Empty(t, m.last.Prompt, "provider not called")
}

func TestDisabled(t *testing.T) {
	c := New(nil, nil, 0)
	assert.False(t, c.Enabled())

	text, err := c.Describe(context.Background(), setup())
	require.NoError(t, err)
	assert.Empty(t, text)

	var nilC *Commentator
	assert.False(t, nilC.Enabled())
	nilC.Annotate(context.Background(), &core.ScanReport{})
}
