package alert

import (
	"errors"
	"testing"
	"time"

	"github.com/newthinker/momentum/internal/core"
	"github.com/stretchr/testify/assert"
)

func TestRule_Evaluate(t *testing.T) {
	tests := []struct {
		expr     string
		metrics  map[string]float64
		expected bool
	}{
		{"drop_ratio > 0.05", map[string]float64{"drop_ratio": 0.10}, true},
		{"drop_ratio > 0.05", map[string]float64{"drop_ratio": 0.01}, false},
		{"scan_failed == 0", map[string]float64{"scan_failed": 0}, true},
		{"scan_failed == 0", map[string]float64{"scan_failed": 1}, false},
		{"consecutive_failures >= 3", map[string]float64{"consecutive_failures": 3}, true},
		{"consecutive_failures >= 3", map[string]float64{"consecutive_failures": 2}, false},
		{"duration_seconds <= 30", map[string]float64{"duration_seconds": 12.5}, true},
		{"duration_seconds <= 30", map[string]float64{"duration_seconds": 45}, false},
		{"assessed != 0", map[string]float64{"assessed": 5}, true},
		{"assessed < 1", map[string]float64{"assessed": 0}, true},
		{"delta > -1", map[string]float64{"delta": 0}, true},
		{"missing > 0", map[string]float64{}, false},
		{"not an expression", map[string]float64{"not": 1}, false},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			rule := Rule{Expr: tt.expr}
			assert.Equal(t, tt.expected, rule.Evaluate(tt.metrics))
		})
	}
}

func TestRule_FormatMessage(t *testing.T) {
	rule := Rule{
		Name:     "high_drop_ratio",
		Expr:     "drop_ratio > 0.5",
		Severity: "warning",
		Message:  "feed layout may have changed",
	}

	assert.Equal(t, "[WARNING] high_drop_ratio: feed layout may have changed",
		rule.FormatMessage(map[string]float64{}))
	assert.Equal(t, "[WARNING] high_drop_ratio: feed layout may have changed (drop_ratio=0.75)",
		rule.FormatMessage(map[string]float64{"drop_ratio": 0.75}))
}

func TestRule_Validate(t *testing.T) {
	tests := []struct {
		name    string
		rule    Rule
		wantErr bool
	}{
		{"valid", Rule{Name: "r", Expr: "drop_ratio > 0.5"}, false},
		{"missing name", Rule{Expr: "drop_ratio > 0.5"}, true},
		{"bad expr", Rule{Name: "r", Expr: "drop_ratio is high"}, true},
		{"negative for", Rule{Name: "r", Expr: "x > 1", For: -time.Second}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rule.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, core.ErrConfigInvalid), "got %v", err)
		})
	}
}
