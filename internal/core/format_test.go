package core

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestFormatPrice(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"2", "$2.00"},
		{"1.2054", "$1.21"},
		{"0.4567", "$0.4567"},
		{"0.00001234", "$0.00001234"},
		{"67000.5", "$67000.50"},
	}
	for _, tt := range tests {
		if got := FormatPrice(decimal.RequireFromString(tt.in)); got != tt.want {
			t.Errorf("FormatPrice(%s) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestFormatChange(t *testing.T) {
	if got := FormatChange(decimal.NullDecimal{}); got != "n/a" {
		t.Errorf("absent change = %s", got)
	}
	if got := FormatChange(decimal.NewNullDecimal(decimal.RequireFromString("7.5"))); got != "+7.50%" {
		t.Errorf("positive change = %s", got)
	}
	if got := FormatChange(decimal.NewNullDecimal(decimal.RequireFromString("-4.2"))); got != "-4.20%" {
		t.Errorf("negative change = %s", got)
	}
}

func TestFormatRiskReward(t *testing.T) {
	if got := FormatRiskReward(decimal.NewNullDecimal(decimal.NewFromInt(2))); got != "1:2.0" {
		t.Errorf("got %s", got)
	}
	if got := FormatRiskReward(decimal.NullDecimal{}); got != "n/a" {
		t.Errorf("got %s", got)
	}
	if got := FormatConfidence(0.85); got != "85%" {
		t.Errorf("got %s", got)
	}
}
