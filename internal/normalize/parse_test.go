package normalize

import (
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePrice(t *testing.T) {
	tests := []struct {
		name    string
		in      any
		want    string
		wantErr bool
	}{
		{"dollar", "$1.23", "1.23", false},
		{"thousands", "$1,234.50", "1234.5", false},
		{"padded", "  0.0045 ", "0.0045", false},
		{"float", 2.5, "2.5", false},
		{"int", 3, "3", false},
		{"json number", json.Number("4.20"), "4.2", false},
		{"n/a", "N/A", "", true},
		{"empty", "", "", true},
		{"nil", nil, "", true},
		{"zero", "$0.00", "", true},
		{"negative", "-1.5", "", true},
		{"nan", math.NaN(), "", true},
		{"inf", math.Inf(1), "", true},
		{"garbage suffix", "1.23abc", "", true},
		{"exponent", "2.5e-3", "0.0025", false},
		{"tiny exponent", "1e-20000000", "", true},
		{"huge exponent", "1e20000000", "", true},
		{"overlong", "0." + strings.Repeat("0", 80) + "1", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePrice(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)), "got %s, want %s", got, tt.want)
		})
	}
}

func TestParsePercent(t *testing.T) {
	tests := []struct {
		name      string
		in        any
		want      string
		wantValid bool
		wantErr   bool
	}{
		{"plus sign", "+7.50%", "7.5", true, false},
		{"negative", "-4.01%", "-4.01", true, false},
		{"bare", "3", "3", true, false},
		{"float", -0.25, "-0.25", true, false},
		{"missing", nil, "", false, false},
		{"blank", "  ", "", false, false},
		{"unparsable", "n/a", "", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePercent(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			require.Equal(t, tt.wantValid, got.Valid)
			if tt.wantValid {
				assert.True(t, got.Decimal.Equal(decimal.RequireFromString(tt.want)), "got %s", got.Decimal)
			}
		})
	}
}

func TestParseVolume(t *testing.T) {
	tests := []struct {
		name    string
		in      any
		want    int64
		wantErr bool
	}{
		{"plain", "650000", 650000, false},
		{"thousands", "1,234,567", 1234567, false},
		{"k suffix", "650K", 650000, false},
		{"lower k", "12.5k", 12500, false},
		{"m suffix", "1.2M", 1200000, false},
		{"lower m", "3m", 3000000, false},
		{"truncated", "1.2345K", 1234, false},
		{"float", 1500.0, 1500, false},
		{"int64", int64(42), 42, false},
		{"zero", "0", 0, false},
		{"missing", nil, 0, true},
		{"empty", "", 0, true},
		{"suffix only", "K", 0, true},
		{"negative", "-5", 0, true},
		{"unknown suffix", "5B", 0, true},
		{"text", "lots", 0, true},
		{"exponent", "1.5e3", 1500, false},
		{"tiny exponent with suffix", "1e-20000000K", 0, true},
		{"huge exponent", "9e40", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseVolume(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseTicker(t *testing.T) {
	got, err := ParseTicker(" reli ")
	require.NoError(t, err)
	assert.Equal(t, "RELI", got)

	_, err = ParseTicker("   ")
	assert.Error(t, err)

	_, err = ParseTicker(nil)
	assert.Error(t, err)
}

func TestAddThousands(t *testing.T) {
	tests := map[string]string{
		"0":          "0",
		"999":        "999",
		"1000":       "1,000",
		"650000":     "650,000",
		"1234567.89": "1,234,567.89",
		"-1234":      "-1,234",
	}
	for in, want := range tests {
		assert.Equal(t, want, addThousands(in), "addThousands(%s)", in)
	}
}
