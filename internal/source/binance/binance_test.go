package binance

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/newthinker/momentum/internal/core"
	"github.com/newthinker/momentum/internal/normalize"
	"github.com/newthinker/momentum/internal/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBinance_ImplementsSource(t *testing.T) {
	var _ source.Source = (*Binance)(nil)
	assert.Equal(t, "binance", New().Name())
	assert.NoError(t, New().Columns().Validate())
}

func TestPairSymbol(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{"BTC", "BTCUSDT", false},
		{"btc", "BTCUSDT", false},
		{"BTC-USDT", "BTCUSDT", false},
		{"eth/btc", "ETHBTC", false},
		{" pepe_usdc ", "PEPEUSDC", false},
		{"USDT", "USDTUSDT", false},
		{"", "", true},
		{"BTC$", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := PairSymbol(tt.input, "usdt")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSplitPair(t *testing.T) {
	base, quote := SplitPair("BTCUSDT")
	assert.Equal(t, "BTC", base)
	assert.Equal(t, "USDT", quote)

	base, quote = SplitPair("ETHBTC")
	assert.Equal(t, "ETH", base)
	assert.Equal(t, "BTC", quote)

	base, quote = SplitPair("WEIRD")
	assert.Equal(t, "WEIRD", base)
	assert.Empty(t, quote)
}

func TestBinance_FetchRows(t *testing.T) {
	var symbols string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/ticker/24hr", r.URL.Path)
		symbols = r.URL.Query().Get("symbols")
		w.Write([]byte(`[
			{"symbol":"PEPEUSDT","priceChangePercent":"12.500","lastPrice":"0.00001234","volume":"9876543210.00"},
			{"symbol":"BTCUSDT","priceChangePercent":"-0.420","lastPrice":"67000.10","volume":"1234.567"}
		]`))
	}))
	defer server.Close()

	rows, err := NewWithBaseURL(server.URL).FetchRows(context.Background(), []string{"pepe", "BTC"})
	require.NoError(t, err)
	assert.Equal(t, `["PEPEUSDT","BTCUSDT"]`, symbols)
	require.Len(t, rows, 2)
	assert.Equal(t, "PEPE", rows[0]["symbol"])
	assert.Equal(t, "PEPE/USDT", rows[0]["pair"])

	res := normalize.MustNew(Columns).Normalize(rows)
	require.Len(t, res.Records, 2)
	assert.Empty(t, res.Dropped)
	assert.Equal(t, "0.00001234", res.Records[0].Price.String())
	assert.Equal(t, int64(9876543210), res.Records[0].Volume)
	assert.Equal(t, "-0.42", res.Records[1].PercentChange.Decimal.String())
	assert.Equal(t, int64(1234), res.Records[1].Volume, "fractional volume is truncated")
}

func TestBinance_FetchRows_Errors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("symbols") == `["NOPEUSDT"]` {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"code":-1121,"msg":"Invalid symbol."}`))
			return
		}
		w.WriteHeader(http.StatusTeapot)
	}))
	defer server.Close()
	b := NewWithBaseURL(server.URL)

	_, err := b.FetchRows(context.Background(), nil)
	assert.True(t, errors.Is(err, core.ErrInvalidInput))

	_, err = b.FetchRows(context.Background(), []string{"NOPE"})
	assert.True(t, errors.Is(err, core.ErrSymbolNotFound), "got %v", err)

	_, err = b.FetchRows(context.Background(), []string{"BTC"})
	assert.True(t, errors.Is(err, core.ErrSourceFailed), "got %v", err)
}
