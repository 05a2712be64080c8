// Package binance reads 24h crypto tickers from the Binance spot API.
package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/newthinker/momentum/internal/core"
	"github.com/newthinker/momentum/internal/normalize"
)

const (
	defaultBaseURL = "https://api.binance.com"
	defaultQuote   = "USDT"
)

// Columns are the row keys emitted by FetchRows. Values stay as the
// exchange's decimal strings.
var Columns = normalize.ColumnMapping{
	Ticker:        "symbol",
	Name:          "pair",
	Price:         "lastPrice",
	PercentChange: "priceChangePercent",
	Volume:        "volume",
}

// Binance implements source.Source
type Binance struct {
	client  *http.Client
	baseURL string
	quote   string
}

// New creates a Binance source quoting tickers against USDT
func New() *Binance {
	return &Binance{
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURL: defaultBaseURL,
		quote:   defaultQuote,
	}
}

// NewWithBaseURL creates a Binance source with custom base URL (for testing)
func NewWithBaseURL(url string) *Binance {
	b := New()
	b.baseURL = strings.TrimRight(url, "/")
	return b
}

func (b *Binance) Name() string {
	return "binance"
}

func (b *Binance) Columns() normalize.ColumnMapping {
	return Columns
}

// FetchRows fetches all tickers in one request. Binance has thousands of
// pairs, so an explicit ticker list is required.
func (b *Binance) FetchRows(ctx context.Context, tickers []string) ([]normalize.Row, error) {
	if len(tickers) == 0 {
		return nil, core.WrapError(core.ErrInvalidInput, fmt.Errorf("binance: tickers are required"))
	}

	pairs := make([]string, 0, len(tickers))
	for _, t := range tickers {
		p, err := PairSymbol(t, b.quote)
		if err != nil {
			return nil, core.WrapError(core.ErrInvalidInput, err)
		}
		pairs = append(pairs, p)
	}
	symbols, err := json.Marshal(pairs)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/api/v3/ticker/24hr?symbols=%s", b.baseURL, url.QueryEscape(string(symbols)))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, core.WrapError(core.ErrSourceTimeout, err)
		}
		return nil, core.WrapError(core.ErrSourceFailed, fmt.Errorf("fetching tickers: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Code int    `json:"code"`
			Msg  string `json:"msg"`
		}
		json.NewDecoder(resp.Body).Decode(&apiErr)
		if apiErr.Code == -1121 {
			return nil, core.WrapError(core.ErrSymbolNotFound, fmt.Errorf("binance: %s", apiErr.Msg))
		}
		return nil, core.WrapError(core.ErrSourceFailed,
			fmt.Errorf("binance: unexpected status %d: %s", resp.StatusCode, apiErr.Msg))
	}

	var result []ticker24hr
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, core.WrapError(core.ErrSourceFailed, fmt.Errorf("decoding response: %w", err))
	}

	rows := make([]normalize.Row, 0, len(result))
	for _, t := range result {
		base, quote := SplitPair(t.Symbol)
		pair := base
		if quote != "" {
			pair = base + "/" + quote
		}
		rows = append(rows, normalize.Row{
			Columns.Ticker:        base,
			Columns.Name:          pair,
			Columns.Price:         t.LastPrice,
			Columns.PercentChange: t.PriceChangePercent,
			Columns.Volume:        t.Volume,
		})
	}
	return rows, nil
}

type ticker24hr struct {
	Symbol             string `json:"symbol"`
	PriceChangePercent string `json:"priceChangePercent"`
	LastPrice          string `json:"lastPrice"`
	Volume             string `json:"volume"`
}
