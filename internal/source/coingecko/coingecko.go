// Package coingecko reads crypto market rows from the CoinGecko
// /coins/markets endpoint.
package coingecko

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/newthinker/momentum/internal/core"
	"github.com/newthinker/momentum/internal/normalize"
)

const (
	defaultBaseURL = "https://api.coingecko.com/api/v3"
	defaultPerPage = 50
)

// Symbol to CoinGecko ID mapping for common tickers
var symbolToIDMap = map[string]string{
	"BTC":  "bitcoin",
	"ETH":  "ethereum",
	"BNB":  "binancecoin",
	"SOL":  "solana",
	"XRP":  "ripple",
	"DOGE": "dogecoin",
	"ADA":  "cardano",
	"AVAX": "avalanche-2",
	"DOT":  "polkadot",
	"LINK": "chainlink",
	"LTC":  "litecoin",
	"SHIB": "shiba-inu",
	"PEPE": "pepe",
	"XLM":  "stellar",
	"ALGO": "algorand",
}

// Columns are the /coins/markets field names.
var Columns = normalize.ColumnMapping{
	Ticker:        "symbol",
	Name:          "name",
	Price:         "current_price",
	PercentChange: "price_change_percentage_24h",
	Volume:        "total_volume",
}

// CoinGecko implements source.Source
type CoinGecko struct {
	client     *http.Client
	baseURL    string
	apiKey     string
	vsCurrency string
	perPage    int
}

// New creates a new CoinGecko source
func New(apiKey string) *CoinGecko {
	return &CoinGecko{
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURL:    defaultBaseURL,
		apiKey:     apiKey,
		vsCurrency: "usd",
		perPage:    defaultPerPage,
	}
}

// NewWithBaseURL creates a CoinGecko source with custom base URL (for testing)
func NewWithBaseURL(apiKey, url string) *CoinGecko {
	c := New(apiKey)
	c.baseURL = strings.TrimRight(url, "/")
	return c
}

func (c *CoinGecko) Name() string {
	return "coingecko"
}

func (c *CoinGecko) Columns() normalize.ColumnMapping {
	return Columns
}

// symbolToID converts a ticker like BTC or BTC-USD to a CoinGecko coin ID
func symbolToID(symbol string) string {
	base, _, _ := strings.Cut(strings.ToUpper(strings.TrimSpace(symbol)), "-")
	if id, ok := symbolToIDMap[base]; ok {
		return id
	}
	return strings.ToLower(base)
}

// FetchRows returns one market row per coin. With no tickers it returns
// the top coins by 24h volume.
func (c *CoinGecko) FetchRows(ctx context.Context, tickers []string) ([]normalize.Row, error) {
	q := url.Values{}
	q.Set("vs_currency", c.vsCurrency)
	q.Set("price_change_percentage", "24h")
	if len(tickers) > 0 {
		ids := make([]string, 0, len(tickers))
		for _, t := range tickers {
			ids = append(ids, symbolToID(t))
		}
		q.Set("ids", strings.Join(ids, ","))
	} else {
		q.Set("order", "volume_desc")
		q.Set("per_page", strconv.Itoa(c.perPage))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/coins/markets?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-cg-demo-api-key", c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, core.WrapError(core.ErrSourceFailed, fmt.Errorf("fetching markets: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, core.WrapError(core.ErrSourceFailed, fmt.Errorf("unexpected status: %d", resp.StatusCode))
	}

	// Numbers stay as json.Number so the normalizer sees exact text.
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	var markets []map[string]any
	if err := dec.Decode(&markets); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	rows := make([]normalize.Row, 0, len(markets))
	for _, m := range markets {
		rows = append(rows, normalize.Row(m))
	}
	return rows, nil
}
