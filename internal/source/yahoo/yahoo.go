// Package yahoo reads per-ticker quotes from the Yahoo Finance chart API.
package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/newthinker/momentum/internal/core"
	"github.com/newthinker/momentum/internal/normalize"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	defaultBaseURL = "https://query1.finance.yahoo.com/v8/finance/chart"
)

// Change baselines.
const (
	BaselinePreviousClose = "previous_close"
	BaselineOpen          = "open"
)

// validSymbol matches US and OTC tickers plus crypto pairs such as BTC-USD
var validSymbol = regexp.MustCompile(`^[A-Za-z0-9]{1,10}([.-][A-Za-z]{1,4})?$`)

func validateSymbol(symbol string) error {
	if symbol == "" {
		return fmt.Errorf("symbol cannot be empty")
	}
	if !validSymbol.MatchString(symbol) {
		return fmt.Errorf("invalid symbol format: %s", symbol)
	}
	return nil
}

// Yahoo implements source.Source over the chart endpoint.
type Yahoo struct {
	client   *http.Client
	baseURL  string
	baseline string
	logger   *zap.Logger
}

// Option configures the Yahoo source
type Option func(*Yahoo)

// WithBaseURL points the source at another host, mainly for tests
func WithBaseURL(url string) Option {
	return func(y *Yahoo) { y.baseURL = strings.TrimRight(url, "/") }
}

// WithBaseline selects the percent-change reference price
func WithBaseline(baseline string) Option {
	return func(y *Yahoo) {
		if baseline != "" {
			y.baseline = baseline
		}
	}
}

// WithLogger sets the logger
func WithLogger(log *zap.Logger) Option {
	return func(y *Yahoo) {
		if log != nil {
			y.logger = log
		}
	}
}

// New creates a new Yahoo source
func New(opts ...Option) *Yahoo {
	y := &Yahoo{
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURL:  defaultBaseURL,
		baseline: BaselinePreviousClose,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(y)
	}
	return y
}

func (y *Yahoo) Name() string {
	return "yahoo"
}

func (y *Yahoo) Columns() normalize.ColumnMapping {
	return normalize.DefaultColumns()
}

// FetchRows fetches one intraday chart per ticker. Tickers that fail are
// logged and skipped; an error is returned only when every ticker fails.
func (y *Yahoo) FetchRows(ctx context.Context, tickers []string) ([]normalize.Row, error) {
	rows := make([]normalize.Row, 0, len(tickers))
	var lastErr error

	for _, ticker := range tickers {
		if err := ctx.Err(); err != nil {
			return rows, err
		}
		row, err := y.fetchRow(ctx, ticker)
		if err != nil {
			lastErr = err
			y.logger.Warn("skipping ticker", zap.String("ticker", ticker), zap.Error(err))
			continue
		}
		rows = append(rows, row)
	}

	if len(rows) == 0 && lastErr != nil {
		return nil, core.WrapError(core.ErrSourceFailed, lastErr)
	}
	return rows, nil
}

func (y *Yahoo) fetchRow(ctx context.Context, ticker string) (normalize.Row, error) {
	if err := validateSymbol(ticker); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/%s?interval=1m&range=1d", y.baseURL, ticker)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "Mozilla/5.0 (momentum scanner)")

	resp, err := y.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching chart: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, core.WrapError(core.ErrSymbolNotFound, fmt.Errorf("%s", ticker))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var result chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if result.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo error: %s", result.Chart.Error.Description)
	}
	if len(result.Chart.Result) == 0 {
		return nil, core.WrapError(core.ErrNoData, fmt.Errorf("no chart for %s", ticker))
	}

	return y.toRow(ticker, result.Chart.Result[0])
}

func (y *Yahoo) toRow(ticker string, r chartResult) (normalize.Row, error) {
	meta := r.Meta

	price := meta.RegularMarketPrice
	if last, ok := lastValue(r.closes()); ok {
		price = last
	}
	if price <= 0 {
		return nil, core.WrapError(core.ErrNoData, fmt.Errorf("no price for %s", ticker))
	}

	row := normalize.Row{
		"Ticker": ticker,
		"Price":  price,
		"Volume": meta.RegularMarketVolume,
	}
	if name := meta.name(); name != "" {
		row["Name"] = name
	}

	if base, ok := y.reference(r); ok && base > 0 {
		p := decimal.NewFromFloat(price)
		b := decimal.NewFromFloat(base)
		row["Change"] = p.Sub(b).Div(b).Mul(decimal.NewFromInt(100)).Round(2)
	}
	return row, nil
}

// reference returns the baseline price; ok is false when the chart has
// none, which leaves the change absent.
func (y *Yahoo) reference(r chartResult) (float64, bool) {
	if y.baseline == BaselineOpen {
		return firstValue(r.opens())
	}
	if r.Meta.ChartPreviousClose > 0 {
		return r.Meta.ChartPreviousClose, true
	}
	if r.Meta.PreviousClose > 0 {
		return r.Meta.PreviousClose, true
	}
	return 0, false
}

func firstValue(vals []*float64) (float64, bool) {
	for _, v := range vals {
		if v != nil {
			return *v, true
		}
	}
	return 0, false
}

func lastValue(vals []*float64) (float64, bool) {
	for i := len(vals) - 1; i >= 0; i-- {
		if vals[i] != nil {
			return *vals[i], true
		}
	}
	return 0, false
}

// Yahoo API response types
type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Meta       chartMeta  `json:"meta"`
	Timestamp  []int64    `json:"timestamp"`
	Indicators indicators `json:"indicators"`
}

func (r chartResult) closes() []*float64 {
	if len(r.Indicators.Quote) == 0 {
		return nil
	}
	return r.Indicators.Quote[0].Close
}

func (r chartResult) opens() []*float64 {
	if len(r.Indicators.Quote) == 0 {
		return nil
	}
	return r.Indicators.Quote[0].Open
}

type chartMeta struct {
	Symbol              string  `json:"symbol"`
	LongName            string  `json:"longName"`
	ShortName           string  `json:"shortName"`
	RegularMarketPrice  float64 `json:"regularMarketPrice"`
	RegularMarketVolume int64   `json:"regularMarketVolume"`
	ChartPreviousClose  float64 `json:"chartPreviousClose"`
	PreviousClose       float64 `json:"previousClose"`
}

func (m chartMeta) name() string {
	if m.LongName != "" {
		return m.LongName
	}
	return m.ShortName
}

type indicators struct {
	Quote []quoteIndicator `json:"quote"`
}

type quoteIndicator struct {
	Open  []*float64 `json:"open"`
	Close []*float64 `json:"close"`
}
