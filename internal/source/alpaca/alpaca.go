// Package alpaca reads stock snapshots from the Alpaca market data API.
package alpaca

import (
	"context"
	"fmt"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/newthinker/momentum/internal/core"
	"github.com/newthinker/momentum/internal/normalize"
	"github.com/shopspring/decimal"
)

// Change baselines.
const (
	BaselinePreviousClose = "previous_close"
	BaselineOpen          = "open"
)

// snapshotClient is the slice of marketdata.Client the source uses.
type snapshotClient interface {
	GetSnapshots(symbols []string, req marketdata.GetSnapshotRequest) (map[string]*marketdata.Snapshot, error)
}

// Alpaca implements source.Source over snapshot requests.
type Alpaca struct {
	client   snapshotClient
	baseline string
}

// New creates an Alpaca source. baseURL may be empty.
func New(apiKey, apiSecret, baseURL, baseline string) *Alpaca {
	client := marketdata.NewClient(marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
		BaseURL:   baseURL,
	})
	return newWithClient(client, baseline)
}

func newWithClient(client snapshotClient, baseline string) *Alpaca {
	if baseline == "" {
		baseline = BaselinePreviousClose
	}
	return &Alpaca{client: client, baseline: baseline}
}

func (a *Alpaca) Name() string {
	return "alpaca"
}

func (a *Alpaca) Columns() normalize.ColumnMapping {
	return normalize.DefaultColumns()
}

// FetchRows requests one snapshot batch. Symbols Alpaca does not know are
// absent from the response and simply produce no row.
func (a *Alpaca) FetchRows(ctx context.Context, tickers []string) ([]normalize.Row, error) {
	if len(tickers) == 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	snaps, err := a.client.GetSnapshots(tickers, marketdata.GetSnapshotRequest{})
	if err != nil {
		return nil, core.WrapError(core.ErrSourceFailed, fmt.Errorf("alpaca snapshots: %w", err))
	}

	rows := make([]normalize.Row, 0, len(snaps))
	for _, ticker := range tickers {
		snap, ok := snaps[ticker]
		if !ok || snap == nil {
			continue
		}
		if row := a.toRow(ticker, snap); row != nil {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

func (a *Alpaca) toRow(ticker string, s *marketdata.Snapshot) normalize.Row {
	var price float64
	switch {
	case s.LatestTrade != nil:
		price = s.LatestTrade.Price
	case s.DailyBar != nil:
		price = s.DailyBar.Close
	default:
		return nil
	}

	row := normalize.Row{
		"Ticker": ticker,
		"Price":  price,
	}
	if s.DailyBar != nil {
		row["Volume"] = s.DailyBar.Volume
	}

	var base float64
	switch {
	case a.baseline == BaselineOpen && s.DailyBar != nil:
		base = s.DailyBar.Open
	case a.baseline == BaselinePreviousClose && s.PrevDailyBar != nil:
		base = s.PrevDailyBar.Close
	}
	if base > 0 && price > 0 {
		p, b := decimal.NewFromFloat(price), decimal.NewFromFloat(base)
		row["Change"] = p.Sub(b).Div(b).Mul(decimal.NewFromInt(100)).Round(2)
	}
	return row
}
