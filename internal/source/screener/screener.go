// Package screener scrapes an HTML screener table. The table is located
// by a declared CSS selector and each cell is keyed by its column header.
package screener

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/newthinker/momentum/internal/core"
	"github.com/newthinker/momentum/internal/normalize"
)

// Config describes one screener page.
type Config struct {
	URL      string
	Selector string
	Columns  normalize.ColumnMapping
}

// Screener implements source.Source
type Screener struct {
	client *http.Client
	cfg    Config
}

// New creates a screener source. The column mapping must validate.
func New(cfg Config) (*Screener, error) {
	if cfg.URL == "" {
		return nil, core.WrapError(core.ErrConfigMissing, fmt.Errorf("screener url is required"))
	}
	if cfg.Selector == "" {
		return nil, core.WrapError(core.ErrConfigMissing, fmt.Errorf("screener selector is required"))
	}
	if cfg.Columns.IsZero() {
		cfg.Columns = normalize.DefaultColumns()
	}
	if err := cfg.Columns.Validate(); err != nil {
		return nil, err
	}
	return &Screener{
		client: &http.Client{Timeout: 15 * time.Second},
		cfg:    cfg,
	}, nil
}

func (s *Screener) Name() string {
	return "screener"
}

func (s *Screener) Columns() normalize.ColumnMapping {
	return s.cfg.Columns
}

// FetchRows downloads the page and returns every data row of the selected
// table. tickers, when given, restricts the result.
func (s *Screener) FetchRows(ctx context.Context, tickers []string) ([]normalize.Row, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (momentum scanner)")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, core.WrapError(core.ErrSourceFailed, fmt.Errorf("fetching screener: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, core.WrapError(core.ErrSourceFailed, fmt.Errorf("unexpected status: %d", resp.StatusCode))
	}

	rows, err := ParseTable(resp.Body, s.cfg.Selector)
	if err != nil {
		return nil, err
	}
	return filterTickers(rows, s.cfg.Columns.Ticker, tickers), nil
}

// ParseTable extracts rows from the first element matching selector. The
// header comes from <thead> cells when present, otherwise from the first
// row.
func ParseTable(r io.Reader, selector string) ([]normalize.Row, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parsing html: %w", err)
	}

	table := doc.Find(selector).First()
	if table.Length() == 0 {
		return nil, core.WrapError(core.ErrNoData, fmt.Errorf("no element matches %q", selector))
	}

	var headers []string
	body := table.Find("tr")
	if head := table.Find("thead tr").First(); head.Length() > 0 {
		headers = cellTexts(head.Find("th, td"))
		body = table.Find("tbody tr")
	} else {
		first := body.First()
		headers = cellTexts(first.Find("th, td"))
		body = body.Slice(1, goquery.ToEnd)
	}
	if len(headers) == 0 {
		return nil, core.WrapError(core.ErrNoData, fmt.Errorf("table %q has no header", selector))
	}

	var rows []normalize.Row
	body.Each(func(_ int, tr *goquery.Selection) {
		cells := cellTexts(tr.Find("td"))
		if len(cells) == 0 {
			return
		}
		row := make(normalize.Row, len(headers))
		for i, h := range headers {
			if i < len(cells) && h != "" {
				row[h] = cells[i]
			}
		}
		rows = append(rows, row)
	})
	return rows, nil
}

func cellTexts(sel *goquery.Selection) []string {
	out := make([]string, 0, sel.Length())
	sel.Each(func(_ int, c *goquery.Selection) {
		out = append(out, strings.Join(strings.Fields(c.Text()), " "))
	})
	return out
}

func filterTickers(rows []normalize.Row, column string, tickers []string) []normalize.Row {
	if len(tickers) == 0 {
		return rows
	}
	want := make(map[string]bool, len(tickers))
	for _, t := range tickers {
		want[strings.ToUpper(strings.TrimSpace(t))] = true
	}

	out := rows[:0]
	for _, row := range rows {
		v, _ := row[column].(string)
		if want[strings.ToUpper(strings.TrimSpace(v))] {
			out = append(out, row)
		}
	}
	return out
}
