package screener

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/newthinker/momentum/internal/core"
	"github.com/newthinker/momentum/internal/normalize"
	"github.com/newthinker/momentum/internal/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const page = `<html><body>
<table class="ads"><tr><th>Sponsored</th></tr><tr><td>Buy now</td></tr></table>
<table id="movers">
  <thead><tr><th>Symbol</th><th>Company</th><th>Last</th><th>Chg %</th><th>Vol</th></tr></thead>
  <tbody>
    <tr><td><a href="/q/reli">reli</a></td><td>Reliance   Global</td><td>$1.23</td><td>+7.50%</td><td>650K</td></tr>
    <tr><td>GNS</td><td>Genius Group</td><td>$2.00</td><td>-5.10%</td><td>1.2M</td></tr>
    <tr><td>TOP</td><td>TOP Financial</td><td>n/a</td><td>0.5%</td><td>12,000</td></tr>
  </tbody>
</table>
</body></html>`

var columns = normalize.ColumnMapping{
	Ticker:        "Symbol",
	Name:          "Company",
	Price:         "Last",
	PercentChange: "Chg %",
	Volume:        "Vol",
}

func TestNew_Validates(t *testing.T) {
	_, err := New(Config{Selector: "table"})
	assert.True(t, errors.Is(err, core.ErrConfigMissing))

	_, err = New(Config{URL: "http://x", Selector: "table", Columns: normalize.ColumnMapping{Ticker: "T"}})
	assert.True(t, errors.Is(err, core.ErrConfigInvalid))

	s, err := New(Config{URL: "http://x", Selector: "table"})
	require.NoError(t, err)
	assert.Equal(t, normalize.DefaultColumns(), s.Columns())

	var _ source.Source = s
}

func TestParseTable_Thead(t *testing.T) {
	rows, err := ParseTable(strings.NewReader(page), "table#movers")
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, normalize.Row{
		"Symbol": "reli", "Company": "Reliance Global", "Last": "$1.23", "Chg %": "+7.50%", "Vol": "650K",
	}, rows[0])

	res := normalize.MustNew(columns).Normalize(rows)
	require.Len(t, res.Records, 2)
	require.Len(t, res.Dropped, 1)
	assert.Equal(t, "price", res.Dropped[0].Field)
	assert.Equal(t, int64(1_200_000), res.Records[1].Volume)
}

func TestParseTable_HeaderRow(t *testing.T) {
	html := `<table class="plain">
<tr><td>Ticker</td><td>Price</td><td>Volume</td></tr>
<tr><td>ACXP</td><td>0.91</td><td>2,000,000</td></tr>
</table>`
	rows, err := ParseTable(strings.NewReader(html), "table.plain")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "ACXP", rows[0]["Ticker"])
	assert.Equal(t, "2,000,000", rows[0]["Volume"])
}

func TestParseTable_NoMatch(t *testing.T) {
	_, err := ParseTable(strings.NewReader(page), "table.missing")
	assert.True(t, errors.Is(err, core.ErrNoData))
}

func TestScreener_FetchRows(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(page))
	}))
	defer srv.Close()

	s, err := New(Config{URL: srv.URL, Selector: "#movers", Columns: columns})
	require.NoError(t, err)

	rows, err := s.FetchRows(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, rows, 3)

	rows, err = s.FetchRows(context.Background(), []string{"RELI"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "reli", rows[0]["Symbol"])
}

func TestScreener_FetchRows_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	s, err := New(Config{URL: srv.URL, Selector: "#movers", Columns: columns})
	require.NoError(t, err)

	_, err = s.FetchRows(context.Background(), nil)
	assert.True(t, errors.Is(err, core.ErrSourceFailed))
}
