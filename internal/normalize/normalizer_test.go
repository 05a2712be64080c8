package normalize

import (
	"errors"
	"testing"

	"github.com/newthinker/momentum/internal/core"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var cryptoColumns = ColumnMapping{
	Ticker:        "symbol",
	Name:          "name",
	Price:         "current_price",
	PercentChange: "price_change_percentage_24h",
	Volume:        "total_volume",
}

func TestColumnMapping_Validate(t *testing.T) {
	tests := []struct {
		name    string
		m       ColumnMapping
		wantErr bool
	}{
		{"default", DefaultColumns(), false},
		{"crypto", cryptoColumns, false},
		{"no change column", ColumnMapping{Ticker: "T", Price: "P", Volume: "V"}, false},
		{"missing ticker", ColumnMapping{Price: "P", Volume: "V"}, true},
		{"missing price", ColumnMapping{Ticker: "T", Volume: "V"}, true},
		{"missing volume", ColumnMapping{Ticker: "T", Price: "P"}, true},
		{"shared column", ColumnMapping{Ticker: "T", Price: "P", Volume: "P"}, true},
		{"change reads price", ColumnMapping{Ticker: "T", Price: "P", Volume: "V", PercentChange: "P"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.m.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, core.ErrConfigInvalid))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestNew_RejectsInvalidMapping(t *testing.T) {
	_, err := New(ColumnMapping{})
	assert.Error(t, err)
	assert.Panics(t, func() { MustNew(ColumnMapping{}) })
}

func TestNormalize_EndToEndRow(t *testing.T) {
	n := MustNew(DefaultColumns())

	res := n.Normalize([]Row{
		{"Ticker": " reli ", "Price": "$1.23", "Change": "+7.50%", "Volume": "650K"},
	})

	require.Len(t, res.Records, 1)
	assert.Empty(t, res.Dropped)

	rec := res.Records[0]
	assert.Equal(t, "RELI", rec.Ticker)
	assert.True(t, rec.Price.Equal(decimal.RequireFromString("1.23")))
	require.True(t, rec.PercentChange.Valid)
	assert.True(t, rec.PercentChange.Decimal.Equal(decimal.RequireFromString("7.5")))
	assert.Equal(t, int64(650000), rec.Volume)
}

func TestNormalize_PreservesOrder(t *testing.T) {
	n := MustNew(DefaultColumns())

	rows := []Row{
		{"Ticker": "aaa", "Price": "1", "Volume": "10"},
		{"Ticker": "bbb", "Price": "N/A", "Volume": "10"},
		{"Ticker": "ccc", "Price": "3", "Volume": "30"},
		{"Ticker": "", "Price": "4", "Volume": "40"},
		{"Ticker": "eee", "Price": "5", "Volume": "50"},
		{"Ticker": "aaa", "Price": "6", "Volume": "60"},
	}

	res := n.Normalize(rows)

	var got []string
	for _, r := range res.Records {
		got = append(got, r.Ticker)
	}
	assert.Equal(t, []string{"AAA", "CCC", "EEE", "AAA"}, got, "survivors keep input order, duplicates pass through")
	require.Len(t, res.Dropped, 2)
	assert.Equal(t, 1, res.Dropped[0].Index)
	assert.Equal(t, "price", res.Dropped[0].Field)
	assert.Equal(t, 3, res.Dropped[1].Index)
	assert.Equal(t, "ticker", res.Dropped[1].Field)
}

func TestNormalize_RejectionRules(t *testing.T) {
	n := MustNew(DefaultColumns())

	tests := []struct {
		name      string
		row       Row
		keep      bool
		field     string
		hasChange bool
	}{
		{"non numeric price", Row{"Ticker": "X", "Price": "N/A", "Change": "1%", "Volume": "1"}, false, "price", false},
		{"missing volume", Row{"Ticker": "X", "Price": "1", "Change": "1%"}, false, "volume", false},
		{"garbage volume", Row{"Ticker": "X", "Price": "1", "Change": "1%", "Volume": "--"}, false, "volume", false},
		{"missing change kept", Row{"Ticker": "X", "Price": "1", "Volume": "1"}, true, "", false},
		{"unparsable change kept", Row{"Ticker": "X", "Price": "1", "Change": "n/a", "Volume": "1"}, true, "", false},
		{"all fields", Row{"Ticker": "X", "Price": "1", "Change": "-2%", "Volume": "1"}, true, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := n.NormalizeRow(0, tt.row)
			require.Equal(t, tt.keep, o.OK())
			if !tt.keep {
				require.NotNil(t, o.Err)
				assert.Nil(t, o.Record)
				assert.Equal(t, tt.field, o.Err.Field)
				assert.True(t, errors.Is(o.Err, core.ErrRowParse))
				return
			}
			assert.Nil(t, o.Err)
			assert.Equal(t, tt.hasChange, o.Record.HasChange())
			assert.True(t, o.Record.IsValid())
		})
	}
}

func TestNormalize_NumericCells(t *testing.T) {
	n := MustNew(cryptoColumns)

	res := n.Normalize([]Row{
		{"symbol": "btc", "name": "Bitcoin", "current_price": 67000.5, "price_change_percentage_24h": -1.25, "total_volume": 3.2e10},
		{"symbol": "doge", "name": "Dogecoin", "current_price": 0.12, "total_volume": 1e9},
	})

	require.Len(t, res.Records, 2)
	assert.Equal(t, "BTC", res.Records[0].Ticker)
	assert.Equal(t, "Bitcoin", res.Records[0].Name)
	assert.Equal(t, int64(32_000_000_000), res.Records[0].Volume)
	assert.True(t, res.Records[0].PercentChange.Decimal.Equal(decimal.RequireFromString("-1.25")))
	assert.False(t, res.Records[1].HasChange())
}

func TestNormalize_Idempotent(t *testing.T) {
	n := MustNew(DefaultColumns())

	first := n.Normalize([]Row{
		{"Ticker": "gns", "Name": "Genius Group", "Price": "$1,204.5", "Change": "-4.01%", "Volume": "1.2M"},
		{"Ticker": "ptle", "Price": "0.0045", "Change": "", "Volume": "12,000"},
		{"Ticker": "top", "Price": "2", "Change": "0%", "Volume": "0"},
	})
	require.Len(t, first.Records, 3)

	rows := make([]Row, len(first.Records))
	for i, rec := range first.Records {
		rows[i] = FormatRow(rec, DefaultColumns())
	}
	second := n.Normalize(rows)
	require.Len(t, second.Records, len(first.Records))

	for i := range first.Records {
		a, b := first.Records[i], second.Records[i]
		assert.Equal(t, a.Ticker, b.Ticker)
		assert.Equal(t, a.Name, b.Name)
		assert.True(t, a.Price.Equal(b.Price), "price %s vs %s", a.Price, b.Price)
		assert.Equal(t, a.Volume, b.Volume)
		assert.Equal(t, a.PercentChange.Valid, b.PercentChange.Valid)
		if a.PercentChange.Valid {
			assert.True(t, a.PercentChange.Decimal.Equal(b.PercentChange.Decimal))
		}
	}
}

func TestNormalize_OutcomesAreTagged(t *testing.T) {
	n := MustNew(DefaultColumns())

	outcomes := n.Outcomes([]Row{
		{"Ticker": "a", "Price": "1", "Volume": "1"},
		{"Ticker": "b", "Price": "x", "Volume": "1"},
	})

	require.Len(t, outcomes, 2)
	for i, o := range outcomes {
		assert.Equal(t, i, o.Index)
		assert.NotEqual(t, o.Record == nil, o.Err == nil, "exactly one of Record and Err is set")
	}
	assert.Contains(t, outcomes[1].Err.Error(), "row 1: price")
}
