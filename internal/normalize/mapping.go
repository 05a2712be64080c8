package normalize

import (
	"fmt"

	"github.com/newthinker/momentum/internal/core"
)

// Row is one raw quote row as handed over by a data source.
// Values may be strings with symbols, plain numbers, or missing.
type Row map[string]any

// ColumnMapping declares where each quote field lives in a source's schema.
// Name and PercentChange may be left empty when the source has no such column.
type ColumnMapping struct {
	Ticker        string `mapstructure:"ticker" json:"ticker"`
	Name          string `mapstructure:"name" json:"name,omitempty"`
	Price         string `mapstructure:"price" json:"price"`
	PercentChange string `mapstructure:"percent_change" json:"percent_change,omitempty"`
	Volume        string `mapstructure:"volume" json:"volume"`
}

// DefaultColumns is the layout used by screener-style tables
func DefaultColumns() ColumnMapping {
	return ColumnMapping{
		Ticker:        "Ticker",
		Name:          "Name",
		Price:         "Price",
		PercentChange: "Change",
		Volume:        "Volume",
	}
}

// IsZero reports whether no column was declared at all
func (m ColumnMapping) IsZero() bool {
	return m == ColumnMapping{}
}

// Validate checks the mapping once, at configuration time.
func (m ColumnMapping) Validate() error {
	required := []struct {
		field  string
		column string
	}{
		{"ticker", m.Ticker},
		{"price", m.Price},
		{"volume", m.Volume},
	}

	seen := make(map[string]string, 5)
	for _, r := range required {
		if r.column == "" {
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("column mapping: %s column is required", r.field))
		}
		if other, dup := seen[r.column]; dup {
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("column mapping: %s and %s both read %q", other, r.field, r.column))
		}
		seen[r.column] = r.field
	}

	if m.PercentChange != "" {
		if other, dup := seen[m.PercentChange]; dup {
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("column mapping: %s and percent_change both read %q", other, m.PercentChange))
		}
	}
	return nil
}

func (m ColumnMapping) lookup(row Row, column string) any {
	if column == "" {
		return nil
	}
	return row[column]
}
