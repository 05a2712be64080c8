// Package normalize turns heterogeneous quote tables into typed records.
package normalize

import (
	"fmt"

	"github.com/newthinker/momentum/internal/core"
)

// RowError describes why a single row was dropped.
// errors.Is(err, core.ErrRowParse) holds for every RowError.
type RowError struct {
	Index int
	Field string
	Value any
	Cause error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d: %s %q: %v", e.Index, e.Field, fmt.Sprint(e.Value), e.Cause)
}

func (e *RowError) Unwrap() error {
	return e.Cause
}

func (e *RowError) Is(target error) bool {
	t, ok := target.(*core.Error)
	return ok && t.Code == core.ErrRowParse.Code
}

// Outcome is the tagged result for one input row: exactly one of Record
// and Err is set.
type Outcome struct {
	Index  int
	Record *core.QuoteRecord
	Err    *RowError
}

// OK reports whether the row produced a record
func (o Outcome) OK() bool {
	return o.Record != nil
}

// Result is a normalized batch.
type Result struct {
	Records []core.QuoteRecord
	Dropped []RowError
}

// Normalizer converts raw rows for one source schema.
// It holds no mutable state and is safe for concurrent use.
type Normalizer struct {
	columns ColumnMapping
}

// New validates the mapping and returns a Normalizer for it
func New(columns ColumnMapping) (*Normalizer, error) {
	if err := columns.Validate(); err != nil {
		return nil, err
	}
	return &Normalizer{columns: columns}, nil
}

// MustNew is New for mappings known at compile time
func MustNew(columns ColumnMapping) *Normalizer {
	n, err := New(columns)
	if err != nil {
		panic(err)
	}
	return n
}

// Columns returns the mapping the normalizer reads
func (n *Normalizer) Columns() ColumnMapping {
	return n.columns
}

// Normalize parses every row, keeping input order and dropping rows whose
// required fields cannot be parsed. It never fails the batch.
func (n *Normalizer) Normalize(rows []Row) Result {
	res := Result{Records: make([]core.QuoteRecord, 0, len(rows))}
	for _, o := range n.Outcomes(rows) {
		if o.OK() {
			res.Records = append(res.Records, *o.Record)
			continue
		}
		res.Dropped = append(res.Dropped, *o.Err)
	}
	return res
}

// Outcomes returns one tagged outcome per input row, in input order
func (n *Normalizer) Outcomes(rows []Row) []Outcome {
	out := make([]Outcome, len(rows))
	for i, row := range rows {
		out[i] = n.NormalizeRow(i, row)
	}
	return out
}

// NormalizeRow parses a single row. i is only used for diagnostics.
func (n *Normalizer) NormalizeRow(i int, row Row) Outcome {
	c := n.columns
	fail := func(field string, value any, err error) Outcome {
		return Outcome{Index: i, Err: &RowError{Index: i, Field: field, Value: value, Cause: err}}
	}

	rawTicker := c.lookup(row, c.Ticker)
	ticker, err := ParseTicker(rawTicker)
	if err != nil {
		return fail("ticker", rawTicker, err)
	}

	rawPrice := c.lookup(row, c.Price)
	price, err := ParsePrice(rawPrice)
	if err != nil {
		return fail("price", rawPrice, err)
	}

	rawVolume := c.lookup(row, c.Volume)
	volume, err := ParseVolume(rawVolume)
	if err != nil {
		return fail("volume", rawVolume, err)
	}

	// An unreadable change leaves the field absent; the row survives.
	change, _ := ParsePercent(c.lookup(row, c.PercentChange))

	name, _ := cellText(c.lookup(row, c.Name))

	return Outcome{
		Index: i,
		Record: &core.QuoteRecord{
			Ticker:        ticker,
			Name:          name,
			Price:         price,
			PercentChange: change,
			Volume:        volume,
		},
	}
}
