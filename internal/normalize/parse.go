package normalize

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/newthinker/momentum/internal/core"
	"github.com/shopspring/decimal"
)

var (
	errMissing     = errors.New("missing value")
	errNotPositive = errors.New("must be positive")
	errNegative    = errors.New("must not be negative")
	errOverflow    = errors.New("out of range")
	errNotFinite   = errors.New("not a finite number")
)

var (
	thousand = decimal.NewFromInt(1_000)
	million  = decimal.NewFromInt(1_000_000)
	maxInt64 = decimal.NewFromInt(math.MaxInt64)
)

// cellText renders a loosely typed cell as trimmed text.
// Missing cells come back as the empty string.
func cellText(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "", nil
	case string:
		return strings.TrimSpace(x), nil
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return "", errNotFinite
		}
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	case float32:
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return "", errNotFinite
		}
		return strconv.FormatFloat(f, 'f', -1, 32), nil
	case int:
		return strconv.Itoa(x), nil
	case int32:
		return strconv.FormatInt(int64(x), 10), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case uint64:
		return strconv.FormatUint(x, 10), nil
	case json.Number:
		return x.String(), nil
	case decimal.Decimal:
		return x.String(), nil
	case fmt.Stringer:
		return strings.TrimSpace(x.String()), nil
	default:
		return strings.TrimSpace(fmt.Sprint(x)), nil
	}
}

// Cells are bounded before any arithmetic: a value such as "1e-20000000"
// parses cheaply but makes later rescaling cost seconds.
const (
	maxNumberLen = 64
	maxExponent  = 30
)

func parseDecimal(s string) (decimal.Decimal, error) {
	if len(s) > maxNumberLen {
		return decimal.Zero, errOverflow
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("not a number: %q", s)
	}
	if exp := d.Exponent(); exp > maxExponent || exp < -maxExponent {
		return decimal.Zero, errOverflow
	}
	return d, nil
}

// ParseTicker trims and uppercases a symbol.
func ParseTicker(v any) (string, error) {
	s, err := cellText(v)
	if err != nil {
		return "", err
	}
	s = strings.ToUpper(s)
	if s == "" {
		return "", errMissing
	}
	return s, nil
}

// ParsePrice strips currency symbols and thousands separators. The
// result is always strictly positive.
func ParsePrice(v any) (decimal.Decimal, error) {
	s, err := cellText(v)
	if err != nil {
		return decimal.Zero, err
	}
	s = strings.NewReplacer("$", "", ",", "").Replace(s)
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, errMissing
	}

	d, err := parseDecimal(s)
	if err != nil {
		return decimal.Zero, err
	}
	if !d.IsPositive() {
		return decimal.Zero, errNotPositive
	}
	return d, nil
}

// ParsePercent strips "%" and a leading "+". A missing value is not an
// error; an unparsable one returns the error alongside an invalid result
// so callers may keep the row.
func ParsePercent(v any) (decimal.NullDecimal, error) {
	s, err := cellText(v)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	s = strings.NewReplacer("%", "", ",", "").Replace(s)
	s = strings.TrimPrefix(strings.TrimSpace(s), "+")
	if s == "" {
		return decimal.NullDecimal{}, nil
	}

	d, err := parseDecimal(s)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NewNullDecimal(d), nil
}

// ParseVolume accepts "1,234", "650K" or "1.2m". Fractional results are
// truncated toward zero.
func ParseVolume(v any) (int64, error) {
	s, err := cellText(v)
	if err != nil {
		return 0, err
	}
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return 0, errMissing
	}

	mult := decimal.NewFromInt(1)
	switch s[len(s)-1] {
	case 'k', 'K':
		mult = thousand
		s = strings.TrimSpace(s[:len(s)-1])
	case 'm', 'M':
		mult = million
		s = strings.TrimSpace(s[:len(s)-1])
	}

	d, err := parseDecimal(s)
	if err != nil {
		return 0, err
	}
	d = d.Mul(mult)
	if d.IsNegative() {
		return 0, errNegative
	}
	if d.GreaterThan(maxInt64) {
		return 0, errOverflow
	}
	return d.IntPart(), nil
}

// FormatRow renders a record the way screener tables print it. Feeding the
// result back through a Normalizer with the same mapping yields an equal
// record.
func FormatRow(rec core.QuoteRecord, m ColumnMapping) Row {
	row := Row{
		m.Ticker: rec.Ticker,
		m.Price:  "$" + addThousands(rec.Price.String()),
		m.Volume: addThousands(strconv.FormatInt(rec.Volume, 10)),
	}
	if m.Name != "" {
		row[m.Name] = rec.Name
	}
	if m.PercentChange != "" {
		if pc := rec.PercentChange; pc.Valid {
			sign := ""
			if !pc.Decimal.IsNegative() {
				sign = "+"
			}
			row[m.PercentChange] = sign + pc.Decimal.String() + "%"
		} else {
			row[m.PercentChange] = ""
		}
	}
	return row
}

// addThousands inserts "," separators into the integer part of a plain
// decimal string.
func addThousands(s string) string {
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	intPart, frac, hasFrac := strings.Cut(s, ".")

	var sb strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			sb.WriteByte(',')
		}
		sb.WriteRune(r)
	}

	out := sb.String()
	if hasFrac {
		out += "." + frac
	}
	if neg {
		out = "-" + out
	}
	return out
}
