package core

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	one  = decimal.NewFromInt(1)
	cent = decimal.RequireFromString("0.01")
)

// FormatPrice renders a price with a dollar sign. Sub-dollar prices keep
// more decimals so penny moves stay visible.
func FormatPrice(d decimal.Decimal) string {
	if d.Abs().LessThan(cent) {
		return "$" + d.StringFixed(8)
	}
	if d.Abs().LessThan(one) {
		return "$" + d.StringFixed(4)
	}
	return "$" + d.StringFixed(2)
}

// FormatChange renders a percent change with an explicit sign, or "n/a".
func FormatChange(c decimal.NullDecimal) string {
	if !c.Valid {
		return "n/a"
	}
	if c.Decimal.IsPositive() {
		return "+" + c.Decimal.StringFixed(2) + "%"
	}
	return c.Decimal.StringFixed(2) + "%"
}

// FormatRiskReward renders a ratio as 1:N, or "n/a" when undefined.
func FormatRiskReward(rr decimal.NullDecimal) string {
	if !rr.Valid {
		return "n/a"
	}
	return "1:" + rr.Decimal.StringFixed(1)
}

// FormatConfidence renders a 0..1 confidence as a whole percentage.
func FormatConfidence(c float64) string {
	return fmt.Sprintf("%.0f%%", c*100)
}
