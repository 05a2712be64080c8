package signal

import (
	"fmt"

	"github.com/newthinker/momentum/internal/core"
	"github.com/shopspring/decimal"
)

// Default classification policy.
const (
	DefaultLongChange     = 6.0
	DefaultShortChange    = -4.0
	DefaultFlatChange     = 1.0
	DefaultMomentumVolume = 500_000
	DefaultThinVolume     = 100_000

	DefaultLongConfidence    = 0.85
	DefaultShortConfidence   = 0.80
	DefaultAvoidConfidence   = 0.60
	DefaultUnclearConfidence = 0.50
)

// Default trade-setup multipliers, applied to the last price.
const (
	DefaultEntryLow  = "0.98"
	DefaultEntryHigh = "1.01"
	DefaultStopLoss  = "0.95"
	DefaultTarget1   = "1.10"
	DefaultTarget2   = "1.20"
)

// Thresholds holds the momentum classification policy. Change values are
// in percentage points; volume comparisons are strict.
type Thresholds struct {
	LongChange     decimal.Decimal
	ShortChange    decimal.Decimal
	FlatChange     decimal.Decimal
	MomentumVolume int64
	ThinVolume     int64

	LongConfidence    float64
	ShortConfidence   float64
	AvoidConfidence   float64
	UnclearConfidence float64
}

// DefaultThresholds returns the stock policy
func DefaultThresholds() Thresholds {
	return Thresholds{
		LongChange:        decimal.NewFromFloat(DefaultLongChange),
		ShortChange:       decimal.NewFromFloat(DefaultShortChange),
		FlatChange:        decimal.NewFromFloat(DefaultFlatChange),
		MomentumVolume:    DefaultMomentumVolume,
		ThinVolume:        DefaultThinVolume,
		LongConfidence:    DefaultLongConfidence,
		ShortConfidence:   DefaultShortConfidence,
		AvoidConfidence:   DefaultAvoidConfidence,
		UnclearConfidence: DefaultUnclearConfidence,
	}
}

// Validate rejects policies that cannot produce meaningful labels.
func (t Thresholds) Validate() error {
	for name, c := range map[string]float64{
		"long_confidence":    t.LongConfidence,
		"short_confidence":   t.ShortConfidence,
		"avoid_confidence":   t.AvoidConfidence,
		"unclear_confidence": t.UnclearConfidence,
	} {
		if c < 0 || c > 1 {
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("%s must be between 0 and 1, got %f", name, c))
		}
	}
	if t.FlatChange.IsNegative() {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("flat_change cannot be negative, got %s", t.FlatChange))
	}
	if t.MomentumVolume < 0 || t.ThinVolume < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("volume thresholds cannot be negative"))
	}
	return nil
}

// Multipliers derive the trade setup from the last price.
type Multipliers struct {
	EntryLow  decimal.Decimal
	EntryHigh decimal.Decimal
	StopLoss  decimal.Decimal
	Target1   decimal.Decimal
	Target2   decimal.Decimal
}

// DefaultMultipliers returns the stock setup offsets
func DefaultMultipliers() Multipliers {
	return Multipliers{
		EntryLow:  decimal.RequireFromString(DefaultEntryLow),
		EntryHigh: decimal.RequireFromString(DefaultEntryHigh),
		StopLoss:  decimal.RequireFromString(DefaultStopLoss),
		Target1:   decimal.RequireFromString(DefaultTarget1),
		Target2:   decimal.RequireFromString(DefaultTarget2),
	}
}

// Validate checks that every multiplier is positive. Orderings such as
// stop < 1 are not enforced so callers can probe degenerate setups.
func (m Multipliers) Validate() error {
	for name, v := range map[string]decimal.Decimal{
		"entry_low":  m.EntryLow,
		"entry_high": m.EntryHigh,
		"stop_loss":  m.StopLoss,
		"target_1":   m.Target1,
		"target_2":   m.Target2,
	} {
		if !v.IsPositive() {
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("%s multiplier must be positive, got %s", name, v))
		}
	}
	return nil
}
