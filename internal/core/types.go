package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// Market represents the venue class a ticker trades on
type Market string

const (
	MarketUS     Market = "US"
	MarketOTC    Market = "OTC"
	MarketCrypto Market = "CRYPTO"
)

// Signal is the momentum label assigned to a quote
type Signal string

const (
	SignalLong    Signal = "LONG"
	SignalShort   Signal = "SHORT"
	SignalAvoid   Signal = "AVOID"
	SignalUnclear Signal = "UNCLEAR"
)

// Signals lists every label in display order
func Signals() []Signal {
	return []Signal{SignalLong, SignalShort, SignalAvoid, SignalUnclear}
}

// ParseSignal converts a label into a Signal
func ParseSignal(s string) (Signal, bool) {
	for _, sig := range Signals() {
		if string(sig) == s {
			return sig, true
		}
	}
	return "", false
}

// QuoteRecord is one ticker's latest market snapshot.
// Built fresh per scan and never mutated afterwards.
type QuoteRecord struct {
	Ticker        string              `json:"ticker"`
	Name          string              `json:"name,omitempty"`
	Price         decimal.Decimal     `json:"price"`
	PercentChange decimal.NullDecimal `json:"percent_change"`
	Volume        int64               `json:"volume"`
}

// IsValid reports whether the record satisfies the normalizer's output invariants
func (q QuoteRecord) IsValid() bool {
	return q.Ticker != "" && q.Price.IsPositive() && q.Volume >= 0
}

// HasChange reports whether a percent-change reference was available
func (q QuoteRecord) HasChange() bool {
	return q.PercentChange.Valid
}

// TradeAssessment is the engine's verdict for a single QuoteRecord
type TradeAssessment struct {
	Ticker           string              `json:"ticker"`
	Name             string              `json:"name,omitempty"`
	Price            decimal.Decimal     `json:"price"`
	PercentChange    decimal.NullDecimal `json:"percent_change"`
	Volume           int64               `json:"volume"`
	Signal           Signal              `json:"signal"`
	Confidence       float64             `json:"confidence"`
	EntryLow         decimal.Decimal     `json:"entry_low"`
	EntryHigh        decimal.Decimal     `json:"entry_high"`
	StopLoss         decimal.Decimal     `json:"stop_loss"`
	Target1          decimal.Decimal     `json:"target_1"`
	Target2          decimal.Decimal     `json:"target_2"`
	RiskReward       decimal.NullDecimal `json:"risk_reward"`
	SharesAffordable int64               `json:"shares_affordable"`
	AssessedAt       time.Time           `json:"assessed_at"`
}

// Quote returns the source record the assessment was derived from
func (a TradeAssessment) Quote() QuoteRecord {
	return QuoteRecord{
		Ticker:        a.Ticker,
		Name:          a.Name,
		Price:         a.Price,
		PercentChange: a.PercentChange,
		Volume:        a.Volume,
	}
}
