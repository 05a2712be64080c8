// Package signal classifies quote momentum and derives trade setups.
//
// The engine is pure: no I/O, no clock, no shared mutable state. Every
// call depends only on its arguments and the policy fixed at
// construction, so a single Engine may be shared across goroutines.
package signal

import (
	"fmt"
	"math"
	"sort"

	"github.com/newthinker/momentum/internal/core"
	"github.com/shopspring/decimal"
)

// TradeSetup is the price ladder derived from a single price.
type TradeSetup struct {
	EntryLow   decimal.Decimal
	EntryHigh  decimal.Decimal
	StopLoss   decimal.Decimal
	Target1    decimal.Decimal
	Target2    decimal.Decimal
	RiskReward decimal.NullDecimal
}

// Engine applies a classification policy and setup multipliers.
type Engine struct {
	thresholds  Thresholds
	multipliers Multipliers
}

// Option configures an Engine
type Option func(*Engine)

// WithThresholds overrides the classification policy
func WithThresholds(t Thresholds) Option {
	return func(e *Engine) { e.thresholds = t }
}

// WithMultipliers overrides the setup offsets
func WithMultipliers(m Multipliers) Option {
	return func(e *Engine) { e.multipliers = m }
}

// NewEngine creates an engine with the default policy unless overridden
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		thresholds:  DefaultThresholds(),
		multipliers: DefaultMultipliers(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var defaultEngine = NewEngine()

// Assess runs the default engine
func Assess(rec core.QuoteRecord, buyingPower decimal.Decimal) (core.TradeAssessment, error) {
	return defaultEngine.Assess(rec, buyingPower)
}

// Thresholds returns the engine's classification policy
func (e *Engine) Thresholds() Thresholds {
	return e.thresholds
}

// Multipliers returns the engine's setup offsets
func (e *Engine) Multipliers() Multipliers {
	return e.multipliers
}

// Classify labels a record. Rules are evaluated in priority order and the
// first match wins.
func (e *Engine) Classify(rec core.QuoteRecord) (core.Signal, float64) {
	t := e.thresholds

	if !rec.PercentChange.Valid {
		return core.SignalUnclear, t.UnclearConfidence
	}
	change := rec.PercentChange.Decimal

	switch {
	case change.GreaterThan(t.LongChange) && rec.Volume > t.MomentumVolume:
		return core.SignalLong, t.LongConfidence
	case change.LessThan(t.ShortChange) && rec.Volume > t.MomentumVolume:
		return core.SignalShort, t.ShortConfidence
	case change.Abs().LessThan(t.FlatChange) && rec.Volume < t.ThinVolume:
		return core.SignalAvoid, t.AvoidConfidence
	default:
		return core.SignalUnclear, t.UnclearConfidence
	}
}

// Setup derives entry zone, stop and targets from price. RiskReward is
// left invalid when the stop does not sit below the price.
func (e *Engine) Setup(price decimal.Decimal) TradeSetup {
	m := e.multipliers
	s := TradeSetup{
		EntryLow:  price.Mul(m.EntryLow),
		EntryHigh: price.Mul(m.EntryHigh),
		StopLoss:  price.Mul(m.StopLoss),
		Target1:   price.Mul(m.Target1),
		Target2:   price.Mul(m.Target2),
	}

	risk := price.Sub(s.StopLoss)
	if risk.IsPositive() {
		reward := s.Target1.Sub(price)
		s.RiskReward = decimal.NewNullDecimal(reward.Div(risk))
	}
	return s
}

var maxShares = decimal.NewFromInt(math.MaxInt64)

// SharesAffordable returns floor(buyingPower / price), saturating at
// math.MaxInt64. price must be positive and buyingPower non-negative.
func SharesAffordable(buyingPower, price decimal.Decimal) int64 {
	q, _ := buyingPower.QuoRem(price, 0)
	if q.GreaterThan(maxShares) {
		return math.MaxInt64
	}
	return q.IntPart()
}

// Assess classifies rec and derives its setup. Records that break the
// normalizer's invariants are rejected with core.ErrInvalidInput.
func (e *Engine) Assess(rec core.QuoteRecord, buyingPower decimal.Decimal) (core.TradeAssessment, error) {
	if err := checkPreconditions(rec, buyingPower); err != nil {
		return core.TradeAssessment{}, err
	}

	sig, confidence := e.Classify(rec)
	setup := e.Setup(rec.Price)

	return core.TradeAssessment{
		Ticker:           rec.Ticker,
		Name:             rec.Name,
		Price:            rec.Price,
		PercentChange:    rec.PercentChange,
		Volume:           rec.Volume,
		Signal:           sig,
		Confidence:       confidence,
		EntryLow:         setup.EntryLow,
		EntryHigh:        setup.EntryHigh,
		StopLoss:         setup.StopLoss,
		Target1:          setup.Target1,
		Target2:          setup.Target2,
		RiskReward:       setup.RiskReward,
		SharesAffordable: SharesAffordable(buyingPower, rec.Price),
	}, nil
}

// AssessAll assesses records in order. It stops at the first contract
// violation.
func (e *Engine) AssessAll(recs []core.QuoteRecord, buyingPower decimal.Decimal) ([]core.TradeAssessment, error) {
	out := make([]core.TradeAssessment, 0, len(recs))
	for _, rec := range recs {
		a, err := e.Assess(rec, buyingPower)
		if err != nil {
			return out, fmt.Errorf("assessing %s: %w", rec.Ticker, err)
		}
		out = append(out, a)
	}
	return out, nil
}

func checkPreconditions(rec core.QuoteRecord, buyingPower decimal.Decimal) error {
	switch {
	case rec.Ticker == "":
		return core.WrapError(core.ErrInvalidInput, fmt.Errorf("ticker is empty"))
	case !rec.Price.IsPositive():
		return core.WrapError(core.ErrInvalidInput,
			fmt.Errorf("%s: price must be positive, got %s", rec.Ticker, rec.Price))
	case rec.Volume < 0:
		return core.WrapError(core.ErrInvalidInput,
			fmt.Errorf("%s: volume cannot be negative, got %d", rec.Ticker, rec.Volume))
	case buyingPower.IsNegative():
		return core.WrapError(core.ErrInvalidInput,
			fmt.Errorf("buying power cannot be negative, got %s", buyingPower))
	}
	return nil
}

// SortByChange orders assessments by percent change, largest first.
// Assessments without a change sort last; ties keep their order.
func SortByChange(as []core.TradeAssessment) {
	sort.SliceStable(as, func(i, j int) bool {
		a, b := as[i].PercentChange, as[j].PercentChange
		if a.Valid != b.Valid {
			return a.Valid
		}
		if !a.Valid {
			return false
		}
		return a.Decimal.GreaterThan(b.Decimal)
	})
}
