package models

import (
	"fmt"
	"time"
)

// Greeks represents option sensitivity measures. A nil *Greeks on a quote
// means the data feed had no model data for the contract.
type Greeks struct {
	Delta             float64
	Gamma             float64
	Theta             float64
	Vega              float64
	ImpliedVolatility float64
}

// OptionContract represents a single option contract. Immutable once
// qualified by the gateway; Symbol is the broker-assigned identity.
type OptionContract struct {
	Underlying   string
	Symbol       string
	Expiry       time.Time
	Strike       float64
	Right        OptionRight
	Exchange     string
	Currency     string
	TradingClass string
	Multiplier   int
}

// Describe returns a short human-readable label for the contract.
func (c OptionContract) Describe() string {
	return fmt.Sprintf("%s %s %.2f %s", c.Underlying, c.Expiry.Format("2006-01-02"), c.Strike, c.Right)
}

// OptionQuote is a point-in-time market snapshot for one contract.
// A zero bid or ask means no price on that side; Greeks may be nil.
type OptionQuote struct {
	Bid       float64
	Ask       float64
	Last      float64
	Greeks    *Greeks
	Timestamp time.Time
}

// Midpoint returns the limit price for a midpoint-pegged order:
// (bid+ask)/2 when both sides are present, otherwise whichever of
// ask/bid is present. Returns false if neither side has a price.
func (q OptionQuote) Midpoint() (float64, bool) {
	switch {
	case q.Bid > 0 && q.Ask > 0:
		return (q.Bid + q.Ask) / 2, true
	case q.Ask > 0:
		return q.Ask, true
	case q.Bid > 0:
		return q.Bid, true
	default:
		return 0, false
	}
}

// Tradable reports whether the quote shows a market that can be scored:
// a non-zero ask and model greeks with a delta.
func (q OptionQuote) Tradable() bool {
	return q.Ask != 0 && q.Greeks != nil
}

// ScoredCandidate pairs a contract with its quote and desirability score.
// Derived data, recomputed on every scoring pass.
type ScoredCandidate struct {
	Contract OptionContract
	Quote    OptionQuote
	Score    float64
	Scored   bool
}

// ScoreResult is the outcome of one scoring pass over a candidate set.
// Candidates are ordered by descending delta for presentation; Best is
// the index of the highest-scoring candidate, -1 when Ranked is false.
type ScoreResult struct {
	Candidates []ScoredCandidate
	Ranked     bool
	Best       int
}
