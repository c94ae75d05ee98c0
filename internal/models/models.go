// Package models provides domain models for the trading assistant.
package models

import (
	"time"
)

// OptionRight represents the right of an option contract.
type OptionRight string

const (
	RightCall OptionRight = "CALL"
	RightPut  OptionRight = "PUT"
)

// Valid reports whether the right is a known value.
func (r OptionRight) Valid() bool {
	return r == RightCall || r == RightPut
}

// OrderSide represents the side of an order.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

// Timeframe represents a candle granularity.
type Timeframe string

const (
	Timeframe1Min  Timeframe = "1min"
	Timeframe5Min  Timeframe = "5min"
	Timeframe15Min Timeframe = "15min"
	TimeframeDaily Timeframe = "daily"
)

// SupportedTimeframes lists the candle granularities the gateway can serve.
var SupportedTimeframes = []Timeframe{Timeframe1Min, Timeframe5Min, Timeframe15Min, TimeframeDaily}

// Valid reports whether the timeframe is supported.
func (t Timeframe) Valid() bool {
	for _, tf := range SupportedTimeframes {
		if t == tf {
			return true
		}
	}
	return false
}

// Candle represents OHLCV data for a time period.
type Candle struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    int64
}

// Quote represents a spot market quote for an underlying.
type Quote struct {
	Symbol    string
	Last      float64
	Bid       float64
	Ask       float64
	Volume    int64
	Timestamp time.Time
}

// Instrument represents a qualified underlying instrument.
type Instrument struct {
	Symbol   string
	Name     string
	Exchange string
	Currency string
}

// ChainParams describes an option chain for an underlying: the available
// expirations and strikes plus contract metadata shared across the chain.
type ChainParams struct {
	Underlying   string
	Expirations  []time.Time
	Strikes      []float64
	TradingClass string
	Multiplier   int
}
