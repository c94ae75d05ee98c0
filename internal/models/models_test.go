package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRequest() TradeRequest {
	return TradeRequest{
		Capital:    1000,
		Symbol:     "AAPL",
		Timeframe:  Timeframe1Min,
		Right:      RightCall,
		EntryLevel: 450,
		TakeProfit: 460,
		StopLoss:   440,
	}
}

func TestTradeRequestValidate(t *testing.T) {
	require.NoError(t, validRequest().Validate())

	tests := []struct {
		name   string
		mutate func(*TradeRequest)
	}{
		{"zero capital", func(r *TradeRequest) { r.Capital = 0 }},
		{"negative capital", func(r *TradeRequest) { r.Capital = -100 }},
		{"empty symbol", func(r *TradeRequest) { r.Symbol = "  " }},
		{"bad timeframe", func(r *TradeRequest) { r.Timeframe = "2min" }},
		{"bad right", func(r *TradeRequest) { r.Right = "STRADDLE" }},
		{"zero entry", func(r *TradeRequest) { r.EntryLevel = 0 }},
		{"zero take profit", func(r *TradeRequest) { r.TakeProfit = 0 }},
		{"zero stop loss", func(r *TradeRequest) { r.StopLoss = 0 }},
		{"take profit below stop loss", func(r *TradeRequest) { r.TakeProfit = 430 }},
		{"take profit equals stop loss", func(r *TradeRequest) { r.TakeProfit = 440 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(&req)
			assert.Error(t, req.Validate())
		})
	}
}

func TestOptionQuoteMidpoint(t *testing.T) {
	mid, ok := OptionQuote{Bid: 1.00, Ask: 1.20}.Midpoint()
	require.True(t, ok)
	assert.InDelta(t, 1.10, mid, 1e-9)

	mid, ok = OptionQuote{Ask: 1.20}.Midpoint()
	require.True(t, ok)
	assert.Equal(t, 1.20, mid)

	mid, ok = OptionQuote{Bid: 1.00}.Midpoint()
	require.True(t, ok)
	assert.Equal(t, 1.00, mid)

	_, ok = OptionQuote{}.Midpoint()
	assert.False(t, ok)
}

func TestOptionQuoteTradable(t *testing.T) {
	g := &Greeks{Delta: 0.3}
	assert.True(t, OptionQuote{Ask: 1.20, Greeks: g}.Tradable())
	assert.False(t, OptionQuote{Ask: 0, Greeks: g}.Tradable())
	assert.False(t, OptionQuote{Ask: 1.20, Greeks: nil}.Tradable())
}

func TestSessionStatusExitCode(t *testing.T) {
	assert.Equal(t, 0, SessionClosed.ExitCode())
	assert.Equal(t, 2, SessionAbortedUnfilled.ExitCode())
	assert.Equal(t, 2, SessionPositionMismatch.ExitCode())
	assert.Equal(t, 3, SessionManualIntervention.ExitCode())
	assert.Equal(t, 130, SessionInterrupted.ExitCode())
	assert.Equal(t, 1, SessionGatewayError.ExitCode())
}

func TestSessionResultPnL(t *testing.T) {
	result := SessionResult{
		Quantity:   4,
		EntryPrice: 2.40,
		ExitPrice:  3.10,
		Contract:   OptionContract{Multiplier: 100},
	}
	assert.InDelta(t, 280.0, result.PnL(), 1e-9)

	// A session that never round-tripped has no P&L.
	assert.Zero(t, SessionResult{Quantity: 4, EntryPrice: 2.40, Contract: OptionContract{Multiplier: 100}}.PnL())
}

func TestNewTradeState(t *testing.T) {
	contract := OptionContract{Underlying: "AAPL", Strike: 190, Right: RightCall, Expiry: time.Now()}
	state := NewTradeState(contract)
	assert.Equal(t, PhaseSearching, state.Phase)
	assert.Equal(t, contract, state.Contract)
	assert.False(t, state.StartedAt.IsZero())
}
