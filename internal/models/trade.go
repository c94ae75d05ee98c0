package models

import (
	"strings"
	"time"

	apperrors "options-trader/internal/errors"
)

// TradeRequest is the trader's intent for one session. Immutable once
// collected.
type TradeRequest struct {
	Capital    float64
	Symbol     string
	Timeframe  Timeframe
	Right      OptionRight
	EntryLevel float64
	TakeProfit float64
	StopLoss   float64
}

// Validate checks the request before a session starts. Take-profit must
// sit above stop-loss for the exit comparisons (spot >= TP, spot <= SL)
// to be satisfiable one at a time; the entry level is only required to be
// positive since breakout direction already depends on the right.
func (r TradeRequest) Validate() error {
	if r.Capital <= 0 {
		return apperrors.NewValidationError("capital", r.Capital, "must be positive")
	}
	if strings.TrimSpace(r.Symbol) == "" {
		return apperrors.NewValidationError("symbol", r.Symbol, "must not be empty")
	}
	if !r.Timeframe.Valid() {
		return apperrors.NewValidationError("timeframe", r.Timeframe, "unsupported candle granularity")
	}
	if !r.Right.Valid() {
		return apperrors.NewValidationError("right", r.Right, "must be CALL or PUT")
	}
	if r.EntryLevel <= 0 {
		return apperrors.NewValidationError("entry_level", r.EntryLevel, "must be positive")
	}
	if r.TakeProfit <= 0 {
		return apperrors.NewValidationError("take_profit", r.TakeProfit, "must be positive")
	}
	if r.StopLoss <= 0 {
		return apperrors.NewValidationError("stop_loss", r.StopLoss, "must be positive")
	}
	if r.TakeProfit <= r.StopLoss {
		return apperrors.NewValidationError("take_profit", r.TakeProfit, "must be above stop loss")
	}
	return nil
}

// TradePhase represents the state of the trade lifecycle state machine.
type TradePhase string

const (
	PhaseSearching     TradePhase = "SEARCHING"
	PhaseAwaitingEntry TradePhase = "AWAITING_ENTRY"
	PhaseEntered       TradePhase = "ENTERED"
	PhaseClosed        TradePhase = "CLOSED"
)

// TradeState is the mutable session state, owned exclusively by the trade
// monitor. Created at session start, discarded at session end; no state
// survives a restart.
type TradeState struct {
	Phase      TradePhase
	Contract   OptionContract
	Quantity   int
	EntryPrice float64
	ExitPrice  float64
	StartedAt  time.Time
}

// NewTradeState returns the initial state for a session.
func NewTradeState(contract OptionContract) *TradeState {
	return &TradeState{
		Phase:     PhaseSearching,
		Contract:  contract,
		StartedAt: time.Now(),
	}
}

// SessionStatus classifies how a trading session ended.
type SessionStatus string

const (
	SessionClosed             SessionStatus = "CLOSED"
	SessionAbortedUnfilled    SessionStatus = "ABORTED_UNFILLED"
	SessionPositionMismatch   SessionStatus = "POSITION_MISMATCH"
	SessionManualIntervention SessionStatus = "MANUAL_INTERVENTION"
	SessionInterrupted        SessionStatus = "INTERRUPTED"
	SessionGatewayError       SessionStatus = "GATEWAY_ERROR"
)

// ExitCode maps a session status to a process exit code for operational
// tooling.
func (s SessionStatus) ExitCode() int {
	switch s {
	case SessionClosed:
		return 0
	case SessionAbortedUnfilled, SessionPositionMismatch:
		return 2
	case SessionManualIntervention:
		return 3
	case SessionInterrupted:
		return 130
	default:
		return 1
	}
}

// SessionResult summarizes a finished trading session.
type SessionResult struct {
	Status     SessionStatus
	Symbol     string
	Contract   OptionContract
	Quantity   int
	EntryPrice float64
	ExitPrice  float64
	OpenedAt   time.Time
	ClosedAt   time.Time
	Err        error
}

// PnL returns the realized profit or loss for a closed session, zero for
// sessions that never entered or never exited.
func (r SessionResult) PnL() float64 {
	if r.EntryPrice == 0 || r.ExitPrice == 0 {
		return 0
	}
	return (r.ExitPrice - r.EntryPrice) * float64(r.Quantity) * float64(r.Contract.Multiplier)
}
