// Package monitor runs the trade lifecycle state machine: wait for the
// entry level, execute the entry, hold until take-profit or stop-loss,
// execute the exit.
package monitor

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/rs/zerolog"

	apperrors "options-trader/internal/errors"
	"options-trader/internal/execution"
	"options-trader/internal/gateway"
	"options-trader/internal/logging"
	"options-trader/internal/models"
)

// Config holds the monitor cadence and the per-order retry budgets.
type Config struct {
	PollInterval time.Duration
	OrderSettle  time.Duration
	QuoteSettle  time.Duration
	EntryBudget  int
	ExitBudget   int
	// HistoryDuration is the candle lookback fetched on each poll for
	// the audit log, e.g. "2d". Empty disables the fetch.
	HistoryDuration string
}

// Monitor owns one trade from selection to close. The trade state never
// leaves this type; a restart starts a fresh session.
type Monitor struct {
	gw    gateway.Gateway
	entry *execution.Engine
	exit  *execution.Engine
	cfg   Config
	log   zerolog.Logger
}

// New creates a monitor with separate execution engines for entry and
// exit, so an exit that exhausts its budget can be reported differently
// from an entry that never filled.
func New(gw gateway.Gateway, cfg Config, log zerolog.Logger) *Monitor {
	entryCfg := execution.Config{MaxAttempts: cfg.EntryBudget, OrderSettle: cfg.OrderSettle, QuoteSettle: cfg.QuoteSettle}
	exitCfg := execution.Config{MaxAttempts: cfg.ExitBudget, OrderSettle: cfg.OrderSettle, QuoteSettle: cfg.QuoteSettle}
	return &Monitor{
		gw:    gw,
		entry: execution.New(gw, entryCfg, log),
		exit:  execution.New(gw, exitCfg, log),
		cfg:   cfg,
		log:   log,
	}
}

// Run drives the selected contract through the lifecycle and reports how
// the session ended. All domain outcomes are expressed in the result
// status; the returned error carries detail for logging.
func (m *Monitor) Run(ctx context.Context, req models.TradeRequest, contract models.OptionContract) (models.SessionResult, error) {
	state := models.NewTradeState(contract)
	result := models.SessionResult{
		Symbol:   req.Symbol,
		Contract: contract,
		OpenedAt: state.StartedAt,
	}

	m.transition(state, models.PhaseAwaitingEntry)

	// Wait for the underlying to break the entry level.
	if err := m.awaitLevel(ctx, req, func(spot float64) bool {
		return entryTriggered(req.Right, spot, req.EntryLevel)
	}); err != nil {
		return m.finish(result, state, err)
	}
	m.log.Info().Str("symbol", req.Symbol).Float64("level", req.EntryLevel).Msg("entry level broken")

	quantity, err := m.size(ctx, req.Capital, contract)
	if err != nil {
		return m.finish(result, state, err)
	}
	result.Quantity = quantity
	state.Quantity = quantity

	fill, err := m.entry.Execute(ctx, contract, models.OrderSideBuy, quantity)
	if err != nil {
		return m.finish(result, state, err)
	}
	state.EntryPrice = fill.Price
	result.EntryPrice = fill.Price
	logging.LogTrade(m.log, fill.Contract.Describe(), string(fill.Side), fill.Quantity, fill.Price)

	// The fill is only trusted once the account shows the position.
	if err := m.confirmPosition(ctx, contract, quantity); err != nil {
		return m.finish(result, state, err)
	}
	m.transition(state, models.PhaseEntered)

	// Hold until take-profit or stop-loss. Both comparisons are exact
	// and checked against the same spot reading.
	if err := m.awaitLevel(ctx, req, func(spot float64) bool {
		return spot >= req.TakeProfit || spot <= req.StopLoss
	}); err != nil {
		return m.finish(result, state, err)
	}
	m.log.Info().Str("symbol", req.Symbol).
		Float64("take_profit", req.TakeProfit).
		Float64("stop_loss", req.StopLoss).
		Msg("exit level reached")

	exitFill, err := m.exit.Execute(ctx, contract, models.OrderSideSell, quantity)
	if err != nil {
		return m.finish(result, state, err)
	}
	state.ExitPrice = exitFill.Price
	result.ExitPrice = exitFill.Price
	m.transition(state, models.PhaseClosed)

	result.Status = models.SessionClosed
	result.ClosedAt = time.Now()
	return result, nil
}

// awaitLevel polls the spot price at the configured cadence until the
// condition holds or the context is canceled. Each poll also pulls the
// recent candles into the audit log; candle data never drives a
// decision.
func (m *Monitor) awaitLevel(ctx context.Context, req models.TradeRequest, cond func(spot float64) bool) error {
	for {
		m.logRecentCandle(ctx, req)

		quote, err := m.gw.Quote(ctx, req.Symbol)
		if err != nil {
			return apperrors.Wrapf(err, "polling %s", req.Symbol)
		}
		spot := quote.Last
		m.log.Debug().Str("symbol", req.Symbol).Float64("spot", spot).Msg("spot check")
		if cond(spot) {
			return nil
		}
		if err := sleepCtx(ctx, m.cfg.PollInterval); err != nil {
			return err
		}
	}
}

func (m *Monitor) logRecentCandle(ctx context.Context, req models.TradeRequest) {
	if m.cfg.HistoryDuration == "" {
		return
	}
	bars, err := m.gw.HistoricalBars(ctx, req.Symbol, m.cfg.HistoryDuration, req.Timeframe)
	if err != nil {
		m.log.Warn().Err(err).Msg("candle fetch failed")
		return
	}
	if len(bars) == 0 {
		return
	}
	last := bars[len(bars)-1]
	m.log.Debug().
		Time("candle_ts", last.Timestamp).
		Float64("open", last.Open).
		Float64("high", last.High).
		Float64("low", last.Low).
		Float64("close", last.Close).
		Msg("latest candle")
}

// size computes how many contracts the capital buys at the current ask.
func (m *Monitor) size(ctx context.Context, capital float64, contract models.OptionContract) (int, error) {
	quote, err := m.gw.OptionQuote(ctx, contract)
	if err != nil {
		return 0, apperrors.Wrapf(err, "quoting %s for sizing", contract.Describe())
	}
	if quote.Ask <= 0 {
		return 0, apperrors.Wrapf(apperrors.ErrNoTradableMarket, "no ask for %s", contract.Describe())
	}
	quantity := int(math.Floor(capital / (quote.Ask * float64(contract.Multiplier))))
	if quantity < 1 {
		return 0, apperrors.Wrapf(apperrors.ErrCapitalTooSmall,
			"%.2f buys no contracts at ask %.2f x%d", capital, quote.Ask, contract.Multiplier)
	}
	m.log.Info().Int("quantity", quantity).Float64("ask", quote.Ask).Msg("position sized")
	return quantity, nil
}

// confirmPosition checks the account for the position the fill implies.
func (m *Monitor) confirmPosition(ctx context.Context, contract models.OptionContract, quantity int) error {
	positions, err := m.gw.CurrentPositions(ctx)
	if err != nil {
		return apperrors.Wrapf(err, "reading positions")
	}
	key := contract.Symbol
	if key == "" {
		key = gateway.OCCSymbol(contract)
	}
	for _, pos := range positions {
		if pos.Symbol == key && pos.Quantity >= quantity {
			return nil
		}
	}
	return apperrors.Wrapf(apperrors.ErrPositionMismatch, "expected %d of %s", quantity, key)
}

func (m *Monitor) transition(state *models.TradeState, phase models.TradePhase) {
	logging.LogPhase(m.log, string(state.Phase), string(phase))
	state.Phase = phase
}

// finish classifies an error into a terminal session status.
func (m *Monitor) finish(result models.SessionResult, state *models.TradeState, err error) (models.SessionResult, error) {
	result.ClosedAt = time.Now()
	result.Err = err

	switch {
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		result.Status = models.SessionInterrupted
	case errors.Is(err, apperrors.ErrPositionMismatch):
		result.Status = models.SessionPositionMismatch
	case errors.Is(err, apperrors.ErrOrderUnfilled) && state.Phase == models.PhaseEntered:
		// The position is still open; only a human can resolve this.
		result.Status = models.SessionManualIntervention
	case errors.Is(err, apperrors.ErrOrderUnfilled),
		errors.Is(err, apperrors.ErrCapitalTooSmall),
		errors.Is(err, apperrors.ErrNoTradableMarket):
		result.Status = models.SessionAbortedUnfilled
	default:
		result.Status = models.SessionGatewayError
	}
	return result, err
}

// entryTriggered applies the directional breakout rule: calls enter on a
// break above the level, puts on a break below.
func entryTriggered(right models.OptionRight, spot, level float64) bool {
	if right == models.RightCall {
		return spot > level
	}
	return spot < level
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
