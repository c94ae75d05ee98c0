// Package execution drives a single order to completion with a bounded
// midpoint re-peg loop.
package execution

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	apperrors "options-trader/internal/errors"
	"options-trader/internal/gateway"
	"options-trader/internal/models"
)

// Config holds the retry budget and settle intervals for one engine.
// The intervals are fixed waits; tests set them to zero.
type Config struct {
	MaxAttempts int
	OrderSettle time.Duration // wait after placing an order before checking it
	QuoteSettle time.Duration // wait before refreshing the quote for a re-peg
}

// Engine executes limit orders against a gateway. Attempts are strictly
// serialized: the working order is canceled before a replacement goes
// out, so at most one order is ever pending.
type Engine struct {
	gw  gateway.Gateway
	cfg Config
	log zerolog.Logger
}

// New creates an execution engine.
func New(gw gateway.Gateway, cfg Config, log zerolog.Logger) *Engine {
	return &Engine{gw: gw, cfg: cfg, log: log}
}

// Execute works an order for the contract until it fills or the attempt
// budget runs out. Each attempt pegs the limit to the midpoint of a
// fresh quote. Returns ErrOrderUnfilled when the budget is exhausted;
// a broker rejection or a canceled context aborts immediately.
func (e *Engine) Execute(ctx context.Context, contract models.OptionContract, side models.OrderSide, quantity int) (models.Fill, error) {
	if quantity < 1 {
		return models.Fill{}, apperrors.NewValidationError("quantity", quantity, "must be at least 1")
	}

	for attempt := 1; attempt <= e.cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			if err := sleepCtx(ctx, e.cfg.QuoteSettle); err != nil {
				return models.Fill{}, err
			}
		}

		quote, err := e.gw.OptionQuote(ctx, contract)
		if err != nil {
			return models.Fill{}, apperrors.Wrapf(err, "quoting %s for attempt %d", contract.Describe(), attempt)
		}
		limit, ok := quote.Midpoint()
		if !ok {
			e.log.Warn().
				Int("attempt", attempt).
				Str("contract", contract.Describe()).
				Msg("no price on either side, skipping attempt")
			continue
		}

		handle, err := e.gw.PlaceOrder(ctx, contract, side, quantity, limit)
		if err != nil {
			return models.Fill{}, apperrors.Wrapf(err, "placing %s order", side)
		}
		e.log.Info().
			Str("order_id", handle.ID()).
			Int("attempt", attempt).
			Str("side", string(side)).
			Int("quantity", quantity).
			Float64("limit", limit).
			Msg("order placed")

		if err := sleepCtx(ctx, e.cfg.OrderSettle); err != nil {
			_ = handle.Cancel(context.Background())
			return models.Fill{}, err
		}

		done, err := handle.IsDone(ctx)
		if err != nil {
			return models.Fill{}, apperrors.Wrapf(err, "checking order %s", handle.ID())
		}
		if done {
			fill := models.Fill{
				Contract: contract,
				Side:     side,
				Quantity: quantity,
				Price:    handle.FillPrice(),
				Attempts: attempt,
				FilledAt: time.Now(),
			}
			e.log.Info().
				Str("order_id", handle.ID()).
				Int("attempts", attempt).
				Float64("price", fill.Price).
				Msg("order filled")
			return fill, nil
		}

		// Cancel before the next attempt can place a replacement.
		if err := handle.Cancel(ctx); err != nil {
			return models.Fill{}, apperrors.Wrapf(err, "canceling order %s", handle.ID())
		}
		e.log.Debug().
			Str("order_id", handle.ID()).
			Int("attempt", attempt).
			Float64("limit", limit).
			Msg("order unfilled, re-pegging")
	}

	return models.Fill{}, apperrors.NewOrderError("", contract.Describe(), string(side),
		"attempt budget exhausted", apperrors.ErrOrderUnfilled)
}

// sleepCtx waits for d or until the context is canceled.
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
