// Package gateway provides the market data and order gateway interface
// and its implementations.
package gateway

import (
	"context"

	"options-trader/internal/models"
)

// Gateway defines the market data and order operations the trading core
// depends on. Implementations must make Disconnect idempotent so the
// session can release the connection on every exit path.
type Gateway interface {
	// Session lifecycle
	Connect(ctx context.Context) error
	Disconnect() error

	// Market data
	ResolveContract(ctx context.Context, symbol string) (models.Instrument, error)
	ResolveOptionChain(ctx context.Context, symbol string) (models.ChainParams, error)
	Quote(ctx context.Context, symbol string) (models.Quote, error)
	OptionQuote(ctx context.Context, contract models.OptionContract) (models.OptionQuote, error)
	HistoricalBars(ctx context.Context, symbol string, duration string, timeframe models.Timeframe) ([]models.Candle, error)

	// Orders
	PlaceOrder(ctx context.Context, contract models.OptionContract, side models.OrderSide, quantity int, limit float64) (OrderHandle, error)

	// Positions
	CurrentPositions(ctx context.Context) ([]models.Position, error)
}

// OrderHandle tracks one live order at the broker.
type OrderHandle interface {
	ID() string
	// IsDone reports whether the order has filled. A terminal rejection
	// surfaces as an error, not as done.
	IsDone(ctx context.Context) (bool, error)
	// FillPrice returns the last execution price. Valid only after
	// IsDone has reported true.
	FillPrice() float64
	// Cancel withdraws the order if it is still working.
	Cancel(ctx context.Context) error
}
