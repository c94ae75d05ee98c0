package execution

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "options-trader/internal/errors"
	"options-trader/internal/gateway"
	"options-trader/internal/models"
)

var testContract = models.OptionContract{
	Underlying: "AAPL",
	Expiry:     time.Date(2024, 6, 21, 0, 0, 0, 0, time.UTC),
	Strike:     190,
	Right:      models.RightCall,
	Multiplier: 100,
}

func testEngine(pg *gateway.PaperGateway, maxAttempts int) *Engine {
	return New(pg, Config{MaxAttempts: maxAttempts}, zerolog.Nop())
}

func connectedPaper(t *testing.T) *gateway.PaperGateway {
	t.Helper()
	pg := gateway.NewPaperGateway()
	require.NoError(t, pg.Connect(context.Background()))
	return pg
}

func occ() string { return gateway.OCCSymbol(testContract) }

func TestExecuteFillsAtMidpoint(t *testing.T) {
	pg := connectedPaper(t)
	pg.SetOptionQuoteSeries(occ(), []models.OptionQuote{{Bid: 1.00, Ask: 1.20}})

	fill, err := testEngine(pg, 10).Execute(context.Background(), testContract, models.OrderSideBuy, 2)
	require.NoError(t, err)

	assert.Equal(t, 1, fill.Attempts)
	assert.InDelta(t, 1.10, fill.Price, 1e-9)
	assert.Equal(t, 2, fill.Quantity)

	orders := pg.PlacedOrders()
	require.Len(t, orders, 1)
	assert.InDelta(t, 1.10, orders[0].Limit, 1e-9)
}

func TestExecuteRepegsWithFreshQuotes(t *testing.T) {
	pg := connectedPaper(t)
	pg.SetFillAfterChecks(3)
	pg.SetOptionQuoteSeries(occ(), []models.OptionQuote{
		{Bid: 1.00, Ask: 1.20},
		{Bid: 1.10, Ask: 1.30},
		{Bid: 1.20, Ask: 1.40},
	})

	fill, err := testEngine(pg, 10).Execute(context.Background(), testContract, models.OrderSideBuy, 1)
	require.NoError(t, err)

	assert.Equal(t, 3, fill.Attempts)
	assert.InDelta(t, 1.30, fill.Price, 1e-9)

	// Each attempt pegged to the midpoint of its own quote.
	orders := pg.PlacedOrders()
	require.Len(t, orders, 3)
	assert.InDelta(t, 1.10, orders[0].Limit, 1e-9)
	assert.InDelta(t, 1.20, orders[1].Limit, 1e-9)
	assert.InDelta(t, 1.30, orders[2].Limit, 1e-9)

	// Unfilled attempts were canceled before the next went out.
	assert.Equal(t, 2, pg.CanceledCount())
	assert.False(t, pg.Overlapped())
}

func TestExecuteOneSidedQuoteUsesAsk(t *testing.T) {
	pg := connectedPaper(t)
	pg.SetOptionQuoteSeries(occ(), []models.OptionQuote{{Ask: 1.20}})

	fill, err := testEngine(pg, 10).Execute(context.Background(), testContract, models.OrderSideBuy, 1)
	require.NoError(t, err)
	assert.InDelta(t, 1.20, fill.Price, 1e-9)
}

func TestExecuteExhaustsBudget(t *testing.T) {
	pg := connectedPaper(t)
	pg.NeverFill()
	pg.SetOptionQuoteSeries(occ(), []models.OptionQuote{{Bid: 1.00, Ask: 1.20}})

	_, err := testEngine(pg, 10).Execute(context.Background(), testContract, models.OrderSideSell, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrOrderUnfilled)

	assert.Len(t, pg.PlacedOrders(), 10)
	assert.Equal(t, 10, pg.CanceledCount())
	assert.False(t, pg.Overlapped())
}

func TestExecuteSkipsAttemptWithoutPrices(t *testing.T) {
	pg := connectedPaper(t)
	pg.SetOptionQuoteSeries(occ(), []models.OptionQuote{{}})

	_, err := testEngine(pg, 3).Execute(context.Background(), testContract, models.OrderSideBuy, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrOrderUnfilled)
	assert.Empty(t, pg.PlacedOrders())
}

func TestExecuteRejectsZeroQuantity(t *testing.T) {
	pg := connectedPaper(t)

	_, err := testEngine(pg, 3).Execute(context.Background(), testContract, models.OrderSideBuy, 0)
	require.Error(t, err)

	var vErr *apperrors.ValidationError
	assert.ErrorAs(t, err, &vErr)
}

func TestExecuteCanceledContext(t *testing.T) {
	pg := connectedPaper(t)
	pg.NeverFill()
	pg.SetOptionQuoteSeries(occ(), []models.OptionQuote{{Bid: 1.00, Ask: 1.20}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	eng := New(pg, Config{MaxAttempts: 10, QuoteSettle: time.Millisecond}, zerolog.Nop())
	_, err := eng.Execute(ctx, testContract, models.OrderSideBuy, 1)
	assert.ErrorIs(t, err, context.Canceled)
}
