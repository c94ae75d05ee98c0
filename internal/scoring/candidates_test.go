package scoring

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"options-trader/internal/gateway"
	"options-trader/internal/models"
)

func TestOTMStrikes(t *testing.T) {
	strikes := []float64{80, 90, 95, 100, 105, 110, 120}

	calls := otmStrikes(strikes, models.RightCall, 100, 10)
	assert.Equal(t, []float64{105, 110}, calls)

	puts := otmStrikes(strikes, models.RightPut, 100, 10)
	assert.Equal(t, []float64{95, 90}, puts)

	// The spot itself is not out of the money.
	assert.NotContains(t, calls, 100.0)
	assert.NotContains(t, puts, 100.0)
}

func TestNearestExpiry(t *testing.T) {
	past := time.Now().AddDate(0, 0, -7)
	near := time.Now().AddDate(0, 0, 3)
	far := time.Now().AddDate(0, 0, 10)

	assert.Equal(t, near, nearestExpiry([]time.Time{far, past, near}))

	// All in the past: fall back to the latest one.
	older := time.Now().AddDate(0, 0, -14)
	assert.Equal(t, past, nearestExpiry([]time.Time{older, past}))
}

func TestBuildCandidates(t *testing.T) {
	pg := gateway.NewPaperGateway()
	expiry := time.Now().AddDate(0, 0, 5).Truncate(24 * time.Hour)
	pg.SetChain(models.ChainParams{
		Underlying:   "AAPL",
		Expirations:  []time.Time{expiry},
		Strikes:      []float64{180, 190, 195, 200, 205, 230},
		TradingClass: "AAPL",
		Multiplier:   100,
	})
	quote := models.OptionQuote{Bid: 2.30, Ask: 2.50, Greeks: &models.Greeks{Delta: 0.3}}
	for _, strike := range []float64{195, 200, 205} {
		occ := gateway.OCCSymbol(models.OptionContract{
			Underlying: "AAPL", Expiry: expiry, Strike: strike, Right: models.RightCall,
		})
		pg.SetOptionQuoteSeries(occ, []models.OptionQuote{quote})
	}

	candidates, err := BuildCandidates(context.Background(), pg, "AAPL", models.RightCall, 192, ChainOptions{
		StrikeWindowPercent: 10,
		MaxStrikes:          20,
	})
	require.NoError(t, err)
	require.Len(t, candidates, 3)

	// Nearest strike first, all OTM within the window, 230 excluded.
	assert.Equal(t, 195.0, candidates[0].Contract.Strike)
	assert.Equal(t, 2.50, candidates[0].Quote.Ask)
	assert.Equal(t, 100, candidates[0].Contract.Multiplier)
	assert.Equal(t, expiry, candidates[0].Contract.Expiry)
}

func TestBuildCandidatesEmptyWindow(t *testing.T) {
	pg := gateway.NewPaperGateway()
	pg.SetChain(models.ChainParams{
		Underlying:  "AAPL",
		Expirations: []time.Time{time.Now().AddDate(0, 0, 5)},
		Strikes:     []float64{400, 500},
		Multiplier:  100,
	})

	_, err := BuildCandidates(context.Background(), pg, "AAPL", models.RightCall, 192, ChainOptions{
		StrikeWindowPercent: 10,
	})
	assert.Error(t, err)
}

func TestBuildCandidatesMaxStrikes(t *testing.T) {
	pg := gateway.NewPaperGateway()
	pg.SeedSynthetic("SPY", 100)

	candidates, err := BuildCandidates(context.Background(), pg, "SPY", models.RightCall, 100, ChainOptions{
		StrikeWindowPercent: 10,
		MaxStrikes:          2,
	})
	require.NoError(t, err)
	assert.Len(t, candidates, 2)
}
