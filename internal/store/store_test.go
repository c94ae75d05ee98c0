package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"options-trader/internal/models"
)

func memStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func closedResult(symbol string, entry, exit float64) models.SessionResult {
	return models.SessionResult{
		Status:     models.SessionClosed,
		Symbol:     symbol,
		Contract:   models.OptionContract{Underlying: symbol, Strike: 190, Right: models.RightCall, Expiry: time.Now(), Multiplier: 100},
		Quantity:   4,
		EntryPrice: entry,
		ExitPrice:  exit,
		OpenedAt:   time.Now().Add(-time.Hour),
		ClosedAt:   time.Now(),
	}
}

func TestLogAndListSessions(t *testing.T) {
	s := memStore(t)
	require.NoError(t, s.LogSession(closedResult("AAPL", 2.40, 3.10)))

	records, err := s.Sessions(context.Background(), SessionFilter{})
	require.NoError(t, err)
	require.Len(t, records, 1)

	r := records[0]
	assert.Equal(t, "AAPL", r.Symbol)
	assert.Equal(t, "CALL", r.Right)
	assert.Equal(t, 4, r.Quantity)
	assert.InDelta(t, 280.0, r.PnL, 1e-9)
	assert.Equal(t, string(models.SessionClosed), r.Status)
	assert.Empty(t, r.Error)
}

func TestLogSessionRecordsError(t *testing.T) {
	s := memStore(t)
	result := models.SessionResult{
		Status:   models.SessionManualIntervention,
		Symbol:   "TSLA",
		OpenedAt: time.Now(),
		ClosedAt: time.Now(),
		Err:      errors.New("exit order unfilled"),
	}
	require.NoError(t, s.LogSession(result))

	records, err := s.Sessions(context.Background(), SessionFilter{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Contains(t, records[0].Error, "unfilled")
}

func TestSessionsFilter(t *testing.T) {
	s := memStore(t)
	require.NoError(t, s.LogSession(closedResult("AAPL", 2.40, 3.10)))
	require.NoError(t, s.LogSession(closedResult("TSLA", 5.00, 4.00)))
	aborted := closedResult("AAPL", 0, 0)
	aborted.Status = models.SessionAbortedUnfilled
	require.NoError(t, s.LogSession(aborted))

	bySymbol, err := s.Sessions(context.Background(), SessionFilter{Symbol: "AAPL"})
	require.NoError(t, err)
	assert.Len(t, bySymbol, 2)

	byStatus, err := s.Sessions(context.Background(), SessionFilter{Status: string(models.SessionClosed)})
	require.NoError(t, err)
	assert.Len(t, byStatus, 2)

	limited, err := s.Sessions(context.Background(), SessionFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestStats(t *testing.T) {
	s := memStore(t)
	require.NoError(t, s.LogSession(closedResult("AAPL", 2.40, 3.10))) // +280
	require.NoError(t, s.LogSession(closedResult("TSLA", 5.00, 4.00))) // -400
	aborted := closedResult("SPY", 0, 0)
	aborted.Status = models.SessionAbortedUnfilled
	require.NoError(t, s.LogSession(aborted))

	stats, err := s.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Sessions)
	assert.Equal(t, 2, stats.Closed)
	assert.Equal(t, 1, stats.Wins)
	assert.InDelta(t, -120.0, stats.TotalPnL, 1e-9)
}
