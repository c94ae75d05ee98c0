package monitor

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "options-trader/internal/errors"
	"options-trader/internal/gateway"
	"options-trader/internal/models"
	"options-trader/internal/scoring"
	"options-trader/internal/store"
)

// pickFirst always chooses the first candidate.
type pickFirst struct{}

func (pickFirst) Choose(result models.ScoreResult) (models.ScoredCandidate, error) {
	if len(result.Candidates) == 0 {
		return models.ScoredCandidate{}, apperrors.ErrNoSelection
	}
	return result.Candidates[0], nil
}

// refuse simulates a trader walking away from the prompt.
type refuse struct{}

func (refuse) Choose(models.ScoreResult) (models.ScoredCandidate, error) {
	return models.ScoredCandidate{}, apperrors.ErrNoSelection
}

func sessionRequest() models.TradeRequest {
	return models.TradeRequest{
		Capital:    2000,
		Symbol:     "SPY",
		Timeframe:  models.Timeframe1Min,
		Right:      models.RightCall,
		EntryLevel: 100,
		TakeProfit: 110,
		StopLoss:   90,
	}
}

// sessionGateway scripts a paper gateway whose spot walks through the
// entry level to the take-profit.
func sessionGateway() *gateway.PaperGateway {
	pg := gateway.NewPaperGateway()
	pg.SeedSynthetic("SPY", 100)
	pg.SetSpotSeries("SPY", []float64{100, 99.8, 100.5, 110})
	return pg
}

func newSession(pg *gateway.PaperGateway, chooser Chooser) *Session {
	return &Session{
		Gateway: pg,
		Chooser: chooser,
		Chain:   scoring.ChainOptions{StrikeWindowPercent: 10, MaxStrikes: 20},
		Monitor: Config{EntryBudget: 10, ExitBudget: 10},
		Log:     zerolog.Nop(),
	}
}

func TestSessionFullLifecycle(t *testing.T) {
	pg := sessionGateway()

	var presented models.ScoreResult
	session := newSession(pg, pickFirst{})
	session.Present = func(r models.ScoreResult) { presented = r }

	result := session.Run(context.Background(), sessionRequest())

	assert.Equal(t, models.SessionClosed, result.Status)
	assert.True(t, presented.Ranked)
	assert.NotEmpty(t, presented.Candidates)
	assert.Greater(t, result.Quantity, 0)

	// The connection is released exactly once.
	assert.Equal(t, 1, pg.DisconnectCount())
	assert.False(t, pg.Overlapped())
}

func TestSessionJournalsResult(t *testing.T) {
	journal, err := store.New(":memory:")
	require.NoError(t, err)
	defer journal.Close()

	pg := sessionGateway()
	session := newSession(pg, pickFirst{})
	session.Journal = journal

	result := session.Run(context.Background(), sessionRequest())
	require.Equal(t, models.SessionClosed, result.Status)

	records, err := journal.Sessions(context.Background(), store.SessionFilter{Symbol: "SPY"})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, string(models.SessionClosed), records[0].Status)
	assert.Equal(t, result.Quantity, records[0].Quantity)
}

func TestSessionInvalidRequest(t *testing.T) {
	pg := sessionGateway()
	session := newSession(pg, pickFirst{})

	req := sessionRequest()
	req.TakeProfit = 80 // below stop loss

	result := session.Run(context.Background(), req)
	assert.Equal(t, models.SessionAbortedUnfilled, result.Status)
	// Validation fails before the gateway is touched.
	assert.Equal(t, 0, pg.DisconnectCount())
}

func TestSessionNoSelectionAborts(t *testing.T) {
	pg := sessionGateway()
	session := newSession(pg, refuse{})

	result := session.Run(context.Background(), sessionRequest())
	assert.Equal(t, models.SessionAbortedUnfilled, result.Status)
	assert.Equal(t, 1, pg.DisconnectCount())
	assert.Empty(t, pg.PlacedOrders())
}

func TestSessionInterrupted(t *testing.T) {
	pg := gateway.NewPaperGateway()
	pg.SeedSynthetic("SPY", 100)
	pg.SetSpotSeries("SPY", []float64{100, 99})

	session := newSession(pg, pickFirst{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := session.Run(ctx, sessionRequest())
	assert.Equal(t, models.SessionInterrupted, result.Status)
	assert.Equal(t, 1, pg.DisconnectCount())
}

// panicGateway blows up on the first spot poll after selection.
type panicGateway struct {
	*gateway.PaperGateway
	quotes int
}

func (p *panicGateway) Quote(ctx context.Context, symbol string) (models.Quote, error) {
	p.quotes++
	if p.quotes > 1 {
		panic("feed handler crashed")
	}
	return p.PaperGateway.Quote(ctx, symbol)
}

func TestSessionPanicReportsGatewayFault(t *testing.T) {
	pg := sessionGateway()
	session := newSession(pg, pickFirst{})
	session.Gateway = &panicGateway{PaperGateway: pg}

	result := session.Run(context.Background(), sessionRequest())
	assert.Equal(t, models.SessionGatewayError, result.Status)
	assert.Equal(t, 1, result.Status.ExitCode())
	require.Error(t, result.Err)

	// The deferred disconnect still ran during the unwind.
	assert.Equal(t, 1, pg.DisconnectCount())
}
