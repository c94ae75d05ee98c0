package monitor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	apperrors "options-trader/internal/errors"
	"options-trader/internal/gateway"
	"options-trader/internal/models"
	"options-trader/internal/scoring"
)

// Chooser picks one candidate from a scored set. The CLI wires in the
// interactive selector; tests script the choice.
type Chooser interface {
	Choose(result models.ScoreResult) (models.ScoredCandidate, error)
}

// Journal records finished sessions. Nil disables journaling.
type Journal interface {
	LogSession(result models.SessionResult) error
}

// Session wires one full trading session: connect, build and score the
// chain, let the trader pick, run the monitor, release the connection.
type Session struct {
	Gateway gateway.Gateway
	Chooser Chooser
	Journal Journal
	Chain   scoring.ChainOptions
	Monitor Config
	// Present renders the scored chain before the selection prompt.
	Present func(models.ScoreResult)
	Log     zerolog.Logger
}

// Run executes the session and returns how it ended. The gateway is
// released on every path out, including panics, which are reported as
// gateway faults.
func (s *Session) Run(ctx context.Context, req models.TradeRequest) (result models.SessionResult) {
	result = models.SessionResult{Symbol: req.Symbol, OpenedAt: time.Now()}

	defer func() {
		if r := recover(); r != nil {
			s.Log.Error().Interface("panic", r).Msg("session panicked")
			result.Status = models.SessionGatewayError
			result.Err = fmt.Errorf("session panic: %v", r)
			result.ClosedAt = time.Now()
		}
		if s.Journal != nil {
			if err := s.Journal.LogSession(result); err != nil {
				s.Log.Error().Err(err).Msg("journaling session failed")
			}
		}
	}()

	if err := req.Validate(); err != nil {
		return s.fail(result, models.SessionAbortedUnfilled, err)
	}

	if err := s.Gateway.Connect(ctx); err != nil {
		return s.fail(result, s.classify(err, models.SessionGatewayError), err)
	}
	defer func() {
		if err := s.Gateway.Disconnect(); err != nil {
			s.Log.Error().Err(err).Msg("disconnect failed")
		}
	}()
	s.Log.Info().Str("symbol", req.Symbol).Str("right", string(req.Right)).Msg("session started")

	if _, err := s.Gateway.ResolveContract(ctx, req.Symbol); err != nil {
		return s.fail(result, s.classify(err, models.SessionGatewayError), err)
	}
	spotQuote, err := s.Gateway.Quote(ctx, req.Symbol)
	if err != nil {
		return s.fail(result, s.classify(err, models.SessionGatewayError), err)
	}

	candidates, err := scoring.BuildCandidates(ctx, s.Gateway, req.Symbol, req.Right, spotQuote.Last, s.Chain)
	if err != nil {
		return s.fail(result, s.classify(err, models.SessionGatewayError), err)
	}
	scoreResult := scoring.Score(candidates)
	if !scoreResult.Ranked {
		s.Log.Warn().Int("candidates", len(scoreResult.Candidates)).Msg("no scorable contracts, chain shown unranked")
	}
	if s.Present != nil {
		s.Present(scoreResult)
	}

	selected, err := s.Chooser.Choose(scoreResult)
	if err != nil {
		return s.fail(result, s.classify(err, models.SessionAbortedUnfilled), err)
	}
	result.Contract = selected.Contract
	s.Log.Info().Str("contract", selected.Contract.Describe()).Msg("contract selected")

	mon := New(s.Gateway, s.Monitor, s.Log)
	result, err = mon.Run(ctx, req, selected.Contract)
	if err != nil {
		s.Log.Error().Err(err).Str("status", string(result.Status)).Msg("session ended abnormally")
		return result
	}

	s.Log.Info().
		Float64("entry", result.EntryPrice).
		Float64("exit", result.ExitPrice).
		Float64("pnl", result.PnL()).
		Msg("session closed")
	return result
}

// classify maps infrastructure errors that can occur outside the monitor
// loop onto a session status, falling back to the given default.
func (s *Session) classify(err error, fallback models.SessionStatus) models.SessionStatus {
	switch {
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		return models.SessionInterrupted
	case errors.Is(err, apperrors.ErrNoSelection):
		return models.SessionAbortedUnfilled
	default:
		return fallback
	}
}

func (s *Session) fail(result models.SessionResult, status models.SessionStatus, err error) models.SessionResult {
	result.Status = status
	result.Err = err
	result.ClosedAt = time.Now()
	s.Log.Error().Err(err).Str("status", string(status)).Msg("session aborted")
	return result
}
