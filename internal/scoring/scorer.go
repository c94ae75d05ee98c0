// Package scoring ranks option contracts by trading desirability.
package scoring

import (
	"math"
	"sort"

	"options-trader/internal/models"
)

// Weights for the desirability score. Delta is pulled toward 0.25 (far
// enough out of the money to be cheap, close enough to move), gamma is
// rewarded, theta decay and implied volatility are penalized.
const (
	deltaTarget = 0.25
	deltaWeight = -2.0
	gammaWeight = 1.5
	thetaWeight = -1.0
	ivWeight    = -0.5
)

// ScoreContract computes the desirability score for a single quote.
// Callers must check Tradable first; the score of an untradable quote
// is meaningless.
func ScoreContract(q models.OptionQuote) float64 {
	g := q.Greeks
	return deltaWeight*math.Abs(g.Delta-deltaTarget) +
		gammaWeight*g.Gamma +
		thetaWeight*math.Abs(g.Theta) +
		ivWeight*g.ImpliedVolatility
}

// Candidate pairs a contract with its quote snapshot for scoring.
type Candidate struct {
	Contract models.OptionContract
	Quote    models.OptionQuote
}

// Score evaluates a candidate set. Contracts with no ask or no model
// greeks are carried through unscored. The result is ordered by
// descending delta for presentation, with unscored contracts at the
// end; Best points at the highest score, which is not necessarily the
// first row.
//
// When nothing is scorable the full set is returned unranked so the
// trader can still inspect the chain.
func Score(candidates []Candidate) models.ScoreResult {
	scored := make([]models.ScoredCandidate, 0, len(candidates))
	anyScored := false

	for _, c := range candidates {
		sc := models.ScoredCandidate{Contract: c.Contract, Quote: c.Quote}
		if c.Quote.Tradable() {
			sc.Score = ScoreContract(c.Quote)
			sc.Scored = true
			anyScored = true
		}
		scored = append(scored, sc)
	}

	if !anyScored {
		return models.ScoreResult{Candidates: scored, Ranked: false, Best: -1}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		di, dj := presentationDelta(scored[i]), presentationDelta(scored[j])
		return di > dj
	})

	best := 0
	for i, sc := range scored {
		if !sc.Scored {
			continue
		}
		if !scored[best].Scored || sc.Score > scored[best].Score {
			best = i
		}
	}

	return models.ScoreResult{Candidates: scored, Ranked: true, Best: best}
}

// presentationDelta orders unscored contracts after every scored one.
func presentationDelta(sc models.ScoredCandidate) float64 {
	if sc.Quote.Greeks == nil {
		return math.Inf(-1)
	}
	return sc.Quote.Greeks.Delta
}
