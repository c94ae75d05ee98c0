package scoring

import (
	"context"
	"math"
	"sort"
	"time"

	apperrors "options-trader/internal/errors"
	"options-trader/internal/gateway"
	"options-trader/internal/models"
)

// ChainOptions controls candidate selection from the option chain.
type ChainOptions struct {
	// StrikeWindowPercent keeps OTM strikes within this percent of spot.
	StrikeWindowPercent float64
	// MaxStrikes caps how many contracts get quoted.
	MaxStrikes int
}

// BuildCandidates selects candidate contracts for one side of the chain
// and snapshots a quote for each. It takes the nearest expiry and the
// out-of-the-money strikes within the configured window of spot: strikes
// above spot for calls, below for puts, nearest first.
func BuildCandidates(ctx context.Context, gw gateway.Gateway, symbol string, right models.OptionRight, spot float64, opts ChainOptions) ([]Candidate, error) {
	chain, err := gw.ResolveOptionChain(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if len(chain.Expirations) == 0 || len(chain.Strikes) == 0 {
		return nil, apperrors.Wrapf(apperrors.ErrEmptyChain, "chain for %s", symbol)
	}

	expiry := nearestExpiry(chain.Expirations)
	strikes := otmStrikes(chain.Strikes, right, spot, opts.StrikeWindowPercent)
	if opts.MaxStrikes > 0 && len(strikes) > opts.MaxStrikes {
		strikes = strikes[:opts.MaxStrikes]
	}
	if len(strikes) == 0 {
		return nil, apperrors.Wrapf(apperrors.ErrEmptyChain, "no OTM strikes within %.1f%% of %.2f", opts.StrikeWindowPercent, spot)
	}

	candidates := make([]Candidate, 0, len(strikes))
	for _, strike := range strikes {
		contract := models.OptionContract{
			Underlying:   symbol,
			Expiry:       expiry,
			Strike:       strike,
			Right:        right,
			Exchange:     "SMART",
			Currency:     "USD",
			TradingClass: chain.TradingClass,
			Multiplier:   chain.Multiplier,
		}
		quote, err := gw.OptionQuote(ctx, contract)
		if err != nil {
			// A contract the feed cannot quote is carried through
			// untradable rather than failing the whole chain.
			quote = models.OptionQuote{}
		}
		candidates = append(candidates, Candidate{Contract: contract, Quote: quote})
	}

	return candidates, nil
}

// nearestExpiry returns the soonest expiration that is not in the past.
func nearestExpiry(expirations []time.Time) time.Time {
	sorted := make([]time.Time, len(expirations))
	copy(sorted, expirations)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	today := time.Now().Truncate(24 * time.Hour)
	for _, exp := range sorted {
		if !exp.Before(today) {
			return exp
		}
	}
	return sorted[len(sorted)-1]
}

// otmStrikes filters to out-of-the-money strikes within windowPercent of
// spot, ordered nearest to spot first.
func otmStrikes(strikes []float64, right models.OptionRight, spot, windowPercent float64) []float64 {
	window := spot * windowPercent / 100
	var out []float64
	for _, strike := range strikes {
		switch right {
		case models.RightCall:
			if strike > spot && strike <= spot+window {
				out = append(out, strike)
			}
		case models.RightPut:
			if strike < spot && strike >= spot-window {
				out = append(out, strike)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return math.Abs(out[i]-spot) < math.Abs(out[j]-spot)
	})
	return out
}
