// Package selector handles the human confirmation step between scoring
// and execution. Nothing trades without a trader picking a contract.
package selector

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	apperrors "options-trader/internal/errors"
	"options-trader/internal/models"
)

// Selector prompts the trader to choose one candidate from a scored set.
type Selector struct {
	in  *bufio.Reader
	out io.Writer
}

// New creates a selector reading choices from in and writing prompts
// to out.
func New(in io.Reader, out io.Writer) *Selector {
	return &Selector{in: bufio.NewReader(in), out: out}
}

// Choose blocks until the trader enters a valid 1-based index into
// result.Candidates, re-prompting on anything else. Exhausted input
// returns ErrNoSelection so a closed stdin aborts the session instead
// of spinning.
func (s *Selector) Choose(result models.ScoreResult) (models.ScoredCandidate, error) {
	n := len(result.Candidates)
	if n == 0 {
		return models.ScoredCandidate{}, apperrors.ErrNoSelection
	}

	for {
		fmt.Fprintf(s.out, "Select contract [1-%d]: ", n)

		line, err := s.in.ReadString('\n')
		if err != nil && line == "" {
			return models.ScoredCandidate{}, apperrors.Wrap(apperrors.ErrNoSelection, "input closed")
		}

		choice, convErr := strconv.Atoi(strings.TrimSpace(line))
		if convErr != nil || choice < 1 || choice > n {
			fmt.Fprintf(s.out, "Enter a number between 1 and %d.\n", n)
			if err != nil {
				return models.ScoredCandidate{}, apperrors.Wrap(apperrors.ErrNoSelection, "input closed")
			}
			continue
		}

		return result.Candidates[choice-1], nil
	}
}
