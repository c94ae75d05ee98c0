package selector

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "options-trader/internal/errors"
	"options-trader/internal/models"
)

func scoreResult(n int) models.ScoreResult {
	candidates := make([]models.ScoredCandidate, n)
	for i := range candidates {
		candidates[i] = models.ScoredCandidate{
			Contract: models.OptionContract{Underlying: "AAPL", Strike: 190 + float64(i)*5},
		}
	}
	return models.ScoreResult{Candidates: candidates, Ranked: true}
}

func TestChoosePicksOneBasedIndex(t *testing.T) {
	var out bytes.Buffer
	s := New(strings.NewReader("2\n"), &out)

	picked, err := s.Choose(scoreResult(3))
	require.NoError(t, err)
	assert.Equal(t, 195.0, picked.Contract.Strike)
	assert.Contains(t, out.String(), "[1-3]")
}

func TestChooseRepromptsOnInvalidInput(t *testing.T) {
	var out bytes.Buffer
	s := New(strings.NewReader("0\nabc\n7\n3\n"), &out)

	picked, err := s.Choose(scoreResult(3))
	require.NoError(t, err)
	assert.Equal(t, 200.0, picked.Contract.Strike)
	assert.Contains(t, out.String(), "between 1 and 3")
}

func TestChooseClosedInput(t *testing.T) {
	var out bytes.Buffer
	s := New(strings.NewReader(""), &out)

	_, err := s.Choose(scoreResult(3))
	assert.ErrorIs(t, err, apperrors.ErrNoSelection)
}

func TestChooseEmptyCandidates(t *testing.T) {
	var out bytes.Buffer
	s := New(strings.NewReader("1\n"), &out)

	_, err := s.Choose(models.ScoreResult{})
	assert.ErrorIs(t, err, apperrors.ErrNoSelection)
}

func TestChooseLastLineWithoutNewline(t *testing.T) {
	var out bytes.Buffer
	s := New(strings.NewReader("1"), &out)

	picked, err := s.Choose(scoreResult(2))
	require.NoError(t, err)
	assert.Equal(t, 190.0, picked.Contract.Strike)
}
