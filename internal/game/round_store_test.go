package game

import (
	"testing"

	"github.com/jason-s-yu/scoresheet/internal/scoring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fillRound writes bids then tricks for every player of round idx.
func fillRound(t *testing.T, s *RoundStore, idx int, bids, tricks []int) {
	t.Helper()
	for p, b := range bids {
		_, err := s.SetEntry(idx, p, FieldBid, b)
		require.NoError(t, err)
	}
	for p, tr := range tricks {
		_, err := s.SetEntry(idx, p, FieldTricksTaken, tr)
		require.NoError(t, err)
	}
}

func TestRoundStoreOpenRound(t *testing.T) {
	s := NewRoundStore(3)
	idx, err := s.OpenRound()
	require.NoError(t, err)
	assert.Equal(t, 0, idx)

	r, err := s.Round(0)
	require.NoError(t, err)
	assert.Len(t, r.Entries, 3)
	assert.False(t, r.Closed)

	_, err = s.OpenRound()
	assert.ErrorIs(t, err, ErrRoundStillOpen, "cannot open a second round while one is open")
}

func TestRoundStoreMaxRounds(t *testing.T) {
	s := NewRoundStore(3)
	for i := 0; i < scoring.MaxRounds; i++ {
		idx, err := s.OpenRound()
		require.NoError(t, err)
		fillRound(t, s, idx, []int{5, 4, 4}, []int{5, 4, 4})
		require.NoError(t, s.CloseRound(idx))
	}
	_, err := s.OpenRound()
	assert.ErrorIs(t, err, ErrMaxRoundsExceeded)

	_, ok := s.CurrentRoundIndex()
	assert.False(t, ok)
	assert.Equal(t, scoring.MaxRounds, s.ClosedCount())
}

func TestRoundStoreSetEntryScoresOnlyWhenComplete(t *testing.T) {
	s := NewRoundStore(3)
	_, _ = s.OpenRound()

	e, err := s.SetEntry(0, 1, FieldBid, 4)
	require.NoError(t, err)
	assert.Equal(t, 0, e.FinalScore)
	require.NotNil(t, e.Bid)
	assert.Equal(t, 4, *e.Bid)
	assert.Nil(t, e.TricksTaken)

	e, err = s.SetEntry(0, 1, FieldTricksTaken, 5)
	require.NoError(t, err)
	assert.Equal(t, 41, e.FinalScore)

	e, err = s.SetEntry(0, 1, FieldTricksTaken, 2)
	require.NoError(t, err)
	assert.Equal(t, -40, e.FinalScore, "score follows the latest value")
}

func TestRoundStoreSetEntryOutOfRange(t *testing.T) {
	s := NewRoundStore(3)
	_, _ = s.OpenRound()
	_, err := s.SetEntry(0, 0, FieldTricksTaken, 4)
	require.NoError(t, err)

	e, err := s.SetEntry(0, 0, FieldBid, 2)
	var rangeErr *FieldRangeError
	require.ErrorAs(t, err, &rangeErr)
	assert.Equal(t, FieldBid, rangeErr.Field)
	assert.Equal(t, 3, rangeErr.Min)
	assert.Equal(t, 13, rangeErr.Max)
	require.NotNil(t, e.Bid, "out of range value is kept")
	assert.Equal(t, 2, *e.Bid)
	assert.Equal(t, 0, e.FinalScore)

	_, err = s.SetEntry(0, 0, FieldTricksTaken, 14)
	require.ErrorAs(t, err, &rangeErr)
	assert.Equal(t, FieldTricksTaken, rangeErr.Field)

	e, err = s.SetEntry(0, 0, FieldBid, 4)
	require.NoError(t, err)
	assert.Equal(t, 0, e.FinalScore, "tricks still out of range")

	e, err = s.SetEntry(0, 0, FieldTricksTaken, 4)
	require.NoError(t, err)
	assert.Equal(t, 40, e.FinalScore)
}

func TestRoundStoreStructuralErrors(t *testing.T) {
	s := NewRoundStore(4)
	_, _ = s.OpenRound()

	_, err := s.SetEntry(1, 0, FieldBid, 3)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
	_, err = s.SetEntry(0, 4, FieldBid, 3)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
	_, err = s.SetEntry(0, -1, FieldBid, 3)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
	_, err = s.SetEntry(0, 0, Field("score"), 3)
	assert.ErrorIs(t, err, ErrInvalidField)
	assert.ErrorIs(t, s.CloseRound(3), ErrIndexOutOfRange)

	fillRound(t, s, 0, []int{3, 3, 3, 4}, []int{3, 3, 3, 4})
	require.NoError(t, s.CloseRound(0))

	_, err = s.SetEntry(0, 0, FieldBid, 5)
	assert.ErrorIs(t, err, ErrRoundClosed)
	assert.ErrorIs(t, s.CloseRound(0), ErrRoundClosed)

	r, _ := s.Round(0)
	assert.Equal(t, 3, *r.Entries[0].Bid, "closed round is immutable")
}

func TestRoundStoreCloseRejectsWithoutMutation(t *testing.T) {
	s := NewRoundStore(3)
	_, _ = s.OpenRound()
	fillRound(t, s, 0, []int{5, 4, 4}, []int{5, 4, 3})

	before := s.Rounds()
	err := s.CloseRound(0)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.True(t, verr.Has(ReasonTrickSumMismatch))
	assert.Equal(t, before, s.Rounds())

	idx, ok := s.CurrentRoundIndex()
	assert.True(t, ok)
	assert.Equal(t, 0, idx)
}

func TestRoundStoreCopiesAreDetached(t *testing.T) {
	s := NewRoundStore(3)
	_, _ = s.OpenRound()
	fillRound(t, s, 0, []int{5, 4, 4}, nil)

	r, _ := s.Round(0)
	*r.Entries[0].Bid = 9
	r.Entries[1].FinalScore = 999

	again, _ := s.Round(0)
	assert.Equal(t, 5, *again.Entries[0].Bid)
	assert.Equal(t, 0, again.Entries[1].FinalScore)
}

func TestParseField(t *testing.T) {
	f, err := ParseField("bid")
	require.NoError(t, err)
	assert.Equal(t, FieldBid, f)
	f, err = ParseField("tricks_taken")
	require.NoError(t, err)
	assert.Equal(t, FieldTricksTaken, f)
	_, err = ParseField("final_score")
	assert.ErrorIs(t, err, ErrInvalidField)
}
