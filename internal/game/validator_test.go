package game

import (
	"testing"

	"github.com/jason-s-yu/scoresheet/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intp(v int) *int { return &v }

func buildRound(bids, tricks []*int) models.Round {
	r := models.Round{Entries: make([]models.RoundEntry, len(bids))}
	for i := range bids {
		r.Entries[i] = models.RoundEntry{Bid: bids[i], TricksTaken: tricks[i]}
	}
	return r
}

func TestValidateAcceptsCompleteRound(t *testing.T) {
	r := buildRound(
		[]*int{intp(5), intp(4), intp(4)},
		[]*int{intp(5), intp(4), intp(4)},
	)
	assert.NoError(t, Validate(r, 3))
}

func TestValidateIncompleteStopsEarly(t *testing.T) {
	r := buildRound(
		[]*int{intp(1), nil, intp(4)},
		[]*int{intp(20), intp(4), nil},
	)
	err := Validate(r, 3)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Len(t, verr.Reasons, 1)
	assert.Equal(t, ReasonIncompleteEntries, verr.Reasons[0].Kind)
	assert.Equal(t, []int{1, 2}, verr.Reasons[0].Players)
}

func TestValidateReportsEveryRangeViolation(t *testing.T) {
	r := buildRound(
		[]*int{intp(2), intp(14), intp(3)},
		[]*int{intp(-1), intp(1), intp(14)},
	)
	err := Validate(r, 3)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	bids := verr.Of(ReasonBidOutOfRange)
	require.Len(t, bids, 2)
	assert.Equal(t, 0, bids[0].PlayerIndex)
	assert.Equal(t, 1, bids[1].PlayerIndex)
	assert.Equal(t, 3, bids[0].Min)
	assert.Equal(t, 13, bids[0].Max)

	tricks := verr.Of(ReasonTricksOutOfRange)
	require.Len(t, tricks, 2)
	assert.Equal(t, 0, tricks[0].PlayerIndex)
	assert.Equal(t, 2, tricks[1].PlayerIndex)

	assert.Len(t, verr.Of(ReasonTrickSumMismatch), 1, "sum is checked once")
}

func TestValidateFourPlayerMinimumBid(t *testing.T) {
	r := buildRound(
		[]*int{intp(2), intp(2), intp(4), intp(5)},
		[]*int{intp(2), intp(2), intp(4), intp(5)},
	)
	assert.NoError(t, Validate(r, 4))

	r.Entries[0].Bid = intp(1)
	var verr *ValidationError
	require.ErrorAs(t, Validate(r, 4), &verr)
	assert.Equal(t, []Reason{{Kind: ReasonBidOutOfRange, PlayerIndex: 0, Min: 2, Max: 13}}, verr.Reasons)
}

func TestValidateTrickSumMismatch(t *testing.T) {
	cases := []struct {
		name   string
		tricks []int
		sum    int
	}{
		{"short", []int{4, 4, 4}, 12},
		{"over", []int{5, 5, 4}, 14},
		{"all zero", []int{0, 0, 0}, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := buildRound(
				[]*int{intp(3), intp(3), intp(3)},
				[]*int{intp(tc.tricks[0]), intp(tc.tricks[1]), intp(tc.tricks[2])},
			)
			var verr *ValidationError
			require.ErrorAs(t, Validate(r, 3), &verr)
			require.True(t, verr.Has(ReasonTrickSumMismatch))
			got := verr.Of(ReasonTrickSumMismatch)[0]
			assert.Equal(t, tc.sum, got.Actual)
			assert.Equal(t, 13, got.Expected)
			assert.False(t, verr.Has(ReasonBidOutOfRange))
		})
	}
}

func TestValidationErrorMessage(t *testing.T) {
	r := buildRound(
		[]*int{intp(3), intp(3), intp(3)},
		[]*int{intp(3), intp(3), intp(3)},
	)
	r.Index = 4
	err := Validate(r, 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "round 5")
	assert.Contains(t, err.Error(), "add up to 9")
}
