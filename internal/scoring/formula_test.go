package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScoreThreePlayers(t *testing.T) {
	cases := []struct {
		name   string
		bid    int
		tricks int
		want   int
	}{
		{"made exact", 3, 3, 30},
		{"made with overage", 5, 6, 51},
		{"missed", 5, 4, -50},
		{"zero tricks misses", 4, 0, -40},
		{"small bid doubled", 4, 8, -40},
		{"small bid just under double", 4, 7, 43},
		{"mid bid overshoot", 5, 9, -50},
		{"mid bid below overshoot", 6, 9, 63},
		{"high bid bonus exact", 7, 7, 140},
		{"high bid bonus ignores overage", 7, 10, 140},
		{"high bid overshoot penalized", 7, 11, -70},
		{"max bid", 13, 13, 260},
		{"bid below minimum scores nothing when made", 2, 3, 0},
		{"no bid", 0, 5, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Score(tc.bid, tc.tricks, 3))
		})
	}
}

func TestScoreFourPlayers(t *testing.T) {
	cases := []struct {
		name   string
		bid    int
		tricks int
		want   int
	}{
		{"made exact", 2, 2, 20},
		{"made with overage", 4, 5, 41},
		{"missed", 3, 2, -30},
		{"small bid doubled", 3, 6, -30},
		{"two doubled", 2, 4, -20},
		{"mid bid overshoot", 4, 7, -40},
		{"mid bid below overshoot", 5, 7, 52},
		{"high bid bonus exact", 6, 6, 120},
		{"high bid bonus ignores overage", 6, 8, 120},
		{"high bid overshoot penalized", 6, 9, -60},
		{"bid one made scores nothing", 1, 1, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Score(tc.bid, tc.tricks, 4))
		})
	}
}

func TestScoreUnsupportedPlayerCount(t *testing.T) {
	assert.Equal(t, 0, Score(5, 5, 2))
	assert.Equal(t, 0, Score(5, 5, 5))
}

func TestScoreMadeBelowBonusIsTenTimesBid(t *testing.T) {
	for _, pc := range []int{3, 4} {
		for bid := MinBid(pc); bid < BonusThreshold(pc); bid++ {
			assert.Equal(t, 10*bid, Score(bid, bid, pc), "pc=%d bid=%d", pc, bid)
		}
	}
}

func TestScoreMissedBidAlwaysPenalizes(t *testing.T) {
	for _, pc := range []int{3, 4} {
		for bid := MinBid(pc); bid <= MaxBid; bid++ {
			for tricks := 0; tricks < bid; tricks++ {
				assert.Equal(t, -10*bid, Score(bid, tricks, pc), "pc=%d bid=%d tricks=%d", pc, bid, tricks)
			}
		}
	}
}

// Every legal input lands in exactly one band and the sign follows the band.
func TestScoreSignMatchesBand(t *testing.T) {
	for _, pc := range []int{3, 4} {
		b := tableBands[pc]
		for bid := MinBid(pc); bid <= MaxBid; bid++ {
			for tricks := 0; tricks <= TotalTricks; tricks++ {
				got := Score(bid, tricks, pc)
				penalized := tricks < bid ||
					(bid >= b.doubleFrom && bid <= b.doubleTo && tricks >= 2*bid) ||
					(bid >= b.overFrom && tricks >= bid+b.overMargin)
				if penalized {
					assert.Negative(t, got, "pc=%d bid=%d tricks=%d", pc, bid, tricks)
				} else {
					assert.GreaterOrEqual(t, got, 0, "pc=%d bid=%d tricks=%d", pc, bid, tricks)
				}
				assert.Equal(t, got, Score(bid, tricks, pc))
			}
		}
	}
}

func TestMinBid(t *testing.T) {
	assert.Equal(t, 3, MinBid(3))
	assert.Equal(t, 2, MinBid(4))
	assert.Equal(t, 0, MinBid(5))
	assert.True(t, ValidPlayerCount(3))
	assert.False(t, ValidPlayerCount(2))
}
