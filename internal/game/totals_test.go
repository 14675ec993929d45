package game

import (
	"testing"

	"github.com/jason-s-yu/scoresheet/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestTotalsIncludesOpenRounds(t *testing.T) {
	rounds := []models.Round{
		{Closed: true, Entries: []models.RoundEntry{{FinalScore: 50}, {FinalScore: -40}, {FinalScore: 40}}},
		{Entries: []models.RoundEntry{{FinalScore: 30}, {}, {}}},
	}
	assert.Equal(t, []int{80, -40, 40}, Totals(rounds, 3))
	assert.Equal(t, []int{0, 0, 0, 0}, Totals(nil, 4))
}

func TestLeader(t *testing.T) {
	cases := []struct {
		name   string
		totals []int
		idx    int
		score  int
	}{
		{"clear leader", []int{10, 70, 20}, 1, 70},
		{"tie goes to first seat", []int{40, 70, 70, 10}, 1, 70},
		{"all negative", []int{-30, -10, -20}, 1, -10},
		{"all equal", []int{0, 0, 0}, 0, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			idx, score, ok := Leader(tc.totals)
			assert.True(t, ok)
			assert.Equal(t, tc.idx, idx)
			assert.Equal(t, tc.score, score)
		})
	}

	_, _, ok := Leader(nil)
	assert.False(t, ok)
}
