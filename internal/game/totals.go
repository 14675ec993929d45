// internal/game/totals.go
package game

import "github.com/jason-s-yu/scoresheet/internal/models"

// Totals sums every player's final scores across all rounds, open ones included.
// Incomplete entries already carry a final score of 0.
func Totals(rounds []models.Round, playerCount int) []int {
	totals := make([]int, playerCount)
	for _, r := range rounds {
		for i, e := range r.Entries {
			if i < playerCount {
				totals[i] += e.FinalScore
			}
		}
	}
	return totals
}

// Leader returns the index and score of the highest total. Ties go to the player seated first.
func Leader(totals []int) (int, int, bool) {
	if len(totals) == 0 {
		return 0, 0, false
	}
	best := 0
	for i := 1; i < len(totals); i++ {
		if totals[i] > totals[best] {
			best = i
		}
	}
	return best, totals[best], true
}
