// internal/models/scores.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// RoundScores is handed to the persistence sink every time a round is locked.
// Re-sending the same (GameID, RoundNumber) must overwrite, never duplicate.
type RoundScores struct {
	GameID      uuid.UUID      `json:"game_id"`
	OwnerID     string         `json:"owner_id"`
	RoundNumber int            `json:"round_number"`
	Scores      map[string]int `json:"scores"`
	Bids        map[string]int `json:"bids"`
	TricksTaken map[string]int `json:"tricks_taken"`
	ClosedAt    time.Time      `json:"closed_at"`
}

// GameOutcome is the final result of a completed game.
type GameOutcome struct {
	GameID      uuid.UUID `json:"game_id"`
	OwnerID     string    `json:"owner_id"`
	Players     []string  `json:"players"`
	Totals      []int     `json:"totals"`
	Winner      string    `json:"winner"`
	WinnerScore int       `json:"winner_score"`
	Rounds      int       `json:"rounds"`
	CompletedAt time.Time `json:"completed_at"`
}
