// internal/models/session.go
package models

import "github.com/google/uuid"

// SessionSnapshot is a detached copy of a scoresheet. It is what the renderer reads after
// every mutation and what gets stored when a game is paused.
type SessionSnapshot struct {
	ID           uuid.UUID `json:"id"`
	OwnerID      string    `json:"owner_id"`
	State        string    `json:"state"`
	Players      []Player  `json:"players"`
	Rounds       []Round   `json:"rounds"`
	CurrentRound *int      `json:"current_round"`
	Totals       []int     `json:"totals"`
	Winner       *Standing `json:"winner,omitempty"`
}

// Standing is a player's position in the running totals.
type Standing struct {
	PlayerIndex int    `json:"player_index"`
	Name        string `json:"name"`
	Score       int    `json:"score"`
}
