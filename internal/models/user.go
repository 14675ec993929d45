package models

import "github.com/google/uuid"

// Identity is the authenticated actor driving a scoresheet. The engine never interprets it;
// it is only copied onto persisted rounds so scores can be traced back to the scorekeeper.
type Identity struct {
	ID          uuid.UUID `json:"id"`
	Username    string    `json:"username"`
	IsEphemeral bool      `json:"is_ephemeral"`
}
