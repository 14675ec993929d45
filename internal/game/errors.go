// internal/game/errors.go
package game

import (
	"errors"
	"fmt"
	"strings"
)

// Setup errors.
var (
	ErrInvalidRosterSize = errors.New("roster must have 3 or 4 players")
	ErrDuplicateName     = errors.New("player names must be unique")
	ErrEmptyName         = errors.New("player names must not be empty")
)

// Structural errors. These mean the caller addressed something that does not exist or can no
// longer change; a well-behaved client never sees them.
var (
	ErrIndexOutOfRange   = errors.New("round or player index out of range")
	ErrRoundClosed       = errors.New("round is closed")
	ErrRoundStillOpen    = errors.New("previous round is still open")
	ErrMaxRoundsExceeded = errors.New("maximum number of rounds reached")
	ErrInvalidField      = errors.New("unknown entry field")
	ErrNotInProgress     = errors.New("game is not in progress")
	ErrAlreadyStarted    = errors.New("game already started")
)

// ErrBidsIncomplete is returned when tricks are entered before every bid of the round is in.
var ErrBidsIncomplete = errors.New("all bids must be entered before tricks taken")

// FieldRangeError reports a value outside its legal bounds. The value is still recorded so the
// sheet can show it; the entry's final score stays 0 until it is corrected.
type FieldRangeError struct {
	Round  int   `json:"round"`
	Player int   `json:"player"`
	Field  Field `json:"field"`
	Value  int   `json:"value"`
	Min    int   `json:"min"`
	Max    int   `json:"max"`
}

func (e *FieldRangeError) Error() string {
	return fmt.Sprintf("round %d player %d: %s %d must be between %d and %d",
		e.Round+1, e.Player, e.Field, e.Value, e.Min, e.Max)
}

// ReasonKind classifies why a round could not be closed.
type ReasonKind string

const (
	ReasonIncompleteEntries ReasonKind = "incomplete_entries"
	ReasonBidOutOfRange     ReasonKind = "bid_out_of_range"
	ReasonTricksOutOfRange  ReasonKind = "tricks_out_of_range"
	ReasonTrickSumMismatch  ReasonKind = "trick_sum_mismatch"
)

// Reason is one validation failure. Only the fields relevant to Kind are populated.
type Reason struct {
	Kind        ReasonKind `json:"kind"`
	PlayerIndex int        `json:"player_index"`
	Players     []int      `json:"players,omitempty"`
	Min         int        `json:"min,omitempty"`
	Max         int        `json:"max,omitempty"`
	Actual      int        `json:"actual,omitempty"`
	Expected    int        `json:"expected,omitempty"`
}

func (r Reason) String() string {
	switch r.Kind {
	case ReasonIncompleteEntries:
		return fmt.Sprintf("entries missing for players %v", r.Players)
	case ReasonBidOutOfRange:
		return fmt.Sprintf("player %d bid must be between %d and %d", r.PlayerIndex, r.Min, r.Max)
	case ReasonTricksOutOfRange:
		return fmt.Sprintf("player %d tricks taken must be between %d and %d", r.PlayerIndex, r.Min, r.Max)
	case ReasonTrickSumMismatch:
		return fmt.Sprintf("tricks taken add up to %d, expected %d", r.Actual, r.Expected)
	}
	return string(r.Kind)
}

// ValidationError is returned when a round fails the close checks. Nothing is mutated.
type ValidationError struct {
	RoundIndex int      `json:"round"`
	Reasons    []Reason `json:"reasons"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Reasons))
	for i, r := range e.Reasons {
		parts[i] = r.String()
	}
	return fmt.Sprintf("round %d cannot be closed: %s", e.RoundIndex+1, strings.Join(parts, "; "))
}

// Has reports whether any reason of the given kind was recorded.
func (e *ValidationError) Has(kind ReasonKind) bool {
	for _, r := range e.Reasons {
		if r.Kind == kind {
			return true
		}
	}
	return false
}

// Of returns every reason of the given kind.
func (e *ValidationError) Of(kind ReasonKind) []Reason {
	var out []Reason
	for _, r := range e.Reasons {
		if r.Kind == kind {
			out = append(out, r)
		}
	}
	return out
}
