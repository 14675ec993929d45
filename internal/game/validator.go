// internal/game/validator.go
package game

import (
	"github.com/jason-s-yu/scoresheet/internal/models"
	"github.com/jason-s-yu/scoresheet/internal/scoring"
)

// Validate checks whether a round may be closed.
//
// Missing entries are reported first and stop the check, since ranges and sums are meaningless
// on a half-filled round. Otherwise every out-of-range bid and tricks value is reported, followed
// by a single trick-sum mismatch if the tricks do not add up to the full deck.
func Validate(r models.Round, playerCount int) error {
	var missing []int
	for i, e := range r.Entries {
		if !e.Complete() {
			missing = append(missing, i)
		}
	}
	if len(missing) > 0 {
		return &ValidationError{
			RoundIndex: r.Index,
			Reasons:    []Reason{{Kind: ReasonIncompleteEntries, Players: missing}},
		}
	}

	minBid := scoring.MinBid(playerCount)
	var reasons []Reason
	for i, e := range r.Entries {
		if *e.Bid < minBid || *e.Bid > scoring.MaxBid {
			reasons = append(reasons, Reason{Kind: ReasonBidOutOfRange, PlayerIndex: i, Min: minBid, Max: scoring.MaxBid})
		}
		if *e.TricksTaken < 0 || *e.TricksTaken > scoring.TotalTricks {
			reasons = append(reasons, Reason{Kind: ReasonTricksOutOfRange, PlayerIndex: i, Min: 0, Max: scoring.TotalTricks})
		}
	}

	if sum := r.TrickSum(); sum != scoring.TotalTricks {
		reasons = append(reasons, Reason{Kind: ReasonTrickSumMismatch, Actual: sum, Expected: scoring.TotalTricks})
	}

	if len(reasons) > 0 {
		return &ValidationError{RoundIndex: r.Index, Reasons: reasons}
	}
	return nil
}

// fieldInRange reports whether v is a legal value for field at this table size.
func fieldInRange(field Field, v, playerCount int) (lo, hi int, ok bool) {
	switch field {
	case FieldBid:
		lo, hi = scoring.MinBid(playerCount), scoring.MaxBid
	default:
		lo, hi = 0, scoring.TotalTricks
	}
	return lo, hi, v >= lo && v <= hi
}
