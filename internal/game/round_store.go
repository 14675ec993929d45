// internal/game/round_store.go
package game

import (
	"fmt"

	"github.com/jason-s-yu/scoresheet/internal/models"
	"github.com/jason-s-yu/scoresheet/internal/scoring"
)

// Field names one editable column of a round entry.
type Field string

const (
	FieldBid         Field = "bid"
	FieldTricksTaken Field = "tricks_taken"
)

// ParseField converts the wire name of a column into a Field.
func ParseField(s string) (Field, error) {
	switch Field(s) {
	case FieldBid, FieldTricksTaken:
		return Field(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidField, s)
}

// RoundStore is the ordered list of rounds of one game. It is not safe for concurrent use;
// the owning Session is driven by a single actor.
type RoundStore struct {
	playerCount int
	rounds      []*models.Round
}

// NewRoundStore creates an empty store for a table of playerCount players.
func NewRoundStore(playerCount int) *RoundStore {
	return &RoundStore{playerCount: playerCount}
}


// OpenRound appends an empty round and returns its 0-based index.
func (s *RoundStore) OpenRound() (int, error) {
	if len(s.rounds) >= scoring.MaxRounds {
		return 0, ErrMaxRoundsExceeded
	}
	if n := len(s.rounds); n > 0 && !s.rounds[n-1].Closed {
		return 0, fmt.Errorf("%w: round %d", ErrRoundStillOpen, n)
	}

	r := &models.Round{
		Index:   len(s.rounds),
		Entries: make([]models.RoundEntry, s.playerCount),
	}
	s.rounds = append(s.rounds, r)
	return r.Index, nil
}

// SetEntry records a bid or tricks value and returns a copy of the updated entry.
//
// Out-of-range values are stored and reported as *FieldRangeError; the entry's final score is
// only computed once both fields are set and in range, and is 0 otherwise.
func (s *RoundStore) SetEntry(roundIdx, playerIdx int, field Field, value int) (models.RoundEntry, error) {
	r, err := s.round(roundIdx)
	if err != nil {
		return models.RoundEntry{}, err
	}
	if playerIdx < 0 || playerIdx >= len(r.Entries) {
		return models.RoundEntry{}, fmt.Errorf("%w: player %d", ErrIndexOutOfRange, playerIdx)
	}
	if r.Closed {
		return models.RoundEntry{}, fmt.Errorf("%w: round %d", ErrRoundClosed, r.Number())
	}

	e := &r.Entries[playerIdx]
	v := value
	switch field {
	case FieldBid:
		e.Bid = &v
	case FieldTricksTaken:
		e.TricksTaken = &v
	default:
		return models.RoundEntry{}, fmt.Errorf("%w: %q", ErrInvalidField, field)
	}
	e.FinalScore = s.entryScore(*e)

	out := r.Clone().Entries[playerIdx]
	if lo, hi, ok := fieldInRange(field, value, s.playerCount); !ok {
		return out, &FieldRangeError{Round: roundIdx, Player: playerIdx, Field: field, Value: value, Min: lo, Max: hi}
	}
	return out, nil
}

// entryScore is the derived final score of e; incomplete or out-of-range entries score 0.
func (s *RoundStore) entryScore(e models.RoundEntry) int {
	if !e.Complete() {
		return 0
	}
	if _, _, ok := fieldInRange(FieldBid, *e.Bid, s.playerCount); !ok {
		return 0
	}
	if _, _, ok := fieldInRange(FieldTricksTaken, *e.TricksTaken, s.playerCount); !ok {
		return 0
	}
	return scoring.Score(*e.Bid, *e.TricksTaken, s.playerCount)
}

// CloseRound validates the round and locks it. A rejected round is left untouched.
func (s *RoundStore) CloseRound(roundIdx int) error {
	r, err := s.round(roundIdx)
	if err != nil {
		return err
	}
	if r.Closed {
		return fmt.Errorf("%w: round %d", ErrRoundClosed, r.Number())
	}
	if err := Validate(*r, s.playerCount); err != nil {
		return err
	}
	r.Closed = true
	return nil
}

// CurrentRoundIndex returns the open round, or false when there is none (all rounds locked).
func (s *RoundStore) CurrentRoundIndex() (int, bool) {
	n := len(s.rounds)
	if n == 0 || s.rounds[n-1].Closed {
		return 0, false
	}
	return n - 1, true
}

// ClosedCount returns how many rounds have been locked.
func (s *RoundStore) ClosedCount() int {
	n := 0
	for _, r := range s.rounds {
		if r.Closed {
			n++
		}
	}
	return n
}

// Round returns a copy of the round at idx.
func (s *RoundStore) Round(idx int) (models.Round, error) {
	r, err := s.round(idx)
	if err != nil {
		return models.Round{}, err
	}
	return r.Clone(), nil
}

// Rounds returns copies of every round in order.
func (s *RoundStore) Rounds() []models.Round {
	out := make([]models.Round, len(s.rounds))
	for i, r := range s.rounds {
		out[i] = r.Clone()
	}
	return out
}

// BidsComplete reports whether every player has a positive bid in the given round.
func (s *RoundStore) BidsComplete(idx int) bool {
	r, err := s.round(idx)
	if err != nil {
		return false
	}
	for _, e := range r.Entries {
		if !e.HasBid() || *e.Bid <= 0 {
			return false
		}
	}
	return true
}

func (s *RoundStore) round(idx int) (*models.Round, error) {
	if idx < 0 || idx >= len(s.rounds) {
		return nil, fmt.Errorf("%w: round %d", ErrIndexOutOfRange, idx)
	}
	return s.rounds[idx], nil
}
