// internal/game/session.go
package game

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/scoresheet/internal/models"
	"github.com/jason-s-yu/scoresheet/internal/scoring"
)

// State is the lifecycle phase of a Session.
type State string

const (
	StateSetup      State = "setup"
	StateInProgress State = "in_progress"
	StateFinished   State = "finished"
)

// RoundClosedFunc receives a copy of every round as soon as it is locked. It must be
// idempotent: the same round may be delivered again (e.g. after a resume).
type RoundClosedFunc func(ctx context.Context, scores models.RoundScores) error

// GameEndFunc is invoked once when the session reaches StateFinished.
type GameEndFunc func(ctx context.Context, outcome models.GameOutcome) error

// Session is one scoresheet from roster setup to completion.
//
// A Session is driven by a single actor and holds no locks; callers that share one across
// goroutines must serialize access themselves (see SessionStore).
type Session struct {
	ID uuid.UUID

	// OwnerID tags persisted rounds with the scorekeeper's identity. It is never interpreted.
	OwnerID string

	// OnRoundClosed and OnGameEnd are optional side-effect hooks. Their errors never undo a
	// state transition; they are handed back as warnings.
	OnRoundClosed RoundClosedFunc
	OnGameEnd     GameEndFunc

	players []models.Player
	rounds  *RoundStore
	state   State
	winner  *models.Standing
}

// EntryResult is what the sheet needs to redraw after a single cell changes.
type EntryResult struct {
	Round        int               `json:"round"`
	Player       int               `json:"player"`
	Entry        models.RoundEntry `json:"entry"`
	FinalScore   int               `json:"final_score"`
	BidsComplete bool              `json:"bids_complete"`
	TrickSum     int               `json:"trick_sum"`
	RoundValid   bool              `json:"round_valid"`
	Totals       []int             `json:"totals"`
}

// AdvanceResult describes a successful round close.
type AdvanceResult struct {
	ClosedRound int              `json:"closed_round"`
	NextRound   int              `json:"next_round"`
	Finished    bool             `json:"finished"`
	Winner      *models.Standing `json:"winner,omitempty"`
	Totals      []int            `json:"totals"`

	// Warning carries hook failures. The round is locked regardless.
	Warning error `json:"-"`
}

// GameResult is returned by CompleteGame.
type GameResult struct {
	Winner      string `json:"winner"`
	WinnerIndex int    `json:"winner_index"`
	WinnerScore int    `json:"winner_score"`
	Totals      []int  `json:"totals"`
	Rounds      int    `json:"rounds"`

	Warning error `json:"-"`
}

// NewSession returns a session in StateSetup with a fresh id.
func NewSession() *Session {
	id, _ := uuid.NewRandom()
	return &Session{ID: id, state: StateSetup}
}

// StartSession creates a session and starts it with the given roster in one step.
func StartSession(roster []string) (*Session, error) {
	s := NewSession()
	if err := s.Start(roster); err != nil {
		return nil, err
	}
	return s, nil
}

// Start fixes the roster and opens round 1. Names are trimmed and must be unique ignoring case.
func (s *Session) Start(roster []string) error {
	if s.state != StateSetup {
		return ErrAlreadyStarted
	}
	players, err := parseRoster(roster)
	if err != nil {
		return err
	}

	s.players = players
	s.rounds = NewRoundStore(len(players))
	if _, err := s.rounds.OpenRound(); err != nil {
		return err
	}
	s.state = StateInProgress
	return nil
}

func parseRoster(roster []string) ([]models.Player, error) {
	if !scoring.ValidPlayerCount(len(roster)) {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidRosterSize, len(roster))
	}
	seen := make(map[string]bool, len(roster))
	players := make([]models.Player, 0, len(roster))
	for i, name := range roster {
		p := models.Player{Name: strings.TrimSpace(name)}
		if p.Name == "" {
			return nil, fmt.Errorf("%w: player %d", ErrEmptyName, i)
		}
		if seen[p.Key()] {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateName, p.Name)
		}
		seen[p.Key()] = true
		players = append(players, p)
	}
	return players, nil
}

// State returns the current lifecycle phase.
func (s *Session) State() State { return s.state }

// Players returns a copy of the roster.
func (s *Session) Players() []models.Player {
	return append([]models.Player(nil), s.players...)
}

// PlayerCount returns the table size, 0 before Start.
func (s *Session) PlayerCount() int { return len(s.players) }

// CurrentRound returns the index of the open round.
func (s *Session) CurrentRound() (int, bool) {
	if s.state != StateInProgress {
		return 0, false
	}
	return s.rounds.CurrentRoundIndex()
}

// Rounds returns copies of every round played so far.
func (s *Session) Rounds() []models.Round {
	if s.rounds == nil {
		return nil
	}
	return s.rounds.Rounds()
}

// RecordEntry sets one bid or tricks value and returns the recomputed entry.
//
// Tricks may only be entered once every bid of the round is in. A *FieldRangeError is returned
// alongside a populated result: the value is kept on the sheet but scores nothing until fixed.
func (s *Session) RecordEntry(round, player int, field Field, value int) (EntryResult, error) {
	if s.state != StateInProgress {
		return EntryResult{}, ErrNotInProgress
	}
	r, err := s.rounds.Round(round)
	if err != nil {
		return EntryResult{}, err
	}
	if player < 0 || player >= s.PlayerCount() {
		return EntryResult{}, fmt.Errorf("%w: player %d", ErrIndexOutOfRange, player)
	}
	if field == FieldTricksTaken && !r.Closed && !s.rounds.BidsComplete(round) {
		return EntryResult{}, fmt.Errorf("%w: round %d", ErrBidsIncomplete, r.Number())
	}

	entry, err := s.rounds.SetEntry(round, player, field, value)
	var rangeErr *FieldRangeError
	if err != nil && !errors.As(err, &rangeErr) {
		return EntryResult{}, err
	}

	r, _ = s.rounds.Round(round)
	res := EntryResult{
		Round:        round,
		Player:       player,
		Entry:        entry,
		FinalScore:   entry.FinalScore,
		BidsComplete: s.rounds.BidsComplete(round),
		TrickSum:     r.TrickSum(),
		RoundValid:   Validate(r, s.PlayerCount()) == nil,
		Totals:       s.Totals(),
	}
	return res, err
}

// AdvanceRound locks the open round and opens the next one. After the last round the session
// finishes instead. A round that fails validation is returned as *ValidationError and the
// session is left exactly as it was.
func (s *Session) AdvanceRound(ctx context.Context) (AdvanceResult, error) {
	idx, err := s.closeCurrent()
	if err != nil {
		return AdvanceResult{}, err
	}
	res := AdvanceResult{ClosedRound: idx}
	warn := s.notifyRoundClosed(ctx, idx)

	if s.rounds.ClosedCount() >= scoring.MaxRounds {
		warn = errors.Join(warn, s.finish(ctx))
		res.Finished = true
		res.Winner = s.winner
	} else {
		next, err := s.rounds.OpenRound()
		if err != nil {
			return AdvanceResult{}, err
		}
		res.NextRound = next
	}
	res.Totals = s.Totals()
	res.Warning = warn
	return res, nil
}

// CompleteGame ends the game early. The open round must pass validation; it is locked and the
// current leader is declared the winner.
func (s *Session) CompleteGame(ctx context.Context) (GameResult, error) {
	idx, err := s.closeCurrent()
	if err != nil {
		return GameResult{}, err
	}
	warn := s.notifyRoundClosed(ctx, idx)
	warn = errors.Join(warn, s.finish(ctx))

	return GameResult{
		Winner:      s.winner.Name,
		WinnerIndex: s.winner.PlayerIndex,
		WinnerScore: s.winner.Score,
		Totals:      s.Totals(),
		Rounds:      s.rounds.ClosedCount(),
		Warning:     warn,
	}, nil
}

func (s *Session) closeCurrent() (int, error) {
	if s.state != StateInProgress {
		return 0, ErrNotInProgress
	}
	idx, ok := s.rounds.CurrentRoundIndex()
	if !ok {
		return 0, ErrNotInProgress
	}
	if err := s.rounds.CloseRound(idx); err != nil {
		return 0, err
	}
	return idx, nil
}

func (s *Session) markFinished() {
	s.state = StateFinished
	if st, ok := s.Leader(); ok {
		s.winner = &st
	}
}

func (s *Session) finish(ctx context.Context) error {
	s.markFinished()
	if s.OnGameEnd == nil || s.winner == nil {
		return nil
	}

	outcome := models.GameOutcome{
		GameID:      s.ID,
		OwnerID:     s.OwnerID,
		Totals:      s.Totals(),
		Winner:      s.winner.Name,
		WinnerScore: s.winner.Score,
		Rounds:      s.rounds.ClosedCount(),
		CompletedAt: time.Now().UTC(),
	}
	for _, p := range s.players {
		outcome.Players = append(outcome.Players, p.Name)
	}
	if err := s.OnGameEnd(ctx, outcome); err != nil {
		return fmt.Errorf("game end hook: %w", err)
	}
	return nil
}

func (s *Session) notifyRoundClosed(ctx context.Context, idx int) error {
	if s.OnRoundClosed == nil {
		return nil
	}
	rs, err := s.RoundScores(idx)
	if err != nil {
		return err
	}
	if err := s.OnRoundClosed(ctx, rs); err != nil {
		return fmt.Errorf("round %d closed hook: %w", idx+1, err)
	}
	return nil
}

// RoundScores builds the persistence payload for a round, keyed by player name.
func (s *Session) RoundScores(idx int) (models.RoundScores, error) {
	r, err := s.rounds.Round(idx)
	if err != nil {
		return models.RoundScores{}, err
	}
	rs := models.RoundScores{
		GameID:      s.ID,
		OwnerID:     s.OwnerID,
		RoundNumber: r.Number(),
		Scores:      make(map[string]int, len(s.players)),
		Bids:        make(map[string]int, len(s.players)),
		TricksTaken: make(map[string]int, len(s.players)),
		ClosedAt:    time.Now().UTC(),
	}
	for i, p := range s.players {
		e := r.Entries[i]
		rs.Scores[p.Name] = e.FinalScore
		if e.Bid != nil {
			rs.Bids[p.Name] = *e.Bid
		}
		if e.TricksTaken != nil {
			rs.TricksTaken[p.Name] = *e.TricksTaken
		}
	}
	return rs, nil
}

// Totals returns running totals in roster order.
func (s *Session) Totals() []int {
	if s.rounds == nil {
		return []int{}
	}
	return Totals(s.rounds.Rounds(), len(s.players))
}

// Leader returns the player currently on top; ties go to the earlier seat.
func (s *Session) Leader() (models.Standing, bool) {
	idx, score, ok := Leader(s.Totals())
	if !ok {
		return models.Standing{}, false
	}
	return models.Standing{PlayerIndex: idx, Name: s.players[idx].Name, Score: score}, true
}

// Winner returns the declared winner once the session is finished.
func (s *Session) Winner() (models.Standing, bool) {
	if s.winner == nil {
		return models.Standing{}, false
	}
	return *s.winner, true
}

// Snapshot returns a detached copy of the whole sheet.
func (s *Session) Snapshot() models.SessionSnapshot {
	snap := models.SessionSnapshot{
		ID:      s.ID,
		OwnerID: s.OwnerID,
		State:   string(s.state),
		Players: s.Players(),
		Rounds:  s.Rounds(),
		Totals:  s.Totals(),
	}
	if idx, ok := s.CurrentRound(); ok {
		snap.CurrentRound = &idx
	}
	if s.winner != nil {
		w := *s.winner
		snap.Winner = &w
	}
	return snap
}

// RestoreSession rebuilds a session from a snapshot by replaying every entry through the round
// store, so all invariants are checked again and final scores are recomputed rather than trusted.
// Hooks are not fired while replaying.
func RestoreSession(snap models.SessionSnapshot) (*Session, error) {
	names := make([]string, len(snap.Players))
	for i, p := range snap.Players {
		names[i] = p.Name
	}
	s := &Session{ID: snap.ID, OwnerID: snap.OwnerID, state: StateSetup}
	if s.ID == uuid.Nil {
		s.ID, _ = uuid.NewRandom()
	}
	if err := s.Start(names); err != nil {
		return nil, fmt.Errorf("restore roster: %w", err)
	}

	for i, r := range snap.Rounds {
		if i > 0 {
			if _, err := s.rounds.OpenRound(); err != nil {
				return nil, fmt.Errorf("restore round %d: %w", i+1, err)
			}
		}
		if len(r.Entries) != s.PlayerCount() {
			return nil, fmt.Errorf("restore round %d: %w", i+1, ErrIndexOutOfRange)
		}
		for p, e := range r.Entries {
			if err := s.replay(i, p, FieldBid, e.Bid); err != nil {
				return nil, err
			}
			if err := s.replay(i, p, FieldTricksTaken, e.TricksTaken); err != nil {
				return nil, err
			}
		}
		if r.Closed {
			if err := s.rounds.CloseRound(i); err != nil {
				return nil, fmt.Errorf("restore round %d: %w", i+1, err)
			}
		}
	}

	_, open := s.rounds.CurrentRoundIndex()
	switch State(snap.State) {
	case StateFinished:
		if open {
			return nil, fmt.Errorf("restore: finished game has an open round: %w", ErrRoundStillOpen)
		}
		s.markFinished()
	default:
		if !open && s.rounds.ClosedCount() >= scoring.MaxRounds {
			s.markFinished()
		} else if !open {
			if _, err := s.rounds.OpenRound(); err != nil {
				return nil, fmt.Errorf("restore: %w", err)
			}
		}
	}
	return s, nil
}

func (s *Session) replay(round, player int, field Field, v *int) error {
	if v == nil {
		return nil
	}
	_, err := s.rounds.SetEntry(round, player, field, *v)
	var rangeErr *FieldRangeError
	if err != nil && !errors.As(err, &rangeErr) {
		return fmt.Errorf("restore round %d: %w", round+1, err)
	}
	return nil
}
