// internal/models/round.go
package models

// RoundEntry is one player's line in a round. Bid and TricksTaken are nil until entered.
// FinalScore is derived from the other two and the table size; it is 0 while either is unset.
type RoundEntry struct {
	Bid         *int `json:"bid"`
	TricksTaken *int `json:"tricks_taken"`
	FinalScore  int  `json:"final_score"`
}

// HasBid reports whether a bid has been entered.
func (e RoundEntry) HasBid() bool { return e.Bid != nil }

// HasTricks reports whether the tricks taken have been entered.
func (e RoundEntry) HasTricks() bool { return e.TricksTaken != nil }

// Complete reports whether both fields are set.
func (e RoundEntry) Complete() bool { return e.HasBid() && e.HasTricks() }

// Round holds one entry per player, in roster order.
type Round struct {
	Index   int          `json:"index"`
	Entries []RoundEntry `json:"entries"`
	Closed  bool         `json:"closed"`
}

// Number is the 1-based round number shown on the sheet.
func (r Round) Number() int { return r.Index + 1 }

// TrickSum adds up every entered tricks value.
func (r Round) TrickSum() int {
	sum := 0
	for _, e := range r.Entries {
		if e.TricksTaken != nil {
			sum += *e.TricksTaken
		}
	}
	return sum
}

// Clone returns a deep copy so callers can never reach into a session's rounds.
func (r Round) Clone() Round {
	out := Round{Index: r.Index, Closed: r.Closed, Entries: make([]RoundEntry, len(r.Entries))}
	for i, e := range r.Entries {
		out.Entries[i] = RoundEntry{
			Bid:         copyInt(e.Bid),
			TricksTaken: copyInt(e.TricksTaken),
			FinalScore:  e.FinalScore,
		}
	}
	return out
}

func copyInt(v *int) *int {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
