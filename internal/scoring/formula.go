// internal/scoring/formula.go
package scoring

const (
	// MaxRounds is the number of deals in a full game.
	MaxRounds = 13
	// TotalTricks is the number of tricks in one deal; every round's tricks must add up to it.
	TotalTricks = 13
	// MaxBid is the highest legal bid.
	MaxBid = 13

	MinPlayers = 3
	MaxPlayers = 4
)

// bands holds the thresholds that differ between three and four player tables.
type bands struct {
	minBid     int // lowest legal bid, also the bottom of the made band
	doubleFrom int // bids in [doubleFrom, doubleTo] are penalized at tricks >= 2*bid
	doubleTo   int
	overFrom   int // bids >= overFrom are penalized at tricks >= bid+overMargin
	overMargin int
	bonusFrom  int // bids >= bonusFrom score a flat 20*bid
}

var tableBands = map[int]bands{
	3: {minBid: 3, doubleFrom: 1, doubleTo: 4, overFrom: 5, overMargin: 4, bonusFrom: 7},
	4: {minBid: 2, doubleFrom: 2, doubleTo: 3, overFrom: 4, overMargin: 3, bonusFrom: 6},
}

// ValidPlayerCount reports whether the scoresheet supports a table of n players.
func ValidPlayerCount(n int) bool {
	_, ok := tableBands[n]
	return ok
}

// MinBid returns the lowest legal bid for the given table size, or 0 for unsupported sizes.
func MinBid(playerCount int) int {
	return tableBands[playerCount].minBid
}

// BonusThreshold returns the bid from which a made contract scores the flat 20*bid bonus.
func BonusThreshold(playerCount int) int {
	return tableBands[playerCount].bonusFrom
}

// Score converts a bid and the tricks actually taken into the signed round score.
//
// The checks run in a fixed order: a missed bid first, then the two over-fulfilment
// penalty bands, then the high-bid bonus and finally the made band, where every trick
// above the bid adds a single point. Unsupported player counts and empty bids score 0.
func Score(bid, tricksTaken, playerCount int) int {
	b, ok := tableBands[playerCount]
	if !ok || bid <= 0 || tricksTaken < 0 {
		return 0
	}

	switch {
	case tricksTaken < bid:
		return -10 * bid
	case bid >= b.doubleFrom && bid <= b.doubleTo && tricksTaken >= 2*bid:
		return -10 * bid
	case bid >= b.overFrom && tricksTaken >= bid+b.overMargin:
		return -10 * bid
	case bid >= b.bonusFrom:
		return 20 * bid
	case bid >= b.minBid:
		return 10*bid + (tricksTaken - bid)
	}
	return 0
}
