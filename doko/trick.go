package doko

import "github.com/HenriWahl/doko3000/card"

// TrickSize is the number of cards a complete trick holds: one per seat.
const TrickSize = 4

// Trick is the set of cards currently on the table, as two parallel ordered
// lists of players and cards plus the eventual owner.
type Trick struct {
	players []string
	cards   []card.Card
	owner   string
}

func (t *Trick) Len() int { return len(t.cards) }

func (t *Trick) Full() bool { return len(t.cards) >= TrickSize }

func (t *Trick) Owner() string { return t.owner }

func (t *Trick) addTurn(playerID string, c card.Card) {
	t.players = append(t.players, playerID)
	t.cards = append(t.cards, c)
}

// Value is the scoring value of the trick, the sum of its card values.
func (t *Trick) Value() int {
	total := 0
	for _, c := range t.cards {
		total += c.Value()
	}
	return total
}

// Winner computes which player takes the trick under standard Doppelkopf
// ranking. The first-played card wins against its identical second copy.
func (t *Trick) Winner() string {
	if len(t.cards) == 0 {
		return ""
	}
	best := 0
	for i := 1; i < len(t.cards); i++ {
		if beats(t.cards[i], t.cards[best], t.cards[0].Suit) {
			best = i
		}
	}
	return t.players[best]
}

// beats reports whether challenger wins over the current best card, given
// the suit that led the trick. Strict comparison keeps the first copy ahead.
func beats(challenger, best card.Card, lead card.Suit) bool {
	ct, bt := trumpRank(challenger), trumpRank(best)
	switch {
	case ct > 0 && bt > 0:
		return ct > bt
	case ct > 0:
		return true
	case bt > 0:
		return false
	default:
		// side-suit trick: only following the led suit can win
		if challenger.Suit != lead {
			return false
		}
		if best.Suit != lead {
			return true
		}
		return sideRank(challenger) > sideRank(best)
	}
}

// trumpRank orders the trump cards of the regular game, highest first:
// Herz-Zehn (the Dulle), then the Obers and Unters in suit order
// Eichel > Grün > Herz > Schell, then the remaining Schell cards by value.
// Non-trump cards rank 0.
func trumpRank(c card.Card) int {
	if c.Suit == card.Herz && c.Rank == card.Zehn {
		return 13
	}
	suitOrder := map[card.Suit]int{card.Eichel: 3, card.Gruen: 2, card.Herz: 1, card.Schell: 0}
	switch c.Rank {
	case card.Ober:
		return 9 + suitOrder[c.Suit]
	case card.Unter:
		return 5 + suitOrder[c.Suit]
	}
	if c.Suit == card.Schell {
		switch c.Rank {
		case card.Ass:
			return 4
		case card.Zehn:
			return 3
		case card.Koenig:
			return 2
		default: // Neun
			return 1
		}
	}
	return 0
}

// sideRank orders cards within a non-trump suit: Ass > Zehn > König > Neun.
// The point value already sorts exactly that way.
func sideRank(c card.Card) int {
	return c.Value()
}
