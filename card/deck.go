package card

// NumCopies is how often every suit/rank combination appears in the deck.
// Two of everything - Doppelkopf.
const NumCopies = 2

var suits = []Suit{Schell, Herz, Gruen, Eichel}
var ranks = []Rank{Neun, Unter, Ober, Koenig, Zehn, Ass}

// catalog holds all 48 cards with stable ids. Ids never change, whether or
// not the nines take part in a given round.
var catalog []Card

func init() {
	id := 0
	for copy := 0; copy < NumCopies; copy++ {
		for _, s := range suits {
			for _, r := range ranks {
				catalog = append(catalog, Card{ID: id, Suit: s, Rank: r})
				id++
			}
		}
	}
}

// ByID returns the card with the given id, or false if the id is unknown.
func ByID(id int) (Card, bool) {
	if id < 0 || id >= len(catalog) {
		return Card{}, false
	}
	return catalog[id], true
}

// Deck returns the playable cards for a round. When withNines is false the
// nines stay in the box and the deck shrinks from 48 to 40 cards.
func Deck(withNines bool) []Card {
	deck := make([]Card, 0, len(catalog))
	for _, c := range catalog {
		if !withNines && c.Rank == Neun {
			continue
		}
		deck = append(deck, c)
	}
	return deck
}

// TotalValue is the fixed point sum of a deck, the conserved quantity of a
// round: 240 with nines (nines are worth nothing, so also 240 without).
func TotalValue(withNines bool) int {
	total := 0
	for _, c := range Deck(withNines) {
		total += c.Value()
	}
	return total
}
