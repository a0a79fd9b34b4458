package card

import "fmt"

// Suit is one of the four German suits of a Doppelkopf deck.
type Suit byte

const (
	Schell Suit = iota // bells
	Herz               // hearts
	Gruen              // leaves
	Eichel             // acorns
)

func (s Suit) String() string {
	switch s {
	case Schell:
		return "Schell"
	case Herz:
		return "Herz"
	case Gruen:
		return "Grün"
	case Eichel:
		return "Eichel"
	default:
		return "Invalid"
	}
}

// Rank is the card face. Doppelkopf plays six ranks per suit.
type Rank byte

const (
	Neun Rank = iota
	Unter
	Ober
	Koenig
	Zehn
	Ass
)

func (r Rank) String() string {
	switch r {
	case Neun:
		return "Neun"
	case Unter:
		return "Unter"
	case Ober:
		return "Ober"
	case Koenig:
		return "König"
	case Zehn:
		return "Zehn"
	case Ass:
		return "Ass"
	default:
		return "Invalid"
	}
}

// Value is the scoring value of a rank at the end of a round.
func (r Rank) Value() int {
	switch r {
	case Unter:
		return 2
	case Ober:
		return 3
	case Koenig:
		return 4
	case Zehn:
		return 10
	case Ass:
		return 11
	default:
		return 0
	}
}

// Card is one physical card. Every card exists twice in the deck; the two
// copies share suit and rank but have distinct ids, so ownership checks can
// tell them apart for the lifetime of a round.
type Card struct {
	ID   int
	Suit Suit
	Rank Rank
}

// Name is the display identity of the card, e.g. "Schell-Ass".
func (c Card) Name() string {
	return fmt.Sprintf("%s-%s", c.Suit, c.Rank)
}

// Value is the card's scoring value.
func (c Card) Value() int {
	return c.Rank.Value()
}

func (c Card) String() string {
	return c.Name()
}
