package doko

import "github.com/HenriWahl/doko3000/card"

// Bundle size bounds of a card exchange. The first transferred bundle fixes
// the count; the returning side must match it exactly.
const (
	MinExchangeCards = 1
	MaxExchangeCards = 3
)

// ExchangeState is the lifecycle of the two-player exchange sub-protocol.
type ExchangeState int

const (
	// ExchangeOffered: player1 asked player2, the table is locked, player2
	// has not answered yet.
	ExchangeOffered ExchangeState = iota
	// ExchangeInProgress: player2 accepted, bundles are being transferred.
	ExchangeInProgress
	// ExchangeCompleted: both bundles swapped, play may resume.
	ExchangeCompleted
)

var exchangeStateNames = map[ExchangeState]string{
	ExchangeOffered:    "offered",
	ExchangeInProgress: "in_progress",
	ExchangeCompleted:  "completed",
}

func (s ExchangeState) String() string {
	if name, ok := exchangeStateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Exchange is an active exchange between two seated players. Denial simply
// discards the Exchange, so a denied state needs no representation.
type Exchange struct {
	Player1 string
	Player2 string

	state ExchangeState
	count int // negotiated bundle size, 0 until the first transfer
	given map[string][]card.Card
}

func newExchange(player1, player2 string) *Exchange {
	return &Exchange{
		Player1: player1,
		Player2: player2,
		given:   make(map[string][]card.Card, 2),
	}
}

func (e *Exchange) State() ExchangeState { return e.state }

func (e *Exchange) Count() int { return e.count }

// Involves reports whether the player is one of the two exchange parties.
func (e *Exchange) Involves(playerID string) bool {
	return playerID == e.Player1 || playerID == e.Player2
}

// Peer returns the other party of the exchange.
func (e *Exchange) Peer(playerID string) string {
	switch playerID {
	case e.Player1:
		return e.Player2
	case e.Player2:
		return e.Player1
	}
	return ""
}

// PendingFor reports whether the player still owes their bundle.
func (e *Exchange) PendingFor(playerID string) bool {
	if e.state != ExchangeInProgress || !e.Involves(playerID) {
		return false
	}
	return len(e.given[playerID]) == 0
}

// Given returns the cards a player has put into the exchange so far.
func (e *Exchange) Given(playerID string) []card.Card {
	return append([]card.Card(nil), e.given[playerID]...)
}

func (e *Exchange) accept() error {
	if e.state != ExchangeOffered {
		return ErrExchangeState
	}
	e.state = ExchangeInProgress
	return nil
}

// give records a bundle for one side. The first bundle negotiates the count,
// the second has to match it. Returns true once both sides delivered.
func (e *Exchange) give(playerID string, cards []card.Card) (bool, error) {
	if e.state != ExchangeInProgress || !e.Involves(playerID) {
		return false, ErrExchangeState
	}
	if len(e.given[playerID]) > 0 {
		return false, ErrExchangeState
	}
	n := len(cards)
	if n < MinExchangeCards || n > MaxExchangeCards {
		return false, ErrExchangeCount
	}
	if e.count != 0 && n != e.count {
		return false, ErrExchangeCount
	}
	if e.count == 0 {
		e.count = n
	}
	e.given[playerID] = append([]card.Card(nil), cards...)
	if len(e.given[e.Player1]) > 0 && len(e.given[e.Player2]) > 0 {
		e.state = ExchangeCompleted
		return true, nil
	}
	return false, nil
}
