package doko

import "github.com/HenriWahl/doko3000/card"

// TurnView is one played card with the player who put it down.
type TurnView struct {
	Player string
	Card   card.Card
}

// TrickView is a read-only copy of a trick.
type TrickView struct {
	Turns []TurnView
	Owner string
	Value int
}

// ExchangeView is a read-only copy of a running exchange.
type ExchangeView struct {
	Player1 string
	Player2 string
	State   ExchangeState
	Count   int
	// GivenPlayer1/GivenPlayer2 report whether the side delivered its bundle.
	GivenPlayer1 bool
	GivenPlayer2 bool
}

// Snapshot is a consistent full copy of the round state, taken under the
// round lock. It is what reconnecting or desynced clients rebuild from; the
// per-player projection (hiding foreign hands) is the caller's business.
type Snapshot struct {
	Mode           Mode
	Players        []string
	Dealer         string
	CurrentPlayer  string
	TurnCount      int
	CardsPerPlayer int
	DealStamp      int64
	Rules          Rules

	Hands map[string][]card.Card

	CurrentTrick  TrickView
	ClaimedTricks []TrickView
	Scores        map[string]int

	ShowingHand string
	Exchange    *ExchangeView

	NeedsDealing       bool
	NeedsTrickClaiming bool
	Finished           bool
}

// Snapshot copies the complete round state.
func (r *Round) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := Snapshot{
		Mode:           r.mode,
		Players:        append([]string(nil), r.players...),
		CurrentPlayer:  r.currentPlayer,
		TurnCount:      r.turnCount,
		CardsPerPlayer: r.cardsPerPlayer,
		DealStamp:      r.dealStamp,
		Rules:          r.rules,
		Hands:          make(map[string][]card.Card, len(r.hands)),
		CurrentTrick:   trickView(r.current),
		Scores:         r.scoresLocked(),
		ShowingHand:    r.showingHand,
	}
	if len(r.players) > 0 {
		s.Dealer = r.players[0]
	}
	for p, hand := range r.hands {
		s.Hands[p] = append([]card.Card(nil), hand...)
	}
	for _, t := range r.claimed {
		s.ClaimedTricks = append(s.ClaimedTricks, trickView(t))
	}
	if r.exchange != nil {
		s.Exchange = &ExchangeView{
			Player1:      r.exchange.Player1,
			Player2:      r.exchange.Player2,
			State:        r.exchange.State(),
			Count:        r.exchange.Count(),
			GivenPlayer1: len(r.exchange.Given(r.exchange.Player1)) > 0,
			GivenPlayer2: len(r.exchange.Given(r.exchange.Player2)) > 0,
		}
	}

	s.NeedsDealing = r.mode == ModeDealing || r.mode == ModeAwaitingNextRound || r.mode == ModeRoundFinished
	s.NeedsTrickClaiming = r.mode == ModeTrickFullPendingClaim ||
		(r.mode == ModeCardsShown && r.modeBeforeShow == ModeTrickFullPendingClaim)
	s.Finished = r.mode == ModeRoundFinished

	return s
}

// Hand copies a single player's hand in its stored order.
func (r *Round) Hand(playerID string) []card.Card {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]card.Card(nil), r.hands[playerID]...)
}

// DealStamp returns the timestamp of the current deal.
func (r *Round) DealStamp() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dealStamp
}

// Mode returns the current round mode.
func (r *Round) Mode() Mode {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mode
}

// CurrentPlayer returns who holds the turn, or "" when nobody does.
func (r *Round) CurrentPlayer() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.currentPlayer
}

// Players returns the seating order of the running deal.
func (r *Round) Players() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.players...)
}

func trickView(t *Trick) TrickView {
	v := TrickView{Owner: t.owner, Value: t.Value()}
	for i := range t.cards {
		v.Turns = append(v.Turns, TurnView{Player: t.players[i], Card: t.cards[i]})
	}
	return v
}
