package doko

import (
	"math/rand"
	"sync"
	"time"

	"github.com/HenriWahl/doko3000/card"
)

// NumPlayers is the fixed number of seats taking part in a round.
const NumPlayers = 4

// Rules are the table options affecting a round.
type Rules struct {
	WithNines     bool
	AllowUndo     bool
	AllowExchange bool
}

// Round is one deal-to-score-out cycle of a table. All state transitions are
// all-or-nothing: every operation validates completely before mutating, so a
// rejected action leaves the round untouched.
type Round struct {
	mu  sync.Mutex
	rng *rand.Rand

	rules   Rules
	players []string // fixed seating order, players[0] is the dealer

	mode           Mode
	modeBeforeShow Mode
	showingHand    string

	// dealStamp tags the current deal; card movements echoing an older
	// stamp belong to a superseded deal and are dropped.
	dealStamp      int64
	cardsPerPlayer int

	hands   map[string][]card.Card
	current *Trick
	claimed []*Trick

	turnCount     int
	currentPlayer string

	exchange *Exchange
}

// NewRound creates an empty round waiting for the dealer to deal.
func NewRound(rules Rules, seed int64) *Round {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Round{
		rng:     rand.New(rand.NewSource(seed)),
		rules:   rules,
		mode:    ModeDealing,
		hands:   make(map[string][]card.Card, NumPlayers),
		current: &Trick{},
	}
}

// Rules returns the options the round was created with.
func (r *Round) Rules() Rules {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rules
}

// SetRules changes table options. Nines toggling takes effect with the next
// deal; the running deal keeps its cards.
func (r *Round) SetRules(rules Rules) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules = rules
}

// Deal shuffles and distributes fresh hands. Only the dealer (first seat of
// the given order) may trigger it, and only while the round waits for a
// deal. The four hands get tagged with a new deal timestamp that supersedes
// every card of the previous deal.
func (r *Round) Deal(actorID string, players []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.mode != ModeDealing && r.mode != ModeAwaitingNextRound && r.mode != ModeRoundFinished {
		return ErrWrongMode
	}
	if len(players) != NumPlayers {
		return InvalidStateError("a round needs exactly four players")
	}
	if actorID != players[0] {
		return ErrNotYourTurn
	}
	r.dealLocked(players)
	return nil
}

// Reset re-deals to the given seating from any mode. It backs the unanimous
// round-reset poll, which may interrupt a running round.
func (r *Round) Reset(players []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(players) != NumPlayers {
		return InvalidStateError("a round needs exactly four players")
	}
	r.dealLocked(players)
	return nil
}

func (r *Round) dealLocked(players []string) {
	deck := card.Deck(r.rules.WithNines)
	r.rng.Shuffle(len(deck), func(i, j int) { deck[i], deck[j] = deck[j], deck[i] })

	r.players = append([]string(nil), players...)
	r.cardsPerPlayer = len(deck) / NumPlayers
	r.hands = make(map[string][]card.Card, NumPlayers)
	for i, p := range r.players {
		hand := make([]card.Card, r.cardsPerPlayer)
		copy(hand, deck[i*r.cardsPerPlayer:(i+1)*r.cardsPerPlayer])
		r.hands[p] = hand
	}

	r.dealStamp = time.Now().UnixMilli()
	r.current = &Trick{}
	r.claimed = nil
	r.turnCount = 0
	// play starts left of the dealer
	r.currentPlayer = r.players[1]
	r.mode = ModePlaying
	r.showingHand = ""
	r.exchange = nil
}

// PlayResult describes an accepted card play.
type PlayResult struct {
	Card          card.Card
	IsLastTurn    bool
	CurrentPlayer string
	Mode          Mode
}

// PlayCard moves a card from the acting player's hand onto the trick. It
// checks deal staleness, mode, turn, trick capacity and hand ownership, in
// that order. Stale plays return ErrStaleDeal so callers can drop them
// without treating them as violations.
func (r *Round) PlayCard(playerID string, cardID int, dealStamp int64) (PlayResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if dealStamp != r.dealStamp {
		return PlayResult{}, ErrStaleDeal
	}
	if r.mode != ModePlaying {
		return PlayResult{}, ErrWrongMode
	}
	if playerID != r.currentPlayer {
		return PlayResult{}, ErrNotYourTurn
	}
	if r.current.Full() {
		return PlayResult{}, ErrTrickFull
	}
	idx := -1
	for i, c := range r.hands[playerID] {
		if c.ID == cardID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return PlayResult{}, ErrCardNotInHand
	}

	played := r.hands[playerID][idx]
	r.hands[playerID] = append(r.hands[playerID][:idx], r.hands[playerID][idx+1:]...)
	r.current.addTurn(playerID, played)
	r.turnCount++

	if r.current.Full() {
		// turn indicator is suppressed until the winner claims
		r.mode = ModeTrickFullPendingClaim
		r.currentPlayer = ""
	} else {
		r.currentPlayer = seatAfter(r.players, playerID)
	}

	return PlayResult{
		Card:          played,
		IsLastTurn:    r.current.Full(),
		CurrentPlayer: r.currentPlayer,
		Mode:          r.mode,
	}, nil
}

// ClaimResult describes an accepted trick claim.
type ClaimResult struct {
	Winner        string
	TrickValue    int
	Scores        map[string]int
	Finished      bool
	CurrentPlayer string
}

// ClaimTrick lets the trick winner take the completed trick. The claim also
// acknowledges a pending cards-shown reveal. Claims by anyone but the
// computed winner are rejected. When the claimed trick was the last one the
// round finishes.
func (r *Round) ClaimTrick(playerID string) (ClaimResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	mode := r.mode
	if mode == ModeCardsShown {
		mode = r.modeBeforeShow
	}
	if mode != ModeTrickFullPendingClaim {
		return ClaimResult{}, ErrWrongMode
	}
	winner, err := nextTurnAfterClaim(r.current)
	if err != nil {
		return ClaimResult{}, err
	}
	if playerID != winner {
		return ClaimResult{}, ErrNotYourTurn
	}

	r.current.owner = winner
	value := r.current.Value()
	r.claimed = append(r.claimed, r.current)
	r.current = &Trick{}
	r.currentPlayer = winner
	r.showingHand = ""

	if r.handsEmptyLocked() {
		r.mode = ModeRoundFinished
		r.currentPlayer = ""
	} else {
		r.mode = ModePlaying
	}

	return ClaimResult{
		Winner:        winner,
		TrickValue:    value,
		Scores:        r.scoresLocked(),
		Finished:      r.mode == ModeRoundFinished,
		CurrentPlayer: r.currentPlayer,
	}, nil
}

// ShowCards reveals the player's hand to the table and locks card movement
// until a claim (or the next deal) acknowledges the reveal. Sending it again
// retracts the reveal and restores the previous mode.
func (r *Round) ShowCards(playerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !seated(r.players, playerID) {
		return ErrNotSeated
	}
	if r.mode == ModeCardsShown {
		if r.showingHand != playerID {
			return ErrWrongMode
		}
		r.mode = r.modeBeforeShow
		r.showingHand = ""
		return nil
	}
	if r.mode != ModePlaying && r.mode != ModeTrickFullPendingClaim {
		return ErrWrongMode
	}
	r.modeBeforeShow = r.mode
	r.mode = ModeCardsShown
	r.showingHand = playerID
	return nil
}

// SortHand stores the player's preferred hand order. The submitted ids must
// be exactly the server-side hand, otherwise the caller should re-deliver
// the authoritative cards.
func (r *Round) SortHand(playerID string, cardIDs []int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	hand, ok := r.hands[playerID]
	if !ok {
		return ErrNotSeated
	}
	if len(cardIDs) != len(hand) {
		return ErrCardNotInHand
	}
	byID := make(map[int]card.Card, len(hand))
	for _, c := range hand {
		byID[c.ID] = c
	}
	sorted := make([]card.Card, 0, len(hand))
	for _, id := range cardIDs {
		c, ok := byID[id]
		if !ok {
			return ErrCardNotInHand
		}
		delete(byID, id)
		sorted = append(sorted, c)
	}
	r.hands[playerID] = sorted
	return nil
}

// UndoLastTrick reverts the table by one trick: cards on the table go back
// to their hands, or, with an empty table, the previously claimed trick is
// reopened for claiming. Backs the unanimous undo poll.
func (r *Round) UndoLastTrick() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.rules.AllowUndo {
		return ErrWrongMode
	}
	if r.current.Len() > 0 {
		for i, p := range r.current.players {
			r.hands[p] = append(r.hands[p], r.current.cards[i])
		}
		r.turnCount -= r.current.Len()
		r.currentPlayer = r.current.players[0]
		r.current = &Trick{}
		r.mode = ModePlaying
		r.showingHand = ""
		return nil
	}
	if len(r.claimed) == 0 {
		return ErrNothingToUndo
	}
	last := r.claimed[len(r.claimed)-1]
	r.claimed = r.claimed[:len(r.claimed)-1]
	last.owner = ""
	r.current = last
	r.currentPlayer = ""
	r.mode = ModeTrickFullPendingClaim
	r.showingHand = ""
	return nil
}

// StartExchange opens an exchange offer from player1 to player2. Exchanges
// are only possible on a freshly dealt table, before any card was played.
// The round mode locks until the offer is answered or withdrawn.
func (r *Round) StartExchange(player1, player2 string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.rules.AllowExchange {
		return ErrWrongMode
	}
	if r.mode != ModePlaying || r.turnCount != 0 {
		return ErrWrongMode
	}
	if r.exchange != nil {
		return ErrExchangeState
	}
	if !seated(r.players, player1) || !seated(r.players, player2) {
		return ErrNotSeated
	}
	if player1 == player2 {
		return InvalidStateError("cannot exchange with yourself")
	}
	r.exchange = newExchange(player1, player2)
	r.mode = ModeExchangeActive
	return nil
}

// AcceptExchange is player2 agreeing to the offered exchange.
func (r *Round) AcceptExchange(playerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.mode != ModeExchangeActive || r.exchange == nil {
		return ErrExchangeState
	}
	if playerID != r.exchange.Player2 {
		return ErrNotYourTurn
	}
	return r.exchange.accept()
}

// DenyExchange is player2 declining the offer. The exchange is discarded and
// play resumes where it stood, no hand was touched.
func (r *Round) DenyExchange(playerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.mode != ModeExchangeActive || r.exchange == nil {
		return ErrExchangeState
	}
	if playerID != r.exchange.Player2 {
		return ErrNotYourTurn
	}
	if r.exchange.State() != ExchangeOffered {
		return ErrExchangeState
	}
	r.exchange = nil
	r.mode = ModePlaying
	return nil
}

// CancelExchange aborts the exchange on behalf of either party. Cards
// already put into the exchange return to their hands.
func (r *Round) CancelExchange(playerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.mode != ModeExchangeActive || r.exchange == nil {
		return ErrExchangeState
	}
	if !r.exchange.Involves(playerID) {
		return ErrNotYourTurn
	}
	for _, p := range []string{r.exchange.Player1, r.exchange.Player2} {
		r.hands[p] = append(r.hands[p], r.exchange.Given(p)...)
	}
	r.exchange = nil
	r.mode = ModePlaying
	return nil
}

// TransferExchangeCards moves a bundle of the acting player's cards into the
// exchange. The first bundle fixes the exchanged count, the second must
// match it. Once both sides delivered, the bundles swap owners, the exchange
// closes and play resumes left of the dealer.
func (r *Round) TransferExchangeCards(playerID string, cardIDs []int, dealStamp int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if dealStamp != r.dealStamp {
		return false, ErrStaleDeal
	}
	if r.mode != ModeExchangeActive || r.exchange == nil {
		return false, ErrExchangeState
	}

	hand := r.hands[playerID]
	bundle := make([]card.Card, 0, len(cardIDs))
	indexes := make([]int, 0, len(cardIDs))
	for _, id := range cardIDs {
		found := false
		for i, c := range hand {
			if c.ID != id {
				continue
			}
			already := false
			for _, j := range indexes {
				if j == i {
					already = true
					break
				}
			}
			if already {
				continue
			}
			bundle = append(bundle, c)
			indexes = append(indexes, i)
			found = true
			break
		}
		if !found {
			return false, ErrCardNotInHand
		}
	}

	done, err := r.exchange.give(playerID, bundle)
	if err != nil {
		return false, err
	}

	kept := make([]card.Card, 0, len(hand)-len(bundle))
	for i, c := range hand {
		drop := false
		for _, j := range indexes {
			if i == j {
				drop = true
				break
			}
		}
		if !drop {
			kept = append(kept, c)
		}
	}
	r.hands[playerID] = kept

	if done {
		r.hands[r.exchange.Player1] = append(r.hands[r.exchange.Player1], r.exchange.Given(r.exchange.Player2)...)
		r.hands[r.exchange.Player2] = append(r.hands[r.exchange.Player2], r.exchange.Given(r.exchange.Player1)...)
		r.exchange = nil
		r.mode = ModePlaying
		r.currentPlayer = r.players[1]
	}
	return done, nil
}

// ForceFinish ends the round early with the scores as they stand. Backs the
// unanimous round-finish poll. An exchange caught mid-transfer hands its
// bundles back first so no card points go missing.
func (r *Round) ForceFinish() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch r.mode {
	case ModeDealing, ModeRoundFinished, ModeAwaitingNextRound:
		return ErrWrongMode
	}
	if r.exchange != nil {
		for _, p := range []string{r.exchange.Player1, r.exchange.Player2} {
			r.hands[p] = append(r.hands[p], r.exchange.Given(p)...)
		}
		r.exchange = nil
	}
	r.mode = ModeRoundFinished
	r.currentPlayer = ""
	r.showingHand = ""
	return nil
}

// ArmNextRound parks a finished round until the next dealer deals.
func (r *Round) ArmNextRound() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.mode != ModeRoundFinished {
		return ErrWrongMode
	}
	r.mode = ModeAwaitingNextRound
	return nil
}

func (r *Round) handsEmptyLocked() bool {
	for _, hand := range r.hands {
		if len(hand) > 0 {
			return false
		}
	}
	return true
}

func (r *Round) scoresLocked() map[string]int {
	scores := make(map[string]int, NumPlayers)
	for _, t := range r.claimed {
		if t.owner != "" {
			scores[t.owner] += t.Value()
		}
	}
	return scores
}

// Scores returns the claimed points per player.
func (r *Round) Scores() map[string]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.scoresLocked()
}
