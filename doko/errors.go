package doko

import "errors"

var (
	// ErrNotYourTurn covers any action from a player who is not entitled to
	// it right now: out-of-turn plays, claims from non-winners.
	ErrNotYourTurn = errors.New("not your turn")
	// ErrWrongMode: the action does not exist in the round's current mode.
	ErrWrongMode = errors.New("action not allowed in current round mode")
	// ErrStaleDeal marks a card movement tagged with the timestamp of a
	// superseded deal. Callers drop these silently, they are leftovers of a
	// race with a re-deal, not protocol errors.
	ErrStaleDeal       = errors.New("card movement from superseded deal")
	ErrCardNotInHand   = errors.New("card not in player's hand")
	ErrTrickFull       = errors.New("trick already holds four cards")
	ErrTrickIncomplete = errors.New("trick not complete")
	ErrNotSeated       = errors.New("player not seated in this round")
	ErrNothingToUndo   = errors.New("nothing to undo")
)

var (
	ErrExchangeState = errors.New("exchange not in a state allowing this")
	// ErrExchangeCount: bundle size outside [1,3] or not matching the
	// negotiated count of the other side.
	ErrExchangeCount = errors.New("invalid exchange card count")
)

type InvalidStateError string

func (e InvalidStateError) Error() string { return "invalid state: " + string(e) }
