package doko

// Mode is the explicit state of a round. Exactly one mode is active at a
// time; the scattered boolean flags of older implementations (cards_locked,
// table_mode) are folded into this single tagged value so that conflicting
// combinations cannot be represented.
type Mode int

const (
	// ModeDealing: the round exists but cards have not been dealt yet.
	// Only the dealer's deal action leaves this mode.
	ModeDealing Mode = iota
	// ModePlaying: normal play, current player may put a card on the table.
	ModePlaying
	// ModeTrickFullPendingClaim: four cards lie on the table, the turn
	// indicator is suppressed and the trick winner may claim.
	ModeTrickFullPendingClaim
	// ModeExchangeActive: a two-player card exchange is being negotiated
	// or executed; card plays are locked.
	ModeExchangeActive
	// ModeCardsShown: a player reveals their hand; card movement is locked
	// until the reveal is acknowledged.
	ModeCardsShown
	// ModeRoundFinished: all tricks are claimed, the score summary is due.
	ModeRoundFinished
	// ModeAwaitingNextRound: results are out, the table waits for the next
	// dealer to deal.
	ModeAwaitingNextRound
)

var modeNames = map[Mode]string{
	ModeDealing:               "dealing",
	ModePlaying:               "playing",
	ModeTrickFullPendingClaim: "trick_full_pending_claim",
	ModeExchangeActive:        "exchange_active",
	ModeCardsShown:            "cards_shown",
	ModeRoundFinished:         "round_finished",
	ModeAwaitingNextRound:     "awaiting_next_round",
}

func (m Mode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return "unknown"
}
