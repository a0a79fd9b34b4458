package doko

// The turn sequencer: seating order is fixed for the lifetime of a deal,
// play proceeds clockwise, and after a claimed trick the turn jumps to the
// trick winner instead of the next seat. These helpers only compute the next
// turn holder; committing it to the round is the state machine's business.

// seatAfter returns the player seated after the given one in fixed order.
func seatAfter(players []string, playerID string) string {
	for i, p := range players {
		if p == playerID {
			return players[(i+1)%len(players)]
		}
	}
	return ""
}

// seated reports whether the player holds one of the four seats.
func seated(players []string, playerID string) bool {
	for _, p := range players {
		if p == playerID {
			return true
		}
	}
	return false
}

// nextTurnAfterClaim computes who holds the turn once the given trick is
// claimed: the trick winner. Advancing on an incomplete trick is refused.
func nextTurnAfterClaim(t *Trick) (string, error) {
	if !t.Full() {
		return "", ErrTrickIncomplete
	}
	winner := t.Winner()
	if winner == "" {
		return "", InvalidStateError("complete trick without winner")
	}
	return winner, nil
}
