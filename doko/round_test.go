package doko

import (
	"errors"
	"testing"

	"github.com/HenriWahl/doko3000/card"
)

var testSeats = []string{"p1", "p2", "p3", "p4"}

func newDealtRound(t *testing.T, rules Rules) *Round {
	t.Helper()
	r := NewRound(rules, 1)
	if err := r.Deal("p1", testSeats); err != nil {
		t.Fatalf("Deal err: %v", err)
	}
	return r
}

// playTrick plays one card from every hand in turn order and returns the
// computed winner without claiming.
func playTrick(t *testing.T, r *Round) string {
	t.Helper()
	for i := 0; i < TrickSize; i++ {
		p := r.CurrentPlayer()
		hand := r.Hand(p)
		if len(hand) == 0 {
			t.Fatalf("player %s has no cards left", p)
		}
		if _, err := r.PlayCard(p, hand[0].ID, r.DealStamp()); err != nil {
			t.Fatalf("PlayCard %s err: %v", p, err)
		}
	}
	winner, err := nextTurnAfterClaim(r.current)
	if err != nil {
		t.Fatalf("winner of full trick: %v", err)
	}
	return winner
}

func TestDeal_DistributesHandsAndOpensPlay(t *testing.T) {
	r := newDealtRound(t, Rules{WithNines: true})

	snap := r.Snapshot()
	if snap.Mode != ModePlaying {
		t.Fatalf("expected playing after deal, got %v", snap.Mode)
	}
	if snap.CardsPerPlayer != 12 {
		t.Fatalf("expected 12 cards per player with nines, got %d", snap.CardsPerPlayer)
	}
	for _, p := range testSeats {
		if len(snap.Hands[p]) != 12 {
			t.Fatalf("player %s got %d cards", p, len(snap.Hands[p]))
		}
	}
	if snap.CurrentPlayer != "p2" {
		t.Fatalf("expected play to start left of the dealer, got %s", snap.CurrentPlayer)
	}
	if snap.Dealer != "p1" {
		t.Fatalf("expected p1 as dealer, got %s", snap.Dealer)
	}
	if snap.DealStamp == 0 {
		t.Fatal("expected a nonzero deal stamp")
	}
}

func TestDeal_WithoutNines(t *testing.T) {
	r := newDealtRound(t, Rules{WithNines: false})

	snap := r.Snapshot()
	if snap.CardsPerPlayer != 10 {
		t.Fatalf("expected 10 cards per player without nines, got %d", snap.CardsPerPlayer)
	}
	for _, hand := range snap.Hands {
		for _, c := range hand {
			if c.Rank == card.Neun {
				t.Fatalf("found a Neun in a deal without nines: %v", c)
			}
		}
	}
}

func TestDeal_OnlyDealerMayDeal(t *testing.T) {
	r := NewRound(Rules{WithNines: true}, 1)
	if err := r.Deal("p2", testSeats); !errors.Is(err, ErrNotYourTurn) {
		t.Fatalf("expected ErrNotYourTurn for non-dealer, got %v", err)
	}
}

func TestDeal_RejectedMidRound(t *testing.T) {
	r := newDealtRound(t, Rules{WithNines: true})
	if err := r.Deal("p1", testSeats); !errors.Is(err, ErrWrongMode) {
		t.Fatalf("expected ErrWrongMode while playing, got %v", err)
	}
}

func TestPlayCard_OutOfTurnRejected(t *testing.T) {
	r := newDealtRound(t, Rules{WithNines: true})

	hand := r.Hand("p3")
	if _, err := r.PlayCard("p3", hand[0].ID, r.DealStamp()); !errors.Is(err, ErrNotYourTurn) {
		t.Fatalf("expected ErrNotYourTurn, got %v", err)
	}
	// the rejected play must not have touched anything
	if got := len(r.Hand("p3")); got != 12 {
		t.Fatalf("rejected play mutated the hand, %d cards left", got)
	}
	if r.CurrentPlayer() != "p2" {
		t.Fatalf("rejected play moved the turn to %s", r.CurrentPlayer())
	}
}

func TestPlayCard_StaleStampDropped(t *testing.T) {
	r := newDealtRound(t, Rules{WithNines: true})

	hand := r.Hand("p2")
	if _, err := r.PlayCard("p2", hand[0].ID, r.DealStamp()-1); !errors.Is(err, ErrStaleDeal) {
		t.Fatalf("expected ErrStaleDeal, got %v", err)
	}
	if got := len(r.Hand("p2")); got != 12 {
		t.Fatalf("stale play mutated the hand, %d cards left", got)
	}
}

func TestPlayCard_ForeignCardRejected(t *testing.T) {
	r := newDealtRound(t, Rules{WithNines: true})

	foreign := r.Hand("p3")[0]
	if _, err := r.PlayCard("p2", foreign.ID, r.DealStamp()); !errors.Is(err, ErrCardNotInHand) {
		t.Fatalf("expected ErrCardNotInHand, got %v", err)
	}
}

func TestFullTrick_LocksUntilClaim(t *testing.T) {
	r := newDealtRound(t, Rules{WithNines: true})
	winner := playTrick(t, r)

	snap := r.Snapshot()
	if snap.Mode != ModeTrickFullPendingClaim {
		t.Fatalf("expected pending claim after fourth card, got %v", snap.Mode)
	}
	if snap.CurrentPlayer != "" {
		t.Fatalf("expected no turn holder while claim pending, got %s", snap.CurrentPlayer)
	}

	// only the computed winner may claim
	for _, p := range testSeats {
		if p == winner {
			continue
		}
		if _, err := r.ClaimTrick(p); !errors.Is(err, ErrNotYourTurn) {
			t.Fatalf("expected ErrNotYourTurn for claim by %s, got %v", p, err)
		}
	}

	res, err := r.ClaimTrick(winner)
	if err != nil {
		t.Fatalf("ClaimTrick err: %v", err)
	}
	if res.Winner != winner {
		t.Fatalf("claim credited %s, expected %s", res.Winner, winner)
	}
	if r.CurrentPlayer() != winner {
		t.Fatalf("expected winner to lead the next trick, got %s", r.CurrentPlayer())
	}
	if r.Mode() != ModePlaying {
		t.Fatalf("expected playing after claim, got %v", r.Mode())
	}
}

func TestFullRound_ScoresSumToDeckValue(t *testing.T) {
	r := newDealtRound(t, Rules{WithNines: true})

	for trick := 0; trick < 12; trick++ {
		winner := playTrick(t, r)
		if _, err := r.ClaimTrick(winner); err != nil {
			t.Fatalf("trick %d claim err: %v", trick, err)
		}
	}

	snap := r.Snapshot()
	if !snap.Finished {
		t.Fatalf("expected finished round, got mode %v", snap.Mode)
	}
	total := 0
	for _, pts := range snap.Scores {
		total += pts
	}
	if total != card.TotalValue(true) {
		t.Fatalf("scores sum to %d, expected %d", total, card.TotalValue(true))
	}

	if err := r.ArmNextRound(); err != nil {
		t.Fatalf("ArmNextRound err: %v", err)
	}
	// next dealer re-deals with shifted seating
	shifted := []string{"p2", "p3", "p4", "p1"}
	if err := r.Deal("p2", shifted); err != nil {
		t.Fatalf("next deal err: %v", err)
	}
	if r.CurrentPlayer() != "p3" {
		t.Fatalf("expected p3 to open the next round, got %s", r.CurrentPlayer())
	}
}

func TestShowCards_LocksAndToggles(t *testing.T) {
	r := newDealtRound(t, Rules{WithNines: true})

	if err := r.ShowCards("p4"); err != nil {
		t.Fatalf("ShowCards err: %v", err)
	}
	snap := r.Snapshot()
	if snap.Mode != ModeCardsShown || snap.ShowingHand != "p4" {
		t.Fatalf("expected p4 showing, got mode %v showing %s", snap.Mode, snap.ShowingHand)
	}

	// card movement is locked while a hand is shown
	hand := r.Hand("p2")
	if _, err := r.PlayCard("p2", hand[0].ID, r.DealStamp()); !errors.Is(err, ErrWrongMode) {
		t.Fatalf("expected ErrWrongMode while cards shown, got %v", err)
	}

	// only the shower may retract
	if err := r.ShowCards("p2"); !errors.Is(err, ErrWrongMode) {
		t.Fatalf("expected ErrWrongMode for foreign retract, got %v", err)
	}
	if err := r.ShowCards("p4"); err != nil {
		t.Fatalf("retract err: %v", err)
	}
	if r.Mode() != ModePlaying {
		t.Fatalf("expected playing after retract, got %v", r.Mode())
	}
}

func TestShowCards_ClaimAcknowledgesReveal(t *testing.T) {
	r := newDealtRound(t, Rules{WithNines: true})
	winner := playTrick(t, r)

	if err := r.ShowCards("p1"); err != nil {
		t.Fatalf("ShowCards err: %v", err)
	}
	if _, err := r.ClaimTrick(winner); err != nil {
		t.Fatalf("claim with shown cards err: %v", err)
	}
	snap := r.Snapshot()
	if snap.Mode != ModePlaying || snap.ShowingHand != "" {
		t.Fatalf("expected reveal cleared by claim, got mode %v showing %q", snap.Mode, snap.ShowingHand)
	}
}

func TestSortHand_ReordersExactSet(t *testing.T) {
	r := newDealtRound(t, Rules{WithNines: true})

	hand := r.Hand("p2")
	reversed := make([]int, 0, len(hand))
	for i := len(hand) - 1; i >= 0; i-- {
		reversed = append(reversed, hand[i].ID)
	}
	if err := r.SortHand("p2", reversed); err != nil {
		t.Fatalf("SortHand err: %v", err)
	}
	got := r.Hand("p2")
	for i, id := range reversed {
		if got[i].ID != id {
			t.Fatalf("position %d: expected card %d, got %d", i, id, got[i].ID)
		}
	}

	// a different set is rejected
	bogus := append([]int(nil), reversed...)
	bogus[0] = r.Hand("p3")[0].ID
	if err := r.SortHand("p2", bogus); !errors.Is(err, ErrCardNotInHand) {
		t.Fatalf("expected ErrCardNotInHand for foreign set, got %v", err)
	}
}

func TestUndo_ReturnsTableCardsToHands(t *testing.T) {
	r := newDealtRound(t, Rules{WithNines: true, AllowUndo: true})

	first := r.CurrentPlayer()
	for i := 0; i < 2; i++ {
		p := r.CurrentPlayer()
		hand := r.Hand(p)
		if _, err := r.PlayCard(p, hand[0].ID, r.DealStamp()); err != nil {
			t.Fatalf("PlayCard err: %v", err)
		}
	}

	if err := r.UndoLastTrick(); err != nil {
		t.Fatalf("UndoLastTrick err: %v", err)
	}
	snap := r.Snapshot()
	if len(snap.CurrentTrick.Turns) != 0 {
		t.Fatalf("expected empty table after undo, got %d cards", len(snap.CurrentTrick.Turns))
	}
	if snap.CurrentPlayer != first {
		t.Fatalf("expected turn back at %s, got %s", first, snap.CurrentPlayer)
	}
	for _, p := range testSeats {
		if len(snap.Hands[p]) != 12 {
			t.Fatalf("player %s has %d cards after undo", p, len(snap.Hands[p]))
		}
	}
}

func TestUndo_ReopensClaimedTrick(t *testing.T) {
	r := newDealtRound(t, Rules{WithNines: true, AllowUndo: true})

	winner := playTrick(t, r)
	if _, err := r.ClaimTrick(winner); err != nil {
		t.Fatalf("ClaimTrick err: %v", err)
	}

	if err := r.UndoLastTrick(); err != nil {
		t.Fatalf("UndoLastTrick err: %v", err)
	}
	snap := r.Snapshot()
	if snap.Mode != ModeTrickFullPendingClaim {
		t.Fatalf("expected reopened trick pending claim, got %v", snap.Mode)
	}
	if len(snap.ClaimedTricks) != 0 {
		t.Fatalf("expected no claimed tricks left, got %d", len(snap.ClaimedTricks))
	}
	if len(snap.Scores) != 0 {
		t.Fatalf("expected cleared scores, got %v", snap.Scores)
	}
	if _, err := r.ClaimTrick(winner); err != nil {
		t.Fatalf("re-claim err: %v", err)
	}
}

func TestUndo_DisabledByRules(t *testing.T) {
	r := newDealtRound(t, Rules{WithNines: true})
	if err := r.UndoLastTrick(); !errors.Is(err, ErrWrongMode) {
		t.Fatalf("expected ErrWrongMode with undo disabled, got %v", err)
	}
}

func TestUndo_NothingToUndo(t *testing.T) {
	r := newDealtRound(t, Rules{WithNines: true, AllowUndo: true})
	if err := r.UndoLastTrick(); !errors.Is(err, ErrNothingToUndo) {
		t.Fatalf("expected ErrNothingToUndo on a fresh deal, got %v", err)
	}
}

func TestReset_InterruptsRunningRound(t *testing.T) {
	r := newDealtRound(t, Rules{WithNines: true})

	before := r.DealStamp()
	playTrick(t, r)

	if err := r.Reset(testSeats); err != nil {
		t.Fatalf("Reset err: %v", err)
	}
	snap := r.Snapshot()
	if snap.Mode != ModePlaying {
		t.Fatalf("expected fresh deal after reset, got %v", snap.Mode)
	}
	if snap.DealStamp == before {
		t.Fatal("expected a new deal stamp after reset")
	}
	if len(snap.CurrentTrick.Turns) != 0 || len(snap.ClaimedTricks) != 0 {
		t.Fatal("expected an empty table after reset")
	}
}
