package doko

import (
	"errors"
	"testing"
)

func newExchangeRound(t *testing.T) *Round {
	t.Helper()
	return newDealtRound(t, Rules{WithNines: true, AllowExchange: true})
}

func cardIDs(r *Round, playerID string, n int) []int {
	ids := make([]int, 0, n)
	for _, c := range r.Hand(playerID)[:n] {
		ids = append(ids, c.ID)
	}
	return ids
}

func TestExchange_OfferDenyResumesPlay(t *testing.T) {
	r := newExchangeRound(t)

	if err := r.StartExchange("p2", "p4"); err != nil {
		t.Fatalf("StartExchange err: %v", err)
	}
	if r.Mode() != ModeExchangeActive {
		t.Fatalf("expected exchange mode, got %v", r.Mode())
	}

	// the table is locked while the offer stands
	hand := r.Hand("p2")
	if _, err := r.PlayCard("p2", hand[0].ID, r.DealStamp()); !errors.Is(err, ErrWrongMode) {
		t.Fatalf("expected locked table, got %v", err)
	}

	// only the offered player may deny
	if err := r.DenyExchange("p3"); !errors.Is(err, ErrNotYourTurn) {
		t.Fatalf("expected ErrNotYourTurn, got %v", err)
	}
	if err := r.DenyExchange("p4"); err != nil {
		t.Fatalf("DenyExchange err: %v", err)
	}
	if r.Mode() != ModePlaying {
		t.Fatalf("expected play resumed after denial, got %v", r.Mode())
	}
	for _, p := range testSeats {
		if len(r.Hand(p)) != 12 {
			t.Fatalf("denial changed %s's hand to %d cards", p, len(r.Hand(p)))
		}
	}
}

func TestExchange_OnlyBeforeFirstCard(t *testing.T) {
	r := newExchangeRound(t)

	hand := r.Hand("p2")
	if _, err := r.PlayCard("p2", hand[0].ID, r.DealStamp()); err != nil {
		t.Fatalf("PlayCard err: %v", err)
	}
	if err := r.StartExchange("p3", "p4"); !errors.Is(err, ErrWrongMode) {
		t.Fatalf("expected ErrWrongMode after first card, got %v", err)
	}
}

func TestExchange_DisabledByRules(t *testing.T) {
	r := newDealtRound(t, Rules{WithNines: true})
	if err := r.StartExchange("p2", "p4"); !errors.Is(err, ErrWrongMode) {
		t.Fatalf("expected ErrWrongMode with exchange disabled, got %v", err)
	}
}

func TestExchange_CompletedSwapsBundles(t *testing.T) {
	r := newExchangeRound(t)

	if err := r.StartExchange("p1", "p3"); err != nil {
		t.Fatalf("StartExchange err: %v", err)
	}
	if err := r.AcceptExchange("p3"); err != nil {
		t.Fatalf("AcceptExchange err: %v", err)
	}

	give1 := cardIDs(r, "p1", 2)
	done, err := r.TransferExchangeCards("p1", give1, r.DealStamp())
	if err != nil {
		t.Fatalf("first transfer err: %v", err)
	}
	if done {
		t.Fatal("exchange completed after a single bundle")
	}
	if got := len(r.Hand("p1")); got != 10 {
		t.Fatalf("expected 10 cards left after giving 2, got %d", got)
	}

	give3 := cardIDs(r, "p3", 2)
	done, err = r.TransferExchangeCards("p3", give3, r.DealStamp())
	if err != nil {
		t.Fatalf("second transfer err: %v", err)
	}
	if !done {
		t.Fatal("expected exchange completion after both bundles")
	}

	// bundles swapped owners, hand sizes restored
	if got := len(r.Hand("p1")); got != 12 {
		t.Fatalf("p1 holds %d cards after completion", got)
	}
	if got := len(r.Hand("p3")); got != 12 {
		t.Fatalf("p3 holds %d cards after completion", got)
	}
	holds := func(playerID string, id int) bool {
		for _, c := range r.Hand(playerID) {
			if c.ID == id {
				return true
			}
		}
		return false
	}
	for _, id := range give1 {
		if !holds("p3", id) {
			t.Fatalf("p3 missing exchanged card %d", id)
		}
	}
	for _, id := range give3 {
		if !holds("p1", id) {
			t.Fatalf("p1 missing exchanged card %d", id)
		}
	}

	if r.Mode() != ModePlaying {
		t.Fatalf("expected play resumed, got %v", r.Mode())
	}
	if r.CurrentPlayer() != "p2" {
		t.Fatalf("expected turn back at p2, got %s", r.CurrentPlayer())
	}
}

func TestExchange_CountMismatchRejected(t *testing.T) {
	r := newExchangeRound(t)

	if err := r.StartExchange("p1", "p3"); err != nil {
		t.Fatalf("StartExchange err: %v", err)
	}
	if err := r.AcceptExchange("p3"); err != nil {
		t.Fatalf("AcceptExchange err: %v", err)
	}
	if _, err := r.TransferExchangeCards("p1", cardIDs(r, "p1", 3), r.DealStamp()); err != nil {
		t.Fatalf("first transfer err: %v", err)
	}

	// two cards against a negotiated count of three
	if _, err := r.TransferExchangeCards("p3", cardIDs(r, "p3", 2), r.DealStamp()); !errors.Is(err, ErrExchangeCount) {
		t.Fatalf("expected ErrExchangeCount, got %v", err)
	}
	// the rejected bundle stays in the hand
	if got := len(r.Hand("p3")); got != 12 {
		t.Fatalf("rejected transfer mutated the hand, %d cards left", got)
	}

	// matching count succeeds
	done, err := r.TransferExchangeCards("p3", cardIDs(r, "p3", 3), r.DealStamp())
	if err != nil {
		t.Fatalf("matching transfer err: %v", err)
	}
	if !done {
		t.Fatal("expected completion after matching bundle")
	}
}

func TestExchange_BundleSizeBounds(t *testing.T) {
	r := newExchangeRound(t)

	if err := r.StartExchange("p1", "p3"); err != nil {
		t.Fatalf("StartExchange err: %v", err)
	}
	if err := r.AcceptExchange("p3"); err != nil {
		t.Fatalf("AcceptExchange err: %v", err)
	}
	if _, err := r.TransferExchangeCards("p1", cardIDs(r, "p1", 4), r.DealStamp()); !errors.Is(err, ErrExchangeCount) {
		t.Fatalf("expected ErrExchangeCount for oversized bundle, got %v", err)
	}
	if _, err := r.TransferExchangeCards("p1", nil, r.DealStamp()); !errors.Is(err, ErrExchangeCount) {
		t.Fatalf("expected ErrExchangeCount for empty bundle, got %v", err)
	}
}

func TestExchange_CancelReturnsGivenCards(t *testing.T) {
	r := newExchangeRound(t)

	if err := r.StartExchange("p1", "p3"); err != nil {
		t.Fatalf("StartExchange err: %v", err)
	}
	if err := r.AcceptExchange("p3"); err != nil {
		t.Fatalf("AcceptExchange err: %v", err)
	}
	if _, err := r.TransferExchangeCards("p1", cardIDs(r, "p1", 2), r.DealStamp()); err != nil {
		t.Fatalf("transfer err: %v", err)
	}

	if err := r.CancelExchange("p5"); !errors.Is(err, ErrNotYourTurn) {
		t.Fatalf("expected ErrNotYourTurn for outsider cancel, got %v", err)
	}
	if err := r.CancelExchange("p1"); err != nil {
		t.Fatalf("CancelExchange err: %v", err)
	}
	if r.Mode() != ModePlaying {
		t.Fatalf("expected play resumed after cancel, got %v", r.Mode())
	}
	if got := len(r.Hand("p1")); got != 12 {
		t.Fatalf("expected given cards returned, p1 holds %d", got)
	}
}

func TestExchange_ForceFinishReturnsGivenCards(t *testing.T) {
	r := newExchangeRound(t)

	if err := r.StartExchange("p1", "p3"); err != nil {
		t.Fatalf("StartExchange err: %v", err)
	}
	if err := r.AcceptExchange("p3"); err != nil {
		t.Fatalf("AcceptExchange err: %v", err)
	}
	if _, err := r.TransferExchangeCards("p1", cardIDs(r, "p1", 2), r.DealStamp()); err != nil {
		t.Fatalf("transfer err: %v", err)
	}

	if err := r.ForceFinish(); err != nil {
		t.Fatalf("ForceFinish err: %v", err)
	}
	if r.Mode() != ModeRoundFinished {
		t.Fatalf("expected finished round, got %v", r.Mode())
	}
	// the transferred bundle must not vanish with the exchange
	total := 0
	for _, p := range testSeats {
		total += len(r.Hand(p))
	}
	if total != 4*12 {
		t.Fatalf("expected all 48 cards back in hands, got %d", total)
	}
	if got := len(r.Hand("p1")); got != 12 {
		t.Fatalf("expected given cards returned, p1 holds %d", got)
	}
}

func TestExchange_StaleStampDropped(t *testing.T) {
	r := newExchangeRound(t)

	if err := r.StartExchange("p1", "p3"); err != nil {
		t.Fatalf("StartExchange err: %v", err)
	}
	if err := r.AcceptExchange("p3"); err != nil {
		t.Fatalf("AcceptExchange err: %v", err)
	}
	if _, err := r.TransferExchangeCards("p1", cardIDs(r, "p1", 2), r.DealStamp()-1); !errors.Is(err, ErrStaleDeal) {
		t.Fatalf("expected ErrStaleDeal, got %v", err)
	}
}

func TestExchange_SnapshotExposesState(t *testing.T) {
	r := newExchangeRound(t)

	if err := r.StartExchange("p2", "p4"); err != nil {
		t.Fatalf("StartExchange err: %v", err)
	}
	snap := r.Snapshot()
	if snap.Exchange == nil {
		t.Fatal("expected exchange in snapshot")
	}
	if snap.Exchange.Player1 != "p2" || snap.Exchange.Player2 != "p4" {
		t.Fatalf("unexpected exchange parties %s/%s", snap.Exchange.Player1, snap.Exchange.Player2)
	}
	if snap.Exchange.State != ExchangeOffered {
		t.Fatalf("expected offered state, got %v", snap.Exchange.State)
	}
}
