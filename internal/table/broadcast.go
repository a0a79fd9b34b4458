package table

import (
	"go.uber.org/zap"

	"github.com/HenriWahl/doko3000/doko"
	"github.com/HenriWahl/doko3000/internal/codec"
)

// broadcastEvent fans a message out to every online participant. Delivery is
// best effort; the send callback drops on a full client queue.
func (s *Session) broadcastEvent(event string, payload any) {
	data, err := codec.Marshal(event, payload)
	if err != nil {
		s.logger.Error("marshaling broadcast failed", zap.String("event", event), zap.Error(err))
		return
	}
	for id, p := range s.participants {
		if p.Online {
			s.send(id, data)
		}
	}
}

// sendTo delivers a message to a single participant.
func (s *Session) sendTo(playerID, event string, payload any) {
	data, err := codec.Marshal(event, payload)
	if err != nil {
		s.logger.Error("marshaling message failed", zap.String("event", event), zap.Error(err))
		return
	}
	s.send(playerID, data)
}

// sendCardsBatch re-delivers the per-player state to everybody at the table,
// all stamped with the same sync count.
func (s *Session) sendCardsBatch() {
	for id := range s.participants {
		s.sendCardsTo(id)
	}
}

// sendCardsTo sends a seated player their hand and the table state, and a
// spectator the spectator projection without any hand. A seated player at a
// table that has not dealt yet still takes the hand path so the deal prompt
// fields reach a reconnecting dealer.
func (s *Session) sendCardsTo(playerID string) {
	snap := s.round.Snapshot()

	if !s.seated(playerID) {
		s.sendTo(playerID, codec.EventSorryNoCardsForYou, codec.SorryNoCardsForYou{
			PlayerID:        playerID,
			CurrentPlayerID: snap.CurrentPlayer,
			SyncCount:       s.syncCount,
			Mode:            snap.Mode.String(),
			Players:         snap.Players,
			CurrentTrick:    trickTurnViews(snap.CurrentTrick),
			Score:           snap.Scores,
		})
		return
	}

	// before the first deal the round knows no players; seating fills in
	players := snap.Players
	dealer := snap.Dealer
	if len(players) == 0 {
		players = append([]string(nil), s.order...)
		if len(s.order) > 0 {
			dealer = s.order[0]
		}
	}

	s.sendTo(playerID, codec.EventYourCardsPlease, codec.YourCardsPlease{
		PlayerID:           playerID,
		Cards:              codec.NewCardViews(snap.Hands[playerID]),
		CurrentPlayerID:    snap.CurrentPlayer,
		SyncCount:          s.syncCount,
		DealStamp:          snap.DealStamp,
		Dealer:             dealer,
		CardsPerPlayer:     snap.CardsPerPlayer,
		NeedsDealing:       snap.NeedsDealing,
		NeedsTrickClaiming: snap.NeedsTrickClaiming,
		ExchangeNeeded:     exchangeNeeded(snap.Exchange, playerID),
		Mode:               snap.Mode.String(),
		Players:            players,
		CurrentTrick:       trickTurnViews(snap.CurrentTrick),
		Score:              snap.Scores,
	})
}

func trickTurnViews(t doko.TrickView) []codec.TrickTurnView {
	views := make([]codec.TrickTurnView, 0, len(t.Turns))
	for _, turn := range t.Turns {
		views = append(views, codec.TrickTurnView{
			PlayerID: turn.Player,
			Card:     codec.NewCardView(turn.Card),
		})
	}
	return views
}

// exchangeNeeded reports whether the player still owes an exchange bundle.
func exchangeNeeded(ex *doko.ExchangeView, playerID string) bool {
	if ex == nil || ex.State != doko.ExchangeInProgress {
		return false
	}
	if playerID == ex.Player1 {
		return !ex.GivenPlayer1
	}
	if playerID == ex.Player2 {
		return !ex.GivenPlayer2
	}
	return false
}

// idlePlayersLocked lists seated players without an online connection.
func (s *Session) idlePlayersLocked() []string {
	var idle []string
	for _, p := range s.order {
		if part := s.participants[p]; part == nil || !part.Online {
			idle = append(idle, p)
		}
	}
	return idle
}

// spectatorsLocked lists online participants watching without a seat.
func (s *Session) spectatorsLocked() []string {
	var specs []string
	for id, p := range s.participants {
		if p.Online && (p.SpectatorOnly || !s.seated(id)) {
			specs = append(specs, id)
		}
	}
	return specs
}
