package table

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/HenriWahl/doko3000/card"
	"github.com/HenriWahl/doko3000/doko"
	"github.com/HenriWahl/doko3000/internal/codec"
)

var ErrNotAllowed = errors.New("action not allowed for this player")

func (s *Session) handleConnect(playerID string, spectatorOnly bool) error {
	now := time.Now()
	p := s.participants[playerID]
	if p == nil {
		p = &Participant{PlayerID: playerID, SpectatorOnly: spectatorOnly}
		s.participants[playerID] = p
	}
	p.Online = true
	p.LastSeen = now
	p.SpectatorOnly = spectatorOnly

	// an unlocked table seats arriving players until it is full
	if !spectatorOnly && !s.locked && !s.seated(playerID) && len(s.order) < doko.NumPlayers {
		s.order = append(s.order, playerID)
		s.persistLocked()
		s.logger.Info("player seated", zap.String("player", playerID), zap.Int("seats", len(s.order)))
	}

	s.updateEmptySinceLocked()
	return nil
}

func (s *Session) handleDisconnect(playerID string) error {
	p := s.participants[playerID]
	if p == nil {
		return nil
	}
	p.Online = false
	p.LastSeen = time.Now()
	s.updateEmptySinceLocked()
	s.logger.Info("participant disconnected", zap.String("player", playerID))
	return nil
}

// handleWhoAmI answers the identity query every client opens with. The reply
// seeds the client's sync tracker and tells a reconnecting client whether a
// results summary or a fresh deal is owed.
func (s *Session) handleWhoAmI(playerID string) error {
	snap := s.round.Snapshot()
	s.sendTo(playerID, codec.EventYouAreWhatYouIs, codec.YouAreWhatYouIs{
		PlayerID:        playerID,
		TableID:         s.ID,
		CurrentPlayerID: snap.CurrentPlayer,
		SyncCount:       s.syncCount,
		RoundFinished:   snap.Finished,
		RoundReset:      snap.NeedsDealing,
	})
	return nil
}

func (s *Session) handleDealCards(playerID string) error {
	if len(s.order) != doko.NumPlayers {
		return doko.InvalidStateError("table not fully seated")
	}
	if err := s.round.Deal(playerID, s.order); err != nil {
		return err
	}
	s.ready = make(map[string]map[string]bool)
	s.nextSync()
	s.logger.Info("cards dealt", zap.String("dealer", playerID), zap.Uint64("sync", s.syncCount))

	s.broadcastEvent(codec.EventGrabYourCards, codec.GrabYourCards{TableID: s.ID})
	s.sendCardsBatch()
	return nil
}

// handleDealCardsAgain asks the dealer to confirm a re-deal; the actual
// re-deal arrives as a fresh deal-cards after confirmation.
func (s *Session) handleDealCardsAgain(playerID string) error {
	if len(s.order) == 0 || s.order[0] != playerID {
		return doko.ErrNotYourTurn
	}
	s.sendTo(playerID, codec.EventConfirmDealAgain, nil)
	return nil
}

func (s *Session) handlePlayedCard(playerID string, cardID int, dealStamp int64) error {
	res, err := s.round.PlayCard(playerID, cardID, dealStamp)
	if err != nil {
		return err
	}
	sync := s.nextSync()

	snap := s.round.Snapshot()
	s.broadcastEvent(codec.EventCardPlayedByPlayer, codec.CardPlayedByPlayer{
		PlayerID:           playerID,
		Card:               codec.NewCardView(res.Card),
		CurrentPlayerID:    res.CurrentPlayer,
		SyncCount:          sync,
		IsLastTurn:         res.IsLastTurn,
		PlayerShowingCards: snap.ShowingHand,
		IdlePlayers:        s.idlePlayersLocked(),
		PlayersSpectator:   s.spectatorsLocked(),
	})
	return nil
}

// handleSortedCards persists a player's hand order. A submitted set that
// does not match the server-side hand means the client works on stale
// cards, so it gets the authoritative hand re-delivered instead.
func (s *Session) handleSortedCards(playerID string, cardIDs []int) error {
	if err := s.round.SortHand(playerID, cardIDs); err != nil {
		s.sendCardsTo(playerID)
		return err
	}
	return nil
}

func (s *Session) handleClaimTrick(playerID string) error {
	res, err := s.round.ClaimTrick(playerID)
	if err != nil {
		return err
	}
	sync := s.nextSync()
	s.logger.Info("trick claimed",
		zap.String("winner", res.Winner),
		zap.Int("value", res.TrickValue),
		zap.Bool("finished", res.Finished))

	if res.Finished {
		s.broadcastEvent(codec.EventRoundFinished, codec.RoundFinished{
			SyncCount: sync,
			Score:     res.Scores,
		})
		return nil
	}
	s.broadcastEvent(codec.EventNextTrick, codec.NextTrick{
		CurrentPlayerID: res.CurrentPlayer,
		SyncCount:       sync,
		Score:           res.Scores,
	})
	return nil
}

// --- ready polls ---

var pollRequestedEvents = map[string]string{
	pollRoundReset:  codec.EventRoundResetRequested,
	pollRoundFinish: codec.EventRoundFinishRequested,
	pollUndo:        codec.EventUndoRequested,
}

func (s *Session) handlePollRequest(poll, playerID string) error {
	if !s.seated(playerID) {
		return doko.ErrNotSeated
	}
	s.broadcastEvent(pollRequestedEvents[poll], codec.PollRequested{PlayerID: playerID})
	// the requester counts as ready
	return s.handleReady(poll, playerID)
}

func (s *Session) handleReady(poll, playerID string) error {
	if !s.seated(playerID) {
		return doko.ErrNotSeated
	}
	set := s.ready[poll]
	if set == nil {
		set = make(map[string]bool, doko.NumPlayers)
		s.ready[poll] = set
	}
	set[playerID] = true

	readyPlayers := make([]string, 0, len(set))
	for _, p := range s.order {
		if set[p] {
			readyPlayers = append(readyPlayers, p)
		}
	}
	s.broadcastEvent(codec.EventReadyPlayerAdded, codec.ReadyPlayerAdded{
		PlayerReadyID: playerID,
		ReadyPlayers:  readyPlayers,
	})

	for _, p := range s.order {
		if !set[p] {
			return nil
		}
	}
	delete(s.ready, poll)
	return s.completePoll(poll)
}

// completePoll runs the unanimously agreed action.
func (s *Session) completePoll(poll string) error {
	switch poll {
	case pollNextRound:
		if err := s.round.ArmNextRound(); err != nil {
			return err
		}
		// the deal rotates: last round's second seat deals next
		s.order = append(s.order[1:], s.order[0])
		s.persistLocked()
		sync := s.nextSync()
		s.broadcastEvent(codec.EventStartNextRound, codec.StartNextRound{
			Dealer:    s.order[0],
			SyncCount: sync,
		})
		return nil

	case pollRoundReset:
		if err := s.round.Reset(s.order); err != nil {
			return err
		}
		// consents gathered for other polls refer to the superseded deal
		s.ready = make(map[string]map[string]bool)
		s.nextSync()
		s.broadcastEvent(codec.EventGrabYourCards, codec.GrabYourCards{TableID: s.ID})
		s.sendCardsBatch()
		return nil

	case pollRoundFinish:
		if err := s.round.ForceFinish(); err != nil {
			return err
		}
		sync := s.nextSync()
		s.broadcastEvent(codec.EventRoundFinished, codec.RoundFinished{
			SyncCount: sync,
			Score:     s.round.Scores(),
		})
		return nil

	case pollUndo:
		if err := s.round.UndoLastTrick(); err != nil {
			return err
		}
		s.ready = make(map[string]map[string]bool)
		s.nextSync()
		s.broadcastEvent(codec.EventGrabYourCards, codec.GrabYourCards{TableID: s.ID})
		s.sendCardsBatch()
		return nil
	}
	return fmt.Errorf("unknown poll %q", poll)
}

// --- show hand ---

func (s *Session) handleRequestShowHand(playerID string) error {
	if !s.seated(playerID) {
		return doko.ErrNotSeated
	}
	s.sendTo(playerID, codec.EventConfirmShowHand, nil)
	return nil
}

func (s *Session) handleShowCards(playerID string) error {
	if err := s.round.ShowCards(playerID); err != nil {
		return err
	}
	sync := s.nextSync()
	s.broadcastEvent(codec.EventCardsShownByPlayer, codec.CardsShownByPlayer{
		PlayerID:  playerID,
		Cards:     codec.NewCardViews(s.round.Hand(playerID)),
		SyncCount: sync,
	})
	return nil
}

// --- exchange sub-protocol ---

// handleRequestExchange asks player1 to confirm before the offer goes out.
func (s *Session) handleRequestExchange(playerID string) error {
	if !s.seated(playerID) {
		return doko.ErrNotSeated
	}
	s.sendTo(playerID, codec.EventConfirmExchange, nil)
	return nil
}

func (s *Session) handleExchangeStart(playerID, player2ID string) error {
	if err := s.round.StartExchange(playerID, player2ID); err != nil {
		return err
	}
	sync := s.nextSync()
	s.logger.Info("exchange offered",
		zap.String("player1", playerID),
		zap.String("player2", player2ID))

	s.broadcastEvent(codec.EventPlayer1RequestedExch, codec.Player1RequestedExchange{
		Player1ID: playerID,
		Player2ID: player2ID,
		SyncCount: sync,
	})
	s.sendTo(player2ID, codec.EventExchangeAskPlayer2, codec.ExchangeAskPlayer2{
		Player1ID: playerID,
	})
	return nil
}

func (s *Session) handleExchangeAccept(playerID string) error {
	snap := s.round.Snapshot()
	if err := s.round.AcceptExchange(playerID); err != nil {
		return err
	}
	sync := s.nextSync()

	starting := codec.ExchangePlayersStarting{SyncCount: sync}
	if snap.Exchange != nil {
		starting.Player1ID = snap.Exchange.Player1
		starting.Player2ID = snap.Exchange.Player2
	}
	s.broadcastEvent(codec.EventExchangePlayersStarting, starting)
	if snap.Exchange != nil {
		s.sendTo(snap.Exchange.Player1, codec.EventExchangePlayer1Start, nil)
	}
	return nil
}

func (s *Session) handleExchangeDeny(playerID string) error {
	snap := s.round.Snapshot()
	if err := s.round.DenyExchange(playerID); err != nil {
		return err
	}
	sync := s.nextSync()

	s.broadcastEvent(codec.EventPlayer2DeniedExchange, codec.Player2DeniedExchange{SyncCount: sync})
	if snap.Exchange != nil {
		s.sendTo(snap.Exchange.Player1, codec.EventExchangePlayer1Deny, nil)
	}
	return nil
}

func (s *Session) handleExchangeCancel(playerID string) error {
	if err := s.round.CancelExchange(playerID); err != nil {
		return err
	}
	sync := s.nextSync()

	s.broadcastEvent(codec.EventExchangePlayersFinished, codec.ExchangePlayersFinished{
		CurrentPlayerID: s.round.CurrentPlayer(),
		SyncCount:       sync,
	})
	s.sendCardsBatch()
	return nil
}

func (s *Session) handleExchangeCards(playerID string, cardIDs []int, dealStamp int64) error {
	before := s.round.Snapshot()
	if before.Exchange == nil {
		return doko.ErrExchangeState
	}
	peer := before.Exchange.Player1
	if playerID == peer {
		peer = before.Exchange.Player2
	}

	done, err := s.round.TransferExchangeCards(playerID, cardIDs, dealStamp)
	if err != nil {
		return err
	}
	// a lone bundle is a targeted delivery between the two players; the
	// counter moves only with the completion broadcast
	if done {
		s.nextSync()
	}

	bundle := make([]codec.CardView, 0, len(cardIDs))
	for _, id := range cardIDs {
		if c, ok := card.ByID(id); ok {
			bundle = append(bundle, codec.NewCardView(c))
		}
	}
	s.sendTo(peer, codec.EventExchangeCardsToClient, codec.ExchangeCardsToClient{
		TableMode:          s.round.Mode().String(),
		CardsExchangeCount: len(bundle),
		Cards:              bundle,
		SyncCount:          s.syncCount,
	})

	if done {
		s.logger.Info("exchange completed",
			zap.String("player1", before.Exchange.Player1),
			zap.String("player2", before.Exchange.Player2))
		s.sendCardsTo(before.Exchange.Player1)
		s.sendCardsTo(before.Exchange.Player2)
		s.broadcastEvent(codec.EventExchangePlayersFinished, codec.ExchangePlayersFinished{
			CurrentPlayerID: s.round.CurrentPlayer(),
			SyncCount:       s.syncCount,
		})
	}
	return nil
}

// --- setup ---

func (s *Session) handleSetupTableChange(e Event) error {
	actor, err := s.store.GetPlayer(e.PlayerID)
	if err != nil || !actor.IsAdmin {
		return ErrNotAllowed
	}

	switch e.Action {
	case "remove_player":
		kept := s.order[:0]
		for _, p := range s.order {
			if p != e.TargetID {
				kept = append(kept, p)
			}
		}
		s.order = kept
	case "lock_table":
		s.locked = true
	case "unlock_table":
		s.locked = false
	case "play_with_9":
		s.rules.WithNines = true
	case "play_without_9":
		s.rules.WithNines = false
	case "allow_undo":
		s.rules.AllowUndo = true
	case "prohibit_undo":
		s.rules.AllowUndo = false
	case "allow_exchange":
		s.rules.AllowExchange = true
	case "prohibit_exchange":
		s.rules.AllowExchange = false
	case "changed_order":
		if s.locked {
			return ErrNotAllowed
		}
		if !samePlayers(s.order, e.Order) {
			return doko.InvalidStateError("new order must keep the same players")
		}
		s.order = append([]string(nil), e.Order...)
	case "start_table":
		if len(s.order) != doko.NumPlayers {
			return doko.InvalidStateError("table not fully seated")
		}
		if err := s.round.Reset(s.order); err != nil {
			return err
		}
		s.ready = make(map[string]map[string]bool)
		s.persistLocked()
		s.nextSync()
		s.broadcastEvent(codec.EventGrabYourCards, codec.GrabYourCards{TableID: s.ID})
		s.sendCardsBatch()
		return nil
	default:
		return fmt.Errorf("unknown table setup action %q", e.Action)
	}

	s.round.SetRules(s.rules)
	s.persistLocked()
	s.logger.Info("table setup changed", zap.String("action", e.Action), zap.String("by", e.PlayerID))
	return nil
}

// samePlayers reports whether b is a permutation of a.
func samePlayers(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[string]int, len(a))
	for _, p := range a {
		seen[p]++
	}
	for _, p := range b {
		seen[p]--
		if seen[p] < 0 {
			return false
		}
	}
	return true
}

func (s *Session) handleSetupPlayerChange(e Event) error {
	actor, err := s.store.GetPlayer(e.PlayerID)
	if err != nil {
		return ErrNotAllowed
	}
	target := e.TargetID
	if target == "" {
		target = e.PlayerID
	}

	if e.Action == "new_password" {
		if target != e.PlayerID && !actor.IsAdmin {
			return ErrNotAllowed
		}
		return s.store.SetPassword(target, e.Password)
	}

	if !actor.IsAdmin {
		return ErrNotAllowed
	}
	p, err := s.store.GetPlayer(target)
	if err != nil {
		return err
	}
	switch e.Action {
	case "is_admin":
		p.IsAdmin = true
	case "no_admin":
		p.IsAdmin = false
	case "allows_spectators":
		p.AllowsSpectators = true
	case "denies_spectators":
		p.AllowsSpectators = false
	case "is_spectator_only":
		p.IsSpectatorOnly = true
	case "no_spectator_only":
		p.IsSpectatorOnly = false
	default:
		return fmt.Errorf("unknown player setup action %q", e.Action)
	}
	return s.store.UpdatePlayerFlags(p)
}
