package table

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/HenriWahl/doko3000/doko"
	"github.com/HenriWahl/doko3000/internal/store"
)

// Config carries the rule flags a fresh session starts with.
type Config struct {
	WithNines     bool
	AllowUndo     bool
	AllowExchange bool
}

// Participant is one connected handle at the table, player or spectator.
type Participant struct {
	PlayerID      string
	SpectatorOnly bool
	Online        bool
	LastSeen      time.Time
}

// EventType selects the action an Event carries.
type EventType int

const (
	EventConnect EventType = iota
	EventDisconnect
	EventWhoAmI
	EventMyCardsPlease
	EventDealCards
	EventDealCardsAgain
	EventPlayedCard
	EventSortedCards
	EventClaimTrick
	EventReadyForNextRound
	EventRequestRoundReset
	EventReadyForRoundReset
	EventRequestRoundFinish
	EventReadyForRoundFinish
	EventRequestUndo
	EventReadyForUndo
	EventRequestShowHand
	EventShowCards
	EventRequestExchange
	EventExchangeStart
	EventExchangePlayer2Ready
	EventExchangePlayer2Deny
	EventExchangeCancel
	EventExchangeCards
	EventSetupTableChange
	EventSetupPlayerChange
	EventClose
)

// Event is one message to the session actor. All state-changing actions for
// a table flow through its single events channel and are processed one at a
// time, in arrival order.
type Event struct {
	Type     EventType
	PlayerID string

	CardID    int
	DealStamp int64
	CardIDs   []int
	Player2ID string

	Action   string
	TargetID string
	Password string
	Order    []string

	SpectatorOnly bool

	Response chan error
}

var ErrSessionClosed = errors.New("table session closed")

// poll names for the unanimous-consent actions
const (
	pollNextRound   = "next-round"
	pollRoundReset  = "round-reset"
	pollRoundFinish = "round-finish"
	pollUndo        = "undo"
)

// Session is the actor owning one table: its round, its sync counter and
// the connected participant handles. Broadcast fan-out goes through the
// send callback and must never block.
type Session struct {
	ID string

	mu           sync.RWMutex
	logger       *zap.Logger
	store        store.Service
	round        *doko.Round
	order        []string // seating order, order[0] deals
	locked       bool
	rules        doko.Rules
	syncCount    uint64
	participants map[string]*Participant
	ready        map[string]map[string]bool
	emptySince   time.Time
	closed       bool
	stopOnce     sync.Once

	events chan Event
	done   chan struct{}

	send func(playerID string, data []byte)
}

// New creates a session and starts its actor goroutine. Seating order and
// rule flags come from the persisted table record when one exists.
func New(id string, cfg Config, st store.Service, sendFn func(playerID string, data []byte), logger *zap.Logger) *Session {
	rules := doko.Rules{
		WithNines:     cfg.WithNines,
		AllowUndo:     cfg.AllowUndo,
		AllowExchange: cfg.AllowExchange,
	}
	s := &Session{
		ID:           id,
		logger:       logger.With(zap.String("table", id)),
		store:        st,
		rules:        rules,
		participants: make(map[string]*Participant),
		ready:        make(map[string]map[string]bool),
		emptySince:   time.Now(),
		events:       make(chan Event, 256),
		done:         make(chan struct{}),
		send:         sendFn,
	}

	if rec, err := st.LoadTable(id); err == nil {
		s.order = append([]string(nil), rec.Order...)
		s.locked = rec.Locked
		s.rules = doko.Rules{
			WithNines:     rec.WithNines,
			AllowUndo:     rec.AllowUndo,
			AllowExchange: rec.AllowExchange,
		}
	} else if !errors.Is(err, store.ErrNotFound) {
		s.logger.Warn("loading table record failed", zap.Error(err))
	}
	s.round = doko.NewRound(s.rules, 0)

	go s.run()
	s.logger.Info("table session created")
	return s
}

func (s *Session) run() {
	for {
		select {
		case event := <-s.events:
			err := s.handleEvent(event)
			if event.Response != nil {
				event.Response <- err
			}
		case <-s.done:
			s.logger.Info("table session actor stopped")
			return
		}
	}
}

func (s *Session) handleEvent(e Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed && e.Type != EventClose {
		return ErrSessionClosed
	}

	switch e.Type {
	case EventConnect:
		return s.handleConnect(e.PlayerID, e.SpectatorOnly)
	case EventDisconnect:
		return s.handleDisconnect(e.PlayerID)
	case EventWhoAmI:
		return s.handleWhoAmI(e.PlayerID)
	case EventMyCardsPlease:
		s.sendCardsTo(e.PlayerID)
		return nil
	case EventDealCards:
		return s.handleDealCards(e.PlayerID)
	case EventDealCardsAgain:
		return s.handleDealCardsAgain(e.PlayerID)
	case EventPlayedCard:
		return s.handlePlayedCard(e.PlayerID, e.CardID, e.DealStamp)
	case EventSortedCards:
		return s.handleSortedCards(e.PlayerID, e.CardIDs)
	case EventClaimTrick:
		return s.handleClaimTrick(e.PlayerID)
	case EventReadyForNextRound:
		return s.handleReady(pollNextRound, e.PlayerID)
	case EventRequestRoundReset:
		return s.handlePollRequest(pollRoundReset, e.PlayerID)
	case EventReadyForRoundReset:
		return s.handleReady(pollRoundReset, e.PlayerID)
	case EventRequestRoundFinish:
		return s.handlePollRequest(pollRoundFinish, e.PlayerID)
	case EventReadyForRoundFinish:
		return s.handleReady(pollRoundFinish, e.PlayerID)
	case EventRequestUndo:
		return s.handlePollRequest(pollUndo, e.PlayerID)
	case EventReadyForUndo:
		return s.handleReady(pollUndo, e.PlayerID)
	case EventRequestShowHand:
		return s.handleRequestShowHand(e.PlayerID)
	case EventShowCards:
		return s.handleShowCards(e.PlayerID)
	case EventRequestExchange:
		return s.handleRequestExchange(e.PlayerID)
	case EventExchangeStart:
		return s.handleExchangeStart(e.PlayerID, e.Player2ID)
	case EventExchangePlayer2Ready:
		return s.handleExchangeAccept(e.PlayerID)
	case EventExchangePlayer2Deny:
		return s.handleExchangeDeny(e.PlayerID)
	case EventExchangeCancel:
		return s.handleExchangeCancel(e.PlayerID)
	case EventExchangeCards:
		return s.handleExchangeCards(e.PlayerID, e.CardIDs, e.DealStamp)
	case EventSetupTableChange:
		return s.handleSetupTableChange(e)
	case EventSetupPlayerChange:
		return s.handleSetupPlayerChange(e)
	case EventClose:
		s.stopLocked()
		return nil
	default:
		return fmt.Errorf("unknown event type: %d", e.Type)
	}
}

// SubmitEvent hands an event to the actor and waits for its result.
func (s *Session) SubmitEvent(e Event) error {
	if e.Response == nil {
		e.Response = make(chan error, 1)
	}

	s.mu.RLock()
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		return ErrSessionClosed
	}

	select {
	case s.events <- e:
	case <-s.done:
		return ErrSessionClosed
	}

	select {
	case err := <-e.Response:
		return err
	case <-s.done:
		return ErrSessionClosed
	}
}

// Stop shuts the actor down.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *Session) stopLocked() {
	s.closed = true
	s.stopOnce.Do(func() {
		close(s.done)
	})
}

// IsIdleFor reports whether the table has had no connected participants for
// at least ttl. The registry janitor uses it to retire dead tables.
func (s *Session) IsIdleFor(ttl time.Duration) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return true
	}
	for _, p := range s.participants {
		if p.Online {
			return false
		}
	}
	if s.emptySince.IsZero() {
		return false
	}
	return time.Since(s.emptySince) >= ttl
}

func (s *Session) IsClosed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

// SyncCount returns the current sync counter value.
func (s *Session) SyncCount() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.syncCount
}

// Order returns the current seating order.
func (s *Session) Order() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.order...)
}

// Snapshot exposes the round state for tests and diagnostics.
func (s *Session) Snapshot() doko.Snapshot {
	return s.round.Snapshot()
}

func (s *Session) nextSync() uint64 {
	s.syncCount++
	return s.syncCount
}

func (s *Session) seated(playerID string) bool {
	for _, p := range s.order {
		if p == playerID {
			return true
		}
	}
	return false
}

func (s *Session) updateEmptySinceLocked() {
	for _, p := range s.participants {
		if p.Online {
			s.emptySince = time.Time{}
			return
		}
	}
	if s.emptySince.IsZero() {
		s.emptySince = time.Now()
	}
}

func (s *Session) persistLocked() {
	rec := store.TableRecord{
		ID:            s.ID,
		Order:         append([]string(nil), s.order...),
		Locked:        s.locked,
		WithNines:     s.rules.WithNines,
		AllowUndo:     s.rules.AllowUndo,
		AllowExchange: s.rules.AllowExchange,
	}
	if err := s.store.SaveTable(rec); err != nil {
		s.logger.Warn("persisting table record failed", zap.Error(err))
	}
}
