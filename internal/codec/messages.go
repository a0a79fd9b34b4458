package codec

import "github.com/HenriWahl/doko3000/card"

// Base carries the fields every inbound action message has.
type Base struct {
	PlayerID string `json:"player_id"`
	TableID  string `json:"table_id"`
}

// CardView is a card on the wire.
type CardView struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// NewCardView converts an engine card for the wire.
func NewCardView(c card.Card) CardView {
	return CardView{ID: c.ID, Name: c.Name(), Value: c.Value()}
}

// NewCardViews converts a hand or trick for the wire.
func NewCardViews(cards []card.Card) []CardView {
	views := make([]CardView, 0, len(cards))
	for _, c := range cards {
		views = append(views, NewCardView(c))
	}
	return views
}

// TrickTurnView is one (player, card) pair on the table.
type TrickTurnView struct {
	PlayerID string   `json:"player_id"`
	Card     CardView `json:"card"`
}

// --- inbound messages ---

type WhoAmI struct {
	Base
}

type DealCards struct {
	Base
}

type DealCardsAgain struct {
	Base
}

type PlayedCard struct {
	Base
	CardID    int    `json:"card_id"`
	CardName  string `json:"card_name"`
	DealStamp int64  `json:"deal_stamp"`
}

type SortedCards struct {
	Base
	CardsHandIDs []int `json:"cards_hand_ids"`
}

type ClaimTrick struct {
	Base
}

type ReadyForNextRound struct {
	Base
}

// ReadyPoll covers the request/ready pairs of round reset, round finish
// and undo. The event name selects the poll.
type ReadyPoll struct {
	Base
}

type RequestShowHand struct {
	Base
}

type ShowCards struct {
	Base
}

type RequestExchange struct {
	Base
	Player2ID string `json:"player2_id"`
}

type ExchangeStart struct {
	Base
	Player2ID string `json:"player2_id"`
}

type ExchangeAnswer struct {
	Base
}

type ExchangeCardsToServer struct {
	Base
	CardsTableIDs []int `json:"cards_table_ids"`
	DealStamp     int64 `json:"deal_stamp"`
}

// SetupTableChange mutates table configuration. Action is one of:
// remove_player, lock_table, unlock_table, play_with_9, play_without_9,
// allow_undo, prohibit_undo, allow_exchange, prohibit_exchange,
// changed_order, start_table.
type SetupTableChange struct {
	Base
	Action         string   `json:"action"`
	RemovePlayerID string   `json:"remove_player_id,omitempty"`
	Order          []string `json:"order,omitempty"`
}

// SetupPlayerChange mutates a player's flags or password. Action is one
// of: is_admin, no_admin, allows_spectators, denies_spectators,
// is_spectator_only, no_spectator_only, new_password.
type SetupPlayerChange struct {
	Base
	Action         string `json:"action"`
	TargetPlayerID string `json:"target_player_id,omitempty"`
	NewPassword    string `json:"new_password,omitempty"`
}

// --- outbound messages ---

type YouAreWhatYouIs struct {
	PlayerID        string `json:"player_id"`
	TableID         string `json:"table_id"`
	CurrentPlayerID string `json:"current_player_id"`
	SyncCount       uint64 `json:"sync_count"`
	RoundFinished   bool   `json:"round_finished"`
	RoundReset      bool   `json:"round_reset"`
}

type NewTableAvailable struct {
	Tables []string `json:"tables"`
}

type CardPlayedByPlayer struct {
	PlayerID           string   `json:"player_id"`
	Card               CardView `json:"card"`
	CurrentPlayerID    string   `json:"current_player_id"`
	SyncCount          uint64   `json:"sync_count"`
	IsLastTurn         bool     `json:"is_last_turn"`
	PlayerShowingCards string   `json:"player_showing_cards,omitempty"`
	IdlePlayers        []string `json:"idle_players,omitempty"`
	PlayersSpectator   []string `json:"players_spectator,omitempty"`
}

type GrabYourCards struct {
	TableID string `json:"table_id"`
}

type YourCardsPlease struct {
	PlayerID           string          `json:"player_id"`
	Cards              []CardView      `json:"cards"`
	CurrentPlayerID    string          `json:"current_player_id"`
	SyncCount          uint64          `json:"sync_count"`
	DealStamp          int64           `json:"deal_stamp"`
	Dealer             string          `json:"dealer"`
	CardsPerPlayer     int             `json:"cards_per_player"`
	NeedsDealing       bool            `json:"needs_dealing"`
	NeedsTrickClaiming bool            `json:"needs_trick_claiming"`
	ExchangeNeeded     bool            `json:"exchange_needed"`
	Mode               string          `json:"mode"`
	Players            []string        `json:"players"`
	CurrentTrick       []TrickTurnView `json:"current_trick,omitempty"`
	Score              map[string]int  `json:"score,omitempty"`
}

// SorryNoCardsForYou is the spectator projection: everything of
// YourCardsPlease except a hand.
type SorryNoCardsForYou struct {
	PlayerID        string          `json:"player_id"`
	CurrentPlayerID string          `json:"current_player_id"`
	SyncCount       uint64          `json:"sync_count"`
	Mode            string          `json:"mode"`
	Players         []string        `json:"players"`
	CurrentTrick    []TrickTurnView `json:"current_trick,omitempty"`
	Score           map[string]int  `json:"score,omitempty"`
}

type NextTrick struct {
	CurrentPlayerID string         `json:"current_player_id"`
	SyncCount       uint64         `json:"sync_count"`
	Score           map[string]int `json:"score"`
}

type RoundFinished struct {
	SyncCount uint64         `json:"sync_count"`
	Score     map[string]int `json:"score"`
}

type StartNextRound struct {
	Dealer    string `json:"dealer"`
	SyncCount uint64 `json:"sync_count"`
}

type CardsShownByPlayer struct {
	PlayerID  string     `json:"player_id"`
	Cards     []CardView `json:"cards"`
	SyncCount uint64     `json:"sync_count"`
}

type ReadyPlayerAdded struct {
	PlayerReadyID string   `json:"player_ready_id"`
	ReadyPlayers  []string `json:"ready_players"`
}

type PollRequested struct {
	PlayerID string `json:"player_id"`
}

type ExchangeAskPlayer2 struct {
	Player1ID string `json:"player1_id"`
}

type Player1RequestedExchange struct {
	Player1ID string `json:"player1_id"`
	Player2ID string `json:"player2_id"`
	SyncCount uint64 `json:"sync_count"`
}

type ExchangePlayersStarting struct {
	Player1ID string `json:"player1_id"`
	Player2ID string `json:"player2_id"`
	SyncCount uint64 `json:"sync_count"`
}

type Player2DeniedExchange struct {
	SyncCount uint64 `json:"sync_count"`
}

type ExchangeCardsToClient struct {
	TableMode          string     `json:"table_mode"`
	CardsExchangeCount int        `json:"cards_exchange_count"`
	Cards              []CardView `json:"cards"`
	SyncCount          uint64     `json:"sync_count"`
}

type ExchangePlayersFinished struct {
	CurrentPlayerID string `json:"current_player_id"`
	SyncCount       uint64 `json:"sync_count"`
}

type ErrorReply struct {
	Message string `json:"message"`
}
