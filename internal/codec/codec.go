package codec

import (
	"encoding/json"
	"fmt"
)

// Event names of the table protocol. Inbound events are client intents,
// outbound events are session broadcasts or targeted replies.
const (
	// inbound
	EventWhoAmI                = "who-am-i"
	EventDealCards             = "deal-cards"
	EventDealCardsAgain        = "deal-cards-again"
	EventPlayedCard            = "played-card"
	EventSortedCards           = "sorted-cards"
	EventClaimTrick            = "claim-trick"
	EventReadyForNextRound     = "ready-for-next-round"
	EventRequestRoundReset     = "request-round-reset"
	EventReadyForRoundReset    = "ready-for-round-reset"
	EventRequestRoundFinish    = "request-round-finish"
	EventReadyForRoundFinish   = "ready-for-round-finish"
	EventRequestUndo           = "request-undo"
	EventReadyForUndo          = "ready-for-undo"
	EventRequestShowHand       = "request-show-hand"
	EventShowCards             = "show-cards"
	EventRequestExchange       = "request-exchange"
	EventExchangeStart         = "exchange-start"
	EventExchangePlayer2Ready  = "exchange-player2-ready"
	EventExchangePlayer2Deny   = "exchange-player2-deny"
	EventExchangeCancelPlayer1 = "exchange-cancel-player1"
	EventExchangeCardsToServer = "exchange-player-cards-to-server"
	EventMyCardsPlease         = "my-cards-please"
	EventSetupTableChange      = "setup-table-change"
	EventSetupPlayerChange     = "setup-player-change"

	// outbound
	EventYouAreWhatYouIs         = "you-are-what-you-is"
	EventNewTableAvailable       = "new-table-available"
	EventCardPlayedByPlayer      = "card-played-by-player"
	EventGrabYourCards           = "grab-your-cards"
	EventYourCardsPlease         = "your-cards-please"
	EventSorryNoCardsForYou      = "sorry-no-cards-for-you"
	EventNextTrick               = "next-trick"
	EventRoundFinished           = "round-finished"
	EventStartNextRound          = "start-next-round"
	EventConfirmDealAgain        = "confirm-deal-again"
	EventConfirmShowHand         = "confirm-show-hand"
	EventCardsShownByPlayer      = "cards-shown-by-player"
	EventReadyPlayerAdded        = "ready-player-added"
	EventRoundResetRequested     = "round-reset-requested"
	EventRoundFinishRequested    = "round-finish-requested"
	EventUndoRequested           = "undo-requested"
	EventConfirmExchange         = "confirm-exchange"
	EventExchangeAskPlayer2      = "exchange-ask-player2"
	EventPlayer1RequestedExch    = "player1-requested-exchange"
	EventPlayer2DeniedExchange   = "player2-denied-exchange"
	EventExchangePlayer1Deny     = "exchange-player1-player2-deny"
	EventExchangePlayer1Start    = "exchange-player1-start"
	EventExchangeCardsToClient   = "exchange-player-cards-to-client"
	EventExchangePlayersStarting = "exchange-players-starting"
	EventExchangePlayersFinished = "exchange-players-finished"
	EventError                   = "error"
)

// Envelope frames every message on the wire.
type Envelope struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Marshal frames a payload under its event name.
func Marshal(event string, payload any) ([]byte, error) {
	var raw json.RawMessage
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal %s payload: %w", event, err)
		}
		raw = data
	}
	data, err := json.Marshal(Envelope{Event: event, Payload: raw})
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", event, err)
	}
	return data, nil
}

// Decode parses the envelope without touching the payload.
func Decode(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Event == "" {
		return Envelope{}, fmt.Errorf("decode envelope: missing event")
	}
	return env, nil
}

// Bind unmarshals the envelope's payload into the given message struct.
func (e Envelope) Bind(msg any) error {
	if len(e.Payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(e.Payload, msg); err != nil {
		return fmt.Errorf("bind %s payload: %w", e.Event, err)
	}
	return nil
}
