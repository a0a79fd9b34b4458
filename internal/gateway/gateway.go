// Package gateway owns the WebSocket edge: it authenticates connections,
// decodes client envelopes and forwards them as events to the table actors.
package gateway

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/HenriWahl/doko3000/doko"
	"github.com/HenriWahl/doko3000/internal/codec"
	"github.com/HenriWahl/doko3000/internal/lobby"
	"github.com/HenriWahl/doko3000/internal/store"
	"github.com/HenriWahl/doko3000/internal/table"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true // TODO: Restrict in production
	},
}

// Connection is one WebSocket client.
type Connection struct {
	ID            string
	PlayerID      string
	SpectatorOnly bool
	Conn          *websocket.Conn
	Send          chan []byte
	Gateway       *Gateway

	TableID string
	Table   *table.Session
}

// Gateway manages all client connections.
type Gateway struct {
	mu          sync.RWMutex
	connections map[string]*Connection
	playerConns map[string]*Connection

	store  store.Service
	lobby  *lobby.Registry
	logger *zap.Logger
}

// New creates a gateway. The lobby registry is attached afterwards because it
// needs the gateway's send callbacks at construction time.
func New(st store.Service, logger *zap.Logger) *Gateway {
	return &Gateway{
		connections: make(map[string]*Connection),
		playerConns: make(map[string]*Connection),
		store:       st,
		logger:      logger.Named("gateway"),
	}
}

// AttachLobby wires the table registry in.
func (g *Gateway) AttachLobby(reg *lobby.Registry) {
	g.lobby = reg
}

// HandleWebSocket upgrades the connection, resolves the session token and
// joins the requested table.
func (g *Gateway) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	tableID := r.URL.Query().Get("table")
	player, ok := g.store.ResolveSession(token)
	if !ok {
		http.Error(w, "invalid session token", http.StatusUnauthorized)
		return
	}
	if tableID == "" {
		http.Error(w, "missing table id", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	spectator := player.IsSpectatorOnly || r.URL.Query().Get("spectate") == "1"
	c := &Connection{
		ID:            uuid.NewString(),
		PlayerID:      player.ID,
		SpectatorOnly: spectator,
		Conn:          conn,
		Send:          make(chan []byte, 256),
		Gateway:       g,
		TableID:       tableID,
	}

	g.mu.Lock()
	g.connections[c.ID] = c
	g.playerConns[c.PlayerID] = c
	g.mu.Unlock()

	c.Table = g.lobby.GetOrCreate(tableID)
	if err := c.Table.SubmitEvent(table.Event{
		Type:          table.EventConnect,
		PlayerID:      c.PlayerID,
		SpectatorOnly: spectator,
	}); err != nil {
		g.logger.Warn("joining table failed",
			zap.String("player", c.PlayerID),
			zap.String("table", tableID),
			zap.Error(err))
		conn.Close()
		g.removeConnection(c)
		return
	}

	g.logger.Info("client connected",
		zap.String("player", c.PlayerID),
		zap.String("table", tableID),
		zap.Bool("spectator", spectator))

	go c.readPump()
	go c.writePump()
}

func (c *Connection) readPump() {
	defer func() {
		c.Gateway.removeConnection(c)
		c.Conn.Close()
		if c.Table != nil {
			c.Table.SubmitEvent(table.Event{
				Type:     table.EventDisconnect,
				PlayerID: c.PlayerID,
			})
		}
	}()

	c.Conn.SetReadLimit(65536)
	c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		messageType, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Gateway.logger.Warn("read error", zap.String("player", c.PlayerID), zap.Error(err))
			}
			break
		}
		if messageType == websocket.TextMessage {
			c.handleMessage(message)
		}
	}
}

func (c *Connection) handleMessage(data []byte) {
	env, err := codec.Decode(data)
	if err != nil {
		c.Gateway.logger.Warn("undecodable message", zap.String("player", c.PlayerID), zap.Error(err))
		c.sendError("invalid message format")
		return
	}

	event, err := c.toTableEvent(env)
	if err != nil {
		c.sendError(err.Error())
		return
	}

	if err := c.Table.SubmitEvent(event); err != nil {
		if silentReject(err) {
			c.Gateway.logger.Debug("action dropped",
				zap.String("player", c.PlayerID),
				zap.String("event", env.Event),
				zap.Error(err))
			return
		}
		c.sendError(err.Error())
	}
}

// toTableEvent maps a wire envelope to a table event. The sender identity
// always comes from the authenticated connection, never from the payload.
func (c *Connection) toTableEvent(env codec.Envelope) (table.Event, error) {
	e := table.Event{PlayerID: c.PlayerID}

	switch env.Event {
	case codec.EventWhoAmI:
		e.Type = table.EventWhoAmI
	case codec.EventMyCardsPlease:
		e.Type = table.EventMyCardsPlease
	case codec.EventDealCards:
		e.Type = table.EventDealCards
	case codec.EventDealCardsAgain:
		e.Type = table.EventDealCardsAgain
	case codec.EventPlayedCard:
		var msg codec.PlayedCard
		if err := env.Bind(&msg); err != nil {
			return e, err
		}
		e.Type = table.EventPlayedCard
		e.CardID = msg.CardID
		e.DealStamp = msg.DealStamp
	case codec.EventSortedCards:
		var msg codec.SortedCards
		if err := env.Bind(&msg); err != nil {
			return e, err
		}
		e.Type = table.EventSortedCards
		e.CardIDs = msg.CardsHandIDs
	case codec.EventClaimTrick:
		e.Type = table.EventClaimTrick
	case codec.EventReadyForNextRound:
		e.Type = table.EventReadyForNextRound
	case codec.EventRequestRoundReset:
		e.Type = table.EventRequestRoundReset
	case codec.EventReadyForRoundReset:
		e.Type = table.EventReadyForRoundReset
	case codec.EventRequestRoundFinish:
		e.Type = table.EventRequestRoundFinish
	case codec.EventReadyForRoundFinish:
		e.Type = table.EventReadyForRoundFinish
	case codec.EventRequestUndo:
		e.Type = table.EventRequestUndo
	case codec.EventReadyForUndo:
		e.Type = table.EventReadyForUndo
	case codec.EventRequestShowHand:
		e.Type = table.EventRequestShowHand
	case codec.EventShowCards:
		e.Type = table.EventShowCards
	case codec.EventRequestExchange:
		e.Type = table.EventRequestExchange
	case codec.EventExchangeStart:
		var msg codec.ExchangeStart
		if err := env.Bind(&msg); err != nil {
			return e, err
		}
		e.Type = table.EventExchangeStart
		e.Player2ID = msg.Player2ID
	case codec.EventExchangePlayer2Ready:
		e.Type = table.EventExchangePlayer2Ready
	case codec.EventExchangePlayer2Deny:
		e.Type = table.EventExchangePlayer2Deny
	case codec.EventExchangeCancelPlayer1:
		e.Type = table.EventExchangeCancel
	case codec.EventExchangeCardsToServer:
		var msg codec.ExchangeCardsToServer
		if err := env.Bind(&msg); err != nil {
			return e, err
		}
		e.Type = table.EventExchangeCards
		e.CardIDs = msg.CardsTableIDs
		e.DealStamp = msg.DealStamp
	case codec.EventSetupTableChange:
		var msg codec.SetupTableChange
		if err := env.Bind(&msg); err != nil {
			return e, err
		}
		e.Type = table.EventSetupTableChange
		e.Action = msg.Action
		e.TargetID = msg.RemovePlayerID
		e.Order = msg.Order
	case codec.EventSetupPlayerChange:
		var msg codec.SetupPlayerChange
		if err := env.Bind(&msg); err != nil {
			return e, err
		}
		e.Type = table.EventSetupPlayerChange
		e.Action = msg.Action
		e.TargetID = msg.TargetPlayerID
		e.Password = msg.NewPassword
	default:
		return e, errors.New("unknown event: " + env.Event)
	}
	return e, nil
}

// silentReject reports whether a rejection is part of normal play, caused by
// racing clients or stale state, and deserves no error reply.
func silentReject(err error) bool {
	return errors.Is(err, doko.ErrStaleDeal) ||
		errors.Is(err, doko.ErrNotYourTurn) ||
		errors.Is(err, doko.ErrWrongMode) ||
		errors.Is(err, doko.ErrTrickFull) ||
		errors.Is(err, doko.ErrCardNotInHand)
}

func (c *Connection) sendError(msg string) {
	data, err := codec.Marshal(codec.EventError, codec.ErrorReply{Message: msg})
	if err != nil {
		return
	}
	select {
	case c.Send <- data:
	default:
	}
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (g *Gateway) removeConnection(c *Connection) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.connections, c.ID)
	if g.playerConns[c.PlayerID] == c {
		delete(g.playerConns, c.PlayerID)
	}
	g.logger.Info("client disconnected",
		zap.String("player", c.PlayerID),
		zap.Int("total", len(g.connections)))
}

// SendToPlayer delivers a message to one player's connection, dropping it
// when the client cannot keep up.
func (g *Gateway) SendToPlayer(playerID string, data []byte) {
	g.mu.RLock()
	c := g.playerConns[playerID]
	g.mu.RUnlock()

	if c != nil {
		select {
		case c.Send <- data:
		default:
			// Drop if buffer full
		}
	}
}

// Broadcast delivers a message to every connection.
func (g *Gateway) Broadcast(message []byte) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, c := range g.connections {
		select {
		case c.Send <- message:
		default:
			// Drop message if buffer full
		}
	}
}
