package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/wricardo/partridge-board/game/engine"
	"github.com/wricardo/partridge-board/game/service"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 1024

	// Time allowed for one inbound action to be dispatched.
	dispatchTimeout = 5 * time.Second
)

// Outbound message kinds
const (
	EventStateUpdate  = "state_update"
	EventBoardEvent   = "board_event"
	EventActionResult = "action_result"
	EventError        = "error"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Message represents an outbound WebSocket message
type Message struct {
	SessionID  string                `json:"session_id"`
	Event      string                `json:"event"`
	BoardState *engine.GameState     `json:"board_state,omitempty"`
	BoardEvent *engine.BoardEvent    `json:"board_event,omitempty"`
	Result     *service.ActionResult `json:"result,omitempty"`
	Error      string                `json:"error,omitempty"`
	Data       interface{}           `json:"data,omitempty"`
}

// Dispatcher applies inbound actions to a board. service.BoardService
// satisfies it.
type Dispatcher interface {
	Dispatch(ctx context.Context, sessionID string, action engine.Action) (*service.ActionResult, error)
	GetBoardState(ctx context.Context, sessionID string) (*engine.GameState, error)
}

// Client represents a WebSocket client
type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte
	sessionID string
}

// Hub maintains the set of active clients and fans messages out per session
type Hub struct {
	mu sync.RWMutex

	// Registered clients by lower-cased session ID
	sessions map[string]map[*Client]bool

	// Outbound messages to fan out
	broadcast chan *Message

	dispatcher Dispatcher
	log        logrus.FieldLogger
}

// NewHub creates a new WebSocket hub
func NewHub() *Hub {
	return &Hub{
		sessions:  make(map[string]map[*Client]bool),
		broadcast: make(chan *Message, 64),
		log:       logrus.WithField("component", "websocket"),
	}
}

// SetDispatcher enables inbound actions. Without a dispatcher the hub only
// broadcasts.
func (h *Hub) SetDispatcher(d Dispatcher) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dispatcher = d
}

// Run delivers queued custom events until the broadcast queue is closed
func (h *Hub) Run() {
	for message := range h.broadcast {
		h.broadcastMessage(message)
	}
}

// ServeWS handles WebSocket requests from clients
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, sessionID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("websocket upgrade failed")
		return
	}

	client := &Client{
		hub:       h,
		conn:      conn,
		send:      make(chan []byte, 256),
		sessionID: sessionID,
	}

	h.registerClient(client)

	go client.writePump()
	go client.readPump()

	h.sendInitialState(client)
}

// BroadcastToSession sends a board state update to all clients in a session
func (h *Hub) BroadcastToSession(sessionID string, state *engine.GameState) {
	h.broadcastMessage(&Message{
		SessionID:  sessionID,
		Event:      EventStateUpdate,
		BoardState: state,
	})
}

// BroadcastBoardEvent sends one board event to all clients in a session
func (h *Hub) BroadcastBoardEvent(sessionID string, ev *engine.BoardEvent) {
	if ev == nil {
		return
	}
	h.broadcastMessage(&Message{
		SessionID:  sessionID,
		Event:      EventBoardEvent,
		BoardEvent: ev,
	})
}

// BroadcastResult fans out the consequences of an action: the new state,
// and the board event when one was produced.
func (h *Hub) BroadcastResult(sessionID string, result *service.ActionResult) {
	if result == nil {
		return
	}
	h.BroadcastToSession(sessionID, result.BoardState)
	h.BroadcastBoardEvent(sessionID, result.Event())
}

// BroadcastEvent queues a custom event for all clients in a session
func (h *Hub) BroadcastEvent(sessionID string, event string, data interface{}) {
	h.broadcast <- &Message{
		SessionID: sessionID,
		Event:     event,
		Data:      data,
	}
}

// ClientCount returns the number of clients connected to a session
func (h *Hub) ClientCount(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[sessionKey(sessionID)])
}

// sessionKey folds case the same way session lookup does
func sessionKey(sessionID string) string {
	return strings.ToLower(sessionID)
}

// registerClient adds a client to a session
func (h *Hub) registerClient(client *Client) {
	key := sessionKey(client.sessionID)
	h.mu.Lock()
	if h.sessions[key] == nil {
		h.sessions[key] = make(map[*Client]bool)
	}
	h.sessions[key][client] = true
	total := len(h.sessions[key])
	h.mu.Unlock()

	h.log.WithFields(logrus.Fields{
		"session": client.sessionID,
		"clients": total,
	}).Info("client registered")
}

// unregisterClient removes a client from a session
func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	remaining, removed := h.removeLocked(client)
	h.mu.Unlock()

	if removed {
		h.log.WithFields(logrus.Fields{
			"session": client.sessionID,
			"clients": remaining,
		}).Info("client unregistered")
	}
}

// removeLocked drops a client and closes its send channel. h.mu must be held.
func (h *Hub) removeLocked(client *Client) (int, bool) {
	key := sessionKey(client.sessionID)
	clients, ok := h.sessions[key]
	if !ok || !clients[client] {
		return 0, false
	}
	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.sessions, key)
	}
	return len(clients), true
}

// broadcastMessage sends a message to all clients in a session. Clients
// whose buffers are full are dropped.
func (h *Hub) broadcastMessage(message *Message) {
	data, err := json.Marshal(message)
	if err != nil {
		h.log.WithError(err).Error("failed to marshal broadcast message")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.sessions[sessionKey(message.SessionID)] {
		select {
		case client.send <- data:
		default:
			h.removeLocked(client)
		}
	}
}

// sendTo delivers a message to one client if it is still registered
func (h *Hub) sendTo(client *Client, message *Message) {
	data, err := json.Marshal(message)
	if err != nil {
		h.log.WithError(err).Error("failed to marshal message")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.sessions[sessionKey(client.sessionID)][client] {
		return
	}
	select {
	case client.send <- data:
	default:
		h.removeLocked(client)
	}
}

func (h *Hub) currentDispatcher() Dispatcher {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.dispatcher
}

func (h *Hub) sendInitialState(client *Client) {
	d := h.currentDispatcher()
	if d == nil {
		return
	}
	state, err := d.GetBoardState(context.Background(), client.sessionID)
	if err != nil {
		h.sendTo(client, &Message{SessionID: client.sessionID, Event: EventError, Error: err.Error()})
		return
	}
	h.sendTo(client, &Message{SessionID: client.sessionID, Event: EventStateUpdate, BoardState: state})
}

// handleInbound decodes one client message as an action and dispatches it.
// The sender always gets the action result; the whole session sees the new
// state when the board changed.
func (h *Hub) handleInbound(client *Client, raw []byte) {
	d := h.currentDispatcher()
	if d == nil {
		return
	}

	var action engine.Action
	if err := json.Unmarshal(raw, &action); err != nil {
		h.sendTo(client, &Message{SessionID: client.sessionID, Event: EventError, Error: "invalid action: " + err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
	defer cancel()

	result, err := d.Dispatch(ctx, client.sessionID, action)
	if err != nil {
		h.sendTo(client, &Message{SessionID: client.sessionID, Event: EventError, Error: err.Error()})
		return
	}

	h.sendTo(client, &Message{SessionID: client.sessionID, Event: EventActionResult, Result: result})
	if result.Event() != nil {
		h.BroadcastResult(client.sessionID, result)
	}
}

// readPump pumps inbound actions from the WebSocket connection to the hub
func (c *Client) readPump() {
	defer func() {
		c.hub.unregisterClient(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.WithError(err).WithField("session", c.sessionID).Warn("websocket read failed")
			}
			break
		}
		c.hub.handleInbound(c, raw)
	}
}

// writePump pumps messages from the hub to the WebSocket connection. Each
// message is written as its own frame.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
