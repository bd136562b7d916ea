package web

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"brandsim/server/internal/metrics"
	"brandsim/server/internal/models"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = 30 * time.Second
	sendBuffer   = 64
)

// feedEvent is the message pushed to feed clients
type feedEvent struct {
	Type   string        `json:"type"`
	GameID string        `json:"gameId"`
	Posts  []models.Post `json:"posts"`
	SentAt int64         `json:"sentAt"`
}

// feedClient is one WebSocket connection subscribed to a game
type feedClient struct {
	id     string
	gameID string
	conn   *websocket.Conn
	send   chan []byte
	hub    *PostHub
}

// PostHub fans newly created posts out to the sockets watching each game
type PostHub struct {
	upgrader websocket.Upgrader
	logger   *zap.Logger
	metrics  *metrics.Metrics

	broadcast chan feedEvent

	mu     sync.RWMutex
	games  map[string]map[string]*feedClient
	closed bool
}

// NewPostHub creates a hub; allowedOrigins of ["*"] accepts any origin.
func NewPostHub(allowedOrigins []string, logger *zap.Logger, m *metrics.Metrics) *PostHub {
	h := &PostHub{
		logger:    logger,
		metrics:   m,
		broadcast: make(chan feedEvent, 1000),
		games:     make(map[string]map[string]*feedClient),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return h
}

func originChecker(allowed []string) func(*http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

// Run delivers published posts until ctx is done, then closes every feed.
// Clients join and leave under the hub mutex, not through Run.
func (h *PostHub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case event := <-h.broadcast:
			h.deliver(event)
		}
	}
}

// registerClient reports false once the hub has shut down.
func (h *PostHub) registerClient(client *feedClient) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return false
	}
	clients, ok := h.games[client.gameID]
	if !ok {
		clients = make(map[string]*feedClient)
		h.games[client.gameID] = clients
	}
	clients[client.id] = client
	h.metrics.FeedConnected(1)
	h.logger.Debug("feed client connected", zap.String("client_id", client.id), zap.String("game_id", client.gameID))
	return true
}

func (h *PostHub) unregisterClient(client *feedClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.games[client.gameID]
	if !ok {
		return
	}
	if _, ok := clients[client.id]; !ok {
		return
	}
	delete(clients, client.id)
	if len(clients) == 0 {
		delete(h.games, client.gameID)
	}
	close(client.send)
	h.metrics.FeedConnected(-1)
	h.logger.Debug("feed client disconnected", zap.String("client_id", client.id), zap.String("game_id", client.gameID))
}

func (h *PostHub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for gameID, clients := range h.games {
		for _, c := range clients {
			close(c.send)
			h.metrics.FeedConnected(-1)
		}
		delete(h.games, gameID)
	}
}

func (h *PostHub) deliver(event feedEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("failed to marshal feed event", zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.games[event.GameID] {
		select {
		case client.send <- data:
		default:
			h.logger.Warn("feed client buffer full", zap.String("client_id", client.id))
		}
	}
}

// PublishPosts queues posts for the game's subscribers; it never blocks.
func (h *PostHub) PublishPosts(gameID string, posts []models.Post) {
	event := feedEvent{Type: "posts", GameID: gameID, Posts: posts, SentAt: time.Now().Unix()}
	select {
	case h.broadcast <- event:
	default:
		h.logger.Warn("feed broadcast channel full, dropping posts", zap.String("game_id", gameID))
	}
}

// ClientCount returns the number of open feed sockets.
func (h *PostHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, clients := range h.games {
		n += len(clients)
	}
	return n
}

// ServeFeed upgrades the request and subscribes the socket to gameID.
func (h *PostHub) ServeFeed(w http.ResponseWriter, r *http.Request, gameID string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("feed upgrade failed", zap.Error(err))
		return
	}

	client := &feedClient{
		id:     uuid.NewString(),
		gameID: gameID,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		hub:    h,
	}
	if !h.registerClient(client) {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
		_ = conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

func (c *feedClient) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump only drains control frames; the feed is server to client.
func (c *feedClient) readPump() {
	defer func() {
		c.hub.unregisterClient(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Debug("feed client closed unexpectedly", zap.String("client_id", c.id), zap.Error(err))
			}
			return
		}
	}
}
