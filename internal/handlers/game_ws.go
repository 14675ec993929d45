// internal/handlers/game_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/jason-s-yu/scoresheet/internal/auth"
	"github.com/jason-s-yu/scoresheet/internal/middleware"
	"github.com/sirupsen/logrus"
)

// Subprotocol renderers must request when opening /game/ws/{id}.
const Subprotocol = "scoresheet"

const (
	sendBuffer   = 16
	writeTimeout = 3 * time.Second
)

// ClientMessage is what a renderer may send over the socket.
type ClientMessage struct {
	Type string `json:"type"`
}

// wsClient is one connected renderer. Messages are queued on send and written in order by
// a dedicated goroutine, so a slow socket never blocks a request holding a table lock.
type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub tracks the renderers watching each scoresheet.
type Hub struct {
	mu      sync.Mutex
	clients map[uuid.UUID]map[*wsClient]struct{}
	logger  *logrus.Logger
}

func NewHub(logger *logrus.Logger) *Hub {
	return &Hub{
		clients: make(map[uuid.UUID]map[*wsClient]struct{}),
		logger:  logger,
	}
}

func (h *Hub) add(id uuid.UUID, c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[id] == nil {
		h.clients[id] = make(map[*wsClient]struct{})
	}
	h.clients[id][c] = struct{}{}
}

func (h *Hub) remove(id uuid.UUID, c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.clients[id]; ok {
		if _, ok := set[c]; ok {
			delete(set, c)
			close(c.send)
		}
		if len(set) == 0 {
			delete(h.clients, id)
		}
	}
}

// Count returns how many renderers are watching id.
func (h *Hub) Count(id uuid.UUID) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients[id])
}

// Broadcast queues msg for every renderer of id. A client whose buffer is full misses the
// message; the next full snapshot brings it back in sync.
func (h *Hub) Broadcast(id uuid.UUID, msg interface{}) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Errorf("Failed to marshal broadcast for game %s: %v", id, err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients[id] {
		select {
		case c.send <- data:
		default:
			h.logger.Warnf("Dropping message for slow client of game %s", id)
		}
	}
}

// CloseAll disconnects every renderer of id with the given close code. The close handshakes
// run in the background so callers are not held up by slow or unresponsive peers.
func (h *Hub) CloseAll(id uuid.UUID, code websocket.StatusCode, reason string) {
	h.mu.Lock()
	set := h.clients[id]
	delete(h.clients, id)
	h.mu.Unlock()

	for c := range set {
		close(c.send)
		go c.conn.Close(code, reason)
	}
}

// GameWSHandler upgrades the connection for a scoresheet's renderer. The owner's sheet is
// pushed immediately and again after every change.
func GameWSHandler(logger *logrus.Logger, gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, err := auth.Authenticate(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, err.Error(), nil)
			return
		}
		gameID, err := uuid.Parse(r.PathValue("id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid game id", nil)
			return
		}
		t, ok := gs.Sessions.GetTable(gameID)
		if !ok {
			writeError(w, http.StatusNotFound, "game not found", nil)
			return
		}
		if t.Session.OwnerID != owner {
			writeError(w, http.StatusForbidden, "not your game", nil)
			return
		}

		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{Subprotocol},
			OriginPatterns: []string{"*"},
		})
		if err != nil {
			logger.Warnf("WebSocket accept error for game %s: %v", gameID, err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "Internal server error during handler exit.")

		if c.Subprotocol() != Subprotocol {
			c.Close(BadSubprotocolError, "Client must use the '"+Subprotocol+"' subprotocol.")
			return
		}
		middleware.LogWebSocketConnect(logger, r.RemoteAddr, r.URL.Path)

		client := &wsClient{conn: c, send: make(chan []byte, sendBuffer)}

		t.Mu.Lock()
		if t.Gone {
			t.Mu.Unlock()
			c.Close(websocket.StatusGoingAway, "game closed")
			return
		}
		gs.hub.add(gameID, client)
		first, _ := json.Marshal(map[string]interface{}{"type": "scoresheet", "state": t.Session.Snapshot()})
		client.send <- first
		t.Mu.Unlock()

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()
		go writeLoop(ctx, client, logger)

		err = readLoop(ctx, gs, gameID, client)
		gs.hub.remove(gameID, client)
		middleware.LogWebSocketDisconnect(logger, r.RemoteAddr, r.URL.Path, err)
	}
}

func writeLoop(ctx context.Context, c *wsClient, logger *logrus.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-c.send:
			if !ok {
				return
			}
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.conn.Write(wctx, websocket.MessageText, data)
			cancel()
			if err != nil {
				logger.Debugf("WebSocket write failed: %v", err)
				return
			}
		}
	}
}

// readLoop answers pings and refresh requests until the socket closes. A normal close
// returns nil.
func readLoop(ctx context.Context, gs *GameServer, gameID uuid.UUID, c *wsClient) error {
	for {
		msgType, data, err := c.conn.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		if msgType != websocket.MessageText {
			continue
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			gs.hub.sendTo(c, map[string]interface{}{"type": "error", "message": "Invalid JSON format."})
			continue
		}

		switch msg.Type {
		case "ping":
			gs.hub.sendTo(c, map[string]string{"type": "pong"})
		case "refresh":
			t, ok := gs.Sessions.GetTable(gameID)
			if !ok {
				gs.hub.sendTo(c, map[string]interface{}{"type": "error", "message": "game not found"})
				continue
			}
			t.Mu.Lock()
			if t.Gone {
				gs.hub.sendTo(c, map[string]interface{}{"type": "error", "message": "game not found"})
			} else {
				gs.hub.sendTo(c, map[string]interface{}{"type": "scoresheet", "state": t.Session.Snapshot()})
			}
			t.Mu.Unlock()
		default:
			gs.hub.sendTo(c, map[string]interface{}{"type": "error", "message": "Unknown message type: " + msg.Type})
		}
	}
}

// sendTo queues a message for a single client if it is still registered.
func (h *Hub) sendTo(c *wsClient, msg interface{}) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, set := range h.clients {
		if _, ok := set[c]; ok {
			select {
			case c.send <- data:
			default:
			}
			return
		}
	}
}
