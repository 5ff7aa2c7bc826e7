package notify

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"dormscout-backend/model"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) write(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(v)
}

// Hub pushes matches to every socket a user has open.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*client]struct{}
	logger  *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{clients: make(map[string]map[*client]struct{}), logger: logger}
}

// Serve upgrades the request and blocks until the client disconnects.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, userID string) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	c := &client{conn: conn}
	h.add(userID, c)
	h.logger.Info("notification socket connected", zap.String("user_id", userID))
	defer func() {
		h.remove(userID, c)
		conn.Close()
		h.logger.Info("notification socket closed", zap.String("user_id", userID))
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return nil
		}
	}
}

func (h *Hub) add(userID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[userID]
	if !ok {
		set = make(map[*client]struct{})
		h.clients[userID] = set
	}
	set[c] = struct{}{}
}

func (h *Hub) remove(userID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients[userID], c)
	if len(h.clients[userID]) == 0 {
		delete(h.clients, userID)
	}
}

// Connected reports how many sockets the user has open.
func (h *Hub) Connected(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

func (h *Hub) Notify(_ context.Context, match model.WishlistMatch) error {
	h.mu.RLock()
	targets := make([]*client, 0, len(h.clients[match.UserID]))
	for c := range h.clients[match.UserID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	var errs []error
	for _, c := range targets {
		if err := c.write(match); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
