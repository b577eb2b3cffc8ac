package realtime

import (
	"errors"
	"sync"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Event is the payload pushed to a connected client for a live notification.
type Event struct {
	Type string `json:"type"`
	From string `json:"from"`
}

// ErrConnGone is returned by Push when the connection no longer exists.
var ErrConnGone = errors.New("connection not registered")

// Conn is the subset of a websocket connection the hub needs.
// *websocket.Conn from gorilla satisfies it.
type Conn interface {
	WriteJSON(v interface{}) error
	Close() error
}

// Hub is the process-wide presence registry: user id -> current connection id,
// plus the live connections themselves. Only the most recently registered
// connection per user receives pushes. Holds nothing across restarts; that is
// fine because it only affects best-effort live delivery.
type Hub struct {
	mu    sync.RWMutex
	users map[primitive.ObjectID]string
	conns map[string]*client
	log   *zap.Logger
}

type client struct {
	conn Conn
	mu   sync.Mutex // serializes writes on one connection
}

// NewHub creates an empty Hub
func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		users: make(map[primitive.ObjectID]string),
		conns: make(map[string]*client),
		log:   log,
	}
}

// Add tracks a new connection and returns its id. The connection receives no
// pushes until its user identifies and Register is called.
func (h *Hub) Add(conn Conn) string {
	id := uuid.NewString()
	h.mu.Lock()
	h.conns[id] = &client{conn: conn}
	h.mu.Unlock()
	return id
}

// Remove drops the connection and its presence entry, if still current.
func (h *Hub) Remove(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, connID)
	for userID, id := range h.users {
		if id == connID {
			delete(h.users, userID)
			break
		}
	}
}

// Register maps the user to this connection, overwriting any prior mapping:
// last-registered wins, earlier devices stop receiving pushes.
func (h *Hub) Register(userID primitive.ObjectID, connID string) {
	h.mu.Lock()
	h.users[userID] = connID
	h.mu.Unlock()
}

// Unregister removes the user entry currently mapped to this exact connection.
// A stale disconnect arriving after a newer connection registered is a no-op.
func (h *Hub) Unregister(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for userID, id := range h.users {
		if id == connID {
			delete(h.users, userID)
			return
		}
	}
}

// Resolve returns the user's current connection id, if any
func (h *Hub) Resolve(userID primitive.ObjectID) (string, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	id, ok := h.users[userID]
	return id, ok
}

// Push writes an event to one connection
func (h *Hub) Push(connID string, ev Event) error {
	h.mu.RLock()
	c, ok := h.conns[connID]
	h.mu.RUnlock()
	if !ok {
		return ErrConnGone
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.WriteJSON(ev); err != nil {
		h.log.Warn("websocket write failed", zap.String("conn", connID), zap.Error(err))
		return err
	}
	return nil
}
