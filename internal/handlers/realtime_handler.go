package handlers

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/plumehq/plume/backend/internal/middleware"
	"github.com/plumehq/plume/backend/internal/realtime"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The browser client connects cross-origin from the SPA host.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// identifyMessage is what a client sends to announce who it is.
type identifyMessage struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

// RealtimeHandler upgrades clients to WebSocket and keeps the presence map
// in sync with their lifecycle.
type RealtimeHandler struct {
	hub       *realtime.Hub
	jwtSecret string
	log       *zap.Logger
}

// NewRealtimeHandler creates a new RealtimeHandler
func NewRealtimeHandler(hub *realtime.Hub, jwtSecret string, log *zap.Logger) *RealtimeHandler {
	return &RealtimeHandler{hub: hub, jwtSecret: jwtSecret, log: log}
}

// Serve handles one realtime connection: upgrade, wait for the client to
// identify itself, register its presence, then hold the read loop open until
// disconnect. Registration is what routes live notification pushes here.
func (h *RealtimeHandler) Serve(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	defer conn.Close()

	connID := h.hub.Add(conn)
	defer h.hub.Remove(connID)

	for {
		var msg identifyMessage
		if err := conn.ReadJSON(&msg); err != nil {
			// Normal disconnect path; Remove above unregisters presence.
			return nil
		}
		if msg.Type != "identify" {
			continue
		}

		claims, err := middleware.ParseToken(msg.Token, h.jwtSecret)
		if err != nil {
			h.log.Warn("realtime identify with invalid token", zap.Error(err))
			continue
		}
		userID, err := primitive.ObjectIDFromHex(claims.UserID)
		if err != nil {
			continue
		}
		h.hub.Register(userID, connID)
	}
}
