package handlers

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/plumehq/plume/backend/internal/models"
	"github.com/plumehq/plume/backend/internal/realtime"
)

func dialRealtime(t *testing.T, hub *realtime.Hub, secret string) *websocket.Conn {
	t.Helper()
	e := echo.New()
	h := NewRealtimeHandler(hub, secret, zap.NewNop())
	e.GET("/ws", h.Serve)
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	return conn
}

func realtimeToken(t *testing.T, secret string, userID primitive.ObjectID) string {
	t.Helper()
	claims := &models.JwtCustomClaims{
		UserID:   userID.Hex(),
		Username: "alice",
		Role:     models.RoleUser,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestRealtimeServeLifecycle(t *testing.T) {
	hub := realtime.NewHub(zap.NewNop())
	userID := primitive.NewObjectID()
	conn := dialRealtime(t, hub, testSecret)

	require.NoError(t, conn.WriteJSON(identifyMessage{
		Type:  "identify",
		Token: realtimeToken(t, testSecret, userID),
	}))
	assert.Eventually(t, func() bool {
		_, ok := hub.Resolve(userID)
		return ok
	}, time.Second, 10*time.Millisecond)

	// Disconnect tears the presence entry down with the connection.
	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool {
		_, ok := hub.Resolve(userID)
		return !ok
	}, time.Second, 10*time.Millisecond)
}

func TestRealtimeServeRejectsInvalidToken(t *testing.T) {
	hub := realtime.NewHub(zap.NewNop())
	userID := primitive.NewObjectID()
	conn := dialRealtime(t, hub, testSecret)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(identifyMessage{
		Type:  "identify",
		Token: realtimeToken(t, "other-secret", userID),
	}))
	require.NoError(t, conn.WriteJSON(identifyMessage{
		Type:  "identify",
		Token: realtimeToken(t, testSecret, userID),
	}))
	// Only the validly signed identify registers presence.
	assert.Eventually(t, func() bool {
		_, ok := hub.Resolve(userID)
		return ok
	}, time.Second, 10*time.Millisecond)
}
