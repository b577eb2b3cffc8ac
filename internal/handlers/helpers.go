package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/plumehq/plume/backend/internal/middleware"
	"github.com/plumehq/plume/backend/internal/models"
)

// timeNow is swapped in tests
var timeNow = time.Now

// viewerID extracts the authenticated viewer's id from the context, if any
func viewerID(c echo.Context) (primitive.ObjectID, bool) {
	raw, ok := c.Get(middleware.ContextUserID).(string)
	if !ok || raw == "" {
		return primitive.NilObjectID, false
	}
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return primitive.NilObjectID, false
	}
	return id, true
}

// requireViewer returns the viewer's id or a 401
func requireViewer(c echo.Context) (primitive.ObjectID, error) {
	id, ok := viewerID(c)
	if !ok {
		return primitive.NilObjectID, echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}
	return id, nil
}

// viewerActor builds the acting user from context claims; enough for the
// notification engine, which only needs the id and username.
func viewerActor(c echo.Context) (*models.User, bool) {
	id, ok := viewerID(c)
	if !ok {
		return nil, false
	}
	username, _ := c.Get(middleware.ContextUsername).(string)
	return &models.User{ID: id, Username: username}, true
}

func viewerIsAdmin(c echo.Context) bool {
	role, _ := c.Get(middleware.ContextRole).(string)
	return role == models.RoleAdmin
}
