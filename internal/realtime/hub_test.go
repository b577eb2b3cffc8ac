package realtime

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type fakeConn struct {
	written []interface{}
	err     error
	closed  bool
}

func (c *fakeConn) WriteJSON(v interface{}) error {
	if c.err != nil {
		return c.err
	}
	c.written = append(c.written, v)
	return nil
}

func (c *fakeConn) Close() error {
	c.closed = true
	return nil
}

func TestHubRegisterAndResolve(t *testing.T) {
	hub := NewHub(zap.NewNop())
	userID := primitive.NewObjectID()

	_, ok := hub.Resolve(userID)
	assert.False(t, ok)

	connID := hub.Add(&fakeConn{})
	hub.Register(userID, connID)

	got, ok := hub.Resolve(userID)
	require.True(t, ok)
	assert.Equal(t, connID, got)
}

func TestHubLastRegisterWins(t *testing.T) {
	hub := NewHub(zap.NewNop())
	userID := primitive.NewObjectID()

	first := hub.Add(&fakeConn{})
	second := hub.Add(&fakeConn{})
	hub.Register(userID, first)
	hub.Register(userID, second)

	got, ok := hub.Resolve(userID)
	require.True(t, ok)
	assert.Equal(t, second, got)
}

func TestHubStaleUnregisterIsNoop(t *testing.T) {
	hub := NewHub(zap.NewNop())
	userID := primitive.NewObjectID()

	stale := hub.Add(&fakeConn{})
	hub.Register(userID, stale)

	fresh := hub.Add(&fakeConn{})
	hub.Register(userID, fresh)

	// The old device disconnects after the new one registered.
	hub.Unregister(stale)

	got, ok := hub.Resolve(userID)
	require.True(t, ok)
	assert.Equal(t, fresh, got)
}

func TestHubRemoveClearsPresence(t *testing.T) {
	hub := NewHub(zap.NewNop())
	userID := primitive.NewObjectID()

	connID := hub.Add(&fakeConn{})
	hub.Register(userID, connID)
	hub.Remove(connID)

	_, ok := hub.Resolve(userID)
	assert.False(t, ok)
	assert.ErrorIs(t, hub.Push(connID, Event{}), ErrConnGone)
}

func TestHubRemoveKeepsNewerRegistration(t *testing.T) {
	hub := NewHub(zap.NewNop())
	userID := primitive.NewObjectID()

	stale := hub.Add(&fakeConn{})
	hub.Register(userID, stale)
	fresh := hub.Add(&fakeConn{})
	hub.Register(userID, fresh)

	hub.Remove(stale)

	got, ok := hub.Resolve(userID)
	require.True(t, ok)
	assert.Equal(t, fresh, got)
}

func TestHubPush(t *testing.T) {
	hub := NewHub(zap.NewNop())
	conn := &fakeConn{}
	connID := hub.Add(conn)

	ev := Event{Type: "like", From: "alice"}
	require.NoError(t, hub.Push(connID, ev))
	require.Len(t, conn.written, 1)
	assert.Equal(t, ev, conn.written[0])
}

func TestHubPushWriteError(t *testing.T) {
	hub := NewHub(zap.NewNop())
	wantErr := errors.New("broken pipe")
	connID := hub.Add(&fakeConn{err: wantErr})

	assert.ErrorIs(t, hub.Push(connID, Event{Type: "follow"}), wantErr)
}
