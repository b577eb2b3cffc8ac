package cache

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plumehq/plume/backend/internal/middleware"
)

// countingHandler renders a body that changes on every real invocation, so a
// cache hit is distinguishable from a recompute.
type countingHandler struct {
	calls  int
	status int
}

func (h *countingHandler) handle(c echo.Context) error {
	h.calls++
	status := h.status
	if status == 0 {
		status = http.StatusOK
	}
	return c.JSON(status, map[string]int{"calls": h.calls})
}

func doGET(t *testing.T, handler echo.HandlerFunc, target, viewer string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if viewer != "" {
		c.Set(middleware.ContextUserID, viewer)
	}
	require.NoError(t, handler(c))
	return rec
}

func TestMiddlewareHitReplaysBody(t *testing.T) {
	store := NewStore()
	h := &countingHandler{}
	wrapped := Middleware(store, 30*time.Second)(h.handle)

	first := doGET(t, wrapped, "/posts?page=1", "")
	second := doGET(t, wrapped, "/posts?page=1", "")

	assert.Equal(t, 1, h.calls)
	assert.Equal(t, "MISS", first.Header().Get(HeaderCache))
	assert.Equal(t, "HIT", second.Header().Get(HeaderCache))
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, http.StatusOK, second.Code)
}

func TestMiddlewareKeyIncludesQuery(t *testing.T) {
	store := NewStore()
	h := &countingHandler{}
	wrapped := Middleware(store, 30*time.Second)(h.handle)

	doGET(t, wrapped, "/posts?page=1", "")
	doGET(t, wrapped, "/posts?page=2", "")

	assert.Equal(t, 2, h.calls)
}

func TestMiddlewarePartitionsByViewer(t *testing.T) {
	store := NewStore()
	h := &countingHandler{}
	wrapped := Middleware(store, 30*time.Second)(h.handle)

	alice := doGET(t, wrapped, "/posts", "aaaaaaaaaaaaaaaaaaaaaaaa")
	bob := doGET(t, wrapped, "/posts", "bbbbbbbbbbbbbbbbbbbbbbbb")
	anon := doGET(t, wrapped, "/posts", "")

	assert.Equal(t, 3, h.calls)
	assert.Equal(t, "MISS", alice.Header().Get(HeaderCache))
	assert.Equal(t, "MISS", bob.Header().Get(HeaderCache))
	assert.Equal(t, "MISS", anon.Header().Get(HeaderCache))

	again := doGET(t, wrapped, "/posts", "aaaaaaaaaaaaaaaaaaaaaaaa")
	assert.Equal(t, 3, h.calls)
	assert.Equal(t, "HIT", again.Header().Get(HeaderCache))
}

func TestMiddlewareEntryExpires(t *testing.T) {
	store := NewStore()
	now := time.Now()
	store.now = func() time.Time { return now }

	h := &countingHandler{}
	wrapped := Middleware(store, 30*time.Second)(h.handle)

	doGET(t, wrapped, "/posts", "")
	now = now.Add(29 * time.Second)
	doGET(t, wrapped, "/posts", "")
	assert.Equal(t, 1, h.calls)

	now = now.Add(2 * time.Second)
	rec := doGET(t, wrapped, "/posts", "")
	assert.Equal(t, 2, h.calls)
	assert.Equal(t, "MISS", rec.Header().Get(HeaderCache))
}

func TestMiddlewareSkipsErrorResponses(t *testing.T) {
	store := NewStore()
	h := &countingHandler{status: http.StatusInternalServerError}
	wrapped := Middleware(store, 30*time.Second)(h.handle)

	doGET(t, wrapped, "/posts", "")
	doGET(t, wrapped, "/posts", "")

	assert.Equal(t, 2, h.calls)
}

func TestMiddlewareIgnoresWrites(t *testing.T) {
	store := NewStore()
	h := &countingHandler{}
	wrapped := Middleware(store, 30*time.Second)(h.handle)

	e := echo.New()
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/posts", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		require.NoError(t, wrapped(c))
		assert.Empty(t, rec.Header().Get(HeaderCache))
	}
	assert.Equal(t, 2, h.calls)
}

func TestStoreSweep(t *testing.T) {
	store := NewStore()
	now := time.Now()
	store.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		store.set("key-"+strconv.Itoa(i), entry{status: http.StatusOK}, time.Duration(i+1)*time.Minute)
	}
	now = now.Add(90 * time.Second)
	store.Sweep()

	_, ok := store.get("key-0")
	assert.False(t, ok)
	_, ok = store.get("key-1")
	assert.True(t, ok)
	_, ok = store.get("key-2")
	assert.True(t, ok)
}
