package cache

import (
	"bytes"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/plumehq/plume/backend/internal/middleware"
)

// HeaderCache annotates responses so hits and misses can be told apart in
// diagnostics. Not behaviorally significant.
const HeaderCache = "X-Cache"

const anonymousViewer = "anonymous"

type entry struct {
	status      int
	contentType string
	body        []byte
	expiresAt   time.Time
}

// Store is an in-process TTL cache of rendered response bodies. Entries are
// immutable snapshots of the bytes written by the handler, so later mutation
// of handler data cannot corrupt a hit. Expiry is purely by TTL; writes never
// invalidate, short TTLs bound staleness instead.
type Store struct {
	mu      sync.RWMutex
	entries map[string]entry
	now     func() time.Time
}

// NewStore creates an empty Store
func NewStore() *Store {
	return &Store{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// get returns a fresh entry for the key
func (s *Store) get(key string) (entry, bool) {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok || !s.now().Before(e.expiresAt) {
		return entry{}, false
	}
	return e, true
}

// set stores an entry with the given TTL
func (s *Store) set(key string, e entry, ttl time.Duration) {
	e.expiresAt = s.now().Add(ttl)
	s.mu.Lock()
	s.entries[key] = e
	s.mu.Unlock()
}

// Sweep removes expired entries. Run periodically; correctness does not
// depend on it since Get checks expiry itself.
func (s *Store) Sweep() {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, e := range s.entries {
		if !now.Before(e.expiresAt) {
			delete(s.entries, k)
		}
	}
}

// StartJanitor sweeps the store until stop is closed
func (s *Store) StartJanitor(interval time.Duration, stop <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.Sweep()
			case <-stop:
				return
			}
		}
	}()
}

// Middleware caches GET responses for the route it wraps, with the TTL chosen
// at registration. The key partitions by route path, exact query string, and
// viewer identity, because ranking and visibility differ per viewer. Only
// successful responses are stored; any cache failure falls through to the
// handler.
func Middleware(store *Store, ttl time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().Method != http.MethodGet {
				return next(c)
			}

			key := cacheKey(c)
			if e, ok := store.get(key); ok {
				c.Response().Header().Set(HeaderCache, "HIT")
				return c.Blob(e.status, e.contentType, e.body)
			}

			c.Response().Header().Set(HeaderCache, "MISS")
			rec := &recorder{ResponseWriter: c.Response().Writer}
			c.Response().Writer = rec

			if err := next(c); err != nil {
				return err
			}

			status := c.Response().Status
			if status < http.StatusOK || status >= http.StatusMultipleChoices {
				return nil
			}
			store.set(key, entry{
				status:      status,
				contentType: c.Response().Header().Get(echo.HeaderContentType),
				body:        rec.buf.Bytes(),
			}, ttl)
			return nil
		}
	}
}

func cacheKey(c echo.Context) string {
	viewer := anonymousViewer
	if id, ok := c.Get(middleware.ContextUserID).(string); ok && id != "" {
		viewer = id
	}
	return c.Request().URL.Path + "?" + c.Request().URL.RawQuery + "|" + viewer
}

// recorder tees the response body so a successful render can be stored.
type recorder struct {
	http.ResponseWriter
	buf bytes.Buffer
}

func (r *recorder) Write(b []byte) (int, error) {
	r.buf.Write(b)
	return r.ResponseWriter.Write(b)
}
