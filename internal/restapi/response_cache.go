package restapi

import (
	"bytes"
	"net/http"
	"strconv"
	"time"

	"github.com/bluele/gcache"
	"golang.org/x/sync/singleflight"
)

// responseCacheSize bounds the number of distinct URLs kept.
const responseCacheSize = 64

type cachedResponse struct {
	header  http.Header
	body    []byte
	expires time.Time
}

// ResponseCache keeps successful GET responses for a fixed TTL. Concurrent
// misses for one URL share a single upstream cycle and its result, whether
// that result is cached or not.
type ResponseCache struct {
	ttl    time.Duration
	clock  gcache.Clock
	store  gcache.Cache
	misses singleflight.Group
}

// NewResponseCache creates a cache. A ttl <= 0 disables caching.
func NewResponseCache(ttl time.Duration) *ResponseCache {
	return newResponseCache(ttl, gcache.NewRealClock())
}

func newResponseCache(ttl time.Duration, clock gcache.Clock) *ResponseCache {
	c := &ResponseCache{ttl: ttl, clock: clock}
	if ttl > 0 {
		c.store = gcache.New(responseCacheSize).LRU().Expiration(ttl).Clock(clock).Build()
	}
	return c
}

// Enabled reports whether responses are cached at all.
func (c *ResponseCache) Enabled() bool {
	return c.store != nil
}

// Middleware serves GET requests from the cache and stores 200 responses of next.
func (c *ResponseCache) Middleware(next http.Handler) http.Handler {
	if !c.Enabled() {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			next.ServeHTTP(w, r)
			return
		}

		key := r.Method + " " + r.URL.String()
		if cached, ok := c.get(key); ok {
			c.write(w, cached, "HIT")
			return
		}

		result, _, _ := c.misses.Do(key, func() (any, error) {
			if cached, ok := c.get(key); ok {
				return cached, nil
			}

			rec := &bufferedResponse{header: make(http.Header), status: http.StatusOK}
			next.ServeHTTP(rec, r)
			if rec.status != http.StatusOK {
				return rec, nil
			}

			entry := cachedResponse{
				header:  rec.header.Clone(),
				body:    rec.body.Bytes(),
				expires: c.clock.Now().Add(c.ttl),
			}
			_ = c.store.Set(key, entry)
			return entry, nil
		})

		switch res := result.(type) {
		case cachedResponse:
			c.write(w, res, "MISS")
		case *bufferedResponse:
			res.flush(w)
		}
	})
}

// Purge drops every cached response.
func (c *ResponseCache) Purge() {
	if c.Enabled() {
		c.store.Purge()
	}
}

func (c *ResponseCache) get(key string) (cachedResponse, bool) {
	value, err := c.store.Get(key)
	if err != nil {
		return cachedResponse{}, false
	}
	entry, ok := value.(cachedResponse)
	return entry, ok
}

// maxAge is the remaining lifetime of entry in whole seconds, rounded up so a
// fresh entry advertises the full TTL.
func (c *ResponseCache) maxAge(entry cachedResponse) int {
	remaining := entry.expires.Sub(c.clock.Now())
	if remaining <= 0 {
		return 0
	}
	return int((remaining + time.Second - 1) / time.Second)
}

func (c *ResponseCache) write(w http.ResponseWriter, entry cachedResponse, state string) {
	for name, values := range entry.header {
		w.Header()[name] = values
	}
	w.Header().Set("Cache-Control", "public, max-age="+strconv.Itoa(c.maxAge(entry)))
	w.Header().Set("X-Cache", state)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(entry.body)
}

// bufferedResponse collects a handler's response so it can be cached before
// it is sent.
type bufferedResponse struct {
	header      http.Header
	status      int
	wroteHeader bool
	body        bytes.Buffer
}

func (b *bufferedResponse) Header() http.Header {
	return b.header
}

func (b *bufferedResponse) WriteHeader(code int) {
	if b.wroteHeader {
		return
	}
	b.status = code
	b.wroteHeader = true
}

func (b *bufferedResponse) Write(p []byte) (int, error) {
	b.wroteHeader = true
	return b.body.Write(p)
}

func (b *bufferedResponse) flush(w http.ResponseWriter) {
	for name, values := range b.header {
		w.Header()[name] = values
	}
	w.WriteHeader(b.status)
	_, _ = w.Write(b.body.Bytes())
}
