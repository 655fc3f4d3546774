package restapi

import (
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bluele/gcache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponseCacheMaxAgeCountsDown(t *testing.T) {
	clock := gcache.NewFakeClock()
	cache := newResponseCache(15*time.Second, clock)

	var calls atomic.Int32
	handler := cache.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))

	rec := serve(handler, http.MethodGet, "/api")
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	assert.Equal(t, "public, max-age=15", rec.Header().Get("Cache-Control"))

	clock.Advance(6 * time.Second)
	rec = serve(handler, http.MethodGet, "/api")
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
	assert.Equal(t, "public, max-age=9", rec.Header().Get("Cache-Control"))

	clock.Advance(8500 * time.Millisecond)
	rec = serve(handler, http.MethodGet, "/api")
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
	assert.Equal(t, "public, max-age=1", rec.Header().Get("Cache-Control"))

	clock.Advance(time.Second)
	rec = serve(handler, http.MethodGet, "/api")
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	assert.Equal(t, "public, max-age=15", rec.Header().Get("Cache-Control"))
	assert.Equal(t, int32(2), calls.Load())
}

func TestResponseCacheSharesFailedCycle(t *testing.T) {
	cache := NewResponseCache(time.Minute)

	var calls atomic.Int32
	handler := cache.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		time.Sleep(100 * time.Millisecond)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"status":"error"}`))
	}))

	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec := serve(handler, http.MethodGet, "/api")
			assert.Equal(t, http.StatusBadGateway, rec.Code)
			assert.Equal(t, `{"status":"error"}`, rec.Body.String())
			assert.Empty(t, rec.Header().Get("Cache-Control"))
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), calls.Load(), "waiting requests reuse the failed cycle")

	t.Run("a later request starts a new cycle", func(t *testing.T) {
		rec := serve(handler, http.MethodGet, "/api")
		require.Equal(t, http.StatusBadGateway, rec.Code)
		assert.Equal(t, int32(2), calls.Load())
	})
}
