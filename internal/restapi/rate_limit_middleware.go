package restapi

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const limiterCleanupInterval = 5 * time.Minute

// RateLimitMiddleware provides per-client rate limiting keyed by remote IP
type RateLimitMiddleware struct {
	limiters    map[string]*rate.Limiter
	mu          sync.RWMutex
	rateLimit   rate.Limit
	burstSize   int
	cleanupTick *time.Ticker
	done        chan struct{}
	stopOnce    sync.Once
	exemptIPs   map[string]bool
}

// NewRateLimitMiddleware allows ratePerInterval requests per interval and
// client. A rate <= 0 turns limiting off.
func NewRateLimitMiddleware(ratePerInterval int, interval time.Duration, exemptIPs []string) *RateLimitMiddleware {
	rl := &RateLimitMiddleware{
		limiters:  make(map[string]*rate.Limiter),
		rateLimit: rate.Inf,
		burstSize: ratePerInterval,
		done:      make(chan struct{}),
		exemptIPs: make(map[string]bool, len(exemptIPs)),
	}
	for _, ip := range exemptIPs {
		rl.exemptIPs[ip] = true
	}
	if ratePerInterval <= 0 {
		return rl
	}

	rl.rateLimit = rate.Every(interval / time.Duration(ratePerInterval))
	rl.cleanupTick = time.NewTicker(limiterCleanupInterval)
	go rl.cleanup()
	return rl
}

// Enabled reports whether requests are limited at all.
func (rl *RateLimitMiddleware) Enabled() bool {
	return rl.rateLimit != rate.Inf
}

// getLimiter gets or creates a rate limiter for the given client
func (rl *RateLimitMiddleware) getLimiter(client string) *rate.Limiter {
	rl.mu.RLock()
	limiter, exists := rl.limiters[client]
	rl.mu.RUnlock()

	if exists {
		return limiter
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	// Double-check after acquiring write lock
	if limiter, exists := rl.limiters[client]; exists {
		return limiter
	}

	limiter = rate.NewLimiter(rl.rateLimit, rl.burstSize)
	rl.limiters[client] = limiter
	return limiter
}

// Handler is the HTTP middleware function
func (rl *RateLimitMiddleware) Handler(next http.Handler) http.Handler {
	if !rl.Enabled() {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		client := clientIP(r)
		if rl.exemptIPs[client] {
			next.ServeHTTP(w, r)
			return
		}

		if !rl.getLimiter(client).Allow() {
			rl.sendRateLimitExceeded(w, r)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// sendRateLimitExceeded sends a 429 Too Many Requests response
func (rl *RateLimitMiddleware) sendRateLimitExceeded(w http.ResponseWriter, r *http.Request) {
	retryAfter := time.Duration(float64(time.Second) / float64(rl.rateLimit))
	seconds := int(retryAfter.Seconds())
	if seconds < 1 {
		seconds = 1
	}

	w.Header().Set("Retry-After", strconv.Itoa(seconds))
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.burstSize))
	w.Header().Set("X-RateLimit-Remaining", "0")
	writeErrorResponse(w, r, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
}

// cleanup periodically removes idle limiters
func (rl *RateLimitMiddleware) cleanup() {
	for {
		select {
		case <-rl.cleanupTick.C:
			rl.mu.Lock()
			for client, limiter := range rl.limiters {
				// A full bucket has not been touched for a while
				if limiter.Tokens() >= float64(rl.burstSize) {
					delete(rl.limiters, client)
				}
			}
			rl.mu.Unlock()
		case <-rl.done:
			return
		}
	}
}

// Stop stops the cleanup goroutine
func (rl *RateLimitMiddleware) Stop() {
	rl.stopOnce.Do(func() {
		if rl.cleanupTick != nil {
			rl.cleanupTick.Stop()
		}
		close(rl.done)
	})
}

// clientIP is the host part of the remote address. Forwarding headers are
// not trusted.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
