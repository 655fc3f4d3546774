// Package walk resolves walking durations from the monitor's location to a stop
// through an OSRM compatible routing engine.
package walk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/bluele/gcache"
	"oeffimonitor.org/internal/logging"
	"oeffimonitor.org/internal/models"
)

// keyPrecision is the number of decimals coordinates are rounded to before
// they become a cache key (roughly one metre).
const keyPrecision = 5

var errNoRoute = errors.New("routing response contains no route")

// Config describes the routing engine and the duration cache.
type Config struct {
	// BaseURL is the route endpoint up to and including the origin waypoint,
	// e.g. "https://router.project-osrm.org/route/v1/foot/15.45,47.06;".
	// An empty BaseURL disables walking durations.
	BaseURL   string
	CacheSize int
	// CacheTTL of zero keeps entries until they are evicted.
	CacheTTL  time.Duration
	Timeout   time.Duration
	UserAgent string
}

// Resolver looks up and caches walking durations in seconds.
type Resolver struct {
	config     Config
	cache      gcache.Cache
	httpClient *http.Client
	logger     *slog.Logger
}

type routeResponse struct {
	Routes []struct {
		Duration float64 `json:"duration"`
	} `json:"routes"`
}

// NewResolver builds a Resolver with an LRU cache bounded by config.CacheSize.
func NewResolver(config Config, logger *slog.Logger) *Resolver {
	size := config.CacheSize
	if size <= 0 {
		size = 1
	}
	builder := gcache.New(size).LRU()
	if config.CacheTTL > 0 {
		builder = builder.Expiration(config.CacheTTL)
	}

	return &Resolver{
		config:     config,
		cache:      builder.Build(),
		httpClient: &http.Client{Timeout: config.Timeout},
		logger:     logging.ForComponent(logger, "walk_resolver"),
	}
}

// Enabled reports whether a routing engine is configured.
func (r *Resolver) Enabled() bool {
	return r.config.BaseURL != ""
}

// Resolve returns the walking duration to pos. ok is false when routing is
// disabled or the engine gave no usable answer; such results are not cached.
func (r *Resolver) Resolve(ctx context.Context, pos models.GeoPosition) (float64, bool) {
	if !r.Enabled() {
		return 0, false
	}

	key := cacheKey(pos)
	if cached, err := r.cache.Get(key); err == nil {
		if seconds, ok := cached.(float64); ok {
			return seconds, true
		}
	}

	seconds, err := r.fetch(ctx, key)
	if err != nil {
		r.logger.Debug("walking duration unavailable",
			slog.String("destination", key),
			slog.String("error", err.Error()))
		return 0, false
	}

	if err := r.cache.Set(key, seconds); err != nil {
		logging.LogError(r.logger, "caching walking duration", err, slog.String("destination", key))
	}
	return seconds, true
}

func (r *Resolver) fetch(ctx context.Context, destination string) (float64, error) {
	url := r.config.BaseURL + destination + "?overview=false"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	if r.config.UserAgent != "" {
		req.Header.Set("User-Agent", r.config.UserAgent)
	}

	start := time.Now()
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer logging.DrainAndClose(resp.Body, r.logger, "routing_response_body")
	logging.LogUpstreamRequest(r.logger, "routing", url, resp.StatusCode, time.Since(start))

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("routing status %d", resp.StatusCode)
	}

	var route routeResponse
	if err := json.NewDecoder(resp.Body).Decode(&route); err != nil {
		return 0, fmt.Errorf("decoding routing response: %w", err)
	}
	if len(route.Routes) == 0 {
		return 0, errNoRoute
	}
	return route.Routes[0].Duration, nil
}

// Close drops every cached duration.
func (r *Resolver) Close() {
	r.cache.Purge()
}

// cacheKey renders the rounded destination the way it is sent to the engine.
func cacheKey(pos models.GeoPosition) string {
	p := pos.Rounded(keyPrecision)
	return strconv.FormatFloat(p.Longitude, 'f', -1, 64) + "," + strconv.FormatFloat(p.Latitude, 'f', -1, 64)
}
