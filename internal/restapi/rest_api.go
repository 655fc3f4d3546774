package restapi

import (
	"net/http"
	"time"

	"oeffimonitor.org/internal/app"
	"oeffimonitor.org/internal/logging"
)

type RestAPI struct {
	*app.Application
	cache       *ResponseCache
	rateLimiter *RateLimitMiddleware
}

// NewRestAPI creates a new RestAPI instance with initialized rate limiter and
// response cache
func NewRestAPI(app *app.Application) *RestAPI {
	return &RestAPI{
		Application: app,
		cache:       NewResponseCache(app.Config.APICacheTTL()),
		rateLimiter: NewRateLimitMiddleware(app.Config.RateLimit, time.Second, app.Config.RateLimitExempt),
	}
}

// Handler returns the complete middleware chain around the router.
func (api *RestAPI) Handler() http.Handler {
	logger := logging.ForComponent(api.Logger, "http_server")

	var handler http.Handler = api.routes()
	handler = compressed(handler, logger)
	handler = api.rateLimiter.Handler(handler)
	handler = securityHeaders(handler)
	handler = NewRequestLoggingMiddleware(logger)(handler)
	return handler
}

// Shutdown stops background work and drops cached responses.
func (api *RestAPI) Shutdown() {
	api.rateLimiter.Stop()
	api.cache.Purge()
}
