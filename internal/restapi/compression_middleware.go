package restapi

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/klauspost/compress/gzhttp"
	"oeffimonitor.org/internal/logging"
)

// A short departures list stays below gzipMinSize and is sent as is.
const (
	gzipMinSize = 512
	gzipLevel   = 6
)

// newGzipJSON returns middleware that gzip encodes JSON bodies of at least
// minSize bytes for clients sending Accept-Encoding: gzip.
func newGzipJSON(minSize, level int) (func(http.Handler) http.Handler, error) {
	wrap, err := gzhttp.NewWrapper(
		gzhttp.MinSize(minSize),
		gzhttp.CompressionLevel(level),
		gzhttp.ContentTypes([]string{"application/json"}),
	)
	if err != nil {
		return nil, fmt.Errorf("configuring gzip: %w", err)
	}
	return func(next http.Handler) http.Handler {
		return wrap(next)
	}, nil
}

// compressed wraps next with the default gzip settings, or returns it
// unchanged if those settings are rejected.
func compressed(next http.Handler, logger *slog.Logger) http.Handler {
	gzipJSON, err := newGzipJSON(gzipMinSize, gzipLevel)
	if err != nil {
		logging.LogError(logger, "response compression disabled", err)
		return next
	}
	return gzipJSON(next)
}
