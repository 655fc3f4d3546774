package trias

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/net/html/charset"
	"oeffimonitor.org/internal/logging"
	"oeffimonitor.org/internal/models"
)

// Config describes how to reach the TRIAS provider.
type Config struct {
	URL            string
	RequestorRef   string
	ResultsPerStop int
	Timeout        time.Duration
	Retries        int
	// RetryInterval is the first backoff step; later steps grow exponentially.
	RetryInterval time.Duration
}

// HTTPError is returned when the provider answers with a non-2xx status.
type HTTPError struct {
	URL        string
	StatusCode int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("trias: %s answered HTTP %d", e.URL, e.StatusCode)
}

// Temporary reports whether retrying the request may succeed.
func (e *HTTPError) Temporary() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// ErrDeliveryFailed is returned when the provider flags its delivery as unsuccessful.
var ErrDeliveryFailed = errors.New("trias: service delivery status false")

// Client talks to a TRIAS 1.2 endpoint over HTTP POST.
type Client struct {
	config     Config
	httpClient *http.Client
	logger     *slog.Logger
	now        func() time.Time
}

// NewClient creates a Client. A nil logger logs through slog.Default.
func NewClient(config Config, logger *slog.Logger) *Client {
	if config.RetryInterval <= 0 {
		config.RetryInterval = 500 * time.Millisecond
	}
	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		logger:     logging.ForComponent(logger, "trias_client"),
		now:        time.Now,
	}
}

// StopEvents fetches the departure board of one stop.
func (c *Client) StopEvents(ctx context.Context, stop models.Stop) ([]models.RawStopEvent, error) {
	req := newStopEventRequest(c.config.RequestorRef, c.now(), stop.ID, stop.Name, c.config.ResultsPerStop)

	var delivery stopEventDelivery
	if err := c.post(ctx, req, &delivery); err != nil {
		return nil, fmt.Errorf("stop events for %q: %w", stop.Name, err)
	}
	if deliveryFailed(delivery.Status) {
		return nil, fmt.Errorf("stop events for %q: %w", stop.Name, ErrDeliveryFailed)
	}

	events := make([]models.RawStopEvent, 0, len(delivery.Results))
	for _, result := range delivery.Results {
		event := result.toModel()
		if event.StopName == "" {
			event.StopName = stop.Name
		}
		events = append(events, event)
	}
	return events, nil
}

// Locations resolves a stop name to candidate positions, best match first.
// No match is an empty slice, not an error.
func (c *Client) Locations(ctx context.Context, name string) ([]models.GeoPosition, error) {
	req := newLocationRequest(c.config.RequestorRef, c.now(), name)

	var delivery locationDelivery
	if err := c.post(ctx, req, &delivery); err != nil {
		return nil, fmt.Errorf("locations for %q: %w", name, err)
	}
	if deliveryFailed(delivery.Status) {
		return nil, fmt.Errorf("locations for %q: %w", name, ErrDeliveryFailed)
	}

	positions := make([]models.GeoPosition, 0, len(delivery.Results))
	for _, result := range delivery.Results {
		if pos, ok := result.toModel(); ok {
			positions = append(positions, pos)
		}
	}
	return positions, nil
}

// post sends one request and decodes the answer into out, retrying transient
// failures with exponential backoff.
func (c *Client) post(ctx context.Context, request triasRequest, out any) error {
	payload, err := xml.Marshal(request)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}
	body := append([]byte(xml.Header), payload...)

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = c.config.RetryInterval
	policy := backoff.WithContext(backoff.WithMaxRetries(expo, uint64(c.config.Retries)), ctx)

	return backoff.RetryNotify(
		func() error { return c.attempt(ctx, body, out) },
		policy,
		func(err error, wait time.Duration) {
			c.logger.Warn("retrying trias request",
				slog.String("error", err.Error()),
				slog.Duration("wait", wait))
		},
	)
}

func (c *Client) attempt(ctx context.Context, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.URL, bytes.NewReader(body))
	if err != nil {
		return backoff.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/xml")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		return err
	}
	defer logging.DrainAndClose(resp.Body, c.logger, "trias_response_body")
	logging.LogUpstreamRequest(c.logger, "trias", c.config.URL, resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		httpErr := &HTTPError{URL: c.config.URL, StatusCode: resp.StatusCode}
		if httpErr.Temporary() {
			return httpErr
		}
		return backoff.Permanent(httpErr)
	}

	decoder := xml.NewDecoder(resp.Body)
	decoder.CharsetReader = charset.NewReaderLabel
	if err := decoder.Decode(out); err != nil {
		return backoff.Permanent(fmt.Errorf("decoding response: %w", err))
	}
	return nil
}
