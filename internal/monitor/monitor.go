// Package monitor runs one aggregation cycle: it fetches the departure boards
// of all configured stops, enriches them with walking durations and merges in
// disruption warnings.
package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"oeffimonitor.org/internal/logging"
	"oeffimonitor.org/internal/models"
)

// StopEventSource is the transit provider.
type StopEventSource interface {
	StopEvents(ctx context.Context, stop models.Stop) ([]models.RawStopEvent, error)
	Locations(ctx context.Context, name string) ([]models.GeoPosition, error)
}

// WalkResolver returns the walking duration in seconds to a position.
type WalkResolver interface {
	Resolve(ctx context.Context, pos models.GeoPosition) (float64, bool)
}

// WarningSource returns current disruption notices.
type WarningSource interface {
	Warnings(ctx context.Context) ([]models.Warning, error)
}

// CoordinateFallback locates stops the transit provider could not locate.
type CoordinateFallback interface {
	Lookup(stop models.Stop) (models.GeoPosition, bool)
}

// Config is the static part of a cycle.
type Config struct {
	Stops   []models.Stop
	Filters []models.FilterRule
	// Notice is appended after every scraped warning. A notice without title
	// and description is left out.
	Notice models.Warning
	// CycleTimeout bounds one Collect call. Zero leaves it to the caller.
	CycleTimeout time.Duration
}

// Monitor aggregates departures. It is safe for concurrent use.
type Monitor struct {
	config   Config
	source   StopEventSource
	walker   WalkResolver
	warnings WarningSource
	fallback CoordinateFallback
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures optional collaborators of a Monitor.
type Option func(*Monitor)

// WithWalkResolver enables walking durations and urgency.
func WithWalkResolver(w WalkResolver) Option {
	return func(m *Monitor) { m.walker = w }
}

// WithWarningSource enables disruption warnings.
func WithWarningSource(s WarningSource) Option {
	return func(m *Monitor) { m.warnings = s }
}

// WithCoordinateFallback sets where stop coordinates come from when the
// provider's location lookup fails or is empty.
func WithCoordinateFallback(f CoordinateFallback) Option {
	return func(m *Monitor) { m.fallback = f }
}

func WithLogger(logger *slog.Logger) Option {
	return func(m *Monitor) { m.logger = logging.ForComponent(logger, "monitor") }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Monitor) { m.now = now }
}

// New creates a Monitor reading departures from source.
func New(config Config, source StopEventSource, opts ...Option) *Monitor {
	m := &Monitor{
		config: config,
		source: source,
		logger: logging.ForComponent(nil, "monitor"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Collect runs one cycle. It always returns an envelope: stops that fail are
// listed in FailedStops, and only when every stop fails is the envelope an
// error.
func (m *Monitor) Collect(ctx context.Context) models.Envelope {
	if m.config.CycleTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.config.CycleTimeout)
		defer cancel()
	}
	start := m.now()

	var wg sync.WaitGroup
	var scraped []models.Warning
	if m.warnings != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			scraped = m.fetchWarnings(ctx)
		}()
	}

	results := make([]stopResult, len(m.config.Stops))
	for i, stop := range m.config.Stops {
		wg.Add(1)
		go func(i int, stop models.Stop) {
			defer wg.Done()
			results[i] = m.fetchStop(ctx, stop)
		}(i, stop)
	}
	wg.Wait()

	warnings := m.withNotice(scraped)

	var failed []string
	var departures []models.Departure
	now := m.now()
	for _, result := range results {
		if result.err != nil {
			failed = append(failed, result.stop.Name)
			continue
		}
		departures = append(departures, m.buildDepartures(result, now)...)
	}

	slices.SortStableFunc(departures, func(a, b models.Departure) int {
		return a.Time.Compare(b.Time)
	})

	logging.LogOperation(m.logger, "cycle_completed",
		slog.Int("stops", len(m.config.Stops)),
		slog.Int("failed_stops", len(failed)),
		slog.Int("departures", len(departures)),
		slog.Int("warnings", len(warnings)),
		slog.Duration("duration", m.now().Sub(start)))

	if len(m.config.Stops) > 0 && len(failed) == len(m.config.Stops) {
		return models.NewErrorEnvelope(
			fmt.Errorf("departures unavailable: all %d stops failed", len(failed)),
			warnings, failed)
	}
	return models.NewOKEnvelope(departures, warnings, failed)
}

// buildDepartures filters the events of one stop and turns them into output
// records.
func (m *Monitor) buildDepartures(result stopResult, now time.Time) []models.Departure {
	departures := make([]models.Departure, 0, len(result.events))
	for _, event := range result.events {
		if Suppressed(m.config.Filters, event.StopName, event.Line) {
			continue
		}
		dep, ok := models.NewDeparture(event)
		if !ok {
			m.logger.Warn("dropping departure without time",
				slog.String("stop", event.StopName),
				slog.String("line", event.Line))
			continue
		}
		if result.walk != nil {
			walk := *result.walk
			dep.WalkDuration = &walk
			dep.WalkStatus = ClassifyWalk(walk, dep.Time.Sub(now).Seconds())
		}
		departures = append(departures, dep)
	}
	return departures
}

func (m *Monitor) fetchWarnings(ctx context.Context) []models.Warning {
	warnings, err := m.warnings.Warnings(ctx)
	if err != nil {
		logging.LogError(m.logger, "disruption scrape failed", err)
		return nil
	}
	return warnings
}

func (m *Monitor) withNotice(scraped []models.Warning) []models.Warning {
	warnings := make([]models.Warning, 0, len(scraped)+1)
	warnings = append(warnings, scraped...)
	if notice := m.config.Notice; notice.Title != "" || notice.Description != "" {
		warnings = append(warnings, notice)
	}
	return warnings
}
