package monitor

import (
	"context"
	"log/slog"
	"sync"

	"oeffimonitor.org/internal/logging"
	"oeffimonitor.org/internal/models"
)

type stopResult struct {
	stop   models.Stop
	events []models.RawStopEvent
	walk   *float64
	err    error
}

// fetchStop requests the departure board and the location of stop in
// parallel. Only a failed board fails the stop; a missing location just
// leaves its departures without coordinates and walking data.
func (m *Monitor) fetchStop(ctx context.Context, stop models.Stop) stopResult {
	var (
		wg        sync.WaitGroup
		events    []models.RawStopEvent
		boardErr  error
		positions []models.GeoPosition
		locErr    error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		events, boardErr = m.source.StopEvents(ctx, stop)
	}()
	go func() {
		defer wg.Done()
		positions, locErr = m.source.Locations(ctx, stop.Name)
	}()
	wg.Wait()

	logger := m.logger.With(slog.String("stop", stop.Name), slog.String("stop_id", stop.ID))
	if boardErr != nil {
		logging.LogError(logger, "departure board unavailable", boardErr)
		return stopResult{stop: stop, err: boardErr}
	}
	if locErr != nil {
		logging.LogError(logger, "stop location unavailable", locErr)
	}

	result := stopResult{stop: stop, events: events}
	pos, ok := m.position(stop, positions)
	if !ok {
		logger.Debug("stop has no coordinates")
		return result
	}

	for i := range result.events {
		result.events[i].Position = &pos
	}
	if m.walker != nil {
		if seconds, ok := m.walker.Resolve(ctx, pos); ok {
			result.walk = &seconds
		}
	}
	return result
}

// position picks the best match of the provider's lookup, or the fallback
// index when the provider found nothing.
func (m *Monitor) position(stop models.Stop, positions []models.GeoPosition) (models.GeoPosition, bool) {
	if len(positions) > 0 {
		return positions[0], true
	}
	if m.fallback != nil {
		return m.fallback.Lookup(stop)
	}
	return models.GeoPosition{}, false
}
