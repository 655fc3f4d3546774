// Package gtfs provides stop coordinates from a static GTFS feed. The monitor
// falls back to it when the transit provider cannot locate a stop.
package gtfs

import (
	"context"
	"log/slog"
	"time"

	"github.com/jamespfennell/gtfs"
	"oeffimonitor.org/internal/logging"
	"oeffimonitor.org/internal/models"
)

// StopIndex looks up stop coordinates by stop_id or stop_name.
type StopIndex struct {
	byID   map[string]models.GeoPosition
	byName map[string]models.GeoPosition
}

// NewStopIndex indexes stops. Stops without coordinates are ignored, and when
// several stops share a name the first one in feed order wins.
func NewStopIndex(stops []gtfs.Stop) *StopIndex {
	index := &StopIndex{
		byID:   make(map[string]models.GeoPosition, len(stops)),
		byName: make(map[string]models.GeoPosition, len(stops)),
	}
	for _, stop := range stops {
		if stop.Latitude == nil || stop.Longitude == nil {
			continue
		}
		pos := models.GeoPosition{Longitude: *stop.Longitude, Latitude: *stop.Latitude}
		if !pos.Valid() {
			continue
		}
		if stop.Id != "" {
			index.byID[stop.Id] = pos
		}
		if _, seen := index.byName[stop.Name]; !seen && stop.Name != "" {
			index.byName[stop.Name] = pos
		}
	}
	return index
}

// LoadStopIndex downloads or reads the feed at source (an http(s) URL or a
// local zip path) and indexes its stops.
func LoadStopIndex(ctx context.Context, source string, logger *slog.Logger) (*StopIndex, error) {
	logger = logging.ForComponent(logger, "gtfs_stop_index")
	start := time.Now()

	staticData, err := loadGTFSData(ctx, source, logger)
	if err != nil {
		return nil, err
	}

	index := NewStopIndex(staticData.Stops)
	logging.LogOperation(logger, "gtfs_stop_index_loaded",
		slog.String("source", source),
		slog.Int("stops", index.Len()),
		slog.Duration("duration", time.Since(start)))
	return index, nil
}

// Lookup returns the coordinates of stop, matching its ID before its name.
// A nil index finds nothing.
func (i *StopIndex) Lookup(stop models.Stop) (models.GeoPosition, bool) {
	if i == nil {
		return models.GeoPosition{}, false
	}
	if pos, ok := i.byID[stop.ID]; ok {
		return pos, true
	}
	pos, ok := i.byName[stop.Name]
	return pos, ok
}

// Len is the number of stops with usable coordinates.
func (i *StopIndex) Len() int {
	if i == nil {
		return 0
	}
	return len(i.byID)
}
