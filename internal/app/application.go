package app

import (
	"context"
	"log/slog"

	"oeffimonitor.org/internal/appconf"
	"oeffimonitor.org/internal/models"
)

const (
	Version    = "1.0.0"
	ProjectURL = "https://github.com/massitheduck/oeffimonitor"
)

// DepartureCollector runs one aggregation cycle.
type DepartureCollector interface {
	Collect(ctx context.Context) models.Envelope
}

// Application holds the dependencies for our HTTP handlers, helpers,
// and middleware.
type Application struct {
	Config     appconf.Config
	Logger     *slog.Logger
	Departures DepartureCollector
}

// UserAgent identifies the monitor towards third-party services.
func UserAgent() string {
	return "Oeffimonitor/" + Version + " <" + ProjectURL + ">"
}
