package models

import "time"

// WalkStatus tells how urgent it is to leave for a departure.
type WalkStatus string

const (
	WalkStatusNone  WalkStatus = ""
	WalkStatusLate  WalkStatus = "late"
	WalkStatusHurry WalkStatus = "hurry"
	WalkStatusSoon  WalkStatus = "soon"
)

// Departure is one entry of the departures list served on /api.
type Departure struct {
	Stop          string       `json:"stop"`
	Coordinates   *GeoPosition `json:"coordinates"`
	Line          string       `json:"line"`
	Type          string       `json:"type"`
	Towards       string       `json:"towards"`
	BarrierFree   bool         `json:"barrierFree"`
	Time          time.Time    `json:"time"`
	TimePlanned   *time.Time   `json:"timePlanned,omitempty"`
	TimeEstimated *time.Time   `json:"timeEstimated,omitempty"`
	TimeReal      *time.Time   `json:"timeReal,omitempty"`
	WalkDuration  *float64     `json:"walkDuration,omitempty"`
	WalkStatus    WalkStatus   `json:"walkStatus,omitempty"`
}

// NewDeparture builds the output record for a raw event. ok is false when the
// event carries no time at all.
func NewDeparture(e RawStopEvent) (Departure, bool) {
	t, ok := e.BestTime()
	if !ok {
		return Departure{}, false
	}
	return Departure{
		Stop:          e.StopName,
		Coordinates:   e.Position,
		Line:          e.Line,
		Type:          e.Mode,
		Towards:       e.Destination,
		BarrierFree:   e.BarrierFree,
		Time:          t,
		TimePlanned:   e.Timetabled,
		TimeEstimated: e.Estimated,
		TimeReal:      e.Recorded,
	}, true
}
