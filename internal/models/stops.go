package models

import "time"

// Stop is one monitored stop as configured.
type Stop struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// RawStopEvent is one departure as delivered by the transit provider, before
// filtering and time resolution.
type RawStopEvent struct {
	StopName    string
	Line        string
	Mode        string
	Destination string
	Recorded    *time.Time
	Estimated   *time.Time
	Timetabled  *time.Time
	BarrierFree bool
	Position    *GeoPosition
}

// BestTime returns the most accurate known departure time: recorded before
// estimated before timetabled. ok is false when none is present.
func (e RawStopEvent) BestTime() (t time.Time, ok bool) {
	switch {
	case e.Recorded != nil:
		return *e.Recorded, true
	case e.Estimated != nil:
		return *e.Estimated, true
	case e.Timetabled != nil:
		return *e.Timetabled, true
	default:
		return time.Time{}, false
	}
}
