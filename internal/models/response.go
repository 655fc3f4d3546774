package models

import "time"

const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Envelope is the body of every /api response.
type Envelope struct {
	Status      string      `json:"status"`
	CurrentTime int64       `json:"currentTime"`
	Departures  []Departure `json:"departures"`
	Warnings    []Warning   `json:"warnings"`
	FailedStops []string    `json:"failedStops,omitempty"`
	Error       string      `json:"error,omitempty"`
}

// NewOKEnvelope wraps a finished cycle. failedStops names the stops whose
// departures could not be fetched.
func NewOKEnvelope(departures []Departure, warnings []Warning, failedStops []string) Envelope {
	if departures == nil {
		departures = []Departure{}
	}
	if warnings == nil {
		warnings = []Warning{}
	}
	return Envelope{
		Status:      StatusOK,
		CurrentTime: ResponseCurrentTime(),
		Departures:  departures,
		Warnings:    warnings,
		FailedStops: failedStops,
	}
}

// NewErrorEnvelope reports a cycle that produced no usable departures.
func NewErrorEnvelope(err error, warnings []Warning, failedStops []string) Envelope {
	env := NewOKEnvelope(nil, warnings, failedStops)
	env.Status = StatusError
	env.Error = err.Error()
	return env
}

// ResponseCurrentTime returns the current time in epoch milliseconds.
func ResponseCurrentTime() int64 {
	return time.Now().UnixMilli()
}
