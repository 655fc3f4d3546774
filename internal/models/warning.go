package models

// Warning is a service disruption notice shown below the departures.
type Warning struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}
