package models

import (
	"encoding/json"
	"fmt"
	"math"
)

// GeoPosition is a WGS84 coordinate. On the wire it is the array [longitude, latitude].
type GeoPosition struct {
	Longitude float64
	Latitude  float64
}

func (p GeoPosition) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{p.Longitude, p.Latitude})
}

func (p *GeoPosition) UnmarshalJSON(data []byte) error {
	var pair []float64
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("coordinates: expected [lon, lat], got %d values", len(pair))
	}
	p.Longitude, p.Latitude = pair[0], pair[1]
	return nil
}

// Rounded returns the position with both axes rounded to the given number of decimals.
func (p GeoPosition) Rounded(decimals int) GeoPosition {
	scale := math.Pow(10, float64(decimals))
	return GeoPosition{
		Longitude: math.Round(p.Longitude*scale) / scale,
		Latitude:  math.Round(p.Latitude*scale) / scale,
	}
}

// Valid reports whether the position lies inside the WGS84 range.
func (p GeoPosition) Valid() bool {
	return p.Latitude >= -90 && p.Latitude <= 90 && p.Longitude >= -180 && p.Longitude <= 180
}
