package trias

import (
	"strconv"
	"strings"
	"time"

	"oeffimonitor.org/internal/models"
)

// Element names are matched on their local part, so the trias: prefix of the
// provider's responses needs no namespace handling.

type stopEventDelivery struct {
	Status  string            `xml:"ServiceDelivery>Status"`
	Results []stopEventResult `xml:"ServiceDelivery>DeliveryPayload>StopEventResponse>StopEventResult"`
}

type stopEventResult struct {
	CallAtStop callAtStop `xml:"StopEvent>ThisCall>CallAtStop"`
	Service    service    `xml:"StopEvent>Service"`
}

type callAtStop struct {
	StopPointName string `xml:"StopPointName>Text"`
	Timetabled    string `xml:"ServiceDeparture>TimetabledTime"`
	Estimated     string `xml:"ServiceDeparture>EstimatedTime"`
	Recorded      string `xml:"ServiceDeparture>RecordedAtTime"`
}

type service struct {
	PublishedLineName string `xml:"ServiceSection>PublishedLineName>Text"`
	PtMode            string `xml:"ServiceSection>Mode>PtMode"`
	DestinationText   string `xml:"DestinationText>Text"`
}

// locationDelivery decodes one or many LocationResult elements into the same
// slice, so callers never see the singular/plural difference.
type locationDelivery struct {
	Status  string           `xml:"ServiceDelivery>Status"`
	Results []locationResult `xml:"ServiceDelivery>DeliveryPayload>LocationInformationResponse>LocationResult"`
}

type locationResult struct {
	Longitude string `xml:"Location>GeoPosition>Longitude"`
	Latitude  string `xml:"Location>GeoPosition>Latitude"`
}

func (r stopEventResult) toModel() models.RawStopEvent {
	return models.RawStopEvent{
		StopName:    strings.TrimSpace(r.CallAtStop.StopPointName),
		Line:        strings.TrimSpace(r.Service.PublishedLineName),
		Mode:        strings.TrimSpace(r.Service.PtMode),
		Destination: strings.TrimSpace(r.Service.DestinationText),
		Recorded:    parseTime(r.CallAtStop.Recorded),
		Estimated:   parseTime(r.CallAtStop.Estimated),
		Timetabled:  parseTime(r.CallAtStop.Timetabled),
	}
}

func (r locationResult) toModel() (models.GeoPosition, bool) {
	lon, err := strconv.ParseFloat(strings.TrimSpace(r.Longitude), 64)
	if err != nil {
		return models.GeoPosition{}, false
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(r.Latitude), 64)
	if err != nil {
		return models.GeoPosition{}, false
	}
	pos := models.GeoPosition{Longitude: lon, Latitude: lat}
	return pos, pos.Valid()
}

// parseTime reads an xs:dateTime. Missing or unparsable values are nil.
func parseTime(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil
	}
	return &t
}

func deliveryFailed(status string) bool {
	return strings.EqualFold(strings.TrimSpace(status), "false")
}
