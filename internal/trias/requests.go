package trias

import (
	"encoding/xml"
	"time"
)

const (
	triasVersion   = "1.2"
	triasNamespace = "http://www.vdv.de/trias"
	siriNamespace  = "http://www.siri.org.uk/siri"
	requestLang    = "de"
)

// triasRequest is the outer TRIAS envelope shared by every request shape.
type triasRequest struct {
	XMLName        xml.Name       `xml:"Trias"`
	Version        string         `xml:"version,attr"`
	Xmlns          string         `xml:"xmlns,attr"`
	XmlnsSiri      string         `xml:"xmlns:siri,attr"`
	ServiceRequest serviceRequest `xml:"ServiceRequest"`
}

type serviceRequest struct {
	RequestTimestamp string         `xml:"siri:RequestTimestamp"`
	RequestorRef     string         `xml:"siri:RequestorRef"`
	RequestPayload   requestPayload `xml:"RequestPayload"`
}

type requestPayload struct {
	StopEventRequest           *stopEventRequest           `xml:"StopEventRequest,omitempty"`
	LocationInformationRequest *locationInformationRequest `xml:"LocationInformationRequest,omitempty"`
}

type stopEventRequest struct {
	Location struct {
		LocationRef struct {
			StopPointRef string `xml:"StopPointRef"`
			LocationName struct {
				Text     string `xml:"Text"`
				Language string `xml:"Language"`
			} `xml:"LocationName"`
		} `xml:"LocationRef"`
	} `xml:"Location"`
	Params *stopEventParams `xml:"Params,omitempty"`
}

type stopEventParams struct {
	NumberOfResults     int    `xml:"NumberOfResults,omitempty"`
	StopEventType       string `xml:"StopEventType"`
	IncludeRealtimeData bool   `xml:"IncludeRealtimeData"`
}

type locationInformationRequest struct {
	InitialInput struct {
		LocationName string `xml:"LocationName"`
	} `xml:"InitialInput"`
}

func newRequest(requestorRef string, now time.Time, payload requestPayload) triasRequest {
	return triasRequest{
		Version:   triasVersion,
		Xmlns:     triasNamespace,
		XmlnsSiri: siriNamespace,
		ServiceRequest: serviceRequest{
			RequestTimestamp: now.UTC().Format(time.RFC3339),
			RequestorRef:     requestorRef,
			RequestPayload:   payload,
		},
	}
}

// newStopEventRequest asks for the next departures at one stop point.
// results <= 0 leaves the number of results to the provider.
func newStopEventRequest(requestorRef string, now time.Time, stopRef, stopName string, results int) triasRequest {
	ser := &stopEventRequest{}
	ser.Location.LocationRef.StopPointRef = stopRef
	ser.Location.LocationRef.LocationName.Text = stopName
	ser.Location.LocationRef.LocationName.Language = requestLang
	if results > 0 {
		ser.Params = &stopEventParams{
			NumberOfResults:     results,
			StopEventType:       "departure",
			IncludeRealtimeData: true,
		}
	}
	return newRequest(requestorRef, now, requestPayload{StopEventRequest: ser})
}

// newLocationRequest asks the provider to resolve a stop name to locations.
func newLocationRequest(requestorRef string, now time.Time, name string) triasRequest {
	lir := &locationInformationRequest{}
	lir.InitialInput.LocationName = name
	return newRequest(requestorRef, now, requestPayload{LocationInformationRequest: lir})
}
