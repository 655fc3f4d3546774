package trias

import (
	"context"
	"encoding/xml"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"oeffimonitor.org/internal/models"
)

func readFixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "..", "testdata", "trias", name))
	require.NoError(t, err)
	return data
}

func newTestClient(url string, retries int) *Client {
	return NewClient(Config{
		URL:           url,
		RequestorRef:  "test",
		Timeout:       2 * time.Second,
		Retries:       retries,
		RetryInterval: time.Millisecond,
	}, nil)
}

// fixtureServer answers stop event and location requests with the given fixtures.
func fixtureServer(t *testing.T, stopEvents, locations []byte) (*httptest.Server, *[]string) {
	t.Helper()
	var bodies []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/xml", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		bodies = append(bodies, string(body))

		w.Header().Set("Content-Type", "text/xml")
		if strings.Contains(string(body), "StopEventRequest") {
			_, _ = w.Write(stopEvents)
			return
		}
		_, _ = w.Write(locations)
	}))
	t.Cleanup(server.Close)
	return server, &bodies
}

func TestStopEvents(t *testing.T) {
	server, bodies := fixtureServer(t, readFixture(t, "stop_events.xml"), nil)
	client := newTestClient(server.URL, 0)

	events, err := client.StopEvents(context.Background(), models.Stop{ID: "at:46:3140", Name: "Graz Jakominiplatz"})
	require.NoError(t, err)
	require.Len(t, events, 2)

	first := events[0]
	assert.Equal(t, "Graz Jakominiplatz", first.StopName)
	assert.Equal(t, "4", first.Line)
	assert.Equal(t, "tram", first.Mode)
	assert.Equal(t, "Graz Liebenau Murpark", first.Destination)
	require.NotNil(t, first.Timetabled)
	require.NotNil(t, first.Estimated)
	assert.Nil(t, first.Recorded)
	assert.Equal(t, time.Date(2026, 10, 14, 10, 5, 0, 0, time.UTC), first.Timetabled.UTC())
	assert.Equal(t, time.Date(2026, 10, 14, 10, 6, 0, 0, time.UTC), first.Estimated.UTC())
	assert.False(t, first.BarrierFree)
	assert.Nil(t, first.Position, "positions are attached by the caller")

	second := events[1]
	assert.Equal(t, "30", second.Line)
	assert.Equal(t, "bus", second.Mode)
	assert.Nil(t, second.Estimated)

	t.Run("request carries stop ref and name", func(t *testing.T) {
		require.Len(t, *bodies, 1)
		body := (*bodies)[0]
		assert.Contains(t, body, `<Trias version="1.2"`)
		assert.Contains(t, body, `xmlns:siri="http://www.siri.org.uk/siri"`)
		assert.Contains(t, body, "<StopPointRef>at:46:3140</StopPointRef>")
		assert.Contains(t, body, "<Text>Graz Jakominiplatz</Text>")
		assert.Contains(t, body, "<siri:RequestorRef>test</siri:RequestorRef>")
		assert.NotContains(t, body, "<Params>", "no params unless a result count is configured")
	})
}

func TestStopEventsRequestsResultCount(t *testing.T) {
	server, bodies := fixtureServer(t, readFixture(t, "stop_events.xml"), nil)
	client := NewClient(Config{URL: server.URL, RequestorRef: "test", ResultsPerStop: 8, Timeout: time.Second}, nil)

	_, err := client.StopEvents(context.Background(), models.Stop{ID: "at:46:3140", Name: "Graz Jakominiplatz"})
	require.NoError(t, err)
	assert.Contains(t, (*bodies)[0], "<NumberOfResults>8</NumberOfResults>")
	assert.Contains(t, (*bodies)[0], "<IncludeRealtimeData>true</IncludeRealtimeData>")
}

func TestLocationsNormalizesSingularAndPlural(t *testing.T) {
	tests := []struct {
		name    string
		fixture string
		want    []models.GeoPosition
	}{
		{
			name:    "single result",
			fixture: "location_single.xml",
			want:    []models.GeoPosition{{Longitude: 15.44265, Latitude: 47.06751}},
		},
		{
			name:    "result list",
			fixture: "location_list.xml",
			want: []models.GeoPosition{
				{Longitude: 15.41721, Latitude: 47.07302},
				{Longitude: 15.41975, Latitude: 47.07111},
			},
		},
		{
			name:    "no result",
			fixture: "location_empty.xml",
			want:    []models.GeoPosition{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, bodies := fixtureServer(t, nil, readFixture(t, tt.fixture))
			client := newTestClient(server.URL, 0)

			positions, err := client.Locations(context.Background(), "Graz Jakominiplatz")
			require.NoError(t, err)
			assert.Equal(t, tt.want, positions)
			assert.Contains(t, (*bodies)[0], "<LocationName>Graz Jakominiplatz</LocationName>")
		})
	}
}

func TestClientErrors(t *testing.T) {
	t.Run("client errors are not retried", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusBadRequest)
		}))
		defer server.Close()

		_, err := newTestClient(server.URL, 3).StopEvents(context.Background(), models.Stop{ID: "x", Name: "X"})
		require.Error(t, err)

		var httpErr *HTTPError
		require.ErrorAs(t, err, &httpErr)
		assert.Equal(t, http.StatusBadRequest, httpErr.StatusCode)
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("server errors are retried until success", func(t *testing.T) {
		var calls atomic.Int32
		fixture := readFixture(t, "stop_events.xml")
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) == 1 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			_, _ = w.Write(fixture)
		}))
		defer server.Close()

		events, err := newTestClient(server.URL, 2).StopEvents(context.Background(), models.Stop{ID: "x", Name: "X"})
		require.NoError(t, err)
		assert.Len(t, events, 2)
		assert.Equal(t, int32(2), calls.Load())
	})

	t.Run("retries are bounded", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		_, err := newTestClient(server.URL, 2).Locations(context.Background(), "X")
		require.Error(t, err)
		assert.Equal(t, int32(3), calls.Load())
	})

	t.Run("malformed xml is an error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("<trias:Trias><unterminated"))
		}))
		defer server.Close()

		_, err := newTestClient(server.URL, 0).StopEvents(context.Background(), models.Stop{ID: "x", Name: "X"})
		assert.Error(t, err)
	})

	t.Run("unsuccessful delivery is an error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`<trias:Trias xmlns:trias="http://www.vdv.de/trias" xmlns:siri="http://www.siri.org.uk/siri"><trias:ServiceDelivery><siri:Status>false</siri:Status></trias:ServiceDelivery></trias:Trias>`))
		}))
		defer server.Close()

		_, err := newTestClient(server.URL, 0).StopEvents(context.Background(), models.Stop{ID: "x", Name: "X"})
		assert.ErrorIs(t, err, ErrDeliveryFailed)
	})

	t.Run("cancelled context stops the request", func(t *testing.T) {
		release := make(chan struct{})
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.Copy(io.Discard, r.Body)
			select {
			case <-r.Context().Done():
			case <-release:
			}
		}))
		defer server.Close()
		// Runs before server.Close so a handler still blocked is let go.
		defer close(release)

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		start := time.Now()
		_, err := newTestClient(server.URL, 3).StopEvents(ctx, models.Stop{ID: "x", Name: "X"})
		assert.Error(t, err)
		assert.Less(t, time.Since(start), time.Second)
	})
}

func TestRequestShapes(t *testing.T) {
	now := time.Date(2026, 10, 14, 10, 0, 0, 0, time.UTC)

	body, err := xml.Marshal(newLocationRequest("mdv", now, "Graz Hauptbahnhof"))
	require.NoError(t, err)
	assert.Contains(t, string(body), "<siri:RequestTimestamp>2026-10-14T10:00:00Z</siri:RequestTimestamp>")
	assert.Contains(t, string(body), "<LocationInformationRequest><InitialInput><LocationName>Graz Hauptbahnhof</LocationName></InitialInput></LocationInformationRequest>")
	assert.NotContains(t, string(body), "StopEventRequest")
}

func TestParseTime(t *testing.T) {
	assert.Nil(t, parseTime(""))
	assert.Nil(t, parseTime("not a time"))

	parsed := parseTime(" 2026-10-14T12:05:00+02:00 ")
	require.NotNil(t, parsed)
	assert.Equal(t, time.Date(2026, 10, 14, 10, 5, 0, 0, time.UTC), parsed.UTC())
}
