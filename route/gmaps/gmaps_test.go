package gmaps

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"googlemaps.github.io/maps"

	"motoroute/route"
	"motoroute/waypoint"
)

func TestDirectionsRequest(t *testing.T) {
	req := route.Request{
		Origin:        waypoint.Position{Lat: 30, Lng: -90},
		Stops:         []waypoint.Position{{Lat: 30.25, Lng: -90.25}},
		Destination:   waypoint.Position{Lat: 30.5, Lng: -90.5},
		TravelMode:    route.TravelModeDriving,
		AvoidHighways: true,
	}
	dr := directionsRequest(req)
	assert.Equal(t, "30.000000,-90.000000", dr.Origin)
	assert.Equal(t, "30.500000,-90.500000", dr.Destination)
	assert.Equal(t, []string{"30.250000,-90.250000"}, dr.Waypoints)
	assert.Equal(t, maps.TravelModeDriving, dr.Mode)
	assert.Equal(t, []maps.Avoid{maps.AvoidHighways}, dr.Avoid)
	assert.False(t, dr.Optimize)

	req.AvoidHighways = false
	assert.Empty(t, directionsRequest(req).Avoid)
}

func TestResponseFromRoutes(t *testing.T) {
	routes := []maps.Route{{
		OverviewPolyline: maps.Polyline{Points: "encoded"},
		Legs: []*maps.Leg{
			{
				Distance:     maps.Distance{HumanReadable: "3.1 mi", Meters: 4989},
				Duration:     7 * time.Minute,
				StartAddress: "A St",
				EndAddress:   "B St",
			},
			{
				Distance: maps.Distance{Meters: 1000},
			},
		},
	}}

	resp := responseFromRoutes(routes)
	require.Equal(t, route.StatusOK, resp.Status)
	require.Len(t, resp.Legs, 2)
	assert.Equal(t, "3.1 mi", resp.Legs[0].DistanceText)
	assert.Equal(t, 4989, resp.Legs[0].DistanceMeters)
	assert.Equal(t, "7m", resp.Legs[0].DurationText)
	assert.Equal(t, 420, resp.Legs[0].DurationSeconds)
	assert.Equal(t, "A St", resp.Legs[0].StartAddress)
	assert.Empty(t, resp.Legs[1].DistanceText)
	assert.Empty(t, resp.Legs[1].DurationText)
	assert.Equal(t, "encoded", resp.OverviewPolyline)

	summary := route.Reduce(resp)
	assert.Equal(t, "N/A", summary.Legs[1].Distance)
	assert.Equal(t, 5989, summary.TotalDistanceMeters)

	assert.Equal(t, "ZERO_RESULTS", responseFromRoutes(nil).Status)
}

func TestStatusFromError(t *testing.T) {
	status, ok := statusFromError(errors.New("maps: ZERO_RESULTS - "))
	assert.True(t, ok)
	assert.Equal(t, "ZERO_RESULTS", status)

	status, ok = statusFromError(errors.New("maps: REQUEST_DENIED - The provided API key is invalid."))
	assert.True(t, ok)
	assert.Equal(t, "REQUEST_DENIED", status)

	_, ok = statusFromError(errors.New("maps: origin missing"))
	assert.False(t, ok)

	_, ok = statusFromError(errors.New("dial tcp: connection refused"))
	assert.False(t, ok)
}

func TestNewRouterRequiresKey(t *testing.T) {
	_, err := NewRouter("", time.Second)
	assert.Error(t, err)
}
