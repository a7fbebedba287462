package offline_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-polyline"

	"motoroute/route"
	"motoroute/route/offline"
	"motoroute/waypoint"
)

func TestTwoWaypointsYieldOneLeg(t *testing.T) {
	list := waypoint.NewList()
	list.Add(waypoint.Position{Lat: 30.0, Lng: -90.0}, "A")
	list.Add(waypoint.Position{Lat: 30.5, Lng: -90.5}, "B")

	summary, err := route.NewAggregator(offline.NewRouter()).ComputeRoute(context.Background(), list.Waypoints(), true)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.LegCount)
	assert.Greater(t, summary.TotalDistanceMeters, 0)
	assert.Greater(t, summary.TotalDurationSeconds, 0)
	assert.Equal(t, summary.Legs[0].DistanceValue, summary.TotalDistanceMeters)
}

func TestLegsFollowStopOrder(t *testing.T) {
	req := route.Request{
		Origin:      waypoint.Position{Lat: 45, Lng: 7},
		Stops:       []waypoint.Position{{Lat: 45.5, Lng: 7.5}, {Lat: 46, Lng: 8}},
		Destination: waypoint.Position{Lat: 46.5, Lng: 8.5},
		TravelMode:  route.TravelModeDriving,
	}
	resp, err := offline.NewRouter().Route(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, route.StatusOK, resp.Status)
	require.Len(t, resp.Legs, 3)
	assert.Equal(t, req.Origin.String(), resp.Legs[0].StartAddress)
	assert.Equal(t, req.Stops[0].String(), resp.Legs[0].EndAddress)
	assert.Equal(t, req.Destination.String(), resp.Legs[2].EndAddress)

	coords, _, err := polyline.DecodeCoords([]byte(resp.OverviewPolyline))
	require.NoError(t, err)
	assert.Len(t, coords, 4)
}

func TestAvoidHighwaysIsSlower(t *testing.T) {
	req := route.Request{
		Origin:      waypoint.Position{Lat: 30, Lng: -90},
		Destination: waypoint.Position{Lat: 31, Lng: -91},
	}
	fast, err := offline.NewRouter().Route(context.Background(), req)
	require.NoError(t, err)
	req.AvoidHighways = true
	slow, err := offline.NewRouter().Route(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, fast.Legs[0].DistanceMeters, slow.Legs[0].DistanceMeters)
	assert.Greater(t, slow.Legs[0].DurationSeconds, fast.Legs[0].DurationSeconds)
}

func TestInvalidPosition(t *testing.T) {
	resp, err := offline.NewRouter().Route(context.Background(), route.Request{
		Origin:      waypoint.Position{Lat: 120, Lng: 0},
		Destination: waypoint.Position{Lat: 0, Lng: 0},
	})
	require.NoError(t, err)
	assert.Equal(t, "INVALID_REQUEST", resp.Status)
}

func TestDistance(t *testing.T) {
	// one degree of latitude is roughly 111 km
	d := offline.Distance(waypoint.Position{Lat: 0, Lng: 0}, waypoint.Position{Lat: 1, Lng: 0})
	assert.InDelta(t, 111195, d, 100)
}
