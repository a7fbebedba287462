package route

import (
	"context"

	"motoroute/waypoint"
)

// TravelMode of a routing request. Only driving is used.
type TravelMode string

const TravelModeDriving TravelMode = "DRIVING"

// StatusOK is the only success status a collaborator reports.
const StatusOK = "OK"

// Request is what the routing collaborator is asked to connect.
type Request struct {
	Origin            waypoint.Position
	Destination       waypoint.Position
	Stops             []waypoint.Position // ordered stopovers between origin and destination
	TravelMode        TravelMode
	AvoidHighways     bool
	OptimizeWaypoints bool // always false: stop order is never changed by the collaborator
}

// LegResult is one leg as the collaborator reports it.
type LegResult struct {
	DistanceText    string
	DistanceMeters  int
	DurationText    string
	DurationSeconds int
	StartAddress    string
	EndAddress      string
}

// Response is the collaborator's answer. Status is StatusOK on success.
type Response struct {
	Status           string
	Legs             []LegResult
	OverviewPolyline string
}

// Router is the external routing collaborator.
type Router interface {
	Route(ctx context.Context, req Request) (*Response, error)
}

// RouterFunc adapts a function to Router.
type RouterFunc func(ctx context.Context, req Request) (*Response, error)

func (f RouterFunc) Route(ctx context.Context, req Request) (*Response, error) {
	return f(ctx, req)
}

// Leg is one routed segment between consecutive waypoints.
type Leg struct {
	Number        int    `json:"legNumber"`
	Distance      string `json:"distance"`
	Duration      string `json:"duration"`
	DistanceValue int    `json:"distanceValue"` // meters
	DurationValue int    `json:"durationValue"` // seconds
	StartAddress  string `json:"startAddress"`
	EndAddress    string `json:"endAddress"`
}

// Summary is the normalized result of routing a waypoint list.
type Summary struct {
	Legs                 []Leg  `json:"legs"`
	TotalDistanceMeters  int    `json:"totalDistanceMeters"`
	TotalDurationSeconds int    `json:"totalDurationSeconds"`
	TotalDistance        string `json:"totalDistance"`
	TotalDuration        string `json:"totalDuration"`
	LegCount             int    `json:"legCount"`
	OverviewPolyline     string `json:"overviewPolyline"`
}
