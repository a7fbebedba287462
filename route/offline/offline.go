// Package offline is a routing collaborator that needs no network: legs are
// great-circle segments driven at a fixed average speed.
package offline

import (
	"context"
	"math"

	"github.com/golang/geo/s2"
	"github.com/twpayne/go-polyline"

	"motoroute/route"
	"motoroute/waypoint"
)

const (
	earthRadiusMeters = 6371008.8
	// roads are rarely straight
	detourFactor = 1.2

	backroadSpeedKmh = 50.0
	highwaySpeedKmh  = 90.0
)

type Router struct{}

func NewRouter() *Router {
	return &Router{}
}

func (r *Router) Route(ctx context.Context, req route.Request) (*route.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	points := make([]waypoint.Position, 0, len(req.Stops)+2)
	points = append(points, req.Origin)
	points = append(points, req.Stops...)
	points = append(points, req.Destination)

	for _, p := range points {
		if !p.Valid() {
			return &route.Response{Status: "INVALID_REQUEST"}, nil
		}
	}

	speed := highwaySpeedKmh
	if req.AvoidHighways {
		speed = backroadSpeedKmh
	}

	legs := make([]route.LegResult, 0, len(points)-1)
	coords := make([][]float64, 0, len(points))
	for i := range points {
		coords = append(coords, []float64{points[i].Lat, points[i].Lng})
		if i == 0 {
			continue
		}
		meters := Distance(points[i-1], points[i]) * detourFactor
		seconds := meters / (speed * 1000 / 3600)
		legs = append(legs, route.LegResult{
			DistanceText:    route.FormatDistance(int(math.Round(meters))),
			DistanceMeters:  int(math.Round(meters)),
			DurationText:    route.FormatDuration(int(math.Round(seconds))),
			DurationSeconds: int(math.Round(seconds)),
			StartAddress:    points[i-1].String(),
			EndAddress:      points[i].String(),
		})
	}

	return &route.Response{
		Status:           route.StatusOK,
		Legs:             legs,
		OverviewPolyline: string(polyline.EncodeCoords(coords)),
	}, nil
}

// Distance is the great-circle distance between a and b in meters.
func Distance(a, b waypoint.Position) float64 {
	angle := s2.LatLngFromDegrees(a.Lat, a.Lng).Distance(s2.LatLngFromDegrees(b.Lat, b.Lng))
	return angle.Radians() * earthRadiusMeters
}
