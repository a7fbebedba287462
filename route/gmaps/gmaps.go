// Package gmaps routes through the Google Directions API.
package gmaps

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"googlemaps.github.io/maps"

	"motoroute/route"
)

type Router struct {
	client *maps.Client
}

// NewRouter creates a Router authenticated with apiKey.
func NewRouter(apiKey string, timeout time.Duration) (*Router, error) {
	if apiKey == "" {
		return nil, errors.New("google maps api key is required")
	}
	client, err := maps.NewClient(
		maps.WithAPIKey(apiKey),
		maps.WithHTTPClient(&http.Client{Timeout: timeout}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create google maps client: %w", err)
	}
	return &Router{client: client}, nil
}

func (r *Router) Route(ctx context.Context, req route.Request) (*route.Response, error) {
	if r == nil || r.client == nil {
		return nil, route.ErrCollaboratorUnavailable
	}

	routes, _, err := r.client.Directions(ctx, directionsRequest(req))
	if err != nil {
		if status, ok := statusFromError(err); ok {
			return &route.Response{Status: status}, nil
		}
		return nil, fmt.Errorf("failed to call directions API: %w", err)
	}
	return responseFromRoutes(routes), nil
}

func directionsRequest(req route.Request) *maps.DirectionsRequest {
	stops := make([]string, len(req.Stops))
	for i, p := range req.Stops {
		stops[i] = p.String()
	}
	dr := &maps.DirectionsRequest{
		Origin:      req.Origin.String(),
		Destination: req.Destination.String(),
		Waypoints:   stops,
		Mode:        maps.TravelModeDriving,
		Optimize:    req.OptimizeWaypoints,
	}
	if req.AvoidHighways {
		dr.Avoid = []maps.Avoid{maps.AvoidHighways}
	}
	return dr
}

func responseFromRoutes(routes []maps.Route) *route.Response {
	if len(routes) == 0 {
		return &route.Response{Status: "ZERO_RESULTS"}
	}
	best := routes[0]
	legs := make([]route.LegResult, 0, len(best.Legs))
	for _, leg := range best.Legs {
		if leg == nil {
			legs = append(legs, route.LegResult{})
			continue
		}
		seconds := int(leg.Duration / time.Second)
		// maps.Leg keeps only the parsed time.Duration, the API's duration text is not exposed.
		duration := ""
		if leg.Duration > 0 {
			duration = route.FormatDuration(seconds)
		}
		legs = append(legs, route.LegResult{
			DistanceText:    leg.HumanReadable,
			DistanceMeters:  leg.Meters,
			DurationText:    duration,
			DurationSeconds: seconds,
			StartAddress:    leg.StartAddress,
			EndAddress:      leg.EndAddress,
		})
	}
	return &route.Response{
		Status:           route.StatusOK,
		Legs:             legs,
		OverviewPolyline: best.OverviewPolyline.Points,
	}
}

// statusFromError extracts the API status from errors of the form "maps: STATUS - message".
func statusFromError(err error) (string, bool) {
	msg, ok := strings.CutPrefix(err.Error(), "maps: ")
	if !ok {
		return "", false
	}
	status, _, _ := strings.Cut(msg, " - ")
	status = strings.TrimSpace(status)
	if status == "" || strings.ToUpper(status) != status || strings.Contains(status, " ") {
		return "", false
	}
	return status, true
}
