package route

import (
	"context"
	"errors"
	"fmt"

	"motoroute/waypoint"
)

const notAvailable = "N/A"

// Aggregator turns an ordered waypoint list into a route Summary using a Router.
// It holds no state besides the collaborator.
type Aggregator struct {
	router Router
}

// NewAggregator creates an Aggregator. A nil router makes every computation fail
// with ErrCollaboratorUnavailable.
func NewAggregator(router Router) *Aggregator {
	return &Aggregator{router: router}
}

// BuildRequest maps waypoints to a collaborator request: first is origin, last is
// destination, everything in between is an ordered, non-optimized stopover.
func BuildRequest(wps []waypoint.Waypoint, avoidHighways bool) (Request, error) {
	if len(wps) < 2 {
		return Request{}, ErrInsufficientWaypoints
	}
	stops := make([]waypoint.Position, 0, len(wps)-2)
	for _, wp := range wps[1 : len(wps)-1] {
		stops = append(stops, wp.Position)
	}
	return Request{
		Origin:            wps[0].Position,
		Destination:       wps[len(wps)-1].Position,
		Stops:             stops,
		TravelMode:        TravelModeDriving,
		AvoidHighways:     avoidHighways,
		OptimizeWaypoints: false,
	}, nil
}

// ComputeRoute asks the collaborator to connect wps and reduces its legs into a Summary.
func (a *Aggregator) ComputeRoute(ctx context.Context, wps []waypoint.Waypoint, avoidHighways bool) (*Summary, error) {
	req, err := BuildRequest(wps, avoidHighways)
	if err != nil {
		return nil, err
	}
	if a == nil || a.router == nil {
		return nil, ErrCollaboratorUnavailable
	}

	resp, err := a.router.Route(ctx, req)
	if err != nil {
		if errors.Is(err, ErrCollaboratorUnavailable) {
			return nil, ErrCollaboratorUnavailable
		}
		var rf *RoutingFailedError
		if errors.As(err, &rf) {
			return nil, rf
		}
		return nil, &RoutingFailedError{Reason: err.Error(), Err: err}
	}
	if resp == nil {
		return nil, &RoutingFailedError{Reason: "empty response"}
	}
	if resp.Status != StatusOK {
		return nil, &RoutingFailedError{Reason: resp.Status}
	}
	if len(resp.Legs) != len(wps)-1 {
		return nil, &RoutingFailedError{
			Reason: fmt.Sprintf("expected %d legs, got %d", len(wps)-1, len(resp.Legs)),
		}
	}

	return Reduce(resp), nil
}

// Reduce sums leg values into totals. Leg strings pass through unchanged;
// totals are formatted independently.
func Reduce(resp *Response) *Summary {
	summary := &Summary{
		Legs:             make([]Leg, len(resp.Legs)),
		LegCount:         len(resp.Legs),
		OverviewPolyline: resp.OverviewPolyline,
	}
	for i, leg := range resp.Legs {
		summary.TotalDistanceMeters += leg.DistanceMeters
		summary.TotalDurationSeconds += leg.DurationSeconds
		summary.Legs[i] = Leg{
			Number:        i + 1,
			Distance:      orNotAvailable(leg.DistanceText),
			Duration:      orNotAvailable(leg.DurationText),
			DistanceValue: leg.DistanceMeters,
			DurationValue: leg.DurationSeconds,
			StartAddress:  leg.StartAddress,
			EndAddress:    leg.EndAddress,
		}
	}
	summary.TotalDistance = FormatDistance(summary.TotalDistanceMeters)
	summary.TotalDuration = FormatDuration(summary.TotalDurationSeconds)
	return summary
}

func orNotAvailable(s string) string {
	if s == "" {
		return notAvailable
	}
	return s
}
