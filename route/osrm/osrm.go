// Package osrm routes through an OSRM server's route/v1/driving service.
package osrm

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"motoroute/route"
	"motoroute/waypoint"
)

type osrmResponse struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Routes    []osrmRoute    `json:"routes"`
	Waypoints []osrmWaypoint `json:"waypoints"`
}

type osrmRoute struct {
	Distance float64   `json:"distance"` // meters
	Duration float64   `json:"duration"` // seconds
	Geometry string    `json:"geometry"`
	Legs     []osrmLeg `json:"legs"`
}

type osrmLeg struct {
	Distance float64 `json:"distance"`
	Duration float64 `json:"duration"`
	Summary  string  `json:"summary"`
}

type osrmWaypoint struct {
	Name     string    `json:"name"`
	Location []float64 `json:"location"` // lng, lat
}

type Router struct {
	baseURL    string
	httpClient *http.Client
}

// NewRouter creates a Router for the server at baseURL, e.g. http://router.project-osrm.org.
func NewRouter(baseURL string, timeout time.Duration) *Router {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Router{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (r *Router) Route(ctx context.Context, req route.Request) (*route.Response, error) {
	if r == nil || r.baseURL == "" {
		return nil, route.ErrCollaboratorUnavailable
	}

	points := make([]waypoint.Position, 0, len(req.Stops)+2)
	points = append(points, req.Origin)
	points = append(points, req.Stops...)
	points = append(points, req.Destination)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, r.buildURL(points, req.AvoidHighways), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := r.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to call OSRM API: %w", err)
	}
	defer resp.Body.Close()

	var body osrmResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("OSRM API returned status %d", resp.StatusCode)
		}
		return nil, fmt.Errorf("failed to decode OSRM response: %w", err)
	}

	if body.Code != "Ok" {
		return &route.Response{Status: statusFromCode(body.Code)}, nil
	}
	if len(body.Routes) == 0 {
		return &route.Response{Status: "ZERO_RESULTS"}, nil
	}
	return toResponse(body), nil
}

func (r *Router) buildURL(points []waypoint.Position, avoidHighways bool) string {
	coords := make([]string, len(points))
	for i, p := range points {
		coords[i] = fmt.Sprintf("%.6f,%.6f", p.Lng, p.Lat)
	}
	q := url.Values{}
	q.Set("overview", "full")
	q.Set("geometries", "polyline")
	q.Set("steps", "false")
	q.Set("alternatives", "false")
	if avoidHighways {
		q.Set("exclude", "motorway")
	}
	return fmt.Sprintf("%s/route/v1/driving/%s?%s", r.baseURL, strings.Join(coords, ";"), q.Encode())
}

func toResponse(body osrmResponse) *route.Response {
	best := body.Routes[0]
	legs := make([]route.LegResult, len(best.Legs))
	for i, leg := range best.Legs {
		meters := int(math.Round(leg.Distance))
		seconds := int(math.Round(leg.Duration))
		legs[i] = route.LegResult{
			DistanceText:    route.FormatDistance(meters),
			DistanceMeters:  meters,
			DurationText:    route.FormatDuration(seconds),
			DurationSeconds: seconds,
			StartAddress:    waypointName(body.Waypoints, i),
			EndAddress:      waypointName(body.Waypoints, i+1),
		}
	}
	return &route.Response{
		Status:           route.StatusOK,
		Legs:             legs,
		OverviewPolyline: best.Geometry,
	}
}

func waypointName(wps []osrmWaypoint, i int) string {
	if i >= len(wps) {
		return ""
	}
	if wps[i].Name != "" {
		return wps[i].Name
	}
	if len(wps[i].Location) == 2 {
		return waypoint.Position{Lat: wps[i].Location[1], Lng: wps[i].Location[0]}.String()
	}
	return ""
}

// statusFromCode maps OSRM codes onto the status vocabulary the aggregator reports.
func statusFromCode(code string) string {
	switch code {
	case "NoRoute":
		return "ZERO_RESULTS"
	case "NoSegment":
		return "NOT_FOUND"
	case "InvalidQuery", "InvalidValue", "InvalidOptions", "InvalidUrl", "InvalidService", "InvalidVersion":
		return "INVALID_REQUEST"
	case "TooBig":
		return "MAX_WAYPOINTS_EXCEEDED"
	case "":
		return "UNKNOWN_ERROR"
	default:
		return code
	}
}
