package waypoint

import (
	"fmt"

	"github.com/golang/geo/s2"
)

// Position is a geographic coordinate in degrees.
type Position struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether the position lies within latitude [-90, 90] and longitude [-180, 180].
func (p Position) Valid() bool {
	return s2.LatLngFromDegrees(p.Lat, p.Lng).IsValid()
}

// String formats the position as "lat,lng", the form routing services accept.
func (p Position) String() string {
	return fmt.Sprintf("%.6f,%.6f", p.Lat, p.Lng)
}

// Waypoint is one stop on a route.
type Waypoint struct {
	ID       string   `json:"id"`
	Position Position `json:"position"`
	Address  string   `json:"address"`
	Order    int      `json:"order"` // 1-based, contiguous within a trip
}

// Renumber returns a copy of wps with Order reset to 1..N, keeping slice order.
func Renumber(wps []Waypoint) []Waypoint {
	out := make([]Waypoint, len(wps))
	for i, wp := range wps {
		wp.Order = i + 1
		out[i] = wp
	}
	return out
}

// Clone returns an independent copy of wps.
func Clone(wps []Waypoint) []Waypoint {
	if wps == nil {
		return nil
	}
	out := make([]Waypoint, len(wps))
	copy(out, wps)
	return out
}

// Positions extracts the positions of wps in order.
func Positions(wps []Waypoint) []Position {
	out := make([]Position, len(wps))
	for i, wp := range wps {
		out[i] = wp.Position
	}
	return out
}
