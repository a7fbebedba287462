package db

import (
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"motoroute/waypoint"
)

type TripSettings struct {
	AvoidHighways bool `json:"avoidHighways"`
}

// RouteMetrics are the totals of the route computed when a trip was saved.
type RouteMetrics struct {
	TotalDistance int `json:"totalDistance"` // meters
	TotalDuration int `json:"totalDuration"` // seconds
	Legs          int `json:"legs"`
}

type Trip struct {
	ID          uuid.UUID
	OwnerID     string
	Name        string
	Description string
	Waypoints   []waypoint.Waypoint
	Settings    TripSettings
	Metrics     *RouteMetrics
	IsShared    bool
	ShareToken  string // kept after sharing is disabled, inert until re-enabled
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Clone returns a deep copy of t.
func (t *Trip) Clone() *Trip {
	if t == nil {
		return nil
	}
	c := *t
	c.Waypoints = waypoint.Clone(t.Waypoints)
	if t.Metrics != nil {
		m := *t.Metrics
		c.Metrics = &m
	}
	return &c
}

// TripPatch holds the fields an update replaces. Nil fields are left untouched.
type TripPatch struct {
	Name        *string
	Description *string
	Waypoints   []waypoint.Waypoint // nil means unchanged
	Settings    *TripSettings
	Metrics     *RouteMetrics
	IsShared    *bool
	ShareToken  *string
	UpdatedAt   time.Time
}

// Apply merges p into t.
func (p TripPatch) Apply(t *Trip) {
	if p.Name != nil {
		t.Name = *p.Name
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Waypoints != nil {
		t.Waypoints = waypoint.Clone(p.Waypoints)
	}
	if p.Settings != nil {
		t.Settings = *p.Settings
	}
	if p.Metrics != nil {
		m := *p.Metrics
		t.Metrics = &m
	}
	if p.IsShared != nil {
		t.IsShared = *p.IsShared
	}
	if p.ShareToken != nil {
		t.ShareToken = *p.ShareToken
	}
	if !p.UpdatedAt.IsZero() {
		t.UpdatedAt = p.UpdatedAt
	}
}

// SharedTrip maps a public share token to the trip it was minted for.
type SharedTrip struct {
	Token     string
	TripID    uuid.UUID
	CreatedAt time.Time
}

type Units string

const (
	UnitsMiles      Units = "miles"
	UnitsKilometers Units = "kilometers"
)

type UserSettings struct {
	AvoidHighways bool  `json:"avoidHighways"`
	Units         Units `json:"units"`
}

func DefaultUserSettings() UserSettings {
	return UserSettings{AvoidHighways: true, Units: UnitsMiles}
}

type UserProfile struct {
	ID           string
	Email        string
	DisplayName  string
	PasswordHash string // empty for federated accounts
	Provider     string
	CreatedAt    time.Time
	LastLoginAt  time.Time
	Settings     UserSettings
}

// SortTripsByUpdated orders trips newest UpdatedAt first, ties broken by CreatedAt then ID.
func SortTripsByUpdated(trips []Trip) {
	slices.SortStableFunc(trips, func(a, b Trip) int {
		if c := b.UpdatedAt.Compare(a.UpdatedAt); c != 0 {
			return c
		}
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID.String(), b.ID.String())
	})
}
