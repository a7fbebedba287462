package web

import (
	"time"

	dbt "motoroute/db/db"
	"motoroute/mq/mq"
	"motoroute/route"
	"motoroute/session"
	"motoroute/waypoint"
)

type tripResponse struct {
	ID          string              `json:"id"`
	OwnerID     string              `json:"ownerId,omitempty"`
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Waypoints   []waypoint.Waypoint `json:"waypoints"`
	Settings    dbt.TripSettings    `json:"settings"`
	Metrics     *dbt.RouteMetrics   `json:"metrics,omitempty"`
	IsShared    bool                `json:"isShared"`
	ShareToken  string              `json:"shareToken,omitempty"`
	ShareURL    string              `json:"shareUrl,omitempty"`
	CreatedAt   time.Time           `json:"createdAt"`
	UpdatedAt   time.Time           `json:"updatedAt"`
}

// toTripResponse renders t for its owner, or for the public when owner is false.
func (s *Server) toTripResponse(t *dbt.Trip, owner bool) tripResponse {
	resp := tripResponse{
		ID:          t.ID.String(),
		Name:        t.Name,
		Description: t.Description,
		Waypoints:   t.Waypoints,
		Settings:    t.Settings,
		Metrics:     t.Metrics,
		IsShared:    t.IsShared,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
	if resp.Waypoints == nil {
		resp.Waypoints = []waypoint.Waypoint{}
	}
	if owner {
		resp.OwnerID = t.OwnerID
		if t.IsShared {
			resp.ShareToken = t.ShareToken
			resp.ShareURL = s.shares.BuildShareURL(t.ShareToken)
		}
	}
	return resp
}

func (s *Server) toTripList(trips []dbt.Trip) []tripResponse {
	out := make([]tripResponse, len(trips))
	for i := range trips {
		out[i] = s.toTripResponse(&trips[i], true)
	}
	return out
}

type tripRequest struct {
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Waypoints   []waypoint.Waypoint `json:"waypoints"`
	Settings    dbt.TripSettings    `json:"settings"`
}

type tripPatchRequest struct {
	Name        *string             `json:"name"`
	Description *string             `json:"description"`
	Waypoints   []waypoint.Waypoint `json:"waypoints"`
	Settings    *dbt.TripSettings   `json:"settings"`
}

type routeRequest struct {
	Waypoints     []waypoint.Waypoint `json:"waypoints"`
	AvoidHighways bool                `json:"avoidHighways"`
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type googleSignInRequest struct {
	IDToken string `json:"idToken"`
}

type profileResponse struct {
	ID          string           `json:"id"`
	Email       string           `json:"email"`
	DisplayName string           `json:"displayName"`
	Provider    string           `json:"provider"`
	CreatedAt   time.Time        `json:"createdAt"`
	LastLoginAt time.Time        `json:"lastLoginAt"`
	Settings    dbt.UserSettings `json:"settings"`
}

func toProfileResponse(p *dbt.UserProfile) profileResponse {
	return profileResponse{
		ID:          p.ID,
		Email:       p.Email,
		DisplayName: p.DisplayName,
		Provider:    p.Provider,
		CreatedAt:   p.CreatedAt,
		LastLoginAt: p.LastLoginAt,
		Settings:    p.Settings,
	}
}

type sessionResponse struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expiresAt"`
	User      profileResponse `json:"user"`
}

type shareResponse struct {
	Token string `json:"token"`
	URL   string `json:"url"`
}

type resolveRequest struct {
	Tokens []string `json:"tokens"`
}

type editorStateResponse struct {
	Waypoints     []waypoint.Waypoint `json:"waypoints"`
	AvoidHighways bool                `json:"avoidHighways"`
	Route         session.RouteState  `json:"route"`
	CurrentTrip   *tripResponse       `json:"currentTrip"`
	SavedTrips    []tripResponse      `json:"savedTrips"`
}

type addWaypointRequest struct {
	Position waypoint.Position `json:"position"`
	Address  string            `json:"address"`
}

type preferencesRequest struct {
	AvoidHighways bool `json:"avoidHighways"`
}

type saveRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type tripEventMessage struct {
	TripID        string    `json:"tripId"`
	Action        string    `json:"action"`
	ChangedFields []string  `json:"changedFields,omitempty"`
	IsShared      bool      `json:"isShared"`
	At            time.Time `json:"at"`
}

// tripEventToMessage drops create events; subscribers watch an existing trip.
func tripEventToMessage(ev mq.TripEvent) (tripEventMessage, bool, error) {
	if ev.Action == mq.ActionCreate {
		return tripEventMessage{}, true, nil
	}
	return tripEventMessage{
		TripID:        ev.TripID.String(),
		Action:        ev.Action.String(),
		ChangedFields: ev.ChangedFields,
		IsShared:      ev.IsShared,
		At:            ev.At,
	}, false, nil
}

type routeResponse struct {
	Summary *route.Summary `json:"summary"`
}
