package web

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	dbt "motoroute/db/db"
	"motoroute/route"
	"motoroute/trip"
	"motoroute/waypoint"
)

// ownedTrip loads the trip named by the :id parameter. Trips of other owners
// are reported as missing.
func (s *Server) ownedTrip(c *gin.Context) (*dbt.Trip, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		notFound(c)
		return nil, false
	}
	t, err := s.trips.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, "load trip", err)
		return nil, false
	}
	if t == nil || t.OwnerID != principalFrom(c).UserID {
		notFound(c)
		return nil, false
	}
	return t, true
}

// routeFor computes the route to store with a trip; a trip is saved without
// metrics when no route can be computed.
func (s *Server) routeFor(c *gin.Context, wps []waypoint.Waypoint, avoid bool) *route.Summary {
	summary, err := s.agg.ComputeRoute(c.Request.Context(), wps, avoid)
	if err != nil {
		log.Printf("Saving trip without route metrics: %v", err)
		return nil
	}
	return summary
}

func (s *Server) reloadTrip(c *gin.Context, id uuid.UUID) (*dbt.Trip, error) {
	t, err := s.trips.Get(c.Request.Context(), id)
	if err == nil && t == nil {
		err = fmt.Errorf("trip %s: %w", id, dbt.ErrNotFound)
	}
	return t, err
}

func (s *Server) listTrips(c *gin.Context) {
	trips, err := s.trips.ListByOwner(c.Request.Context(), principalFrom(c).UserID)
	if err != nil {
		writeError(c, "list trips", err)
		return
	}
	c.JSON(http.StatusOK, s.toTripList(trips))
}

func (s *Server) createTrip(c *gin.Context) {
	var req tripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}
	in := trip.CreateInput{
		Name:        req.Name,
		Description: req.Description,
		Waypoints:   req.Waypoints,
		Settings:    req.Settings,
	}
	if len(req.Waypoints) >= trip.MinWaypoints {
		in.Route = s.routeFor(c, req.Waypoints, req.Settings.AvoidHighways)
	}

	id, err := s.trips.Create(c.Request.Context(), principalFrom(c).UserID, in)
	if err != nil {
		writeError(c, "save trip", err)
		return
	}
	t, err := s.reloadTrip(c, id)
	if err != nil {
		writeError(c, "save trip", err)
		return
	}
	c.JSON(http.StatusCreated, s.toTripResponse(t, true))
}

func (s *Server) getTrip(c *gin.Context) {
	t, ok := s.ownedTrip(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, s.toTripResponse(t, true))
}

func (s *Server) updateTrip(c *gin.Context) {
	t, ok := s.ownedTrip(c)
	if !ok {
		return
	}
	var req tripPatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}

	patch := dbt.TripPatch{
		Name:        req.Name,
		Description: req.Description,
		Waypoints:   req.Waypoints,
		Settings:    req.Settings,
	}
	if req.Waypoints != nil || req.Settings != nil {
		wps, settings := t.Waypoints, t.Settings
		if req.Waypoints != nil {
			wps = req.Waypoints
		}
		if req.Settings != nil {
			settings = *req.Settings
		}
		if len(wps) >= trip.MinWaypoints {
			patch.Metrics = trip.MetricsFromSummary(s.routeFor(c, wps, settings.AvoidHighways))
		}
	}

	if err := s.trips.Update(c.Request.Context(), t.ID, patch); err != nil {
		writeError(c, "update trip", err)
		return
	}
	updated, err := s.reloadTrip(c, t.ID)
	if err != nil {
		writeError(c, "update trip", err)
		return
	}
	c.JSON(http.StatusOK, s.toTripResponse(updated, true))
}

func (s *Server) deleteTrip(c *gin.Context) {
	t, ok := s.ownedTrip(c)
	if !ok {
		return
	}
	if err := s.trips.Delete(c.Request.Context(), t.ID); err != nil && !trip.IsNotFound(err) {
		writeError(c, "delete trip", err)
		return
	}
	c.Status(http.StatusNoContent)
}
