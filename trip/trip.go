// Package trip manages saved trips: validation, timestamps and change events
// on top of a store backend.
package trip

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	dbt "motoroute/db/db"
	"motoroute/libs/diff"
	"motoroute/mq/mq"
	"motoroute/route"
	"motoroute/verify"
	"motoroute/waypoint"
)

const (
	MaxNameLength        = 100
	MaxDescriptionLength = 500
	MinWaypoints         = 2
)

type Option func(*Manager)

// WithQueue publishes a mq.TripEvent for every mutation.
func WithQueue(q mq.TripEventQueue) Option {
	return func(m *Manager) { m.queue = q }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// Manager is safe for concurrent use; concurrent updates to one trip are last-writer-wins.
type Manager struct {
	db    dbt.TripDBWrapper
	queue mq.TripEventQueue
	now   func() time.Time
}

func NewManager(db dbt.TripDBWrapper, opts ...Option) *Manager {
	m := &Manager{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

type CreateInput struct {
	Name        string
	Description string
	Waypoints   []waypoint.Waypoint
	Settings    dbt.TripSettings
	// Route attaches metrics when present. Metrics takes precedence, it is used by copies.
	Route   *route.Summary
	Metrics *dbt.RouteMetrics
}

// MetricsFromSummary converts a computed route into stored metrics; nil stays nil.
func MetricsFromSummary(s *route.Summary) *dbt.RouteMetrics {
	if s == nil {
		return nil
	}
	return &dbt.RouteMetrics{
		TotalDistance: s.TotalDistanceMeters,
		TotalDuration: s.TotalDurationSeconds,
		Legs:          s.LegCount,
	}
}

// IsNotFound reports a missing trip. Callers deleting twice treat it as non-fatal.
func IsNotFound(err error) bool {
	return errors.Is(err, dbt.ErrNotFound)
}

// Lengths count the name as entered, surrounding spaces included.
func validateName(name string) error {
	return verify.StringRequest("name", name, MaxNameLength)
}

func validateDescription(desc string) error {
	return verify.MaxLength("description", desc, MaxDescriptionLength)
}

func validateWaypoints(wps []waypoint.Waypoint) error {
	if len(wps) < MinWaypoints {
		return verify.Errorf("waypoints", "at least %d waypoints are required", MinWaypoints)
	}
	for i, wp := range wps {
		if !wp.Position.Valid() {
			return verify.Errorf("waypoints", "waypoint %d has an invalid position", i+1)
		}
	}
	return nil
}

// Create validates and stores a new private trip for ownerID and returns its id.
func (m *Manager) Create(ctx context.Context, ownerID string, in CreateInput) (uuid.UUID, error) {
	if err := verify.First(
		verify.Required("owner", ownerID),
		validateName(in.Name),
		validateDescription(in.Description),
		validateWaypoints(in.Waypoints),
	); err != nil {
		return uuid.Nil, err
	}
	name := strings.TrimSpace(in.Name)
	desc := strings.TrimSpace(in.Description)

	metrics := in.Metrics
	if metrics == nil {
		metrics = MetricsFromSummary(in.Route)
	}

	now := m.now()
	trip := &dbt.Trip{
		OwnerID:     ownerID,
		Name:        name,
		Description: desc,
		Waypoints:   waypoint.Renumber(in.Waypoints),
		Settings:    in.Settings,
		Metrics:     metrics,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := m.db.CreateTrip(ctx, trip); err != nil {
		return uuid.Nil, fmt.Errorf("failed to save trip: %w", err)
	}
	log.Printf("Created trip %s for %s", trip.ID, ownerID)

	m.publish(mq.TripEvent{TripID: trip.ID, OwnerID: ownerID, Action: mq.ActionCreate, At: now})
	return trip.ID, nil
}

// Update merges patch into the trip, refreshing UpdatedAt and never CreatedAt.
func (m *Manager) Update(ctx context.Context, id uuid.UUID, patch dbt.TripPatch) error {
	if patch.Name != nil {
		if err := validateName(*patch.Name); err != nil {
			return err
		}
		name := strings.TrimSpace(*patch.Name)
		patch.Name = &name
	}
	if patch.Description != nil {
		if err := validateDescription(*patch.Description); err != nil {
			return err
		}
		desc := strings.TrimSpace(*patch.Description)
		patch.Description = &desc
	}
	if patch.Waypoints != nil {
		if err := validateWaypoints(patch.Waypoints); err != nil {
			return err
		}
		patch.Waypoints = waypoint.Renumber(patch.Waypoints)
	}

	before, err := m.db.GetTrip(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to update trip: %w", err)
	}

	after := before.Clone()
	patch.Apply(after)
	if after.IsShared && after.ShareToken == "" {
		return verify.Errorf("shareToken", "a shared trip needs a share token")
	}

	patch.UpdatedAt = m.now()
	if err := m.db.UpdateTrip(ctx, id, patch); err != nil {
		return fmt.Errorf("failed to update trip: %w", err)
	}

	after.UpdatedAt = patch.UpdatedAt
	changed, err := diff.ChangedFields(*before, *after)
	if err != nil {
		log.Printf("Failed to diff trip %s: %v", id, err)
	}

	action := mq.ActionUpdate
	if before.IsShared != after.IsShared {
		action = mq.ActionUnshare
		if after.IsShared {
			action = mq.ActionShare
		}
	}
	m.publish(mq.TripEvent{
		TripID:        id,
		OwnerID:       after.OwnerID,
		Action:        action,
		ChangedFields: changed,
		IsShared:      after.IsShared,
		At:            patch.UpdatedAt,
	})
	return nil
}

// Delete removes the trip. A missing trip yields an error matching IsNotFound.
func (m *Manager) Delete(ctx context.Context, id uuid.UUID) error {
	before, err := m.db.GetTrip(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete trip: %w", err)
	}
	if err := m.db.DeleteTrip(ctx, id); err != nil {
		return fmt.Errorf("failed to delete trip: %w", err)
	}
	log.Printf("Deleted trip %s", id)

	m.publish(mq.TripEvent{TripID: id, OwnerID: before.OwnerID, Action: mq.ActionDelete, At: m.now()})
	return nil
}

// Get returns the trip, or nil without error when it does not exist.
func (m *Manager) Get(ctx context.Context, id uuid.UUID) (*dbt.Trip, error) {
	trip, err := m.db.GetTrip(ctx, id)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get trip: %w", err)
	}
	return trip, nil
}

// ListByOwner returns the owner's trips, most recently updated first.
func (m *Manager) ListByOwner(ctx context.Context, ownerID string) ([]dbt.Trip, error) {
	trips, err := m.db.ListTripsByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list trips: %w", err)
	}
	return trips, nil
}

func (m *Manager) publish(event mq.TripEvent) {
	if m.queue == nil {
		return
	}
	if err := m.queue.Publish(event); err != nil {
		log.Printf("Failed to publish %s event for trip %s: %v", event.Action, event.TripID, err)
	}
}
