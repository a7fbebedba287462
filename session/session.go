// Package session holds the per-user editing state: the waypoints being placed,
// the route computed for them and the trip currently open.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"

	dbt "motoroute/db/db"
	"motoroute/route"
	"motoroute/trip"
	"motoroute/waypoint"
)

// RouteState is what the editor shows next to the map.
type RouteState struct {
	Summary   *route.Summary `json:"summary"`
	Error     string         `json:"error,omitempty"`
	Computing bool           `json:"computing"`
}

// Session is owned by one signed-in user. Waypoint and preference changes
// recompute the route in the background; only the latest request's result is kept.
type Session struct {
	userID     string
	trips      *trip.Manager
	recomputer *route.Recomputer
	list       *waypoint.List

	ctx      context.Context
	cancel   context.CancelFunc
	inflight sync.WaitGroup

	// editMu orders edits and the recomputations they schedule.
	editMu sync.Mutex

	mu            sync.Mutex
	avoidHighways bool
	summary       *route.Summary
	routeErr      error
	computing     bool
	current       *dbt.Trip
	saved         []dbt.Trip
}

func New(userID string, settings dbt.UserSettings, agg *route.Aggregator, trips *trip.Manager) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		userID:        userID,
		trips:         trips,
		recomputer:    route.NewRecomputer(agg),
		list:          waypoint.NewList(),
		ctx:           ctx,
		cancel:        cancel,
		avoidHighways: settings.AvoidHighways,
	}
	s.list.OnChange(s.schedule)
	return s
}

func (s *Session) UserID() string {
	return s.userID
}

func (s *Session) schedule(wps []waypoint.Waypoint) {
	s.mu.Lock()
	if len(wps) < 2 {
		s.recomputer.Invalidate()
		s.summary, s.routeErr, s.computing = nil, nil, false
		s.mu.Unlock()
		return
	}
	avoid := s.avoidHighways
	gen := s.recomputer.Begin()
	s.computing = true
	s.inflight.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.inflight.Done()
		summary, err := s.recomputer.Compute(s.ctx, gen, wps, avoid)
		if errors.Is(err, route.ErrSuperseded) {
			return
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		if !s.recomputer.IsCurrent(gen) {
			return
		}
		s.computing = false
		if err != nil {
			log.Printf("Route computation failed for %s: %v", s.userID, err)
			s.summary, s.routeErr = nil, err
			return
		}
		s.summary, s.routeErr = summary, nil
	}()
}

// Wait blocks until no route computation is in flight.
func (s *Session) Wait() {
	s.inflight.Wait()
}

func (s *Session) AddWaypoint(position waypoint.Position, address string) waypoint.Waypoint {
	s.editMu.Lock()
	defer s.editMu.Unlock()
	return s.list.Add(position, address)
}

func (s *Session) RemoveWaypoint(id string) {
	s.editMu.Lock()
	defer s.editMu.Unlock()
	s.list.Remove(id)
}

func (s *Session) ClearWaypoints() {
	s.editMu.Lock()
	defer s.editMu.Unlock()
	s.list.Clear()
}

func (s *Session) Waypoints() []waypoint.Waypoint {
	return s.list.Waypoints()
}

func (s *Session) AvoidHighways() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.avoidHighways
}

// SetAvoidHighways changes the routing preference and recomputes when it differs.
func (s *Session) SetAvoidHighways(avoid bool) {
	s.editMu.Lock()
	defer s.editMu.Unlock()

	s.mu.Lock()
	changed := s.avoidHighways != avoid
	s.avoidHighways = avoid
	s.mu.Unlock()

	if changed {
		s.schedule(s.list.Waypoints())
	}
}

func (s *Session) Route() RouteState {
	s.mu.Lock()
	defer s.mu.Unlock()
	state := RouteState{Summary: s.summary, Computing: s.computing}
	if s.routeErr != nil {
		state.Error = s.routeErr.Error()
	}
	return state
}

// CurrentTrip returns the trip open for editing, nil for a new unsaved trip.
func (s *Session) CurrentTrip() *dbt.Trip {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.Clone()
}

func (s *Session) SavedTrips() []dbt.Trip {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]dbt.Trip, len(s.saved))
	for i := range s.saved {
		out[i] = *s.saved[i].Clone()
	}
	return out
}

// NewTrip closes the current trip and empties the map.
func (s *Session) NewTrip() {
	s.editMu.Lock()
	defer s.editMu.Unlock()

	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()
	s.list.Clear()
}

// Save creates a trip from the editor state, or updates the trip currently open.
// The saved list is reloaded only after the store acknowledged the write.
func (s *Session) Save(ctx context.Context, name, description string) (*dbt.Trip, error) {
	s.Wait()
	wps := s.list.Waypoints()

	s.mu.Lock()
	current := s.current.Clone()
	summary := s.summary
	settings := dbt.TripSettings{AvoidHighways: s.avoidHighways}
	s.mu.Unlock()

	var id uuid.UUID
	if current == nil {
		var err error
		id, err = s.trips.Create(ctx, s.userID, trip.CreateInput{
			Name:        name,
			Description: description,
			Waypoints:   wps,
			Settings:    settings,
			Route:       summary,
		})
		if err != nil {
			return nil, err
		}
	} else {
		id = current.ID
		if err := s.trips.Update(ctx, id, dbt.TripPatch{
			Name:        &name,
			Description: &description,
			Waypoints:   wps,
			Settings:    &settings,
			Metrics:     trip.MetricsFromSummary(summary),
		}); err != nil {
			return nil, err
		}
	}

	saved, err := s.trips.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if saved == nil {
		return nil, fmt.Errorf("trip %s vanished after save: %w", id, dbt.ErrNotFound)
	}
	s.mu.Lock()
	s.current = saved.Clone()
	s.mu.Unlock()

	if _, err := s.Reload(ctx); err != nil {
		log.Printf("Failed to reload trips for %s: %v", s.userID, err)
	}
	return saved, nil
}

func (s *Session) owned(ctx context.Context, id uuid.UUID) (*dbt.Trip, error) {
	t, err := s.trips.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if t == nil || t.OwnerID != s.userID {
		return nil, fmt.Errorf("trip %s: %w", id, dbt.ErrNotFound)
	}
	return t, nil
}

// Load opens one of the user's trips for editing and recomputes its route.
func (s *Session) Load(ctx context.Context, id uuid.UUID) (*dbt.Trip, error) {
	t, err := s.owned(ctx, id)
	if err != nil {
		return nil, err
	}

	s.editMu.Lock()
	defer s.editMu.Unlock()

	s.mu.Lock()
	s.current = t.Clone()
	s.avoidHighways = t.Settings.AvoidHighways
	s.mu.Unlock()

	s.list.Replace(t.Waypoints)
	return t, nil
}

// Delete removes one of the user's trips. A trip already gone is not an error.
func (s *Session) Delete(ctx context.Context, id uuid.UUID) error {
	t, err := s.trips.Get(ctx, id)
	if err != nil {
		return err
	}
	if t != nil {
		if t.OwnerID != s.userID {
			return fmt.Errorf("trip %s: %w", id, dbt.ErrNotFound)
		}
		if err := s.trips.Delete(ctx, id); err != nil {
			if !trip.IsNotFound(err) {
				return err
			}
			log.Printf("Trip %s was already deleted", id)
		}
	}

	s.mu.Lock()
	if s.current != nil && s.current.ID == id {
		s.current = nil
	}
	s.mu.Unlock()

	_, err = s.Reload(ctx)
	return err
}

// Reload refreshes the saved-trip list from the store.
func (s *Session) Reload(ctx context.Context) ([]dbt.Trip, error) {
	trips, err := s.trips.ListByOwner(ctx, s.userID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.saved = trips
	s.mu.Unlock()
	return s.SavedTrips(), nil
}

// Close cancels any computation in flight and waits for it to finish.
func (s *Session) Close() {
	s.recomputer.Invalidate()
	s.cancel()
	s.Wait()
}
