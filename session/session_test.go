package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"motoroute/auth"
	dbt "motoroute/db/db"
	"motoroute/db/mem"
	"motoroute/route"
	"motoroute/route/offline"
	"motoroute/trip"
	"motoroute/waypoint"
)

var (
	posA = waypoint.Position{Lat: 30.0, Lng: -90.0}
	posB = waypoint.Position{Lat: 30.5, Lng: -90.5}
	posC = waypoint.Position{Lat: 31.0, Lng: -91.0}
)

func legsFor(req route.Request) *route.Response {
	legs := make([]route.LegResult, len(req.Stops)+1)
	for i := range legs {
		legs[i] = route.LegResult{DistanceText: "1.0 mi", DistanceMeters: 1609, DurationText: "2m", DurationSeconds: 120}
	}
	return &route.Response{Status: route.StatusOK, Legs: legs}
}

func newSession(t *testing.T, router route.Router) (*Session, *trip.Manager) {
	t.Helper()
	trips := trip.NewManager(mem.NewInMemoryDBWrapper())
	s := New("alice", dbt.DefaultUserSettings(), route.NewAggregator(router), trips)
	t.Cleanup(s.Close)
	return s, trips
}

func TestRouteFollowsWaypoints(t *testing.T) {
	s, _ := newSession(t, offline.NewRouter())

	a := s.AddWaypoint(posA, "A")
	s.Wait()
	assert.Nil(t, s.Route().Summary)

	s.AddWaypoint(posB, "B")
	s.Wait()
	state := s.Route()
	require.NotNil(t, state.Summary)
	assert.Equal(t, 1, state.Summary.LegCount)
	assert.Greater(t, state.Summary.TotalDistanceMeters, 0)
	assert.False(t, state.Computing)

	s.RemoveWaypoint(a.ID)
	s.Wait()
	assert.Nil(t, s.Route().Summary, "fewer than two waypoints discards the route")
	assert.Equal(t, 1, s.Waypoints()[0].Order)
}

func TestRouteFailureClearsSummary(t *testing.T) {
	fail := false
	s, _ := newSession(t, route.RouterFunc(func(ctx context.Context, req route.Request) (*route.Response, error) {
		if fail {
			return &route.Response{Status: "ZERO_RESULTS"}, nil
		}
		return legsFor(req), nil
	}))

	s.AddWaypoint(posA, "A")
	s.AddWaypoint(posB, "B")
	s.Wait()
	require.NotNil(t, s.Route().Summary)

	fail = true
	s.AddWaypoint(posC, "C")
	s.Wait()
	state := s.Route()
	assert.Nil(t, state.Summary)
	assert.Contains(t, state.Error, "ZERO_RESULTS")
}

func TestLatestRequestWins(t *testing.T) {
	release := make(chan struct{})
	s, _ := newSession(t, route.RouterFunc(func(ctx context.Context, req route.Request) (*route.Response, error) {
		if len(req.Stops) == 0 {
			<-release
		}
		return legsFor(req), nil
	}))

	s.AddWaypoint(posA, "A")
	s.AddWaypoint(posB, "B") // blocks in the router
	s.AddWaypoint(posC, "C")

	require.Eventually(t, func() bool {
		st := s.Route()
		return st.Summary != nil && st.Summary.LegCount == 2
	}, time.Second, 5*time.Millisecond)

	close(release)
	s.Wait()
	assert.Equal(t, 2, s.Route().Summary.LegCount, "stale result must not overwrite the newer one")
}

func TestConcurrentEditsKeepRoute(t *testing.T) {
	for i := 0; i < 200; i++ {
		s, _ := newSession(t, offline.NewRouter())

		var wg sync.WaitGroup
		wg.Add(2)
		go func() { defer wg.Done(); s.AddWaypoint(posA, "A") }()
		go func() { defer wg.Done(); s.AddWaypoint(posB, "B") }()
		wg.Wait()
		s.Wait()

		state := s.Route()
		require.Len(t, s.Waypoints(), 2)
		require.NotNil(t, state.Summary, "run %d ended without a route", i)
		require.False(t, state.Computing)

		wg.Add(2)
		go func() { defer wg.Done(); s.AddWaypoint(posC, "C") }()
		go func() { defer wg.Done(); s.SetAvoidHighways(false) }()
		wg.Wait()
		s.Wait()

		require.NotNil(t, s.Route().Summary)
		require.Equal(t, 2, s.Route().Summary.LegCount, "run %d routed a stale waypoint list", i)
	}
}

func TestSetAvoidHighwaysRecomputes(t *testing.T) {
	var seen []bool
	s, _ := newSession(t, route.RouterFunc(func(ctx context.Context, req route.Request) (*route.Response, error) {
		seen = append(seen, req.AvoidHighways)
		return legsFor(req), nil
	}))
	assert.True(t, s.AvoidHighways(), "defaults from user settings")

	s.AddWaypoint(posA, "A")
	s.AddWaypoint(posB, "B")
	s.Wait()
	s.SetAvoidHighways(false)
	s.Wait()
	s.SetAvoidHighways(false)
	s.Wait()

	assert.Equal(t, []bool{true, false}, seen)
}

func TestSaveCreatesThenUpdates(t *testing.T) {
	s, trips := newSession(t, offline.NewRouter())
	ctx := context.Background()

	_, err := s.Save(ctx, "Too short", "")
	assert.Error(t, err, "needs two waypoints")

	s.AddWaypoint(posA, "A")
	s.AddWaypoint(posB, "B")
	saved, err := s.Save(ctx, "Bayou", "first ride")
	require.NoError(t, err)
	require.NotNil(t, saved.Metrics)
	assert.Equal(t, 1, saved.Metrics.Legs)
	assert.True(t, saved.Settings.AvoidHighways)
	assert.Len(t, s.SavedTrips(), 1)
	assert.Equal(t, saved.ID, s.CurrentTrip().ID)

	s.AddWaypoint(posC, "C")
	updated, err := s.Save(ctx, "Bayou extended", "")
	require.NoError(t, err)
	assert.Equal(t, saved.ID, updated.ID)
	assert.Len(t, updated.Waypoints, 3)
	assert.Equal(t, 2, updated.Metrics.Legs)

	list, err := trips.ListByOwner(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Bayou extended", list[0].Name)

	s.NewTrip()
	assert.Nil(t, s.CurrentTrip())
	assert.Empty(t, s.Waypoints())
}

func TestLoadAndDelete(t *testing.T) {
	s, trips := newSession(t, offline.NewRouter())
	ctx := context.Background()

	id, err := trips.Create(ctx, "alice", trip.CreateInput{
		Name:      "Stored",
		Waypoints: []waypoint.Waypoint{{ID: "1", Position: posA}, {ID: "2", Position: posB}, {ID: "3", Position: posC}},
		Settings:  dbt.TripSettings{AvoidHighways: false},
	})
	require.NoError(t, err)
	other, err := trips.Create(ctx, "bob", trip.CreateInput{
		Name:      "Bob's",
		Waypoints: []waypoint.Waypoint{{ID: "1", Position: posA}, {ID: "2", Position: posB}},
	})
	require.NoError(t, err)

	loaded, err := s.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Stored", loaded.Name)
	assert.False(t, s.AvoidHighways())
	s.Wait()
	assert.Len(t, s.Waypoints(), 3)
	assert.Equal(t, 2, s.Route().Summary.LegCount)

	_, err = s.Load(ctx, other)
	assert.True(t, errors.Is(err, dbt.ErrNotFound))
	assert.True(t, errors.Is(s.Delete(ctx, other), dbt.ErrNotFound))

	require.NoError(t, s.Delete(ctx, id))
	assert.Nil(t, s.CurrentTrip())
	assert.Empty(t, s.SavedTrips())
	assert.NoError(t, s.Delete(ctx, id), "deleting twice is not fatal")

	_, err = s.Load(ctx, uuid.New())
	assert.True(t, errors.Is(err, dbt.ErrNotFound))
}

func TestRegistryFollowsAuth(t *testing.T) {
	trips := trip.NewManager(mem.NewInMemoryDBWrapper())
	r := NewRegistry(route.NewAggregator(offline.NewRouter()), trips)
	t.Cleanup(r.CloseAll)

	profile := &dbt.UserProfile{ID: "u1", Settings: dbt.UserSettings{AvoidHighways: false, Units: dbt.UnitsKilometers}}
	r.Observe(auth.SessionEvent{Kind: auth.SignedIn, Principal: &auth.Principal{UserID: "u1"}, Profile: profile})

	s, ok := r.Get("u1")
	require.True(t, ok)
	assert.False(t, s.AvoidHighways())

	again := r.Open("u1", dbt.DefaultUserSettings())
	assert.Same(t, s, again)

	r.Observe(auth.SessionEvent{Kind: auth.SignedOut, Principal: &auth.Principal{UserID: "u1"}})
	_, ok = r.Get("u1")
	assert.False(t, ok)
}
