// Package dbtest holds the behavior every dbt.Store backend must share.
package dbtest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dbt "motoroute/db/db"
	"motoroute/waypoint"
)

// NewTrip returns an unsaved trip for owner with two waypoints.
func NewTrip(owner, name string, at time.Time) *dbt.Trip {
	return &dbt.Trip{
		OwnerID:     owner,
		Name:        name,
		Description: "desc of " + name,
		Waypoints: []waypoint.Waypoint{
			{ID: "w1", Position: waypoint.Position{Lat: 30, Lng: -90}, Address: "A", Order: 1},
			{ID: "w2", Position: waypoint.Position{Lat: 30.5, Lng: -90.5}, Address: "B", Order: 2},
		},
		Settings:  dbt.TripSettings{AvoidHighways: true},
		Metrics:   &dbt.RouteMetrics{TotalDistance: 70000, TotalDuration: 3600, Legs: 1},
		CreatedAt: at,
		UpdatedAt: at,
	}
}

// Run exercises store against the TripDBWrapper and UserDBWrapper contracts.
func Run(t *testing.T, newStore func(t *testing.T) dbt.Store) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	t.Run("CreateAndGetTrip", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		trip := NewTrip("alice", "Coast Run", base)
		require.NoError(t, store.CreateTrip(ctx, trip))
		require.NotEqual(t, uuid.Nil, trip.ID)

		got, err := store.GetTrip(ctx, trip.ID)
		require.NoError(t, err)
		assert.Equal(t, trip.Name, got.Name)
		assert.Equal(t, trip.Description, got.Description)
		assert.Equal(t, "alice", got.OwnerID)
		assert.Equal(t, trip.Waypoints, got.Waypoints)
		assert.Equal(t, trip.Settings, got.Settings)
		require.NotNil(t, got.Metrics)
		assert.Equal(t, *trip.Metrics, *got.Metrics)
		assert.False(t, got.IsShared)
		assert.True(t, base.Equal(got.CreatedAt))
		assert.True(t, base.Equal(got.UpdatedAt))

		err = store.CreateTrip(ctx, trip)
		assert.ErrorIs(t, err, dbt.ErrAlreadyExists)
	})

	t.Run("GetMissingTrip", func(t *testing.T) {
		store := newStore(t)
		got, err := store.GetTrip(context.Background(), uuid.New())
		assert.ErrorIs(t, err, dbt.ErrNotFound)
		assert.Nil(t, got)
	})

	t.Run("TripWithoutMetrics", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		trip := NewTrip("alice", "No Route", base)
		trip.Metrics = nil
		require.NoError(t, store.CreateTrip(ctx, trip))

		got, err := store.GetTrip(ctx, trip.ID)
		require.NoError(t, err)
		assert.Nil(t, got.Metrics)
	})

	t.Run("ReturnedTripsAreCopies", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		trip := NewTrip("alice", "Copy Check", base)
		require.NoError(t, store.CreateTrip(ctx, trip))

		trip.Waypoints[0].Address = "mutated after create"
		got, err := store.GetTrip(ctx, trip.ID)
		require.NoError(t, err)
		assert.Equal(t, "A", got.Waypoints[0].Address)

		got.Waypoints[0].Address = "mutated after get"
		again, err := store.GetTrip(ctx, trip.ID)
		require.NoError(t, err)
		assert.Equal(t, "A", again.Waypoints[0].Address)
	})

	t.Run("ListTripsByOwner", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		older := NewTrip("alice", "Older", base)
		newer := NewTrip("alice", "Newer", base.Add(time.Hour))
		other := NewTrip("bob", "Bob's", base.Add(2*time.Hour))
		for _, trip := range []*dbt.Trip{older, newer, other} {
			require.NoError(t, store.CreateTrip(ctx, trip))
		}

		trips, err := store.ListTripsByOwner(ctx, "alice")
		require.NoError(t, err)
		require.Len(t, trips, 2)
		assert.Equal(t, "Newer", trips[0].Name)
		assert.Equal(t, "Older", trips[1].Name)

		// touching the older trip moves it to the front
		name := "Older, renamed"
		require.NoError(t, store.UpdateTrip(ctx, older.ID, dbt.TripPatch{Name: &name, UpdatedAt: base.Add(3 * time.Hour)}))
		trips, err = store.ListTripsByOwner(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, "Older, renamed", trips[0].Name)

		none, err := store.ListTripsByOwner(ctx, "carol")
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("UpdateTrip", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		trip := NewTrip("alice", "Before", base)
		require.NoError(t, store.CreateTrip(ctx, trip))

		name := "After"
		shared := true
		token := "tok_123"
		wps := []waypoint.Waypoint{
			{ID: "x", Position: waypoint.Position{Lat: 1, Lng: 2}, Order: 1},
			{ID: "y", Position: waypoint.Position{Lat: 3, Lng: 4}, Order: 2},
			{ID: "z", Position: waypoint.Position{Lat: 5, Lng: 6}, Order: 3},
		}
		later := base.Add(time.Minute)
		require.NoError(t, store.UpdateTrip(ctx, trip.ID, dbt.TripPatch{
			Name:       &name,
			Waypoints:  wps,
			Settings:   &dbt.TripSettings{AvoidHighways: false},
			Metrics:    &dbt.RouteMetrics{TotalDistance: 1, TotalDuration: 2, Legs: 2},
			IsShared:   &shared,
			ShareToken: &token,
			UpdatedAt:  later,
		}))

		got, err := store.GetTrip(ctx, trip.ID)
		require.NoError(t, err)
		assert.Equal(t, "After", got.Name)
		assert.Equal(t, trip.Description, got.Description)
		assert.Equal(t, wps, got.Waypoints)
		assert.False(t, got.Settings.AvoidHighways)
		assert.Equal(t, 2, got.Metrics.Legs)
		assert.True(t, got.IsShared)
		assert.Equal(t, "tok_123", got.ShareToken)
		assert.True(t, base.Equal(got.CreatedAt))
		assert.True(t, later.Equal(got.UpdatedAt))

		err = store.UpdateTrip(ctx, uuid.New(), dbt.TripPatch{Name: &name})
		assert.ErrorIs(t, err, dbt.ErrNotFound)
	})

	t.Run("DeleteTrip", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		trip := NewTrip("alice", "Doomed", base)
		require.NoError(t, store.CreateTrip(ctx, trip))
		require.NoError(t, store.CreateSharedTrip(ctx, &dbt.SharedTrip{Token: "keep", TripID: trip.ID, CreatedAt: base}))

		require.NoError(t, store.DeleteTrip(ctx, trip.ID))
		_, err := store.GetTrip(ctx, trip.ID)
		assert.ErrorIs(t, err, dbt.ErrNotFound)

		err = store.DeleteTrip(ctx, trip.ID)
		assert.ErrorIs(t, err, dbt.ErrNotFound)

		shared, err := store.GetSharedTrip(ctx, "keep")
		require.NoError(t, err)
		assert.Equal(t, trip.ID, shared.TripID)
	})

	t.Run("SharedTrip", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		trip := NewTrip("alice", "Shared", base)
		require.NoError(t, store.CreateTrip(ctx, trip))

		require.NoError(t, store.CreateSharedTrip(ctx, &dbt.SharedTrip{Token: "abc", TripID: trip.ID, CreatedAt: base}))
		got, err := store.GetSharedTrip(ctx, "abc")
		require.NoError(t, err)
		assert.Equal(t, trip.ID, got.TripID)
		assert.True(t, base.Equal(got.CreatedAt))

		err = store.CreateSharedTrip(ctx, &dbt.SharedTrip{Token: "abc", TripID: uuid.New(), CreatedAt: base})
		assert.ErrorIs(t, err, dbt.ErrAlreadyExists)

		_, err = store.GetSharedTrip(ctx, "missing")
		assert.ErrorIs(t, err, dbt.ErrNotFound)
	})

	t.Run("DataLoaderGetTripList", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		a := NewTrip("alice", "A", base)
		b := NewTrip("bob", "B", base)
		require.NoError(t, store.CreateTrip(ctx, a))
		require.NoError(t, store.CreateTrip(ctx, b))
		missing := uuid.New()

		got, err := store.DataLoaderGetTripList(ctx, []uuid.UUID{a.ID, b.ID, missing})
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, "A", got[a.ID].Name)
		assert.Equal(t, "B", got[b.ID].Name)
		assert.Len(t, got[b.ID].Waypoints, 2)
		assert.Nil(t, got[missing])

		loader := dbt.NewTripDataLoader(store)
		trip, err := loader.GetTripList.Load(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, "A", trip.Name)
	})

	t.Run("Users", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		user := &dbt.UserProfile{
			ID:          "u1",
			Email:       "rider@example.com",
			DisplayName: "Rider",
			Provider:    "password",
			CreatedAt:   base,
			LastLoginAt: base,
			Settings:    dbt.DefaultUserSettings(),
		}
		require.NoError(t, store.CreateUser(ctx, user))
		assert.ErrorIs(t, store.CreateUser(ctx, user), dbt.ErrAlreadyExists)

		got, err := store.GetUser(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, "Rider", got.DisplayName)
		assert.Equal(t, dbt.DefaultUserSettings(), got.Settings)

		byEmail, err := store.GetUserByEmail(ctx, "RIDER@example.com")
		require.NoError(t, err)
		assert.Equal(t, "u1", byEmail.ID)

		later := base.Add(24 * time.Hour)
		require.NoError(t, store.UpdateUserLastLogin(ctx, "u1", later))
		got, err = store.GetUser(ctx, "u1")
		require.NoError(t, err)
		assert.True(t, later.Equal(got.LastLoginAt))
		assert.True(t, base.Equal(got.CreatedAt))

		_, err = store.GetUser(ctx, "nobody")
		assert.ErrorIs(t, err, dbt.ErrNotFound)
		_, err = store.GetUserByEmail(ctx, "nobody@example.com")
		assert.ErrorIs(t, err, dbt.ErrNotFound)
		assert.ErrorIs(t, store.UpdateUserLastLogin(ctx, "nobody", later), dbt.ErrNotFound)
	})

	t.Run("ConcurrentCreates", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				assert.NoError(t, store.CreateTrip(ctx, NewTrip("alice", fmt.Sprintf("trip %d", i), base)))
			}(i)
		}
		wg.Wait()

		trips, err := store.ListTripsByOwner(ctx, "alice")
		require.NoError(t, err)
		assert.Len(t, trips, 20)
	})
}
