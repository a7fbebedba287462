package trip_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dbt "motoroute/db/db"
	"motoroute/db/mem"
	"motoroute/mq/mq"
	"motoroute/route"
	"motoroute/trip"
	"motoroute/verify"
	"motoroute/waypoint"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Minute)
	return c.now
}

type recordingQueue struct {
	mu     sync.Mutex
	events []mq.TripEvent
}

func (q *recordingQueue) Publish(msg mq.TripEvent) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.events = append(q.events, msg)
	return nil
}
func (q *recordingQueue) Subscribe(uuid.UUID) (uuid.UUID, <-chan mq.TripEvent, error) {
	return uuid.Nil, nil, nil
}
func (q *recordingQueue) DeSubscribe(uuid.UUID) error { return nil }
func (q *recordingQueue) Close() error                { return nil }

func (q *recordingQueue) last() mq.TripEvent {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.events[len(q.events)-1]
}

func setup() (*trip.Manager, *recordingQueue) {
	clock := &fakeClock{now: time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)}
	queue := &recordingQueue{}
	return trip.NewManager(mem.NewInMemoryDBWrapper(), trip.WithClock(clock.Now), trip.WithQueue(queue)), queue
}

func twoWaypoints() []waypoint.Waypoint {
	return []waypoint.Waypoint{
		{ID: "a", Position: waypoint.Position{Lat: 30.0, Lng: -90.0}, Order: 7},
		{ID: "b", Position: waypoint.Position{Lat: 30.5, Lng: -90.5}, Order: 9},
	}
}

func TestCreate(t *testing.T) {
	m, queue := setup()
	ctx := context.Background()

	summary := &route.Summary{TotalDistanceMeters: 70000, TotalDurationSeconds: 4000, LegCount: 1}
	id, err := m.Create(ctx, "alice", trip.CreateInput{
		Name:      "  Coast Run  ",
		Waypoints: twoWaypoints(),
		Settings:  dbt.TripSettings{AvoidHighways: true},
		Route:     summary,
	})
	require.NoError(t, err)

	got, err := m.Get(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Coast Run", got.Name)
	assert.Equal(t, "alice", got.OwnerID)
	assert.False(t, got.IsShared)
	assert.Empty(t, got.ShareToken)
	assert.Equal(t, 1, got.Waypoints[0].Order)
	assert.Equal(t, 2, got.Waypoints[1].Order)
	assert.Equal(t, &dbt.RouteMetrics{TotalDistance: 70000, TotalDuration: 4000, Legs: 1}, got.Metrics)
	assert.Equal(t, got.CreatedAt, got.UpdatedAt)

	assert.Equal(t, mq.ActionCreate, queue.last().Action)
	assert.Equal(t, id, queue.last().TripID)
}

func TestCreateWithoutRouteHasNoMetrics(t *testing.T) {
	m, _ := setup()
	id, err := m.Create(context.Background(), "alice", trip.CreateInput{Name: "Plain", Waypoints: twoWaypoints()})
	require.NoError(t, err)

	got, err := m.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Nil(t, got.Metrics)
}

func TestCreateValidation(t *testing.T) {
	m, _ := setup()
	tests := []struct {
		name  string
		owner string
		in    trip.CreateInput
		field string
	}{
		{"empty name", "alice", trip.CreateInput{Name: "   ", Waypoints: twoWaypoints()}, "name"},
		{"long name", "alice", trip.CreateInput{Name: strings.Repeat("n", 101), Waypoints: twoWaypoints()}, "name"},
		{"long name with trailing space", "alice", trip.CreateInput{Name: strings.Repeat("n", 100) + " ", Waypoints: twoWaypoints()}, "name"},
		{"long padded description", "alice", trip.CreateInput{Name: "ok", Description: " " + strings.Repeat("d", 500), Waypoints: twoWaypoints()}, "description"},
		{"long description", "alice", trip.CreateInput{Name: "ok", Description: strings.Repeat("d", 501), Waypoints: twoWaypoints()}, "description"},
		{"one waypoint", "alice", trip.CreateInput{Name: "ok", Waypoints: twoWaypoints()[:1]}, "waypoints"},
		{"bad position", "alice", trip.CreateInput{Name: "ok", Waypoints: []waypoint.Waypoint{
			{Position: waypoint.Position{Lat: 91, Lng: 0}}, {Position: waypoint.Position{Lat: 0, Lng: 0}},
		}}, "waypoints"},
		{"no owner", "", trip.CreateInput{Name: "ok", Waypoints: twoWaypoints()}, "owner"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := m.Create(context.Background(), tc.owner, tc.in)
			var ve *verify.Error
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tc.field, ve.Field)
		})
	}

	stored, err := m.ListByOwner(context.Background(), "alice")
	require.NoError(t, err)
	assert.Empty(t, stored, "rejected trips must not be written")

	// boundaries are inclusive
	_, err = m.Create(context.Background(), "alice", trip.CreateInput{
		Name:        strings.Repeat("ñ", 100),
		Description: strings.Repeat("d", 500),
		Waypoints:   twoWaypoints(),
	})
	assert.NoError(t, err)
}

func TestUpdate(t *testing.T) {
	m, queue := setup()
	ctx := context.Background()
	id, err := m.Create(ctx, "alice", trip.CreateInput{Name: "Before", Waypoints: twoWaypoints()})
	require.NoError(t, err)
	created, err := m.Get(ctx, id)
	require.NoError(t, err)

	name := "After"
	require.NoError(t, m.Update(ctx, id, dbt.TripPatch{Name: &name}))

	got, err := m.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "After", got.Name)
	assert.Equal(t, created.CreatedAt, got.CreatedAt)
	assert.True(t, got.UpdatedAt.After(created.UpdatedAt))

	event := queue.last()
	assert.Equal(t, mq.ActionUpdate, event.Action)
	assert.Equal(t, []string{"Name", "UpdatedAt"}, event.ChangedFields)
}

func TestUpdateRejectsLongName(t *testing.T) {
	m, _ := setup()
	ctx := context.Background()
	id, err := m.Create(ctx, "alice", trip.CreateInput{Name: "Before", Waypoints: twoWaypoints()})
	require.NoError(t, err)

	name := strings.Repeat("n", 100) + " "
	err = m.Update(ctx, id, dbt.TripPatch{Name: &name})
	assert.True(t, verify.IsValidationError(err))

	got, err := m.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Before", got.Name)
}

func TestUpdateSharingEvents(t *testing.T) {
	m, queue := setup()
	ctx := context.Background()
	id, err := m.Create(ctx, "alice", trip.CreateInput{Name: "Shareable", Waypoints: twoWaypoints()})
	require.NoError(t, err)

	shared := true
	err = m.Update(ctx, id, dbt.TripPatch{IsShared: &shared})
	assert.True(t, verify.IsValidationError(err), "sharing without a token must fail")

	token := "tok"
	require.NoError(t, m.Update(ctx, id, dbt.TripPatch{IsShared: &shared, ShareToken: &token}))
	assert.Equal(t, mq.ActionShare, queue.last().Action)
	assert.True(t, queue.last().IsShared)

	private := false
	require.NoError(t, m.Update(ctx, id, dbt.TripPatch{IsShared: &private}))
	assert.Equal(t, mq.ActionUnshare, queue.last().Action)
}

func TestUpdateValidationAndMissing(t *testing.T) {
	m, _ := setup()
	ctx := context.Background()
	id, err := m.Create(ctx, "alice", trip.CreateInput{Name: "Trip", Waypoints: twoWaypoints()})
	require.NoError(t, err)

	empty := " "
	assert.True(t, verify.IsValidationError(m.Update(ctx, id, dbt.TripPatch{Name: &empty})))
	assert.True(t, verify.IsValidationError(m.Update(ctx, id, dbt.TripPatch{Waypoints: twoWaypoints()[:1]})))

	name := "x"
	err = m.Update(ctx, uuid.New(), dbt.TripPatch{Name: &name})
	assert.True(t, trip.IsNotFound(err))
}

func TestDelete(t *testing.T) {
	m, queue := setup()
	ctx := context.Background()
	id, err := m.Create(ctx, "alice", trip.CreateInput{Name: "Doomed", Waypoints: twoWaypoints()})
	require.NoError(t, err)

	require.NoError(t, m.Delete(ctx, id))
	assert.Equal(t, mq.ActionDelete, queue.last().Action)

	got, err := m.Get(ctx, id)
	assert.NoError(t, err)
	assert.Nil(t, got)

	err = m.Delete(ctx, id)
	assert.True(t, trip.IsNotFound(err))
}

func TestListByOwner(t *testing.T) {
	m, _ := setup()
	ctx := context.Background()
	first, err := m.Create(ctx, "alice", trip.CreateInput{Name: "First", Waypoints: twoWaypoints()})
	require.NoError(t, err)
	_, err = m.Create(ctx, "alice", trip.CreateInput{Name: "Second", Waypoints: twoWaypoints()})
	require.NoError(t, err)
	_, err = m.Create(ctx, "bob", trip.CreateInput{Name: "Bob's", Waypoints: twoWaypoints()})
	require.NoError(t, err)

	trips, err := m.ListByOwner(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, trips, 2)
	assert.Equal(t, "Second", trips[0].Name)

	desc := "now the newest"
	require.NoError(t, m.Update(ctx, first, dbt.TripPatch{Description: &desc}))
	trips, err = m.ListByOwner(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "First", trips[0].Name)
}
