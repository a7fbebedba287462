package mem

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	dbt "motoroute/db/db"
)

// inMemoryDBWrapper is an in-memory implementation of dbt.Store.
type inMemoryDBWrapper struct {
	trips  map[uuid.UUID]*dbt.Trip
	shared map[string]*dbt.SharedTrip
	users  map[string]*dbt.UserProfile

	mu sync.RWMutex
}

// NewInMemoryDBWrapper creates an empty store. Data lives as long as the process.
func NewInMemoryDBWrapper() dbt.Store {
	return &inMemoryDBWrapper{
		trips:  make(map[uuid.UUID]*dbt.Trip),
		shared: make(map[string]*dbt.SharedTrip),
		users:  make(map[string]*dbt.UserProfile),
	}
}

func (db *inMemoryDBWrapper) CreateTrip(ctx context.Context, trip *dbt.Trip) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if trip.ID == uuid.Nil {
		trip.ID = uuid.New()
	}
	if _, exists := db.trips[trip.ID]; exists {
		return fmt.Errorf("trip with ID %s: %w", trip.ID, dbt.ErrAlreadyExists)
	}
	db.trips[trip.ID] = trip.Clone()
	return nil
}

func (db *inMemoryDBWrapper) CreateSharedTrip(ctx context.Context, shared *dbt.SharedTrip) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, exists := db.shared[shared.Token]; exists {
		return fmt.Errorf("share token: %w", dbt.ErrAlreadyExists)
	}
	sharedCopy := *shared
	db.shared[shared.Token] = &sharedCopy
	return nil
}

func (db *inMemoryDBWrapper) GetTrip(ctx context.Context, id uuid.UUID) (*dbt.Trip, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	trip, exists := db.trips[id]
	if !exists {
		return nil, fmt.Errorf("trip with ID %s: %w", id, dbt.ErrNotFound)
	}
	return trip.Clone(), nil
}

func (db *inMemoryDBWrapper) ListTripsByOwner(ctx context.Context, ownerID string) ([]dbt.Trip, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	trips := []dbt.Trip{}
	for _, trip := range db.trips {
		if trip.OwnerID == ownerID {
			trips = append(trips, *trip.Clone())
		}
	}
	dbt.SortTripsByUpdated(trips)
	return trips, nil
}

func (db *inMemoryDBWrapper) GetSharedTrip(ctx context.Context, token string) (*dbt.SharedTrip, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	shared, exists := db.shared[token]
	if !exists {
		return nil, fmt.Errorf("share token: %w", dbt.ErrNotFound)
	}
	sharedCopy := *shared
	return &sharedCopy, nil
}

func (db *inMemoryDBWrapper) UpdateTrip(ctx context.Context, id uuid.UUID, patch dbt.TripPatch) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	trip, exists := db.trips[id]
	if !exists {
		return fmt.Errorf("trip with ID %s not found for update: %w", id, dbt.ErrNotFound)
	}
	patch.Apply(trip)
	return nil
}

func (db *inMemoryDBWrapper) DeleteTrip(ctx context.Context, id uuid.UUID) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, exists := db.trips[id]; !exists {
		return fmt.Errorf("trip with ID %s not found for deletion: %w", id, dbt.ErrNotFound)
	}
	delete(db.trips, id)
	return nil
}

func (db *inMemoryDBWrapper) DataLoaderGetTripList(ctx context.Context, tripIDs []uuid.UUID) (map[uuid.UUID]*dbt.Trip, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	result := make(map[uuid.UUID]*dbt.Trip, len(tripIDs))
	for _, id := range tripIDs {
		result[id] = db.trips[id].Clone()
	}
	return result, nil
}

func (db *inMemoryDBWrapper) CreateUser(ctx context.Context, user *dbt.UserProfile) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, exists := db.users[user.ID]; exists {
		return fmt.Errorf("user with ID %s: %w", user.ID, dbt.ErrAlreadyExists)
	}
	for _, u := range db.users {
		if strings.EqualFold(u.Email, user.Email) {
			return fmt.Errorf("user with email %s: %w", user.Email, dbt.ErrAlreadyExists)
		}
	}
	userCopy := *user
	db.users[user.ID] = &userCopy
	return nil
}

func (db *inMemoryDBWrapper) GetUser(ctx context.Context, id string) (*dbt.UserProfile, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	user, exists := db.users[id]
	if !exists {
		return nil, fmt.Errorf("user with ID %s: %w", id, dbt.ErrNotFound)
	}
	userCopy := *user
	return &userCopy, nil
}

func (db *inMemoryDBWrapper) GetUserByEmail(ctx context.Context, email string) (*dbt.UserProfile, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	for _, user := range db.users {
		if strings.EqualFold(user.Email, email) {
			userCopy := *user
			return &userCopy, nil
		}
	}
	return nil, fmt.Errorf("user with email %s: %w", email, dbt.ErrNotFound)
}

func (db *inMemoryDBWrapper) UpdateUserLastLogin(ctx context.Context, id string, at time.Time) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	user, exists := db.users[id]
	if !exists {
		return fmt.Errorf("user with ID %s: %w", id, dbt.ErrNotFound)
	}
	user.LastLoginAt = at
	return nil
}
