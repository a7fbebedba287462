package db

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
)

// TripDBWrapper stores trips and share-token lookups.
// Every method returns copies; callers never share memory with the store.
type TripDBWrapper interface {
	// Create assigns trip.ID when it is uuid.Nil.
	CreateTrip(ctx context.Context, trip *Trip) error
	// CreateSharedTrip fails with ErrAlreadyExists when the token is taken.
	CreateSharedTrip(ctx context.Context, shared *SharedTrip) error
	// Read
	GetTrip(ctx context.Context, id uuid.UUID) (*Trip, error)
	// ListTripsByOwner returns trips newest UpdatedAt first.
	ListTripsByOwner(ctx context.Context, ownerID string) ([]Trip, error)
	GetSharedTrip(ctx context.Context, token string) (*SharedTrip, error)
	// Update
	UpdateTrip(ctx context.Context, id uuid.UUID, patch TripPatch) error
	// Delete. Share lookups survive their trip.
	DeleteTrip(ctx context.Context, id uuid.UUID) error
	// Data Loader: every requested id is present in the result, nil when absent.
	DataLoaderGetTripList(ctx context.Context, tripIDs []uuid.UUID) (map[uuid.UUID]*Trip, error)
}

// UserDBWrapper stores user profiles.
type UserDBWrapper interface {
	CreateUser(ctx context.Context, user *UserProfile) error
	GetUser(ctx context.Context, id string) (*UserProfile, error)
	GetUserByEmail(ctx context.Context, email string) (*UserProfile, error)
	UpdateUserLastLogin(ctx context.Context, id string, at time.Time) error
}

// Store is a backend serving both trips and users.
type Store interface {
	TripDBWrapper
	UserDBWrapper
}
