// Package share issues public share tokens for trips, resolves them and copies
// shared trips into other accounts.
package share

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"

	dbt "motoroute/db/db"
	"motoroute/trip"
	"motoroute/verify"
)

// TokenLength of 22 nanoid characters carries about 132 bits of entropy.
const TokenLength = 22

const (
	copySuffix      = " (Copy)"
	maxMintAttempts = 5
)

var ErrSharedTripNotFound = errors.New("shared trip not found")

// Service is the sharing workflow on top of a trip store. Trip mutations go
// through the trip.Manager so they refresh UpdatedAt and publish events.
type Service struct {
	db       dbt.TripDBWrapper
	trips    *trip.Manager
	origin   string
	newToken func() (string, error)
	now      func() time.Time
}

type Option func(*Service)

// WithTokenGenerator replaces the nanoid generator.
func WithTokenGenerator(gen func() (string, error)) Option {
	return func(s *Service) { s.newToken = gen }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService builds share links against origin, e.g. "https://moto.example.com".
func NewService(db dbt.TripDBWrapper, trips *trip.Manager, origin string, opts ...Option) *Service {
	s := &Service{
		db:       db,
		trips:    trips,
		origin:   strings.TrimRight(origin, "/"),
		newToken: func() (string, error) { return gonanoid.New(TokenLength) },
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EnableSharing mints a fresh token, records the lookup entry and marks the trip shared.
// Re-enabling after a disable never reuses the retained token.
func (s *Service) EnableSharing(ctx context.Context, tripID uuid.UUID) (string, error) {
	if _, err := s.db.GetTrip(ctx, tripID); err != nil {
		return "", fmt.Errorf("failed to enable sharing: %w", err)
	}

	token, err := s.mint(ctx, tripID)
	if err != nil {
		return "", err
	}

	shared := true
	if err := s.trips.Update(ctx, tripID, dbt.TripPatch{IsShared: &shared, ShareToken: &token}); err != nil {
		return "", fmt.Errorf("failed to enable sharing: %w", err)
	}
	log.Printf("Enabled sharing for trip %s", tripID)
	return token, nil
}

func (s *Service) mint(ctx context.Context, tripID uuid.UUID) (string, error) {
	for attempt := 0; attempt < maxMintAttempts; attempt++ {
		token, err := s.newToken()
		if err != nil {
			return "", fmt.Errorf("failed to generate share token: %w", err)
		}
		err = s.db.CreateSharedTrip(ctx, &dbt.SharedTrip{Token: token, TripID: tripID, CreatedAt: s.now()})
		if err == nil {
			return token, nil
		}
		if !errors.Is(err, dbt.ErrAlreadyExists) {
			return "", fmt.Errorf("failed to record share token: %w", err)
		}
		log.Printf("Share token collision for trip %s, retrying", tripID)
	}
	return "", fmt.Errorf("failed to mint a unique share token after %d attempts", maxMintAttempts)
}

// DisableSharing clears the shared flag. The lookup entry and the trip's token
// are retained but inert. Disabling a private trip is a no-op.
func (s *Service) DisableSharing(ctx context.Context, tripID uuid.UUID) error {
	t, err := s.db.GetTrip(ctx, tripID)
	if err != nil {
		return fmt.Errorf("failed to disable sharing: %w", err)
	}
	if !t.IsShared {
		return nil
	}

	shared := false
	if err := s.trips.Update(ctx, tripID, dbt.TripPatch{IsShared: &shared}); err != nil {
		return fmt.Errorf("failed to disable sharing: %w", err)
	}
	log.Printf("Disabled sharing for trip %s", tripID)
	return nil
}

// ResolveShareToken returns the trip behind token only while it is shared under
// that same token. Unknown tokens, deleted trips and disabled sharing all yield nil, nil.
func (s *Service) ResolveShareToken(ctx context.Context, token string) (*dbt.Trip, error) {
	if token == "" {
		return nil, nil
	}
	lookup, err := s.db.GetSharedTrip(ctx, token)
	if err != nil {
		if errors.Is(err, dbt.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to resolve share token: %w", err)
	}

	t, err := s.loadTrip(ctx, lookup.TripID)
	if err != nil {
		if errors.Is(err, dbt.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to resolve share token: %w", err)
	}
	if t == nil || !t.IsShared || t.ShareToken != token {
		return nil, nil
	}
	return t, nil
}

func (s *Service) loadTrip(ctx context.Context, id uuid.UUID) (*dbt.Trip, error) {
	if loader, ok := dbt.TripDataLoaderFromContext(ctx); ok {
		t, err := loader.GetTripList.Load(ctx, id)
		if err != nil {
			return nil, err
		}
		return t.Clone(), nil
	}
	return s.db.GetTrip(ctx, id)
}

// BuildShareURL formats the public deep link {origin}/shared/{token}.
func (s *Service) BuildShareURL(token string) string {
	return BuildShareURL(s.origin, token)
}

func BuildShareURL(origin, token string) string {
	return strings.TrimRight(origin, "/") + "/shared/" + token
}

// CopyToAccount duplicates a shared trip into newOwner's collection as a private trip.
func (s *Service) CopyToAccount(ctx context.Context, token, newOwner string) (uuid.UUID, error) {
	source, err := s.ResolveShareToken(ctx, token)
	if err != nil {
		return uuid.Nil, err
	}
	if source == nil {
		return uuid.Nil, ErrSharedTripNotFound
	}

	in := trip.CreateInput{
		Name:        CopyName(source.Name),
		Description: source.Description,
		Waypoints:   source.Waypoints,
		Settings:    source.Settings,
	}
	if source.Metrics != nil {
		m := *source.Metrics
		in.Metrics = &m
	}
	id, err := s.trips.Create(ctx, newOwner, in)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to copy trip: %w", err)
	}
	log.Printf("Copied shared trip %s into %s as %s", source.ID, newOwner, id)
	return id, nil
}

// CopyName appends " (Copy)", truncating name so the result fits the name limit.
func CopyName(name string) string {
	base := verify.Truncate(strings.TrimSpace(name), trip.MaxNameLength-len([]rune(copySuffix)))
	return base + copySuffix
}
