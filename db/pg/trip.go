package pg

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbt "motoroute/db/db"
	"motoroute/waypoint"
)

// GORMDBWrapper is a GORM-based PostgreSQL implementation of dbt.Store.
type GORMDBWrapper struct {
	db *gorm.DB
}

// NewGORMDBWrapper creates and returns a new instance of GORMDBWrapper.
func NewGORMDBWrapper(db *gorm.DB) dbt.Store {
	return &GORMDBWrapper{
		db: db,
	}
}

func isDuplicate(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) ||
		strings.Contains(err.Error(), "duplicate key value violates unique constraint")
}

func tripToModel(trip *dbt.Trip) TripModel {
	model := TripModel{
		ID:            trip.ID,
		OwnerID:       trip.OwnerID,
		Name:          trip.Name,
		Description:   trip.Description,
		AvoidHighways: trip.Settings.AvoidHighways,
		IsShared:      trip.IsShared,
		ShareToken:    trip.ShareToken,
		CreatedAt:     trip.CreatedAt,
		UpdatedAt:     trip.UpdatedAt,
	}
	if trip.Metrics != nil {
		model.TotalDistance = &trip.Metrics.TotalDistance
		model.TotalDuration = &trip.Metrics.TotalDuration
		model.Legs = &trip.Metrics.Legs
	}
	return model
}

func modelToTrip(model TripModel, wps []WaypointModel) *dbt.Trip {
	trip := &dbt.Trip{
		ID:          model.ID,
		OwnerID:     model.OwnerID,
		Name:        model.Name,
		Description: model.Description,
		Waypoints:   make([]waypoint.Waypoint, 0, len(wps)),
		Settings:    dbt.TripSettings{AvoidHighways: model.AvoidHighways},
		IsShared:    model.IsShared,
		ShareToken:  model.ShareToken,
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}
	if model.TotalDistance != nil && model.TotalDuration != nil && model.Legs != nil {
		trip.Metrics = &dbt.RouteMetrics{
			TotalDistance: *model.TotalDistance,
			TotalDuration: *model.TotalDuration,
			Legs:          *model.Legs,
		}
	}
	for _, wp := range wps {
		trip.Waypoints = append(trip.Waypoints, waypoint.Waypoint{
			ID:       wp.WaypointID,
			Position: waypoint.Position{Lat: wp.Lat, Lng: wp.Lng},
			Address:  wp.Address,
			Order:    wp.Position,
		})
	}
	return trip
}

func waypointModels(tripID uuid.UUID, wps []waypoint.Waypoint) []WaypointModel {
	models := make([]WaypointModel, len(wps))
	for i, wp := range waypoint.Renumber(wps) {
		models[i] = WaypointModel{
			TripID:     tripID,
			Position:   wp.Order,
			WaypointID: wp.ID,
			Lat:        wp.Position.Lat,
			Lng:        wp.Position.Lng,
			Address:    wp.Address,
		}
	}
	return models
}

// CreateTrip inserts the trip and its waypoints in one transaction.
func (pgdb *GORMDBWrapper) CreateTrip(ctx context.Context, trip *dbt.Trip) error {
	if trip.ID == uuid.Nil {
		trip.ID = uuid.New()
	}
	model := tripToModel(trip)
	return pgdb.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&model).Error; err != nil {
			if isDuplicate(err) {
				return fmt.Errorf("trip with ID %s: %w", trip.ID, dbt.ErrAlreadyExists)
			}
			return fmt.Errorf("failed to create trip: %w", err)
		}
		if len(trip.Waypoints) == 0 {
			return nil
		}
		wps := waypointModels(trip.ID, trip.Waypoints)
		if err := tx.Create(&wps).Error; err != nil {
			return fmt.Errorf("failed to create waypoints for trip %s: %w", trip.ID, err)
		}
		return nil
	})
}

func (pgdb *GORMDBWrapper) CreateSharedTrip(ctx context.Context, shared *dbt.SharedTrip) error {
	model := SharedTripModel{
		Token:     shared.Token,
		TripID:    shared.TripID,
		CreatedAt: shared.CreatedAt,
	}
	if err := pgdb.db.WithContext(ctx).Create(&model).Error; err != nil {
		if isDuplicate(err) {
			return fmt.Errorf("share token: %w", dbt.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to create shared trip: %w", err)
	}
	return nil
}

func (pgdb *GORMDBWrapper) GetTrip(ctx context.Context, id uuid.UUID) (*dbt.Trip, error) {
	db := pgdb.db.WithContext(ctx)
	var model TripModel
	result := db.First(&model, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("trip with ID %s: %w", id, dbt.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get trip %s: %w", id, result.Error)
	}

	var wps []WaypointModel
	if err := db.Where("trip_id = ?", id).Order("position").Find(&wps).Error; err != nil {
		return nil, fmt.Errorf("failed to get waypoints for trip %s: %w", id, err)
	}
	return modelToTrip(model, wps), nil
}

func (pgdb *GORMDBWrapper) ListTripsByOwner(ctx context.Context, ownerID string) ([]dbt.Trip, error) {
	db := pgdb.db.WithContext(ctx)
	var models []TripModel
	if err := db.Where("owner_id = ?", ownerID).Order("updated_at DESC").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list trips for owner %s: %w", ownerID, err)
	}
	if len(models) == 0 {
		return []dbt.Trip{}, nil
	}

	ids := make([]uuid.UUID, len(models))
	for i, m := range models {
		ids[i] = m.ID
	}
	byTrip, err := pgdb.waypointsByTrip(db, ids)
	if err != nil {
		return nil, err
	}

	trips := make([]dbt.Trip, len(models))
	for i, m := range models {
		trips[i] = *modelToTrip(m, byTrip[m.ID])
	}
	dbt.SortTripsByUpdated(trips)
	return trips, nil
}

func (pgdb *GORMDBWrapper) waypointsByTrip(db *gorm.DB, ids []uuid.UUID) (map[uuid.UUID][]WaypointModel, error) {
	var wps []WaypointModel
	if err := db.Where("trip_id IN ?", ids).Order("trip_id, position").Find(&wps).Error; err != nil {
		return nil, fmt.Errorf("failed to get waypoints: %w", err)
	}
	byTrip := make(map[uuid.UUID][]WaypointModel, len(ids))
	for _, wp := range wps {
		byTrip[wp.TripID] = append(byTrip[wp.TripID], wp)
	}
	return byTrip, nil
}

func (pgdb *GORMDBWrapper) GetSharedTrip(ctx context.Context, token string) (*dbt.SharedTrip, error) {
	var model SharedTripModel
	result := pgdb.db.WithContext(ctx).First(&model, "token = ?", token)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("share token: %w", dbt.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get shared trip: %w", result.Error)
	}
	return &dbt.SharedTrip{Token: model.Token, TripID: model.TripID, CreatedAt: model.CreatedAt}, nil
}

// UpdateTrip applies patch in one transaction. Waypoints, when patched, are replaced as a whole.
func (pgdb *GORMDBWrapper) UpdateTrip(ctx context.Context, id uuid.UUID, patch dbt.TripPatch) error {
	return pgdb.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model TripModel
		if err := tx.First(&model, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("trip with ID %s not found for update: %w", id, dbt.ErrNotFound)
			}
			return fmt.Errorf("failed to get trip %s: %w", id, err)
		}

		updates := map[string]any{}
		if patch.Name != nil {
			updates["name"] = *patch.Name
		}
		if patch.Description != nil {
			updates["description"] = *patch.Description
		}
		if patch.Settings != nil {
			updates["avoid_highways"] = patch.Settings.AvoidHighways
		}
		if patch.Metrics != nil {
			updates["total_distance"] = patch.Metrics.TotalDistance
			updates["total_duration"] = patch.Metrics.TotalDuration
			updates["legs"] = patch.Metrics.Legs
		}
		if patch.IsShared != nil {
			updates["is_shared"] = *patch.IsShared
		}
		if patch.ShareToken != nil {
			updates["share_token"] = *patch.ShareToken
		}
		if !patch.UpdatedAt.IsZero() {
			updates["updated_at"] = patch.UpdatedAt
		}
		if len(updates) > 0 {
			if err := tx.Model(&TripModel{}).Where("id = ?", id).Updates(updates).Error; err != nil {
				return fmt.Errorf("failed to update trip %s: %w", id, err)
			}
		}

		if patch.Waypoints != nil {
			if err := tx.Where("trip_id = ?", id).Delete(&WaypointModel{}).Error; err != nil {
				return fmt.Errorf("failed to clear waypoints for trip %s: %w", id, err)
			}
			if len(patch.Waypoints) > 0 {
				wps := waypointModels(id, patch.Waypoints)
				if err := tx.Create(&wps).Error; err != nil {
					return fmt.Errorf("failed to replace waypoints for trip %s: %w", id, err)
				}
			}
		}
		return nil
	})
}

func (pgdb *GORMDBWrapper) DeleteTrip(ctx context.Context, id uuid.UUID) error {
	result := pgdb.db.WithContext(ctx).Delete(&TripModel{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete trip %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("trip with ID %s not found for deletion: %w", id, dbt.ErrNotFound)
	}
	return nil
}

func (pgdb *GORMDBWrapper) DataLoaderGetTripList(ctx context.Context, tripIDs []uuid.UUID) (map[uuid.UUID]*dbt.Trip, error) {
	result := make(map[uuid.UUID]*dbt.Trip, len(tripIDs))
	for _, id := range tripIDs {
		result[id] = nil
	}
	if len(tripIDs) == 0 {
		return result, nil
	}

	db := pgdb.db.WithContext(ctx)
	var models []TripModel
	if err := db.Where("id IN ?", tripIDs).Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to load trips: %w", err)
	}
	byTrip, err := pgdb.waypointsByTrip(db, tripIDs)
	if err != nil {
		return nil, err
	}
	for _, m := range models {
		result[m.ID] = modelToTrip(m, byTrip[m.ID])
	}
	return result, nil
}

func (pgdb *GORMDBWrapper) CreateUser(ctx context.Context, user *dbt.UserProfile) error {
	model := UserModel{
		ID:            user.ID,
		Email:         user.Email,
		DisplayName:   user.DisplayName,
		PasswordHash:  user.PasswordHash,
		Provider:      user.Provider,
		AvoidHighways: user.Settings.AvoidHighways,
		Units:         string(user.Settings.Units),
		CreatedAt:     user.CreatedAt,
		LastLoginAt:   user.LastLoginAt,
	}
	if err := pgdb.db.WithContext(ctx).Create(&model).Error; err != nil {
		if isDuplicate(err) {
			return fmt.Errorf("user %s: %w", user.Email, dbt.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func userFromModel(model UserModel) *dbt.UserProfile {
	return &dbt.UserProfile{
		ID:           model.ID,
		Email:        model.Email,
		DisplayName:  model.DisplayName,
		PasswordHash: model.PasswordHash,
		Provider:     model.Provider,
		CreatedAt:    model.CreatedAt,
		LastLoginAt:  model.LastLoginAt,
		Settings: dbt.UserSettings{
			AvoidHighways: model.AvoidHighways,
			Units:         dbt.Units(model.Units),
		},
	}
}

func (pgdb *GORMDBWrapper) GetUser(ctx context.Context, id string) (*dbt.UserProfile, error) {
	var model UserModel
	if err := pgdb.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user with ID %s: %w", id, dbt.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user %s: %w", id, err)
	}
	return userFromModel(model), nil
}

func (pgdb *GORMDBWrapper) GetUserByEmail(ctx context.Context, email string) (*dbt.UserProfile, error) {
	var model UserModel
	if err := pgdb.db.WithContext(ctx).First(&model, "LOWER(email) = LOWER(?)", email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user with email %s: %w", email, dbt.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return userFromModel(model), nil
}

func (pgdb *GORMDBWrapper) UpdateUserLastLogin(ctx context.Context, id string, at time.Time) error {
	result := pgdb.db.WithContext(ctx).Model(&UserModel{}).Where("id = ?", id).Update("last_login_at", at)
	if result.Error != nil {
		return fmt.Errorf("failed to update user %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("user with ID %s: %w", id, dbt.ErrNotFound)
	}
	return nil
}
