package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	dbt "motoroute/db/db"
	"motoroute/waypoint"
)

// SQLiteDBWrapper is a database/sql implementation of dbt.Store.
// Timestamps are stored as unix nanoseconds.
type SQLiteDBWrapper struct {
	db *sql.DB
}

func NewSQLiteDBWrapper(db *sql.DB) dbt.Store {
	return &SQLiteDBWrapper{db: db}
}

const tripColumns = `id, owner_id, name, description, waypoints, avoid_highways,
	total_distance, total_duration, legs, is_shared, share_token, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func isUnique(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func toNanos(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromNanos(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}

func scanTrip(row rowScanner) (*dbt.Trip, error) {
	var (
		trip                     dbt.Trip
		id, wps                  string
		distance, duration, legs sql.NullInt64
		createdAt, updatedAt     int64
	)
	err := row.Scan(&id, &trip.OwnerID, &trip.Name, &trip.Description, &wps, &trip.Settings.AvoidHighways,
		&distance, &duration, &legs, &trip.IsShared, &trip.ShareToken, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	if trip.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("invalid trip id %q: %w", id, err)
	}
	if err := json.Unmarshal([]byte(wps), &trip.Waypoints); err != nil {
		return nil, fmt.Errorf("invalid waypoints for trip %s: %w", id, err)
	}
	if distance.Valid && duration.Valid && legs.Valid {
		trip.Metrics = &dbt.RouteMetrics{
			TotalDistance: int(distance.Int64),
			TotalDuration: int(duration.Int64),
			Legs:          int(legs.Int64),
		}
	}
	trip.CreatedAt = fromNanos(createdAt)
	trip.UpdatedAt = fromNanos(updatedAt)
	return &trip, nil
}

func tripArgs(trip *dbt.Trip) ([]any, error) {
	wps := trip.Waypoints
	if wps == nil {
		wps = []waypoint.Waypoint{}
	}
	encoded, err := json.Marshal(wps)
	if err != nil {
		return nil, fmt.Errorf("failed to encode waypoints: %w", err)
	}
	var distance, duration, legs sql.NullInt64
	if trip.Metrics != nil {
		distance = sql.NullInt64{Int64: int64(trip.Metrics.TotalDistance), Valid: true}
		duration = sql.NullInt64{Int64: int64(trip.Metrics.TotalDuration), Valid: true}
		legs = sql.NullInt64{Int64: int64(trip.Metrics.Legs), Valid: true}
	}
	return []any{
		trip.ID.String(), trip.OwnerID, trip.Name, trip.Description, string(encoded), trip.Settings.AvoidHighways,
		distance, duration, legs, trip.IsShared, trip.ShareToken, toNanos(trip.CreatedAt), toNanos(trip.UpdatedAt),
	}, nil
}

func (s *SQLiteDBWrapper) CreateTrip(ctx context.Context, trip *dbt.Trip) error {
	if trip.ID == uuid.Nil {
		trip.ID = uuid.New()
	}
	args, err := tripArgs(trip)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO trips (`+tripColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, args...)
	if err != nil {
		if isUnique(err) {
			return fmt.Errorf("trip with ID %s: %w", trip.ID, dbt.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to create trip: %w", err)
	}
	return nil
}

func (s *SQLiteDBWrapper) CreateSharedTrip(ctx context.Context, shared *dbt.SharedTrip) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO shared_trips (token, trip_id, created_at) VALUES (?, ?, ?)`,
		shared.Token, shared.TripID.String(), toNanos(shared.CreatedAt))
	if err != nil {
		if isUnique(err) {
			return fmt.Errorf("share token: %w", dbt.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to create shared trip: %w", err)
	}
	return nil
}

func (s *SQLiteDBWrapper) getTrip(ctx context.Context, q interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}, id uuid.UUID) (*dbt.Trip, error) {
	trip, err := scanTrip(q.QueryRowContext(ctx, `SELECT `+tripColumns+` FROM trips WHERE id = ?`, id.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("trip with ID %s: %w", id, dbt.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get trip %s: %w", id, err)
	}
	return trip, nil
}

func (s *SQLiteDBWrapper) GetTrip(ctx context.Context, id uuid.UUID) (*dbt.Trip, error) {
	return s.getTrip(ctx, s.db, id)
}

func (s *SQLiteDBWrapper) queryTrips(ctx context.Context, query string, args ...any) ([]dbt.Trip, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	trips := []dbt.Trip{}
	for rows.Next() {
		trip, err := scanTrip(rows)
		if err != nil {
			return nil, err
		}
		trips = append(trips, *trip)
	}
	return trips, rows.Err()
}

func (s *SQLiteDBWrapper) ListTripsByOwner(ctx context.Context, ownerID string) ([]dbt.Trip, error) {
	trips, err := s.queryTrips(ctx,
		`SELECT `+tripColumns+` FROM trips WHERE owner_id = ? ORDER BY updated_at DESC, created_at DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list trips for owner %s: %w", ownerID, err)
	}
	dbt.SortTripsByUpdated(trips)
	return trips, nil
}

func (s *SQLiteDBWrapper) GetSharedTrip(ctx context.Context, token string) (*dbt.SharedTrip, error) {
	var (
		tripID    string
		createdAt int64
	)
	err := s.db.QueryRowContext(ctx, `SELECT trip_id, created_at FROM shared_trips WHERE token = ?`, token).
		Scan(&tripID, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("share token: %w", dbt.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get shared trip: %w", err)
	}
	id, err := uuid.Parse(tripID)
	if err != nil {
		return nil, fmt.Errorf("invalid trip id %q: %w", tripID, err)
	}
	return &dbt.SharedTrip{Token: token, TripID: id, CreatedAt: fromNanos(createdAt)}, nil
}

// UpdateTrip reads, patches and rewrites the row in one transaction.
func (s *SQLiteDBWrapper) UpdateTrip(ctx context.Context, id uuid.UUID, patch dbt.TripPatch) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	trip, err := s.getTrip(ctx, tx, id)
	if err != nil {
		if errors.Is(err, dbt.ErrNotFound) {
			return fmt.Errorf("trip with ID %s not found for update: %w", id, dbt.ErrNotFound)
		}
		return err
	}
	patch.Apply(trip)

	args, err := tripArgs(trip)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `UPDATE trips SET owner_id = ?, name = ?, description = ?, waypoints = ?,
		avoid_highways = ?, total_distance = ?, total_duration = ?, legs = ?, is_shared = ?, share_token = ?,
		created_at = ?, updated_at = ? WHERE id = ?`, append(args[1:], args[0])...)
	if err != nil {
		return fmt.Errorf("failed to update trip %s: %w", id, err)
	}
	return tx.Commit()
}

func (s *SQLiteDBWrapper) DeleteTrip(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM trips WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("failed to delete trip %s: %w", id, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("trip with ID %s not found for deletion: %w", id, dbt.ErrNotFound)
	}
	return nil
}

func (s *SQLiteDBWrapper) DataLoaderGetTripList(ctx context.Context, tripIDs []uuid.UUID) (map[uuid.UUID]*dbt.Trip, error) {
	result := make(map[uuid.UUID]*dbt.Trip, len(tripIDs))
	if len(tripIDs) == 0 {
		return result, nil
	}
	placeholders := make([]string, len(tripIDs))
	args := make([]any, len(tripIDs))
	for i, id := range tripIDs {
		result[id] = nil
		placeholders[i] = "?"
		args[i] = id.String()
	}
	trips, err := s.queryTrips(ctx,
		`SELECT `+tripColumns+` FROM trips WHERE id IN (`+strings.Join(placeholders, ", ")+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load trips: %w", err)
	}
	for i := range trips {
		result[trips[i].ID] = &trips[i]
	}
	return result, nil
}

const userColumns = `id, email, display_name, password_hash, provider, avoid_highways, units, created_at, last_login_at`

func (s *SQLiteDBWrapper) CreateUser(ctx context.Context, user *dbt.UserProfile) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.Email, user.DisplayName, user.PasswordHash, user.Provider,
		user.Settings.AvoidHighways, string(user.Settings.Units), toNanos(user.CreatedAt), toNanos(user.LastLoginAt))
	if err != nil {
		if isUnique(err) {
			return fmt.Errorf("user %s: %w", user.Email, dbt.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func scanUser(row rowScanner) (*dbt.UserProfile, error) {
	var (
		user                   dbt.UserProfile
		units                  string
		createdAt, lastLoginAt int64
	)
	err := row.Scan(&user.ID, &user.Email, &user.DisplayName, &user.PasswordHash, &user.Provider,
		&user.Settings.AvoidHighways, &units, &createdAt, &lastLoginAt)
	if err != nil {
		return nil, err
	}
	user.Settings.Units = dbt.Units(units)
	user.CreatedAt = fromNanos(createdAt)
	user.LastLoginAt = fromNanos(lastLoginAt)
	return &user, nil
}

func (s *SQLiteDBWrapper) GetUser(ctx context.Context, id string) (*dbt.UserProfile, error) {
	user, err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user with ID %s: %w", id, dbt.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user %s: %w", id, err)
	}
	return user, nil
}

func (s *SQLiteDBWrapper) GetUserByEmail(ctx context.Context, email string) (*dbt.UserProfile, error) {
	user, err := scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ? COLLATE NOCASE`, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user with email %s: %w", email, dbt.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return user, nil
}

func (s *SQLiteDBWrapper) UpdateUserLastLogin(ctx context.Context, id string, at time.Time) error {
	result, err := s.db.ExecContext(ctx, `UPDATE users SET last_login_at = ? WHERE id = ?`, toNanos(at), id)
	if err != nil {
		return fmt.Errorf("failed to update user %s: %w", id, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("user with ID %s: %w", id, dbt.ErrNotFound)
	}
	return nil
}
