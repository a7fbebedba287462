package migrations

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(upInitTables, downInitTables)
}

func upInitTables(ctx context.Context, tx *sql.Tx) error {
	// Create trips table
	_, err := tx.ExecContext(ctx, `
		CREATE TABLE trips (
			id UUID PRIMARY KEY,
			owner_id VARCHAR(128) NOT NULL,
			name VARCHAR(100) NOT NULL,
			description VARCHAR(500) NOT NULL DEFAULT '',
			avoid_highways BOOLEAN NOT NULL DEFAULT TRUE,
			total_distance INTEGER,
			total_duration INTEGER,
			legs INTEGER,
			is_shared BOOLEAN NOT NULL DEFAULT FALSE,
			share_token VARCHAR(64) NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			CONSTRAINT chk_trips_shared_token CHECK (NOT is_shared OR share_token <> '')
		);
	`)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `CREATE INDEX idx_trips_owner_updated ON trips(owner_id, updated_at DESC);`)
	if err != nil {
		return err
	}

	// Create trip_waypoints table
	_, err = tx.ExecContext(ctx, `
		CREATE TABLE trip_waypoints (
			trip_id UUID NOT NULL,
			position INTEGER NOT NULL,
			waypoint_id VARCHAR(64) NOT NULL,
			lat DOUBLE PRECISION NOT NULL,
			lng DOUBLE PRECISION NOT NULL,
			address TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (trip_id, position),
			CONSTRAINT fk_trip_waypoints_trip
				FOREIGN KEY(trip_id)
				REFERENCES trips(id)
				ON UPDATE CASCADE
				ON DELETE CASCADE
		);
	`)
	if err != nil {
		return err
	}

	// share lookups outlive their trips, no foreign key
	_, err = tx.ExecContext(ctx, `
		CREATE TABLE shared_trips (
			token VARCHAR(64) PRIMARY KEY,
			trip_id UUID NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		CREATE TABLE users (
			id VARCHAR(128) PRIMARY KEY,
			email VARCHAR(320) NOT NULL,
			display_name VARCHAR(100) NOT NULL DEFAULT '',
			password_hash VARCHAR(100) NOT NULL DEFAULT '',
			provider VARCHAR(32) NOT NULL,
			avoid_highways BOOLEAN NOT NULL DEFAULT TRUE,
			units VARCHAR(16) NOT NULL DEFAULT 'miles',
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			last_login_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `CREATE UNIQUE INDEX idx_users_email ON users(LOWER(email));`)
	return err
}

func downInitTables(ctx context.Context, tx *sql.Tx) error {
	for _, table := range []string{"users", "shared_trips", "trip_waypoints", "trips"} {
		if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+table+";"); err != nil {
			return err
		}
	}
	return nil
}
