package pg

import (
	"time"

	"github.com/google/uuid"
)

type TripModel struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	OwnerID       string    `gorm:"size:128;not null;index"`
	Name          string    `gorm:"size:100;not null"`
	Description   string    `gorm:"size:500;not null"`
	AvoidHighways bool      `gorm:"not null"`
	// route metrics, all null when the trip was saved without a route
	TotalDistance *int
	TotalDuration *int
	Legs          *int
	IsShared      bool   `gorm:"not null"`
	ShareToken    string `gorm:"size:64;not null"`
	// meta data
	CreatedAt time.Time `gorm:"autoCreateTime:false"`
	UpdatedAt time.Time `gorm:"autoUpdateTime:false"`
}

// TableName returns the table name for TripModel.
func (TripModel) TableName() string {
	return "trips"
}

type WaypointModel struct {
	TripID     uuid.UUID `gorm:"type:uuid;primaryKey"`
	Position   int       `gorm:"primaryKey"` // 1-based order within the trip
	WaypointID string    `gorm:"size:64;not null"`
	Lat        float64   `gorm:"not null"`
	Lng        float64   `gorm:"not null"`
	Address    string    `gorm:"not null"`
}

func (WaypointModel) TableName() string {
	return "trip_waypoints"
}

// SharedTripModel has no foreign key: lookups outlive the trips they point to.
type SharedTripModel struct {
	Token     string    `gorm:"size:64;primaryKey"`
	TripID    uuid.UUID `gorm:"type:uuid;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime:false"`
}

func (SharedTripModel) TableName() string {
	return "shared_trips"
}

type UserModel struct {
	ID            string `gorm:"size:128;primaryKey"`
	Email         string `gorm:"size:320;not null"`
	DisplayName   string `gorm:"size:100;not null"`
	PasswordHash  string `gorm:"size:100;not null"`
	Provider      string `gorm:"size:32;not null"`
	AvoidHighways bool   `gorm:"not null"`
	Units         string `gorm:"size:16;not null"`
	// meta data
	CreatedAt   time.Time `gorm:"autoCreateTime:false"`
	LastLoginAt time.Time
}

// TableName returns the table name for UserModel.
func (UserModel) TableName() string {
	return "users"
}
