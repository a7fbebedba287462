package mq

import (
	"time"

	"github.com/google/uuid"
)

type Action int

const (
	ActionCreate Action = iota
	ActionUpdate
	ActionDelete
	ActionShare
	ActionUnshare
	ActionCnt
)

var actionNames = [ActionCnt]string{"create", "update", "delete", "share", "unshare"}

func (a Action) String() string {
	if a < 0 || a >= ActionCnt {
		return "unknown"
	}
	return actionNames[a]
}

// TripEvent reports a change to a stored trip.
type TripEvent struct {
	TripID        uuid.UUID `json:"tripId"`
	OwnerID       string    `json:"ownerId"`
	Action        Action    `json:"action"`
	ChangedFields []string  `json:"changedFields,omitempty"`
	IsShared      bool      `json:"isShared"`
	At            time.Time `json:"at"`
}

func (e TripEvent) GetTopic() uuid.UUID {
	return e.TripID
}
