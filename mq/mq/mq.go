package mq

import "github.com/google/uuid"

// TopicProvider is a message that knows which topic (trip) it belongs to.
type TopicProvider interface {
	GetTopic() uuid.UUID
}

// TripEventQueue fans trip change events out to subscribers of a single trip.
type TripEventQueue interface {
	Publish(msg TripEvent) error
	// Subscribe returns a subscriber id and a channel receiving events for tripID.
	// The channel is closed after DeSubscribe.
	Subscribe(tripID uuid.UUID) (uuid.UUID, <-chan TripEvent, error)
	DeSubscribe(id uuid.UUID) error
	Close() error
}
