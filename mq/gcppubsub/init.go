package gcppubsub

import (
	"context"
	"fmt"

	"cloud.google.com/go/pubsub"
)

const tripEventsTopicID = "motoroute-trip-events"

// NewClient connects to Pub/Sub for projectID. PUBSUB_EMULATOR_HOST is honored by the client library.
func NewClient(ctx context.Context, projectID string) (*pubsub.Client, error) {
	if projectID == "" {
		return nil, fmt.Errorf("GCP project id is required")
	}
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCP Pub/Sub client for project %s: %w", projectID, err)
	}
	return client, nil
}
