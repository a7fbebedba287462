package gcppubsub_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"motoroute/mq/gcppubsub"
	"motoroute/mq/mq"
	"motoroute/mq/mqtest"
)

// Requires the Pub/Sub emulator:
//
//	gcloud beta emulators pubsub start --project=test-project
//
// The client library picks up PUBSUB_EMULATOR_HOST; without it the test is skipped.
const testProjectID = "test-project"

func TestPubSubTripEventQueue(t *testing.T) {
	if os.Getenv("PUBSUB_EMULATOR_HOST") == "" {
		t.Skip("PUBSUB_EMULATOR_HOST not set")
	}

	mqtest.Run(t, func(t *testing.T) mq.TripEventQueue {
		ctx := context.Background()
		client, err := gcppubsub.NewClient(ctx, testProjectID)
		require.NoError(t, err)
		q, err := gcppubsub.NewTripEventQueue(ctx, client)
		require.NoError(t, err)
		t.Cleanup(func() { _ = q.Close() })
		return q
	}, 10*time.Second)
}

func TestNewClientRequiresProject(t *testing.T) {
	_, err := gcppubsub.NewClient(context.Background(), "")
	require.Error(t, err)
}
