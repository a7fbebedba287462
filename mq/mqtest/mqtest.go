// Package mqtest holds the behavior every mq.TripEventQueue backend must share.
package mqtest

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"motoroute/mq/mq"
)

// ReceiveWithTimeout returns the next message, or false on timeout or a closed channel.
func ReceiveWithTimeout[T any](tb testing.TB, ch <-chan T, timeout time.Duration) (T, bool) {
	tb.Helper()
	select {
	case msg, ok := <-ch:
		if !ok {
			var zero T
			return zero, false
		}
		return msg, true
	case <-time.After(timeout):
		var zero T
		return zero, false
	}
}

// WaitClosed drains ch until it is closed, reporting false on timeout.
func WaitClosed[T any](ch <-chan T, timeout time.Duration) bool {
	deadline := time.After(timeout)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return true
			}
		case <-deadline:
			return false
		}
	}
}

// Run exercises queue against the mq.TripEventQueue contract. wait bounds every
// delivery, remote brokers need more than in-process channels.
func Run(t *testing.T, newQueue func(t *testing.T) mq.TripEventQueue, wait time.Duration) {
	t.Run("DeliversToTopicSubscribers", func(t *testing.T) {
		q := newQueue(t)
		tripID := uuid.New()
		otherID := uuid.New()

		_, ch1, err := q.Subscribe(tripID)
		require.NoError(t, err)
		_, ch2, err := q.Subscribe(tripID)
		require.NoError(t, err)
		_, chOther, err := q.Subscribe(otherID)
		require.NoError(t, err)

		event := mq.TripEvent{
			TripID:        tripID,
			OwnerID:       "alice",
			Action:        mq.ActionUpdate,
			ChangedFields: []string{"Name"},
			At:            time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		}
		require.NoError(t, q.Publish(event))

		for _, ch := range []<-chan mq.TripEvent{ch1, ch2} {
			got, ok := ReceiveWithTimeout(t, ch, wait)
			require.True(t, ok, "subscriber did not receive the event")
			assert.Equal(t, event.TripID, got.TripID)
			assert.Equal(t, mq.ActionUpdate, got.Action)
			assert.Equal(t, []string{"Name"}, got.ChangedFields)
			assert.True(t, event.At.Equal(got.At))
		}

		_, ok := ReceiveWithTimeout(t, chOther, 200*time.Millisecond)
		assert.False(t, ok, "subscriber of another trip received the event")
	})

	t.Run("DeSubscribeClosesChannel", func(t *testing.T) {
		q := newQueue(t)
		tripID := uuid.New()
		id, ch, err := q.Subscribe(tripID)
		require.NoError(t, err)

		require.NoError(t, q.DeSubscribe(id))
		assert.True(t, WaitClosed(ch, wait))

		assert.Error(t, q.DeSubscribe(id))
		assert.Error(t, q.DeSubscribe(uuid.New()))
	})

	t.Run("SubscribeProcessor", func(t *testing.T) {
		q := newQueue(t)
		tripID := uuid.New()
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		out := make(chan string)
		var received <-chan string = out
		mq.SubscribeProcessor[mq.TripEventQueue, mq.TripEvent, string](tripID, ctx, q, func(e mq.TripEvent) (string, bool, error) {
			return e.Action.String(), e.Action == mq.ActionCreate, nil
		}, out)

		// the processor subscribes asynchronously; publish until the first event arrives
		deadline := time.Now().Add(wait)
		var got string
		for got == "" && time.Now().Before(deadline) {
			require.NoError(t, q.Publish(mq.TripEvent{TripID: tripID, Action: mq.ActionCreate}))
			require.NoError(t, q.Publish(mq.TripEvent{TripID: tripID, Action: mq.ActionShare}))
			got, _ = ReceiveWithTimeout(t, received, 100*time.Millisecond)
		}
		assert.Equal(t, "share", got)

		cancel()
		assert.True(t, WaitClosed(received, wait))
	})
}
