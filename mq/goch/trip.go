package goch

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"motoroute/mq/mq"
)

const (
	subscriberBufferSize = 16
	publishTimeout       = time.Second
)

type subscriber[T any] struct {
	topic uuid.UUID
	ch    chan T
}

// fanOutQueueCore delivers every published message to the subscribers of its topic.
// A subscriber whose buffer is full is dropped and its channel closed, so one slow
// consumer never stalls the others.
type fanOutQueueCore[T mq.TopicProvider] struct {
	publishChan chan T
	subscribers map[uuid.UUID]*subscriber[T]
	mu          sync.RWMutex
	quit        chan struct{}
	stopOnce    sync.Once
	done        chan struct{}
	bufferSize  int
}

func newFanOutQueueCore[T mq.TopicProvider](bufferSize int) *fanOutQueueCore[T] {
	if bufferSize < 0 {
		bufferSize = 0
	}
	core := &fanOutQueueCore[T]{
		publishChan: make(chan T, bufferSize),
		subscribers: make(map[uuid.UUID]*subscriber[T]),
		quit:        make(chan struct{}),
		done:        make(chan struct{}),
		bufferSize:  bufferSize,
	}
	go core.startFanOutRoutine()
	return core
}

func (q *fanOutQueueCore[T]) startFanOutRoutine() {
	defer close(q.done)
	for {
		select {
		case msg := <-q.publishChan:
			q.fanOut(msg)
		case <-q.quit:
			return
		}
	}
}

func (q *fanOutQueueCore[T]) fanOut(msg T) {
	topic := msg.GetTopic()

	q.mu.Lock()
	defer q.mu.Unlock()
	for id, sub := range q.subscribers {
		if sub.topic != topic {
			continue
		}
		select {
		case sub.ch <- msg:
		default:
			log.Printf("Subscriber %s is not keeping up, removing it", id)
			delete(q.subscribers, id)
			close(sub.ch)
		}
	}
}

// Publish hands msg to the fan-out routine. It fails with ErrQueueFull when the
// routine does not accept the message within publishTimeout.
func (q *fanOutQueueCore[T]) Publish(msg T) error {
	select {
	case <-q.quit:
		return ErrQueueStopped
	default:
	}

	timer := time.NewTimer(publishTimeout)
	defer timer.Stop()
	select {
	case q.publishChan <- msg:
		return nil
	case <-q.quit:
		return ErrQueueStopped
	case <-timer.C:
		return ErrQueueFull
	}
}

func (q *fanOutQueueCore[T]) Subscribe(topic uuid.UUID) (uuid.UUID, <-chan T, error) {
	select {
	case <-q.quit:
		return uuid.Nil, nil, ErrQueueStopped
	default:
	}

	id := uuid.New()
	ch := make(chan T, subscriberBufferSize)

	q.mu.Lock()
	q.subscribers[id] = &subscriber[T]{topic: topic, ch: ch}
	q.mu.Unlock()
	return id, ch, nil
}

func (q *fanOutQueueCore[T]) DeSubscribe(id uuid.UUID) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	sub, ok := q.subscribers[id]
	if !ok {
		return ErrSubscriberNotFound
	}
	delete(q.subscribers, id)
	close(sub.ch)
	return nil
}

// Stop ends the fan-out routine. Subscriber channels stay open until DeSubscribe.
func (q *fanOutQueueCore[T]) Stop() {
	q.stopOnce.Do(func() {
		close(q.quit)
	})
	<-q.done
}

// GoChanTripEventQueue is an in-process mq.TripEventQueue.
type GoChanTripEventQueue struct {
	core *fanOutQueueCore[mq.TripEvent]
}

// NewGoChanTripEventQueue creates a queue whose publish buffer holds bufferSize events.
func NewGoChanTripEventQueue(bufferSize int) *GoChanTripEventQueue {
	return &GoChanTripEventQueue{core: newFanOutQueueCore[mq.TripEvent](bufferSize)}
}

func (q *GoChanTripEventQueue) Publish(msg mq.TripEvent) error {
	return q.core.Publish(msg)
}

func (q *GoChanTripEventQueue) Subscribe(tripID uuid.UUID) (uuid.UUID, <-chan mq.TripEvent, error) {
	return q.core.Subscribe(tripID)
}

func (q *GoChanTripEventQueue) DeSubscribe(id uuid.UUID) error {
	return q.core.DeSubscribe(id)
}

func (q *GoChanTripEventQueue) Close() error {
	q.core.Stop()
	return nil
}

// --- Error Definitions ---
type QueueError string

func (e QueueError) Error() string {
	return string(e)
}

const (
	ErrQueueFull          QueueError = "message queue is full"
	ErrQueueStopped       QueueError = "message queue is stopped"
	ErrSubscriberNotFound QueueError = "subscriber not found"
)
