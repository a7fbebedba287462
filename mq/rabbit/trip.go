package rabbit

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"motoroute/mq/mq"
)

const (
	exchangeName = "trip_events_exchange" // All trip-related events go through this exchange
)

// routingKey is trip.<trip id>.<action>; subscribers bind trip.<trip id>.*.
func routingKey(tripID uuid.UUID, action mq.Action) string {
	return fmt.Sprintf("trip.%s.%s", tripID, action)
}

func bindingKey(tripID uuid.UUID) string {
	return fmt.Sprintf("trip.%s.*", tripID)
}

// rabbitTripEventQueue implements mq.TripEventQueue on a RabbitMQ topic exchange.
type rabbitTripEventQueue struct {
	conn      *amqp.Connection
	channel   *amqp.Channel
	chMu      sync.Mutex // amqp channels are not safe for concurrent use
	mu        sync.Mutex // Protects the consumers map
	consumers map[uuid.UUID]string
}

// NewRabbitTripEventQueue opens a channel on conn and declares the exchange.
func NewRabbitTripEventQueue(conn *amqp.Connection) (mq.TripEventQueue, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}
	if err := DeclareExchange(ch, exchangeName); err != nil {
		ch.Close()
		return nil, err
	}
	return &rabbitTripEventQueue{
		conn:      conn,
		channel:   ch,
		consumers: make(map[uuid.UUID]string),
	}, nil
}

// Publish sends msg to the exchange under the trip's routing key.
func (q *rabbitTripEventQueue) Publish(msg mq.TripEvent) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	q.chMu.Lock()
	defer q.chMu.Unlock()
	err = q.channel.PublishWithContext(ctx,
		exchangeName,                       // exchange
		routingKey(msg.TripID, msg.Action), // routing key
		false,                              // mandatory
		false,                              // immediate
		amqp.Publishing{
			ContentType: "application/json",
			Timestamp:   msg.At,
			Body:        body,
		})
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	return nil
}

// Subscribe declares a private queue for tripID and relays its deliveries.
func (q *rabbitTripEventQueue) Subscribe(tripID uuid.UUID) (uuid.UUID, <-chan mq.TripEvent, error) {
	subscriberID := uuid.New()
	consumerTag := subscriberID.String()

	q.chMu.Lock()
	queueName, err := DeclareSubscriberQueue(q.channel, exchangeName, bindingKey(tripID))
	var msgs <-chan amqp.Delivery
	if err == nil {
		msgs, err = q.channel.Consume(
			queueName,   // queue
			consumerTag, // consumer
			true,        // auto-ack
			true,        // exclusive
			false,       // no-local
			false,       // no-wait
			nil,         // args
		)
	}
	q.chMu.Unlock()
	if err != nil {
		return uuid.Nil, nil, fmt.Errorf("failed to register a consumer: %w", err)
	}

	q.mu.Lock()
	q.consumers[subscriberID] = consumerTag
	q.mu.Unlock()

	outputChan := make(chan mq.TripEvent, 16)
	go func() {
		// deliveries close once the consumer is cancelled
		defer close(outputChan)
		for d := range msgs {
			var msg mq.TripEvent
			if err := json.Unmarshal(d.Body, &msg); err != nil {
				log.Printf("Failed to unmarshal TripEvent: %v", err)
				continue
			}
			select {
			case outputChan <- msg:
			case <-time.After(1 * time.Second):
				log.Printf("Timeout sending TripEvent to consumer %s. Skipping.", subscriberID)
			}
		}
	}()

	return subscriberID, outputChan, nil
}

// DeSubscribe cancels the consumer; its channel closes once RabbitMQ confirms.
func (q *rabbitTripEventQueue) DeSubscribe(subscriberID uuid.UUID) error {
	q.mu.Lock()
	consumerTag, ok := q.consumers[subscriberID]
	delete(q.consumers, subscriberID)
	q.mu.Unlock()
	if !ok {
		return fmt.Errorf("consumer with ID %s not found", subscriberID)
	}

	q.chMu.Lock()
	defer q.chMu.Unlock()
	if err := q.channel.Cancel(consumerTag, false); err != nil {
		return fmt.Errorf("failed to cancel consumer %s: %w", subscriberID, err)
	}
	return nil
}

// Close closes the channel and the RabbitMQ connection.
func (q *rabbitTripEventQueue) Close() error {
	q.chMu.Lock()
	defer q.chMu.Unlock()
	if q.channel != nil {
		q.channel.Close()
	}
	if q.conn != nil {
		return q.conn.Close()
	}
	return nil
}
