package rabbit

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

func NewRabbitConnection(addr string) (*amqp.Connection, error) {
	conn, err := amqp.Dial(addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	return conn, nil
}

// DeclareExchange declares the durable topic exchange all trip events go through.
func DeclareExchange(ch *amqp.Channel, exchange string) error {
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}
	return nil
}

// DeclareSubscriberQueue declares a server-named, exclusive queue bound to routingKey.
func DeclareSubscriberQueue(ch *amqp.Channel, exchange, routingKey string) (string, error) {
	q, err := ch.QueueDeclare(
		"",    // name: let the server pick
		false, // durable
		true,  // auto-delete
		true,  // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return "", fmt.Errorf("failed to declare queue: %w", err)
	}
	if err := ch.QueueBind(q.Name, routingKey, exchange, false, nil); err != nil {
		return "", fmt.Errorf("failed to bind queue %s to %s: %w", q.Name, routingKey, err)
	}
	return q.Name, nil
}
