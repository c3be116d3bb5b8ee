package queue

import (
	"context"
	"encoding/json"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Queue names. Both are declared durable so events survive broker restarts.
const (
	UserRegisteredQueue = "user.registered"
	OrderPlacedQueue    = "order.placed"
)

// Publisher publishes domain events to RabbitMQ. Publishing is strictly best
// effort: errors are logged and swallowed so that a broker outage never fails
// the HTTP request that produced the event. A nil *Publisher is a valid
// no-op publisher, which keeps tests and broker-less deployments simple.
type Publisher struct {
	url string
}

// NewPublisher returns a Publisher that dials url per publish. An empty url
// returns nil, disabling publishing.
func NewPublisher(url string) *Publisher {
	if url == "" {
		return nil
	}
	return &Publisher{url: url}
}

// PublishUserRegistered emits a UserRegisteredEvent to its queue.
func (p *Publisher) PublishUserRegistered(ctx context.Context, ev UserRegisteredEvent) {
	p.publish(ctx, UserRegisteredQueue, ev)
}

// PublishOrderPlaced emits an OrderPlacedEvent to its queue.
func (p *Publisher) PublishOrderPlaced(ctx context.Context, ev OrderPlacedEvent) {
	p.publish(ctx, OrderPlacedQueue, ev)
}

func (p *Publisher) publish(ctx context.Context, queueName string, event interface{}) {
	if p == nil {
		return
	}
	conn, err := amqp.Dial(p.url)
	if err != nil {
		log.Printf("rabbitmq: dial failed: %v", err)
		return
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Printf("rabbitmq: channel open failed: %v", err)
		return
	}
	defer func() { _ = ch.Close() }()

	// Idempotent declare; durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		log.Printf("rabbitmq: queue declare failed: %v", err)
		return
	}

	body, err := json.Marshal(event)
	if err != nil {
		log.Printf("rabbitmq: marshal event failed: %v", err)
		return
	}

	pubCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	err = ch.PublishWithContext(pubCtx, "", queueName, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		log.Printf("rabbitmq: publish to %s failed: %v", queueName, err)
	}
}
