package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// Publisher appends notification messages to a durable queue.  The
// broker's delivery contract is at-least-once; messages are marked
// persistent so they survive broker restarts.  Callers that must not
// observe broker latency should publish from a detached goroutine –
// the orchestrator treats the whole publish as fire-and-forget.
type Publisher struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   string
	log     *logrus.Entry
}

// NewPublisher dials the broker, opens a channel and declares the
// durable queue.  The declaration is idempotent, so publisher and
// consumer can start in any order.
func NewPublisher(url, queueName string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("queue: dial broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("queue: open channel: %w", err)
	}
	if _, err := ch.QueueDeclare(
		queueName, // name
		true,      // durable
		false,     // autoDelete
		false,     // exclusive
		false,     // noWait
		nil,       // args
	); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("queue: declare %s: %w", queueName, err)
	}
	return &Publisher{
		conn:    conn,
		channel: ch,
		queue:   queueName,
		log:     logrus.WithField("component", "queue_publisher"),
	}, nil
}

// Publish serializes the message and appends it to the queue with
// persistent delivery.  The call returns after the publish round trip;
// it does not wait for any consumer.
func (p *Publisher) Publish(ctx context.Context, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("queue: marshal message: %w", err)
	}
	err = p.channel.PublishWithContext(ctx,
		"",      // default exchange
		p.queue, // routing key = queue name
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("queue: publish to %s: %w", p.queue, err)
	}
	p.log.WithFields(logrus.Fields{
		"queue":   p.queue,
		"outcome": msg.Payload.Outcome,
		"user_id": msg.Payload.UserID,
	}).Debug("notification published")
	return nil
}

// Close releases the channel and connection.
func (p *Publisher) Close() error {
	var errs []error
	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("queue: close publisher: %v", errs)
	}
	return nil
}
