package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// Handler processes one notification message.  Returning an error
// rejects the message without requeueing it.
type Handler func(ctx context.Context, msg Message) error

// Consumer reads notification messages off the durable queue and hands
// them to a Handler one at a time.  Prefetch bounds the in-flight work
// per consumer; messages are acknowledged only after the handler has
// finished.  A handler failure is negatively acknowledged without
// requeue – dropping a poison message beats redelivering it forever.
type Consumer struct {
	url      string
	queue    string
	prefetch int
	log      *logrus.Entry
}

// NewConsumer returns a Consumer for the given broker URL and queue.
// prefetch values below 1 are clamped to 1.
func NewConsumer(url, queueName string, prefetch int) *Consumer {
	if prefetch < 1 {
		prefetch = 1
	}
	return &Consumer{
		url:      url,
		queue:    queueName,
		prefetch: prefetch,
		log:      logrus.WithField("component", "queue_consumer"),
	}
}

// Run connects to the broker and consumes until ctx is cancelled.  It
// reconnects with exponential backoff when the connection or channel
// drops, so a broker restart does not kill the worker.
func (c *Consumer) Run(ctx context.Context, handler Handler) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.log.WithError(err).Warnf("failed to dial broker; retrying in %s", backoff)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		err = c.consumeLoop(ctx, conn, handler)
		conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log.WithError(err).Warn("consume loop ended; reconnecting")
		select {
		case <-time.After(2 * time.Second):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection, handler Handler) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		return fmt.Errorf("set QoS: %w", err)
	}
	if _, err := ch.QueueDeclare(c.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	deliveries, err := ch.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	c.log.WithField("queue", c.queue).Info("waiting for notification messages")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := c.handleDelivery(ctx, d.Body, handler); err != nil {
				c.log.WithError(err).Error("message handling failed; dropping message")
				_ = d.Nack(false, false) // reject, do not requeue
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func (c *Consumer) handleDelivery(ctx context.Context, body []byte, handler Handler) error {
	var msg Message
	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	return handler(ctx, msg)
}
