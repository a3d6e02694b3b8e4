package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/streadway/amqp"
)

const retryHeader = "x-retry-count"

var ErrQueueClosed = errors.New("queue: connection closed")

// AMQPQueue publishes to and consumes from durable RabbitMQ queues named
// after the topic.
type AMQPQueue struct {
	conn       *amqp.Connection
	ch         *amqp.Channel
	mu         sync.Mutex
	declared   map[string]bool
	MaxRetries int
	Log        *slog.Logger
}

func DialAMQP(url string, log *slog.Logger) (*AMQPQueue, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}
	if err := ch.Qos(1, 0, false); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to set prefetch: %w", err)
	}
	return &AMQPQueue{
		conn:       conn,
		ch:         ch,
		declared:   map[string]bool{},
		MaxRetries: DefaultMaxRetries,
		Log:        log,
	}, nil
}

func (q *AMQPQueue) declare(topic string) error {
	if q.declared[topic] {
		return nil
	}
	_, err := q.ch.QueueDeclare(
		topic, // name
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", topic, err)
	}
	q.declared[topic] = true
	return nil
}

func (q *AMQPQueue) Publish(ctx context.Context, topic string, body []byte) error {
	return q.publish(topic, body, 0)
}

func (q *AMQPQueue) publish(topic string, body []byte, retries int) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.conn.IsClosed() {
		return ErrQueueClosed
	}
	if err := q.declare(topic); err != nil {
		return err
	}
	return q.ch.Publish("", topic, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Headers:      amqp.Table{retryHeader: int32(retries)},
		Body:         body,
	})
}

// Subscribe consumes topic until ctx is cancelled or the channel closes.
// Failed deliveries are republished with an incremented retry header and
// dropped after MaxRetries.
func (q *AMQPQueue) Subscribe(ctx context.Context, topic string, handler Handler) error {
	q.mu.Lock()
	err := q.declare(topic)
	var msgs <-chan amqp.Delivery
	if err == nil {
		msgs, err = q.ch.Consume(
			topic,
			"",
			false, // autoAck = false for reliability
			false,
			false,
			false,
			nil,
		)
	}
	q.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-msgs:
				if !ok {
					return
				}
				q.handle(ctx, topic, handler, d)
			}
		}
	}()
	return nil
}

func (q *AMQPQueue) handle(ctx context.Context, topic string, handler Handler, d amqp.Delivery) {
	err := handler(ctx, d.Body)
	if err == nil {
		_ = d.Ack(false)
		return
	}

	retries := retryCount(d.Headers)
	if retries < q.MaxRetries {
		q.logger().Warn("job failed, requeueing", "topic", topic, "attempt", retries+1, "error", err)
		if pubErr := q.publish(topic, d.Body, retries+1); pubErr != nil {
			q.logger().Error("failed to requeue job", "topic", topic, "error", pubErr)
			_ = d.Nack(false, true)
			return
		}
	} else {
		q.logger().Error("job permanently failed", "topic", topic, "attempts", retries+1, "error", err)
	}
	_ = d.Ack(false)
}

func retryCount(h amqp.Table) int {
	switch v := h[retryHeader].(type) {
	case int32:
		return int(v)
	case int64:
		return int(v)
	case int:
		return v
	}
	return 0
}

func (q *AMQPQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return errors.Join(q.ch.Close(), q.conn.Close())
}

// Healthcheck reports whether the broker connection is still open.
func (q *AMQPQueue) Healthcheck() func(context.Context) error {
	return func(context.Context) error {
		if q.conn.IsClosed() {
			return ErrQueueClosed
		}
		return nil
	}
}

func (q *AMQPQueue) logger() *slog.Logger {
	if q.Log != nil {
		return q.Log
	}
	return slog.Default()
}

var _ Queue = (*AMQPQueue)(nil)
