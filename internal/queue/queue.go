package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const (
	DefaultTopic      = "campaign_runs"
	DefaultMaxRetries = 3
)

var ErrNoSubscribers = errors.New("queue: no subscribers for topic")

// Handler processes one message. Returning an error triggers a retry.
type Handler func(ctx context.Context, body []byte) error

// Queue carries batch-run requests from the API to workers.
type Queue interface {
	Publish(ctx context.Context, topic string, body []byte) error
	Subscribe(ctx context.Context, topic string, handler Handler) error
	Close() error
}

// RunRequest asks a worker to process due enrollments.
type RunRequest struct {
	Limit       int       `json:"limit"`
	RequestedAt time.Time `json:"requested_at"`
}

func EncodeRunRequest(r RunRequest) ([]byte, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("queue: encode run request: %w", err)
	}
	return b, nil
}

func DecodeRunRequest(body []byte) (RunRequest, error) {
	var r RunRequest
	if err := json.Unmarshal(body, &r); err != nil {
		return RunRequest{}, fmt.Errorf("queue: decode run request: %w", err)
	}
	return r, nil
}

// InMemoryQueue delivers messages to in-process subscribers with retry.
type InMemoryQueue struct {
	mu         sync.Mutex
	handlers   map[string][]Handler
	wg         sync.WaitGroup
	MaxRetries int
	Backoff    time.Duration
	Log        *slog.Logger
}

func NewInMemoryQueue(log *slog.Logger) *InMemoryQueue {
	return &InMemoryQueue{
		handlers:   make(map[string][]Handler),
		MaxRetries: DefaultMaxRetries,
		Backoff:    500 * time.Millisecond,
		Log:        log,
	}
}

// job wraps a message body with retry info
type job struct {
	body       []byte
	retryCount int
	maxRetries int
}

func (q *InMemoryQueue) Publish(ctx context.Context, topic string, body []byte) error {
	q.mu.Lock()
	handlers := q.handlers[topic]
	q.mu.Unlock()

	if len(handlers) == 0 {
		return fmt.Errorf("%w %s", ErrNoSubscribers, topic)
	}

	for _, handler := range handlers {
		q.wg.Add(1)
		go func(h Handler) {
			defer q.wg.Done()
			q.processJob(context.WithoutCancel(ctx), topic, h, job{body: body, maxRetries: q.MaxRetries})
		}(handler)
	}
	return nil
}

// processJob retries with linear backoff until the handler succeeds or
// retries run out.
func (q *InMemoryQueue) processJob(ctx context.Context, topic string, handler Handler, j job) {
	for j.retryCount <= j.maxRetries {
		err := handler(ctx, j.body)
		if err == nil {
			return
		}

		j.retryCount++
		if j.retryCount > j.maxRetries {
			q.logger().Error("job permanently failed", "topic", topic, "attempts", j.retryCount, "error", err)
			return
		}
		q.logger().Warn("job failed, retrying", "topic", topic, "attempt", j.retryCount, "max_retries", j.maxRetries, "error", err)

		time.Sleep(time.Duration(j.retryCount) * q.Backoff)
	}
}

func (q *InMemoryQueue) Subscribe(_ context.Context, topic string, handler Handler) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.handlers[topic] = append(q.handlers[topic], handler)
	return nil
}

// Close waits for in-flight jobs.
func (q *InMemoryQueue) Close() error {
	q.wg.Wait()
	return nil
}

func (q *InMemoryQueue) logger() *slog.Logger {
	if q.Log != nil {
		return q.Log
	}
	return slog.Default()
}

var _ Queue = (*InMemoryQueue)(nil)
