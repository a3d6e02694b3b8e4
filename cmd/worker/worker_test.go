package main

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unclebandit/outreach-backend/internal/app"
	"github.com/unclebandit/outreach-backend/internal/config"
	"github.com/unclebandit/outreach-backend/internal/logger"
	"github.com/unclebandit/outreach-backend/internal/queue"
	"github.com/unclebandit/outreach-backend/internal/service"
)

type countingRunner struct {
	calls  atomic.Int32
	limits chan int
}

func (r *countingRunner) ProcessDue(_ context.Context, limit int) (service.BatchResult, error) {
	r.calls.Add(1)
	r.limits <- limit
	return service.BatchResult{}, nil
}

func TestRunWorker_QueueTrigger(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := config.Config{
		DatabaseURL:     ":memory:",
		BatchSize:       10,
		WebhookTimeout:  time.Second,
		SMTPTimeout:     time.Second,
		QueueName:       "runs",
		ProcessSchedule: "@every 1h",
	}
	deps, err := app.Open(ctx, cfg, logger.NewNope())
	require.NoError(t, err)
	defer deps.Close()

	runner := &countingRunner{limits: make(chan int, 4)}
	done := make(chan error, 1)
	go func() { done <- runWorker(ctx, cfg, runner, deps, logger.NewNope()) }()

	body, err := queue.EncodeRunRequest(queue.RunRequest{Limit: 3})
	require.NoError(t, err)

	// the subscription is registered asynchronously
	require.Eventually(t, func() bool {
		return deps.Queue.Publish(ctx, "runs", body) == nil
	}, 2*time.Second, 10*time.Millisecond)

	select {
	case limit := <-runner.limits:
		assert.Equal(t, 3, limit)
	case <-time.After(2 * time.Second):
		t.Fatal("queued run was not processed")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestRunWorker_InvalidSchedule(t *testing.T) {
	cfg := config.Config{DatabaseURL: ":memory:", BatchSize: 10, WebhookTimeout: time.Second, SMTPTimeout: time.Second, QueueName: "runs", ProcessSchedule: "whenever"}
	deps, err := app.Open(context.Background(), cfg, logger.NewNope())
	require.NoError(t, err)
	defer deps.Close()

	err = runWorker(context.Background(), cfg, &countingRunner{limits: make(chan int, 1)}, deps, logger.NewNope())
	assert.Error(t, err)
}
