package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/unclebandit/outreach-backend/internal/logger"
	"github.com/unclebandit/outreach-backend/internal/runguard"
)

// BatchRunner is implemented by Pipeline.
type BatchRunner interface {
	ProcessDue(ctx context.Context, limit int) (BatchResult, error)
}

// Trigger asks the worker for one batch run.
type Trigger struct {
	Limit  int
	Source string
}

// Worker runs batches from a trigger channel, never two at once.
type Worker struct {
	Runner   BatchRunner
	Guard    runguard.Guard
	Triggers <-chan Trigger
	Log      *slog.Logger
}

func NewWorker(runner BatchRunner, guard runguard.Guard, triggers <-chan Trigger, log *slog.Logger) *Worker {
	if guard == nil {
		guard = runguard.NewLocal()
	}
	if log == nil {
		log = logger.NewNope()
	}
	return &Worker{
		Runner:   runner,
		Guard:    guard,
		Triggers: triggers,
		Log:      log,
	}
}

// RunOnce processes one batch unless another run holds the guard, in which
// case ran is false and nothing is done.
func (w *Worker) RunOnce(ctx context.Context, limit int) (result BatchResult, ran bool, err error) {
	release, ok, err := w.Guard.TryAcquire(ctx)
	if err != nil {
		return BatchResult{}, false, fmt.Errorf("acquire run guard: %w", err)
	}
	if !ok {
		w.Log.InfoContext(ctx, "batch skipped, previous run still in progress")
		return BatchResult{}, false, nil
	}
	defer release()

	result, err = w.Runner.ProcessDue(ctx, limit)
	return result, true, err
}

// Start consumes triggers until ctx is done or the channel is closed.
func (w *Worker) Start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case t, ok := <-w.Triggers:
			if !ok {
				return
			}
			if _, _, err := w.RunOnce(ctx, t.Limit); err != nil {
				w.Log.ErrorContext(ctx, "batch run failed", "source", t.Source, "error", err)
			}
		}
	}
}
