package app

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/unclebandit/outreach-backend/internal/queue"
	"github.com/unclebandit/outreach-backend/internal/service"
)

const (
	SourceSchedule = "schedule"
	SourceQueue    = "queue"
)

// Schedule starts a cron that offers a batch run on every tick. A tick that
// finds a run already waiting is dropped.
func Schedule(spec string, limit int, triggers chan<- service.Trigger, log *slog.Logger) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		select {
		case triggers <- service.Trigger{Limit: limit, Source: SourceSchedule}:
		default:
			log.Debug("scheduled run dropped, previous trigger still pending")
		}
	})
	if err != nil {
		return nil, err
	}
	c.Start()
	return c, nil
}

// QueueHandler turns run requests from the queue into triggers. It blocks
// until the worker picks the trigger up, so the message is acknowledged only
// once a run has been handed over.
func QueueHandler(triggers chan<- service.Trigger) queue.Handler {
	return func(ctx context.Context, body []byte) error {
		req, err := queue.DecodeRunRequest(body)
		if err != nil {
			return err
		}
		select {
		case triggers <- service.Trigger{Limit: req.Limit, Source: SourceQueue}:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
