// cmd/worker/main.go
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	cli "github.com/urfave/cli/v3"

	"github.com/unclebandit/outreach-backend/internal/app"
	"github.com/unclebandit/outreach-backend/internal/config"
	"github.com/unclebandit/outreach-backend/internal/logger"
	"github.com/unclebandit/outreach-backend/internal/service"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, relying on environment variables")
	}

	cmd := &cli.Command{
		Name:   "outreach-worker",
		Usage:  "Process due campaign emails on a schedule and on queued requests",
		Flags:  config.Flags(),
		Action: run,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("worker exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, command *cli.Command) error {
	cfg, err := config.FromCommand(command)
	if err != nil {
		return err
	}
	logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log := logger.WithModule("outreach-worker")

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := app.Open(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := deps.Close(); err != nil {
			log.Error("failed to close dependencies", "error", err)
		}
	}()

	return runWorker(ctx, cfg, deps.Pipeline, deps, log)
}

// runWorker blocks until ctx is cancelled. Runs come from the cron schedule
// and from the run queue; the guard keeps them from overlapping.
func runWorker(ctx context.Context, cfg config.Config, runner service.BatchRunner, deps *app.Deps, log *slog.Logger) error {
	triggers := make(chan service.Trigger, 1)
	worker := service.NewWorker(runner, deps.Guard, triggers, log.With("component", "worker"))

	scheduler, err := app.Schedule(cfg.ProcessSchedule, cfg.BatchSize, triggers, log)
	if err != nil {
		return err
	}
	defer func() {
		<-scheduler.Stop().Done()
	}()

	if err := deps.Queue.Subscribe(ctx, cfg.QueueName, app.QueueHandler(triggers)); err != nil {
		return err
	}

	log.InfoContext(ctx, "worker running", "schedule", cfg.ProcessSchedule, "queue", cfg.QueueName, "batch_size", cfg.BatchSize)
	worker.Start(ctx)
	log.Info("worker stopped")
	return nil
}
