// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	cli "github.com/urfave/cli/v3"

	"github.com/unclebandit/outreach-backend/internal/app"
	"github.com/unclebandit/outreach-backend/internal/config"
	"github.com/unclebandit/outreach-backend/internal/controller"
	"github.com/unclebandit/outreach-backend/internal/handler"
	"github.com/unclebandit/outreach-backend/internal/logger"
	"github.com/unclebandit/outreach-backend/internal/queue"
	"github.com/unclebandit/outreach-backend/internal/service"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, relying on environment variables")
	}

	cmd := &cli.Command{
		Name:   "outreach-server",
		Usage:  "Serve the outreach HTTP API",
		Flags:  config.Flags(),
		Action: run,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, command *cli.Command) error {
	cfg, err := config.FromCommand(command)
	if err != nil {
		return err
	}
	logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log := logger.WithModule("outreach-server")

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

	worker := service.NewWorker(deps.Pipeline, deps.Guard, nil, log.With("component", "worker"))

	// without a broker nothing else consumes async runs
	if _, inMemory := deps.Queue.(*queue.InMemoryQueue); inMemory {
		triggers := make(chan service.Trigger, 1)
		worker.Triggers = triggers
		if err := deps.Queue.Subscribe(ctx, cfg.QueueName, app.QueueHandler(triggers)); err != nil {
			return err
		}
		go worker.Start(ctx)
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           routes(deps, worker, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func routes(deps *app.Deps, worker *service.Worker, log *slog.Logger) http.Handler {
	emailController := &controller.EmailController{
		Runner: worker,
		Emails: &service.EmailService{Transport: deps.Transport},
		Queue:  deps.Queue,
		Topic:  deps.Config.QueueName,
		Log:    log,
	}

	campaignController := &controller.CampaignController{
		CampaignService: &service.CampaignService{
			CampaignRepo:   deps.Campaigns,
			LeadRepo:       deps.Leads,
			EnrollmentRepo: deps.Enrollments,
			Log:            log,
		},
		Log: log,
	}

	webhookController := &controller.WebhookController{
		Webhooks: &service.WebhookService{LeadRepo: deps.Leads, Client: deps.Webhooks},
		Log:      log,
	}

	health := handler.NewHealthHandler(log)
	for name, check := range deps.Checks {
		health.Add(name, check)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(handler.CORS)

	r.Get("/health/live", health.Live)
	r.Get("/health/ready", health.Ready)

	r.Post("/emails/process", emailController.ProcessDue)
	r.Post("/emails/test", emailController.SendTest)

	r.Post("/campaigns/{id}/leads", campaignController.EnrollLeads)
	r.Get("/campaigns/{id}", campaignController.GetCampaignDetails)

	r.Post("/webhooks/test", webhookController.Test)

	return r
}
