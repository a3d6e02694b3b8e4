// Package app builds the components shared by the server and worker binaries.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/unclebandit/outreach-backend/internal/config"
	"github.com/unclebandit/outreach-backend/internal/db"
	"github.com/unclebandit/outreach-backend/internal/handler"
	"github.com/unclebandit/outreach-backend/internal/logger"
	"github.com/unclebandit/outreach-backend/internal/mailer"
	"github.com/unclebandit/outreach-backend/internal/queue"
	"github.com/unclebandit/outreach-backend/internal/repository"
	"github.com/unclebandit/outreach-backend/internal/runguard"
	"github.com/unclebandit/outreach-backend/internal/service"
	"github.com/unclebandit/outreach-backend/internal/webhook"
)

// Deps holds every long-lived component. Close releases them in reverse
// order of creation.
type Deps struct {
	Config config.Config
	DB     *db.DB

	Leads       *repository.LeadRepository
	Accounts    *repository.EmailAccountRepository
	Campaigns   *repository.CampaignRepository
	Sequences   *repository.SequenceRepository
	Enrollments *repository.EnrollmentRepository
	Logs        *repository.EmailLogRepository

	Webhooks  *webhook.Client
	Transport *mailer.SMTPTransport
	Pipeline  *service.Pipeline
	Guard     runguard.Guard
	Queue     queue.Queue

	// Checks feed the readiness probe.
	Checks map[string]handler.CheckFunc

	closers []func() error
}

// Open connects to the database, the run guard backend and the queue named
// in cfg. An empty RedisURL or QueueURL selects the in-process variant.
func Open(ctx context.Context, cfg config.Config, log *slog.Logger) (*Deps, error) {
	if log == nil {
		log = logger.NewNope()
	}
	d := &Deps{Config: cfg, Checks: map[string]handler.CheckFunc{}}

	conn, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	d.DB = conn
	d.closers = append(d.closers, conn.Close)
	d.Checks["database"] = conn.Healthcheck()

	d.Leads = &repository.LeadRepository{DB: conn}
	d.Accounts = &repository.EmailAccountRepository{DB: conn}
	d.Campaigns = &repository.CampaignRepository{DB: conn}
	d.Sequences = &repository.SequenceRepository{DB: conn}
	d.Enrollments = &repository.EnrollmentRepository{DB: conn}
	d.Logs = &repository.EmailLogRepository{DB: conn}

	guard, err := NewGuard(ctx, cfg.RedisURL, cfg.RunLockTTL(), log.With("module", "runguard"))
	if err != nil {
		d.Close()
		return nil, err
	}
	d.Guard = guard
	if r, ok := guard.(*runguard.Redis); ok {
		d.closers = append(d.closers, r.Client.Close)
		d.Checks["redis"] = r.Healthcheck()
	}

	q, err := NewQueue(cfg.QueueURL, log.With("module", "queue"))
	if err != nil {
		d.Close()
		return nil, err
	}
	d.Queue = q
	d.closers = append(d.closers, q.Close)
	if a, ok := q.(*queue.AMQPQueue); ok {
		d.Checks["queue"] = a.Healthcheck()
	}

	d.Webhooks = webhook.NewClient(cfg.WebhookTimeout)
	d.Transport = mailer.NewSMTPTransport(cfg.SMTPTimeout)
	d.Pipeline = &service.Pipeline{
		Store: &repository.Store{
			Enrollments: d.Enrollments,
			Sequences:   d.Sequences,
			Logs:        d.Logs,
		},
		Webhooks:  d.Webhooks,
		Transport: d.Transport,
		Log:       log.With("module", "pipeline"),
		BatchSize: cfg.BatchSize,
	}

	return d, nil
}

// NewGuard returns a Redis lock expiring after ttl when url is set,
// otherwise an in-process one.
func NewGuard(ctx context.Context, url string, ttl time.Duration, log *slog.Logger) (runguard.Guard, error) {
	if url == "" {
		return runguard.NewLocal(), nil
	}
	client, err := runguard.OpenRedis(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to open run lock: %w", err)
	}
	guard := runguard.NewRedis(client, log)
	if ttl > 0 {
		guard.TTL = ttl
	}
	return guard, nil
}

// NewQueue dials RabbitMQ when url is set, otherwise returns an in-memory queue.
func NewQueue(url string, log *slog.Logger) (queue.Queue, error) {
	if url == "" {
		return queue.NewInMemoryQueue(log), nil
	}
	return queue.DialAMQP(url, log)
}

func (d *Deps) Close() error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		errs = append(errs, d.closers[i]())
	}
	d.closers = nil
	return errors.Join(errs...)
}
