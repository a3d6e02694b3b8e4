// Package config holds the settings shared by the server, worker and migrate
// binaries. Values come from flags or the environment.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	cli "github.com/urfave/cli/v3"
)

const (
	DefaultBatchSize       = 10
	DefaultWebhookTimeout  = 10 * time.Second
	DefaultSMTPTimeout     = 30 * time.Second
	DefaultQueueName       = "campaign_runs"
	DefaultHTTPAddr        = ":8080"
	DefaultProcessSchedule = "@every 60s"

	// lockTTLSlack covers the fetch and bookkeeping around a batch.
	lockTTLSlack = time.Minute
)

var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	DatabaseURL     string        `validate:"required"`
	LogLevel        string        `validate:"oneof=debug info warn warning error"`
	LogFormat       string        `validate:"oneof=text json"`
	BatchSize       int           `validate:"min=1"`
	WebhookTimeout  time.Duration `validate:"gt=0"`
	SMTPTimeout     time.Duration `validate:"gt=0"`
	QueueURL        string        `validate:"omitempty,url"`
	QueueName       string        `validate:"required"`
	RedisURL        string        `validate:"omitempty,url"`
	HTTPAddr        string
	ProcessSchedule string
	// LockTTL overrides the derived run lock expiry when positive.
	LockTTL time.Duration `validate:"gte=0"`
}

// Flags returns the shared flag set. Every flag can also be set from the
// environment variable named in its usage.
func Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "database-url",
			Usage:    "Database connection URL (postgres://, sqlite:// or file:)",
			Required: true,
			Sources:  cli.EnvVars("DATABASE_URL"),
		},
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "Log level (debug, info, warn, error)",
			Value:   "info",
			Sources: cli.EnvVars("LOG_LEVEL"),
		},
		&cli.StringFlag{
			Name:    "log-format",
			Usage:   "Log format (text, json)",
			Value:   "text",
			Sources: cli.EnvVars("LOG_FORMAT"),
		},
		&cli.IntFlag{
			Name:    "batch-size",
			Usage:   "Maximum enrollments handled per batch run",
			Value:   DefaultBatchSize,
			Sources: cli.EnvVars("BATCH_SIZE"),
		},
		&cli.DurationFlag{
			Name:    "webhook-timeout",
			Usage:   "Timeout for step webhook calls",
			Value:   DefaultWebhookTimeout,
			Sources: cli.EnvVars("WEBHOOK_TIMEOUT"),
		},
		&cli.DurationFlag{
			Name:    "smtp-timeout",
			Usage:   "Timeout for one SMTP delivery",
			Value:   DefaultSMTPTimeout,
			Sources: cli.EnvVars("SMTP_TIMEOUT"),
		},
		&cli.StringFlag{
			Name:    "queue-url",
			Usage:   "AMQP URL for run triggers (in-memory queue when empty)",
			Sources: cli.EnvVars("QUEUE_URL"),
		},
		&cli.StringFlag{
			Name:    "queue-name",
			Usage:   "Queue carrying batch run requests",
			Value:   DefaultQueueName,
			Sources: cli.EnvVars("QUEUE_NAME"),
		},
		&cli.StringFlag{
			Name:    "redis-url",
			Usage:   "Redis URL for the batch run lock (in-process lock when empty)",
			Sources: cli.EnvVars("REDIS_URL"),
		},
		&cli.StringFlag{
			Name:    "http-addr",
			Usage:   "HTTP listen address",
			Value:   DefaultHTTPAddr,
			Sources: cli.EnvVars("HTTP_ADDR"),
		},
		&cli.StringFlag{
			Name:    "process-schedule",
			Usage:   "Cron spec for automatic batch runs",
			Value:   DefaultProcessSchedule,
			Sources: cli.EnvVars("PROCESS_SCHEDULE"),
		},
		&cli.DurationFlag{
			Name:    "lock-ttl",
			Usage:   "Expiry of the shared run lock (derived from batch size and timeouts when 0)",
			Sources: cli.EnvVars("LOCK_TTL"),
		},
	}
}

// FromCommand reads the flags registered by Flags.
func FromCommand(cmd *cli.Command) (Config, error) {
	cfg := Config{
		DatabaseURL:     cmd.String("database-url"),
		LogLevel:        cmd.String("log-level"),
		LogFormat:       cmd.String("log-format"),
		BatchSize:       cmd.Int("batch-size"),
		WebhookTimeout:  cmd.Duration("webhook-timeout"),
		SMTPTimeout:     cmd.Duration("smtp-timeout"),
		QueueURL:        cmd.String("queue-url"),
		QueueName:       cmd.String("queue-name"),
		RedisURL:        cmd.String("redis-url"),
		HTTPAddr:        cmd.String("http-addr"),
		ProcessSchedule: cmd.String("process-schedule"),
		LockTTL:         cmd.Duration("lock-ttl"),
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// RunLockTTL is how long a batch run may hold the shared lock. Unless
// overridden it covers BatchSize worst-case enrollments: an SMTP delivery
// plus attachment downloads, each bounded by SMTPTimeout, and two webhook
// calls bounded by WebhookTimeout.
func (c Config) RunLockTTL() time.Duration {
	if c.LockTTL > 0 {
		return c.LockTTL
	}
	perEnrollment := 2*c.SMTPTimeout + 2*c.WebhookTimeout
	return time.Duration(max(c.BatchSize, 1))*perEnrollment + lockTTLSlack
}
