// cmd/migrate/main.go
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	cli "github.com/urfave/cli/v3"

	"github.com/unclebandit/outreach-backend/internal/app"
	"github.com/unclebandit/outreach-backend/internal/config"
	"github.com/unclebandit/outreach-backend/internal/db"
	"github.com/unclebandit/outreach-backend/internal/logger"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, relying on environment variables")
	}

	flags := append(config.Flags(),
		&cli.StringFlag{
			Name:    "migrations-table",
			Usage:   "Table goose records applied migrations in",
			Value:   "goose_db_version",
			Sources: cli.EnvVars("MIGRATIONS_TABLE"),
		},
		&cli.StringFlag{
			Name:    "seed",
			Usage:   "Path to a JSON fixture to load after migrating",
			Sources: cli.EnvVars("SEED_FILE"),
		},
	)

	cmd := &cli.Command{
		Name:   "outreach-migrate",
		Usage:  "Apply database migrations and optionally load seed data",
		Flags:  flags,
		Action: run,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("migrate failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, command *cli.Command) error {
	cfg, err := config.FromCommand(command)
	if err != nil {
		return err
	}
	logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log := logger.WithModule("outreach-migrate")

	deps, err := app.Open(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer deps.Close()

	return migrateAndSeed(ctx, deps, command.String("migrations-table"), command.String("seed"), log)
}

func migrateAndSeed(ctx context.Context, deps *app.Deps, table, seedPath string, log *slog.Logger) error {
	if err := db.Migrate(ctx, deps.DB, table, log); err != nil {
		return err
	}
	log.InfoContext(ctx, "migrations applied", "dialect", deps.DB.Dialect)

	if seedPath == "" {
		return nil
	}

	f, err := os.Open(seedPath)
	if err != nil {
		return fmt.Errorf("failed to open seed file: %w", err)
	}
	defer f.Close()

	data, err := app.DecodeSeed(f)
	if err != nil {
		return err
	}
	sum, err := app.Seed(ctx, deps, data, log)
	if err != nil {
		return err
	}

	log.InfoContext(ctx, "seed data loaded",
		"file", seedPath,
		"email_accounts", sum.Accounts,
		"leads", sum.Leads,
		"campaigns", sum.Campaigns,
		"steps", sum.Steps,
		"enrolled", sum.Enrolled,
	)
	return nil
}
