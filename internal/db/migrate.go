package db

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrations embed.FS

var (
	ErrSetDialect      = errors.New("db migrator: failed to set dialect")
	ErrApplyMigrations = errors.New("db migrator: failed to apply migrations")
)

// Migrate applies the embedded migrations for the connection's dialect.
func Migrate(ctx context.Context, d *DB, table string, log *slog.Logger) error {
	dir := "migrations/postgres"
	dialect := "postgres"
	if d.Dialect == DialectSQLite {
		dir = "migrations/sqlite"
		dialect = "sqlite3"
	}

	goose.SetBaseFS(migrations)
	goose.SetLogger(&gooseLoggerAdapter{log})
	if table != "" {
		goose.SetTableName(table)
	}

	if err := goose.SetDialect(dialect); err != nil {
		return errors.Join(ErrSetDialect, err)
	}

	if err := goose.UpContext(ctx, d.DB, dir); err != nil {
		return errors.Join(ErrApplyMigrations, err)
	}

	return nil
}

type gooseLoggerAdapter struct {
	log *slog.Logger
}

func (g *gooseLoggerAdapter) Printf(format string, args ...any) {
	g.log.Info(fmt.Sprintf(format, args...))
}

func (g *gooseLoggerAdapter) Fatalf(format string, args ...any) {
	g.log.Error(fmt.Sprintf(format, args...))
}
