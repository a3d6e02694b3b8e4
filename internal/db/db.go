// internal/db/db.go
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

var (
	ErrUnsupportedURL = errors.New("db: unsupported database url")
	ErrPing           = errors.New("db: failed to ping database")
)

// DB is a connection pool plus the dialect its queries must be written for.
type DB struct {
	*sql.DB
	Dialect Dialect
}

// Open connects to the database named by databaseURL.
// postgres:// and postgresql:// use lib/pq; sqlite://, file: and :memory: use modernc sqlite.
func Open(ctx context.Context, databaseURL string) (*DB, error) {
	driver, dsn, dialect, err := parseURL(databaseURL)
	if err != nil {
		return nil, err
	}

	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", dialect, err)
	}

	if dialect == DialectSQLite {
		// every connection to :memory: is its own database
		conn.SetMaxOpenConns(1)
		if _, err := conn.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
		}
	} else {
		conn.SetMaxOpenConns(10)
		conn.SetConnMaxIdleTime(10 * time.Minute)
	}

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, errors.Join(ErrPing, err)
	}

	return &DB{DB: conn, Dialect: dialect}, nil
}

func parseURL(databaseURL string) (driver, dsn string, dialect Dialect, err error) {
	switch {
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		return "postgres", databaseURL, DialectPostgres, nil
	case strings.HasPrefix(databaseURL, "sqlite://"):
		return "sqlite", strings.TrimPrefix(databaseURL, "sqlite://"), DialectSQLite, nil
	case strings.HasPrefix(databaseURL, "file:"), databaseURL == ":memory:":
		return "sqlite", databaseURL, DialectSQLite, nil
	}
	return "", "", "", fmt.Errorf("%w: %q", ErrUnsupportedURL, databaseURL)
}

// Rebind rewrites $N placeholders into the form the dialect expects.
// Queries must reference each placeholder once, in ascending order.
func (d *DB) Rebind(query string) string {
	if d.Dialect != DialectSQLite {
		return query
	}

	var b strings.Builder
	b.Grow(len(query))
	for i := 0; i < len(query); i++ {
		if query[i] == '$' && i+1 < len(query) && isDigit(query[i+1]) {
			b.WriteByte('?')
			for i+1 < len(query) && isDigit(query[i+1]) {
				i++
			}
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// Healthcheck returns a probe suitable for the readiness handler.
func (d *DB) Healthcheck() func(context.Context) error {
	return func(ctx context.Context) error {
		return d.PingContext(ctx)
	}
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
