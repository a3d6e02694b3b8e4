// internal/repository/email_account_repository.go
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/unclebandit/outreach-backend/internal/db"
	appErrors "github.com/unclebandit/outreach-backend/internal/errors"
	"github.com/unclebandit/outreach-backend/internal/model"
)

type EmailAccountRepositoryInterface interface {
	Create(ctx context.Context, a *model.EmailAccount) error
	GetByID(ctx context.Context, id string) (*model.EmailAccount, error)
}

type EmailAccountRepository struct {
	DB *db.DB
}

const emailAccountColumns = `id, name, email, smtp_host, smtp_port, smtp_username, smtp_password, daily_limit, warmup_enabled, warmup_daily_increase, status, health_score, created_at`

func (r *EmailAccountRepository) Create(ctx context.Context, a *model.EmailAccount) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Status == "" {
		a.Status = "active"
	}
	a.CreatedAt = time.Now().UTC()

	query := r.DB.Rebind(`
        INSERT INTO email_accounts (` + emailAccountColumns + `)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
    `)
	_, err := r.DB.ExecContext(ctx, query,
		a.ID, a.Name, a.Email, a.SMTPHost, a.SMTPPort, a.SMTPUsername, a.SMTPPassword,
		a.DailyLimit, a.WarmupEnabled, a.WarmupDailyIncrease, a.Status, a.HealthScore, a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert email account: %w", err)
	}
	return nil
}

func (r *EmailAccountRepository) GetByID(ctx context.Context, id string) (*model.EmailAccount, error) {
	query := r.DB.Rebind(`SELECT ` + emailAccountColumns + ` FROM email_accounts WHERE id=$1`)
	var a model.EmailAccount
	err := r.DB.QueryRowContext(ctx, query, id).Scan(
		&a.ID, &a.Name, &a.Email, &a.SMTPHost, &a.SMTPPort, &a.SMTPUsername, &a.SMTPPassword,
		&a.DailyLimit, &a.WarmupEnabled, &a.WarmupDailyIncrease, &a.Status, &a.HealthScore, &a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("email account %s: %w", id, appErrors.ErrNotFound)
		}
		return nil, err
	}
	return &a, nil
}

var _ EmailAccountRepositoryInterface = (*EmailAccountRepository)(nil)
