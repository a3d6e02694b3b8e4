// internal/repository/email_log_repository.go
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/unclebandit/outreach-backend/internal/db"
	"github.com/unclebandit/outreach-backend/internal/model"
)

type EmailLogRepositoryInterface interface {
	Insert(ctx context.Context, l *model.EmailLog) error
	ListByEnrollment(ctx context.Context, enrollmentID string) ([]*model.EmailLog, error)
}

type EmailLogRepository struct {
	DB *db.DB
}

const emailLogColumns = `id, campaign_lead_id, sequence_id, email_account_id, subject, body, variant_used,
    webhook_data, presend_webhook_response, status, sent_at, error_message, created_at`

func (r *EmailLogRepository) Insert(ctx context.Context, l *model.EmailLog) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	l.CreatedAt = time.Now().UTC()

	var errMsg any
	if l.ErrorMessage != "" {
		errMsg = l.ErrorMessage
	}

	query := r.DB.Rebind(`
        INSERT INTO email_logs (` + emailLogColumns + `)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
    `)
	_, err := r.DB.ExecContext(ctx, query,
		l.ID, l.CampaignLeadID, l.SequenceID, nullableID(l.EmailAccountID), l.Subject, l.Body, l.VariantUsed,
		nullableJSON(l.WebhookData), nullableJSON(l.PresendWebhookResponse), l.Status,
		nullableTime(l.SentAt), errMsg, l.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert email log: %w", err)
	}
	return nil
}

func (r *EmailLogRepository) ListByEnrollment(ctx context.Context, enrollmentID string) ([]*model.EmailLog, error) {
	query := r.DB.Rebind(`SELECT ` + emailLogColumns + ` FROM email_logs WHERE campaign_lead_id=$1 ORDER BY created_at ASC`)
	rows, err := r.DB.QueryContext(ctx, query, enrollmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list email logs: %w", err)
	}
	defer rows.Close()

	var logs []*model.EmailLog
	for rows.Next() {
		var (
			l                    model.EmailLog
			accountID, errMsg    sql.NullString
			webhookData, presend  []byte
			sentAt               sql.NullTime
		)
		err := rows.Scan(&l.ID, &l.CampaignLeadID, &l.SequenceID, &accountID, &l.Subject, &l.Body, &l.VariantUsed,
			&webhookData, &presend, &l.Status, &sentAt, &errMsg, &l.CreatedAt)
		if err != nil {
			return nil, err
		}
		l.EmailAccountID = accountID.String
		l.ErrorMessage = errMsg.String
		l.SentAt = timePtr(sentAt)
		if len(webhookData) > 0 {
			l.WebhookData = append([]byte(nil), webhookData...)
		}
		if len(presend) > 0 {
			l.PresendWebhookResponse = append([]byte(nil), presend...)
		}
		logs = append(logs, &l)
	}
	return logs, rows.Err()
}

var _ EmailLogRepositoryInterface = (*EmailLogRepository)(nil)
