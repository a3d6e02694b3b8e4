// internal/repository/sequence_repository.go
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/unclebandit/outreach-backend/internal/db"
	"github.com/unclebandit/outreach-backend/internal/model"
)

type SequenceRepositoryInterface interface {
	Create(ctx context.Context, s *model.SequenceStep) error
	GetStep(ctx context.Context, campaignID string, stepNumber int) (*model.SequenceStep, error)
}

type SequenceRepository struct {
	DB *db.DB
}

const sequenceColumns = `id, campaign_id, name, step_number, delay_days, delay_hours, delay_minutes,
    subject_variants, body_variants, attachments,
    presend_webhook_enabled, presend_webhook_url, presend_webhook_method, presend_webhook_headers,
    content_webhook_enabled, content_webhook_url, content_webhook_method, content_webhook_headers,
    content_webhook_subject_field, content_webhook_body_field, created_at`

func (r *SequenceRepository) Create(ctx context.Context, s *model.SequenceStep) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	s.CreatedAt = time.Now().UTC()
	defaultWebhook(&s.PresendWebhook)
	defaultWebhook(&s.ContentWebhook)
	if s.ContentWebhook.SubjectField == "" {
		s.ContentWebhook.SubjectField = "subject"
	}
	if s.ContentWebhook.BodyField == "" {
		s.ContentWebhook.BodyField = "body"
	}

	subjects, err := toJSON(nonNil(s.SubjectVariants))
	if err != nil {
		return err
	}
	bodies, err := toJSON(nonNil(s.BodyVariants))
	if err != nil {
		return err
	}
	if s.Attachments == nil {
		s.Attachments = []model.Attachment{}
	}
	attachments, err := toJSON(s.Attachments)
	if err != nil {
		return err
	}
	presendHeaders, err := toJSON(s.PresendWebhook.Headers)
	if err != nil {
		return err
	}
	contentHeaders, err := toJSON(s.ContentWebhook.Headers)
	if err != nil {
		return err
	}

	query := r.DB.Rebind(`
        INSERT INTO sequences (` + sequenceColumns + `)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
    `)
	_, err = r.DB.ExecContext(ctx, query,
		s.ID, s.CampaignID, s.Name, s.StepNumber, s.DelayDays, s.DelayHours, s.DelayMinutes,
		subjects, bodies, attachments,
		s.PresendWebhook.Enabled, nullableURL(s.PresendWebhook.URL), s.PresendWebhook.Method, presendHeaders,
		s.ContentWebhook.Enabled, nullableURL(s.ContentWebhook.URL), s.ContentWebhook.Method, contentHeaders,
		s.ContentWebhook.SubjectField, s.ContentWebhook.BodyField, s.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert sequence step: %w", err)
	}
	return nil
}

// GetStep returns the step with the given number, or nil, nil when the campaign has no such step.
func (r *SequenceRepository) GetStep(ctx context.Context, campaignID string, stepNumber int) (*model.SequenceStep, error) {
	query := r.DB.Rebind(`SELECT ` + sequenceColumns + ` FROM sequences WHERE campaign_id=$1 AND step_number=$2`)

	var (
		s                              model.SequenceStep
		subjects, bodies, attachments  []byte
		presendURL, contentURL         sql.NullString
		presendHeaders, contentHeaders []byte
	)
	err := r.DB.QueryRowContext(ctx, query, campaignID, stepNumber).Scan(
		&s.ID, &s.CampaignID, &s.Name, &s.StepNumber, &s.DelayDays, &s.DelayHours, &s.DelayMinutes,
		&subjects, &bodies, &attachments,
		&s.PresendWebhook.Enabled, &presendURL, &s.PresendWebhook.Method, &presendHeaders,
		&s.ContentWebhook.Enabled, &contentURL, &s.ContentWebhook.Method, &contentHeaders,
		&s.ContentWebhook.SubjectField, &s.ContentWebhook.BodyField, &s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load sequence step %d: %w", stepNumber, err)
	}

	s.PresendWebhook.URL = presendURL.String
	s.ContentWebhook.URL = contentURL.String
	for _, col := range []struct {
		raw []byte
		dst any
	}{
		{subjects, &s.SubjectVariants},
		{bodies, &s.BodyVariants},
		{attachments, &s.Attachments},
		{presendHeaders, &s.PresendWebhook.Headers},
		{contentHeaders, &s.ContentWebhook.Headers},
	} {
		if err := fromJSON(col.raw, col.dst); err != nil {
			return nil, err
		}
	}
	return &s, nil
}

func defaultWebhook(w *model.WebhookConfig) {
	if w.Method == "" {
		w.Method = "POST"
	}
	if w.Headers == nil {
		w.Headers = map[string]string{}
	}
}

func nullableURL(u string) any {
	if u == "" {
		return nil
	}
	return u
}

func nonNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}

var _ SequenceRepositoryInterface = (*SequenceRepository)(nil)
