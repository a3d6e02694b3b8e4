// internal/repository/campaign_repository.go
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

// CampaignStats counts a campaign's enrollments per status.
type CampaignStats struct {
	Total     int `json:"total"`
	Queued    int `json:"queued"`
	Sent      int `json:"sent"`
	Failed    int `json:"failed"`
	Completed int `json:"completed"`
}

type CampaignRepositoryInterface interface {
	Create(ctx context.Context, c *model.Campaign) error
	GetByID(ctx context.Context, id string) (*model.Campaign, error)
	GetStats(ctx context.Context, campaignID string) (CampaignStats, error)
}

type CampaignRepository struct {
	DB *db.DB
}

func (r *CampaignRepository) Create(ctx context.Context, c *model.Campaign) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Status == "" {
		c.Status = model.CampaignStatusDraft
	}
	if c.EmailAccountIDs == nil {
		c.EmailAccountIDs = []string{}
	}
	c.CreatedAt = time.Now().UTC()

	accounts, err := toJSON(c.EmailAccountIDs)
	if err != nil {
		return err
	}

	query := r.DB.Rebind(`
        INSERT INTO campaigns (id, name, status, email_account_ids, created_at)
        VALUES ($1, $2, $3, $4, $5)
    `)
	if _, err := r.DB.ExecContext(ctx, query, c.ID, c.Name, c.Status, accounts, c.CreatedAt); err != nil {
		return fmt.Errorf("failed to insert campaign: %w", err)
	}
	return nil
}

func (r *CampaignRepository) GetByID(ctx context.Context, id string) (*model.Campaign, error) {
	query := r.DB.Rebind(`
        SELECT id, name, status, email_account_ids, created_at, updated_at
        FROM campaigns WHERE id=$1
    `)
	var (
		c        model.Campaign
		accounts []byte
		updated  sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx, query, id).Scan(&c.ID, &c.Name, &c.Status, &accounts, &c.CreatedAt, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NewCampaignNotFound(id)
		}
		return nil, err
	}
	if err := fromJSON(accounts, &c.EmailAccountIDs); err != nil {
		return nil, err
	}
	c.UpdatedAt = timePtr(updated)
	return &c, nil
}

func (r *CampaignRepository) GetStats(ctx context.Context, campaignID string) (CampaignStats, error) {
	query := r.DB.Rebind(`
        SELECT status, COUNT(*) FROM campaign_leads
        WHERE campaign_id=$1
        GROUP BY status
    `)
	rows, err := r.DB.QueryContext(ctx, query, campaignID)
	if err != nil {
		return CampaignStats{}, fmt.Errorf("failed to count enrollments: %w", err)
	}
	defer rows.Close()

	var stats CampaignStats
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return CampaignStats{}, err
		}
		stats.Total += n
		switch status {
		case model.EnrollmentStatusQueued:
			stats.Queued = n
		case model.EnrollmentStatusSent:
			stats.Sent = n
		case model.EnrollmentStatusFailed:
			stats.Failed = n
		case model.EnrollmentStatusCompleted:
			stats.Completed = n
		}
	}
	return stats, rows.Err()
}

var _ CampaignRepositoryInterface = (*CampaignRepository)(nil)
