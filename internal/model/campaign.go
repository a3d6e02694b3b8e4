// internal/model/campaign.go
package model

import "time"

const (
	CampaignStatusDraft    = "draft"
	CampaignStatusActive   = "active"
	CampaignStatusPaused   = "paused"
	CampaignStatusArchived = "archived"
)

type Campaign struct {
	ID              string     `db:"id" json:"id"`
	Name            string     `db:"name" json:"name"`
	Status          string     `db:"status" json:"status"`
	EmailAccountIDs []string   `db:"email_account_ids" json:"email_account_ids"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       *time.Time `db:"updated_at" json:"updated_at,omitempty"`
}
