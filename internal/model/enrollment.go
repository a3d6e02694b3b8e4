// internal/model/enrollment.go
package model

import "time"

const (
	EnrollmentStatusQueued    = "queued"
	EnrollmentStatusSent      = "sent"
	EnrollmentStatusFailed    = "failed"
	EnrollmentStatusCompleted = "completed"
)

// Enrollment is the campaign_leads row that drives the send pipeline.
// Lead and EmailAccount are populated when loaded for processing.
type Enrollment struct {
	ID                  string        `db:"id" json:"id"`
	CampaignID          string        `db:"campaign_id" json:"campaign_id"`
	LeadID              string        `db:"lead_id" json:"lead_id"`
	EmailAccountID      string        `db:"email_account_id" json:"email_account_id"`
	Status              string        `db:"status" json:"status"`
	CurrentSequenceStep int           `db:"current_sequence_step" json:"current_sequence_step"`
	LastContactedAt     *time.Time    `db:"last_contacted_at" json:"last_contacted_at,omitempty"`
	NextFollowupAt      *time.Time    `db:"next_followup_at" json:"next_followup_at,omitempty"`
	AddedAt             time.Time     `db:"added_at" json:"added_at"`
	Lead                *Lead         `json:"lead,omitempty"`
	EmailAccount        *EmailAccount `json:"email_account,omitempty"`
}

// Due reports whether the row is eligible for processing at now.
func (e *Enrollment) Due(now time.Time) bool {
	return e.Status == EnrollmentStatusQueued && e.NextFollowupAt != nil && !e.NextFollowupAt.After(now)
}
