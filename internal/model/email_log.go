// internal/model/email_log.go
package model

import (
	"encoding/json"
	"time"
)

const (
	EmailLogStatusSent   = "sent"
	EmailLogStatusFailed = "failed"
)

// EmailLog is the append-only audit record of one send attempt.
type EmailLog struct {
	ID                     string          `db:"id" json:"id"`
	CampaignLeadID         string          `db:"campaign_lead_id" json:"campaign_lead_id"`
	SequenceID             string          `db:"sequence_id" json:"sequence_id"`
	EmailAccountID         string          `db:"email_account_id" json:"email_account_id"`
	Subject                string          `db:"subject" json:"subject"`
	Body                   string          `db:"body" json:"body"`
	VariantUsed            int             `db:"variant_used" json:"variant_used"`
	WebhookData            json.RawMessage `db:"webhook_data" json:"webhook_data,omitempty"`
	PresendWebhookResponse json.RawMessage `db:"presend_webhook_response" json:"presend_webhook_response,omitempty"`
	Status                 string          `db:"status" json:"status"`
	SentAt                 *time.Time      `db:"sent_at" json:"sent_at,omitempty"`
	ErrorMessage           string          `db:"error_message" json:"error_message,omitempty"`
	CreatedAt              time.Time       `db:"created_at" json:"created_at"`
}
