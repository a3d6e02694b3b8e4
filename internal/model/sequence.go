// internal/model/sequence.go
package model

import (
	"time"
)

// WebhookConfig describes one outbound call attached to a sequence step.
// SubjectField and BodyField are only meaningful for the content webhook.
type WebhookConfig struct {
	Enabled      bool              `json:"enabled"`
	URL          string            `json:"url"`
	Method       string            `json:"method"`
	Headers      map[string]string `json:"headers,omitempty"`
	SubjectField string            `json:"subject_field,omitempty"`
	BodyField    string            `json:"body_field,omitempty"`
}

// Active reports whether the webhook should be called.
func (w WebhookConfig) Active() bool {
	return w.Enabled && w.URL != ""
}

type Attachment struct {
	Type string `json:"type"`
	URL  string `json:"url"`
	Name string `json:"name"`
}

// SequenceStep is one timed email stage of a campaign. StepNumber is 1-based.
type SequenceStep struct {
	ID              string        `db:"id" json:"id"`
	CampaignID      string        `db:"campaign_id" json:"campaign_id"`
	Name            string        `db:"name" json:"name"`
	StepNumber      int           `db:"step_number" json:"step_number"`
	DelayDays       int           `db:"delay_days" json:"delay_days"`
	DelayHours      int           `db:"delay_hours" json:"delay_hours"`
	DelayMinutes    int           `db:"delay_minutes" json:"delay_minutes"`
	SubjectVariants []string      `db:"subject_variants" json:"subject_variants"`
	BodyVariants    []string      `db:"body_variants" json:"body_variants"`
	Attachments     []Attachment  `db:"attachments" json:"attachments"`
	PresendWebhook  WebhookConfig `json:"presend_webhook"`
	ContentWebhook  WebhookConfig `json:"content_webhook"`
	CreatedAt       time.Time     `db:"created_at" json:"created_at"`
}

// TotalDelay is the wait applied after this step is sent.
func (s *SequenceStep) TotalDelay() time.Duration {
	seconds := s.DelayDays*86400 + s.DelayHours*3600 + s.DelayMinutes*60
	return time.Duration(seconds) * time.Second
}
