package webhook

import (
	"encoding/json"
	"net/url"
	"strconv"

	"github.com/unclebandit/outreach-backend/internal/model"
)

// Payload is the lead snapshot sent to pre-send and content webhooks.
type Payload struct {
	Email        string         `json:"email"`
	FirstName    *string        `json:"first_name"`
	LastName     *string        `json:"last_name"`
	Company      *string        `json:"company"`
	Title        *string        `json:"title"`
	Phone        *string        `json:"phone"`
	Website      *string        `json:"website"`
	LinkedinURL  *string        `json:"linkedin_url"`
	CustomFields map[string]any `json:"custom_fields"`
	CampaignID   string         `json:"campaign_id"`
	SequenceStep int            `json:"sequence_step"`
}

func NewPayload(lead *model.Lead, campaignID string, step int) Payload {
	return Payload{
		Email:        lead.Email,
		FirstName:    lead.FirstName,
		LastName:     lead.LastName,
		Company:      lead.Company,
		Title:        lead.Title,
		Phone:        lead.Phone,
		Website:      lead.Website,
		LinkedinURL:  lead.LinkedinURL,
		CustomFields: lead.CustomFields,
		CampaignID:   campaignID,
		SequenceStep: step,
	}
}

// Query encodes the payload for GET webhooks. Missing attributes become empty
// strings and custom_fields is sent as a JSON document.
func (p Payload) Query() url.Values {
	q := url.Values{}
	q.Set("email", p.Email)
	q.Set("first_name", model.Value(p.FirstName))
	q.Set("last_name", model.Value(p.LastName))
	q.Set("company", model.Value(p.Company))
	q.Set("title", model.Value(p.Title))
	q.Set("phone", model.Value(p.Phone))
	q.Set("website", model.Value(p.Website))
	q.Set("linkedin_url", model.Value(p.LinkedinURL))

	custom := "{}"
	if len(p.CustomFields) > 0 {
		if b, err := json.Marshal(p.CustomFields); err == nil {
			custom = string(b)
		}
	}
	q.Set("custom_fields", custom)
	q.Set("campaign_id", p.CampaignID)
	q.Set("sequence_step", strconv.Itoa(p.SequenceStep))
	return q
}
