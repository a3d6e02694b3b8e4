package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/unclebandit/outreach-backend/internal/model"
	"github.com/unclebandit/outreach-backend/internal/service"
)

// SeedData is the fixture format accepted by cmd/migrate --seed.
type SeedData struct {
	Accounts  []SeedAccount  `json:"email_accounts"`
	Leads     []model.Lead   `json:"leads"`
	Campaigns []SeedCampaign `json:"campaigns"`
}

type SeedAccount struct {
	model.EmailAccount
	SMTPPassword string `json:"smtp_password"`
}

// SeedCampaign references accounts and leads by email address.
type SeedCampaign struct {
	Name          string               `json:"name"`
	Status        string               `json:"status"`
	AccountEmails []string             `json:"account_emails"`
	Steps         []model.SequenceStep `json:"steps"`
	LeadEmails    []string             `json:"lead_emails"`
}

type SeedSummary struct {
	Accounts  int
	Leads     int
	Campaigns int
	Steps     int
	Enrolled  int
}

func DecodeSeed(r io.Reader) (*SeedData, error) {
	var data SeedData
	if err := json.NewDecoder(r).Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode seed data: %w", err)
	}
	return &data, nil
}

// Seed inserts the fixture and enrolls each campaign's leads.
func Seed(ctx context.Context, d *Deps, data *SeedData, log *slog.Logger) (SeedSummary, error) {
	var sum SeedSummary
	accountIDs := map[string]string{}
	leadIDs := map[string]string{}

	for _, a := range data.Accounts {
		acct := a.EmailAccount
		acct.SMTPPassword = a.SMTPPassword
		if err := d.Accounts.Create(ctx, &acct); err != nil {
			return sum, fmt.Errorf("seed account %s: %w", acct.Email, err)
		}
		accountIDs[acct.Email] = acct.ID
		sum.Accounts++
	}

	for _, l := range data.Leads {
		if err := d.Leads.Create(ctx, &l); err != nil {
			return sum, fmt.Errorf("seed lead %s: %w", l.Email, err)
		}
		leadIDs[l.Email] = l.ID
		sum.Leads++
	}

	campaigns := &service.CampaignService{
		CampaignRepo:   d.Campaigns,
		LeadRepo:       d.Leads,
		EnrollmentRepo: d.Enrollments,
		Log:            log,
	}

	for _, sc := range data.Campaigns {
		c := &model.Campaign{Name: sc.Name, Status: sc.Status}
		for _, email := range sc.AccountEmails {
			id, ok := accountIDs[email]
			if !ok {
				return sum, fmt.Errorf("seed campaign %q: unknown account %s", sc.Name, email)
			}
			c.EmailAccountIDs = append(c.EmailAccountIDs, id)
		}
		if err := d.Campaigns.Create(ctx, c); err != nil {
			return sum, fmt.Errorf("seed campaign %q: %w", sc.Name, err)
		}
		sum.Campaigns++

		for _, step := range sc.Steps {
			step.CampaignID = c.ID
			if err := d.Sequences.Create(ctx, &step); err != nil {
				return sum, fmt.Errorf("seed campaign %q step %d: %w", sc.Name, step.StepNumber, err)
			}
			sum.Steps++
		}

		if len(sc.LeadEmails) == 0 {
			continue
		}
		ids := make([]string, 0, len(sc.LeadEmails))
		for _, email := range sc.LeadEmails {
			id, ok := leadIDs[email]
			if !ok {
				return sum, fmt.Errorf("seed campaign %q: unknown lead %s", sc.Name, email)
			}
			ids = append(ids, id)
		}
		res, err := campaigns.EnrollLeads(ctx, c.ID, ids)
		if err != nil {
			return sum, fmt.Errorf("seed campaign %q: %w", sc.Name, err)
		}
		sum.Enrolled += res.Enrolled
	}

	return sum, nil
}
