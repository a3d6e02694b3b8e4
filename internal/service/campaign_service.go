// internal/service/campaign_service.go
package service

import (
	"context"
	"log/slog"
	"time"

	appErrors "github.com/unclebandit/outreach-backend/internal/errors"
	"github.com/unclebandit/outreach-backend/internal/logger"
	"github.com/unclebandit/outreach-backend/internal/model"
	"github.com/unclebandit/outreach-backend/internal/repository"
)

type CampaignService struct {
	CampaignRepo   repository.CampaignRepositoryInterface
	LeadRepo       repository.LeadRepositoryInterface
	EnrollmentRepo repository.EnrollmentRepositoryInterface
	Now            func() time.Time
	Log            *slog.Logger
}

// EnrollResult reports how many of the requested leads were newly enrolled.
type EnrollResult struct {
	CampaignID string `json:"campaign_id"`
	Enrolled   int    `json:"enrolled"`
	Skipped    int    `json:"skipped"`
}

type CampaignDetails struct {
	ID              string                   `json:"id"`
	Name            string                   `json:"name"`
	Status          string                   `json:"status"`
	EmailAccountIDs []string                 `json:"email_account_ids"`
	CreatedAt       time.Time                `json:"created_at"`
	UpdatedAt       *time.Time               `json:"updated_at,omitempty"`
	Stats           repository.CampaignStats `json:"stats"`
}

func (s *CampaignService) log() *slog.Logger {
	if s.Log != nil {
		return s.Log
	}
	return logger.NewNope()
}

// EnrollLeads queues every lead for the first step of the campaign, assigning
// sending accounts round-robin in the campaign's account order. Leads already
// enrolled are left as they are.
func (s *CampaignService) EnrollLeads(ctx context.Context, campaignID string, leadIDs []string) (*EnrollResult, error) {
	campaign, err := s.CampaignRepo.GetByID(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if len(campaign.EmailAccountIDs) == 0 {
		return nil, appErrors.ErrNoEmailAccounts
	}

	now := time.Now().UTC()
	if s.Now != nil {
		now = s.Now().UTC()
	}

	enrollments := make([]*model.Enrollment, 0, len(leadIDs))
	for i, leadID := range leadIDs {
		if _, err := s.LeadRepo.GetByID(ctx, leadID); err != nil {
			return nil, err
		}
		next := now
		enrollments = append(enrollments, &model.Enrollment{
			CampaignID:          campaignID,
			LeadID:              leadID,
			EmailAccountID:      campaign.EmailAccountIDs[i%len(campaign.EmailAccountIDs)],
			Status:              model.EnrollmentStatusQueued,
			CurrentSequenceStep: 0,
			NextFollowupAt:      &next,
			AddedAt:             now,
		})
	}

	inserted, err := s.EnrollmentRepo.CreateMany(ctx, enrollments)
	if err != nil {
		return nil, err
	}

	s.log().InfoContext(ctx, "leads enrolled", "campaign_id", campaignID, "enrolled", inserted, "requested", len(leadIDs))
	return &EnrollResult{
		CampaignID: campaignID,
		Enrolled:   inserted,
		Skipped:    len(leadIDs) - inserted,
	}, nil
}

func (s *CampaignService) GetCampaignDetailsWithStats(ctx context.Context, campaignID string) (*CampaignDetails, error) {
	campaign, err := s.CampaignRepo.GetByID(ctx, campaignID)
	if err != nil {
		return nil, err
	}

	stats, err := s.CampaignRepo.GetStats(ctx, campaignID)
	if err != nil {
		s.log().ErrorContext(ctx, "failed to load campaign stats", "campaign_id", campaignID, "error", err)
		return nil, err
	}

	return &CampaignDetails{
		ID:              campaign.ID,
		Name:            campaign.Name,
		Status:          campaign.Status,
		EmailAccountIDs: campaign.EmailAccountIDs,
		CreatedAt:       campaign.CreatedAt,
		UpdatedAt:       campaign.UpdatedAt,
		Stats:           stats,
	}, nil
}
