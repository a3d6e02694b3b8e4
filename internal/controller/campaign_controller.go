// internal/controller/campaign_controller.go
package controller

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	appErrors "github.com/unclebandit/outreach-backend/internal/errors"
	"github.com/unclebandit/outreach-backend/internal/logger"
	"github.com/unclebandit/outreach-backend/internal/service"
)

type CampaignServiceInterface interface {
	EnrollLeads(ctx context.Context, campaignID string, leadIDs []string) (*service.EnrollResult, error)
	GetCampaignDetailsWithStats(ctx context.Context, campaignID string) (*service.CampaignDetails, error)
}

type CampaignController struct {
	CampaignService CampaignServiceInterface
	Log             *slog.Logger
}

type enrollBody struct {
	LeadIDs []string `json:"lead_ids" validate:"required,min=1,dive,required"`
}

func (c *CampaignController) log() *slog.Logger {
	if c.Log != nil {
		return c.Log
	}
	return logger.NewNope()
}

// EnrollLeads handles POST /campaigns/{id}/leads.
func (c *CampaignController) EnrollLeads(w http.ResponseWriter, r *http.Request) {
	campaignID := chi.URLParam(r, "id")

	var body enrollBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := c.CampaignService.EnrollLeads(r.Context(), campaignID, body.LeadIDs)
	switch {
	case err == nil:
	case appErrors.IsNotFound(err):
		writeError(w, http.StatusNotFound, err.Error())
		return
	case errors.Is(err, appErrors.ErrNoEmailAccounts):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	default:
		c.log().ErrorContext(r.Context(), "failed to enroll leads", "campaign_id", campaignID, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

// GetCampaignDetails handles GET /campaigns/{id}.
func (c *CampaignController) GetCampaignDetails(w http.ResponseWriter, r *http.Request) {
	campaignID := chi.URLParam(r, "id")

	details, err := c.CampaignService.GetCampaignDetailsWithStats(r.Context(), campaignID)
	if err != nil {
		if appErrors.IsNotFound(err) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		c.log().ErrorContext(r.Context(), "failed to load campaign", "campaign_id", campaignID, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, details)
}
