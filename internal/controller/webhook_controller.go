// internal/controller/webhook_controller.go
package controller

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	appErrors "github.com/unclebandit/outreach-backend/internal/errors"
	"github.com/unclebandit/outreach-backend/internal/logger"
	"github.com/unclebandit/outreach-backend/internal/service"
	"github.com/unclebandit/outreach-backend/internal/webhook"
)

type WebhookTester interface {
	TestWebhook(ctx context.Context, req service.WebhookTestRequest) (*service.WebhookTestResult, error)
}

type WebhookController struct {
	Webhooks WebhookTester
	Log      *slog.Logger
}

type webhookTestBody struct {
	URL                 string            `json:"url" validate:"required,url"`
	Method              string            `json:"method" validate:"omitempty,oneof=GET POST get post"`
	Headers             map[string]string `json:"headers"`
	AuthenticationType  string            `json:"authentication_type" validate:"omitempty,oneof=none bearer api_key"`
	AuthenticationValue string            `json:"authentication_value"`
	LeadEmail           string            `json:"lead_email" validate:"required,email"`
}

func (c *WebhookController) log() *slog.Logger {
	if c.Log != nil {
		return c.Log
	}
	return logger.NewNope()
}

// Test handles POST /webhooks/test.
func (c *WebhookController) Test(w http.ResponseWriter, r *http.Request) {
	var body webhookTestBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := c.Webhooks.TestWebhook(r.Context(), service.WebhookTestRequest{
		URL:                 body.URL,
		Method:              body.Method,
		Headers:             body.Headers,
		AuthenticationType:  body.AuthenticationType,
		AuthenticationValue: body.AuthenticationValue,
		LeadEmail:           body.LeadEmail,
	})
	if err != nil {
		if appErrors.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "Lead not found")
			return
		}
		c.log().WarnContext(r.Context(), "webhook test failed", "url", body.URL, "error", err)

		resp := map[string]any{"error": service.ErrWebhookCallFailed.Error()}
		var callErr *webhook.CallError
		if errors.As(err, &callErr) && callErr.StatusCode != 0 {
			resp["status"] = callErr.StatusCode
		}
		writeJSON(w, http.StatusInternalServerError, resp)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "status": res.StatusCode, "data": res.Data})
}
